package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/formflow/internal/runtime"
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/muesli/termenv"
)

// Printer writes prompts and system messages to the terminal.
type Printer struct {
	out      *termenv.Output
	fallback string
}

// NewPrinter detects the color profile of w. Plain writers get no escapes.
func NewPrinter(w io.Writer, fallback string, opts ...termenv.OutputOption) *Printer {
	return &Printer{out: termenv.NewOutput(w, opts...), fallback: fallback}
}

// Banner prints the formflow banner.
func (p *Printer) Banner(title string) {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, p.out.String("  ┌─┐┌─┐┬─┐┌┬┐┌─┐┬  ┌─┐┬ ┬").Foreground(p.out.Color("#818cf8")))
	fmt.Fprintln(p.out, p.out.String("  ├┤ │ │├┬┘│││├┤ │  │ ││││").Foreground(p.out.Color("#c084fc")))
	fmt.Fprintln(p.out, p.out.String("  └  └─┘┴└─┴ ┴└  ┴─┘└─┘└┴┘").Foreground(p.out.Color("#f472b6")))
	if title != "" {
		fmt.Fprintln(p.out, p.out.String("  "+title).Faint())
	}
	fmt.Fprintln(p.out)
}

// System prints a standardized system message.
func (p *Printer) System(format string, args ...any) {
	fmt.Fprintln(p.out, p.out.String(">>> "+fmt.Sprintf(format, args...)).Faint())
}

// Question prints q in lang together with the current progress.
func (p *Printer) Question(q domain.Question, lang string, progress runtime.Progress) {
	title := q.Title.Get(lang, p.fallback)
	counter := fmt.Sprintf("[%d/%d]", progress.Answered+1, progress.Total)
	fmt.Fprintf(p.out, "%s %s", p.out.String(counter).Faint(), p.out.String(title).Bold())
	if !q.Required {
		fmt.Fprint(p.out, p.out.String(" (optional)").Faint())
	}
	fmt.Fprintln(p.out)

	for i, o := range q.Options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, o.Label.Get(lang, p.fallback))
	}
	switch {
	case q.Type == domain.TypeMultiSelect:
		p.hint("choose one or more, separated by commas")
	case q.Type == domain.TypeBoolean:
		p.hint("yes / no")
	case q.Type == domain.TypeDate:
		p.hint("YYYY-MM-DD")
	case q.Placeholder.Get(lang, p.fallback) != "":
		p.hint(q.Placeholder.Get(lang, p.fallback))
	}
	fmt.Fprint(p.out, p.out.String("> ").Foreground(p.out.Color("#818cf8")))
}

func (p *Printer) hint(s string) {
	fmt.Fprintln(p.out, p.out.String("  "+s).Faint().Italic())
}

// Rejection prints why an answer was refused.
func (p *Printer) Rejection(r *domain.Rejection, lang string) {
	msg := r.Text(lang, p.fallback)
	if msg == "" {
		msg = string(r.Kind)
	}
	fmt.Fprintln(p.out, p.out.String("✗ "+msg).Foreground(p.out.Color("#fb7185")))
}

// Records prints the answers of a completed session grouped by destination.
func (p *Printer) Records(records []domain.Record) {
	for _, r := range records {
		dest := r.Destination
		if dest == "" {
			dest = "default"
		}
		fmt.Fprintln(p.out, p.out.String(dest).Bold().Underline())
		for _, id := range r.Order {
			fmt.Fprintf(p.out, "  %s: %s\n", id, strings.Join(r.Answers[id].Atoms(), ", "))
		}
	}
}
