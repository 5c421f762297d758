package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/session"
)

// Runner drives one user's session from terminal input.
type Runner struct {
	manager *session.Manager
	printer *Printer
	userID  string
	lines   <-chan string
}

// Loop asks the next question until the session is terminal.
//
// Commands: ":q" leaves (the session stays saved), ":cancel [reason]" cancels.
func (r *Runner) Loop(ctx context.Context) error {
	for {
		sess, next, err := r.manager.Current(ctx, r.userID)
		if err != nil {
			return err
		}
		if next == nil {
			return r.finish(ctx, sess)
		}

		engine := r.manager.Engine()
		r.printer.Question(*next, sess.Language, engine.Progress(sess))

		line, err := r.read(ctx)
		if err != nil {
			return err
		}
		switch cmd := strings.TrimSpace(line); {
		case cmd == ":q" || cmd == ":quit":
			r.printer.System("Session saved. Run again to resume.")
			return errQuit
		case strings.HasPrefix(cmd, ":cancel"):
			reason := strings.TrimSpace(strings.TrimPrefix(cmd, ":cancel"))
			if _, err := r.manager.Cancel(ctx, r.userID, reason); err != nil {
				return err
			}
			r.printer.System("Session cancelled.")
			return nil
		}

		step, err := r.manager.Answer(ctx, r.userID, next.ID, ParseAnswer(*next, line))
		switch {
		case errors.Is(err, domain.ErrSessionOutOfSync):
			// The form was reloaded underneath us; ask again.
			r.printer.System("The form changed, asking again.")
			continue
		case err != nil:
			return err
		}
		if rej := step.Outcome.Rejection; rej != nil {
			r.printer.Rejection(rej, sess.Language)
		}
	}
}

func (r *Runner) finish(ctx context.Context, sess *domain.Session) error {
	if sess.Status == domain.StatusCancelled {
		r.printer.System("Session was cancelled.")
		return nil
	}
	if sess.Active() {
		var err error
		if sess, err = r.manager.Complete(ctx, r.userID); err != nil {
			return err
		}
	}
	r.printer.System("Form complete.")
	r.printer.Records(r.manager.Engine().Records(sess))
	return nil
}

func (r *Runner) read(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-r.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	}
}

// readLines pumps lines from in until EOF. The goroutine exits on EOF; a
// blocked terminal read outlives ctx, which is acceptable at process exit.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case out <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// ParseAnswer maps terminal input to a raw answer. Option numbers are
// accepted for select questions; multi-select input is comma separated.
func ParseAnswer(q domain.Question, line string) domain.RawAnswer {
	line = strings.TrimSpace(line)
	switch q.Type {
	case domain.TypeSingleSelect:
		return domain.Text(optionKey(q, line))
	case domain.TypeMultiSelect:
		if line == "" {
			return domain.RawAnswer{}
		}
		parts := strings.Split(line, ",")
		keys := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				keys = append(keys, optionKey(q, p))
			}
		}
		return domain.Choices(keys...)
	}
	return domain.Text(line)
}

func optionKey(q domain.Question, s string) string {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > len(q.Options) {
		return s
	}
	return q.Options[n-1].Value
}
