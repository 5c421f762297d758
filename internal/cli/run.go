package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/formflow"
	"github.com/aretw0/formflow/pkg/adapters/file"
	"github.com/aretw0/formflow/pkg/adapters/loader"
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/observability"
	"github.com/aretw0/formflow/pkg/session"
	"github.com/muesli/termenv"
)

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	FormPath  string
	UserID    string
	Variant   domain.Variant // derived from Facts.UserExists when empty
	Facts     domain.Facts
	Language  string
	StorePath string // defaults to .formflow/sessions
	Fresh     bool
	Watch     bool
	Debug     bool
	NoBanner  bool
}

// IO groups the streams used by a run.
type IO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
	// Plain disables colors regardless of what Out supports.
	Plain bool
}

// Execute loads the form, resumes or starts the user's session and runs the
// interactive loop until the session ends, the user quits or ctx is done.
func Execute(ctx context.Context, opts RunOptions, stdio IO) error {
	if opts.UserID == "" {
		opts.UserID = "local"
	}
	logger := createLogger(opts.Debug, stdio.Err)

	src := loader.NewFile(opts.FormPath, loader.WithFileLogger(logger))
	def, err := src.Definition(ctx)
	if err != nil {
		return err
	}
	engine, err := formflow.New(def,
		formflow.WithLogger(logger),
		formflow.WithLifecycleHooks(observability.LoggingHooks(logger)),
	)
	if err != nil {
		return err
	}

	info := engine.Schema().Info()
	var printerOpts []termenv.OutputOption
	if stdio.Plain {
		printerOpts = append(printerOpts, termenv.WithProfile(termenv.Ascii))
	}
	printer := NewPrinter(stdio.Out, info.DefaultLanguage, printerOpts...)
	if !opts.NoBanner {
		printer.Banner(info.Name)
	}

	store := file.New(opts.StorePath)
	mgr := session.NewManager(engine, store, session.WithLogger(logger))
	if opts.Fresh {
		if err := mgr.Delete(ctx, opts.UserID); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if opts.Watch {
		w := loader.NewWatcher(src, engine.Reload,
			loader.WithLogger(logger),
			loader.WithResultHook(func(err error) {
				if err != nil {
					printer.System("Form change rejected: %v", err)
					return
				}
				printer.System("Form reloaded (%s).", engine.Schema().Version())
			}),
		)
		go func() { _ = w.Run(ctx) }()
	}

	variant := opts.Variant
	if variant == "" {
		variant = domain.VariantNewUser
		if opts.Facts.UserExists {
			variant = domain.VariantReturningUser
		}
	}
	var startOpts []formflow.StartOption
	if opts.Language != "" {
		startOpts = append(startOpts, formflow.WithLanguage(opts.Language))
	}

	before, _ := store.Load(ctx, opts.UserID)
	sess, err := mgr.Begin(ctx, opts.UserID, variant, opts.Facts, startOpts...)
	if err != nil {
		return fmt.Errorf("failed to init session: %w", err)
	}
	if before != nil && before.ID == sess.ID {
		printer.System("Resuming session for '%s' (%d answers).", opts.UserID, len(sess.Answers))
	} else {
		printer.System("Session for '%s' started.", opts.UserID)
	}

	r := &Runner{manager: mgr, printer: printer, userID: opts.UserID, lines: readLines(ctx, stdio.In)}
	return handleExecutionError(r.Loop(ctx))
}
