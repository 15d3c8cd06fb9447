package host

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

// Runner runs a frame loop with optional periodic autosave, stopping on
// SIGINT or SIGTERM.
type Runner struct {
	Driver        *Driver
	AutosaveID    string
	AutosaveEvery time.Duration
}

// Run calls loop on the calling goroutine, which matters for renderers
// bound to the main thread, and autosaves alongside it. When loop returns
// the autosave stops and, if an autosave ID is set, a final save is made.
// Cancellation is not an error.
func (r *Runner) Run(ctx context.Context, loop func(context.Context) error) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	loopCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	if r.AutosaveID != "" && r.AutosaveEvery > 0 {
		g.Go(func() error {
			r.autosave(loopCtx)
			return nil
		})
	}

	err := loop(loopCtx)
	cancel()
	if werr := g.Wait(); err == nil {
		err = werr
	}

	if r.AutosaveID != "" {
		if _, serr := r.Driver.saveDirect(context.Background(), r.AutosaveID); serr != nil {
			r.Driver.log.Error("final autosave failed", "id", r.AutosaveID, "error", serr)
		}
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (r *Runner) autosave(ctx context.Context) {
	ticker := time.NewTicker(r.AutosaveEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Driver.Save(ctx, r.AutosaveID); err != nil && !errors.Is(err, context.Canceled) {
				r.Driver.log.Warn("autosave failed", "id", r.AutosaveID, "error", err)
			}
		}
	}
}
