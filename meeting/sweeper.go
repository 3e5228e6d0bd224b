package meeting

import (
	"context"
	"errors"
	"time"

	"meetingflow/clock"
)

// Sweeper completes accepted meetings whose scheduled end has elapsed.
type Sweeper struct {
	svc   *Service
	store Store
	batch int
}

// NewSweeper returns a Sweeper completing up to batch meetings per pass.
func NewSweeper(svc *Service, batch int) *Sweeper {
	if batch <= 0 {
		batch = 100
	}
	return &Sweeper{svc: svc, store: svc.store, batch: batch}
}

// Sweep runs a single pass and returns how many meetings were completed.
// Meetings cancelled or rescheduled in the meantime are skipped.
func (w *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := w.svc.clock.Now()
	cctx, cancel := w.svc.storeContext(ctx)
	due, err := w.store.ListEnded(cctx, StatusAccepted, now, w.batch)
	cancel()
	if err != nil {
		return 0, classify(err)
	}

	completed := 0
	for _, m := range due {
		if _, err := w.svc.Complete(ctx, m.ID); err != nil {
			if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) {
				continue
			}
			if ctx.Err() != nil {
				return completed, ctx.Err()
			}
			w.svc.logger.Printf("meeting: sweeper complete %s: %v", m.ID, err)
			continue
		}
		completed++
	}
	return completed, nil
}

// Run sweeps every interval until ctx is cancelled.
func (w *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	err := clock.Tick(ctx, w.svc.clock, interval, func(time.Time) bool {
		n, err := w.Sweep(ctx)
		if err != nil && ctx.Err() == nil {
			w.svc.logger.Printf("meeting: sweep: %v", err)
		}
		if n > 0 {
			w.svc.logger.Printf("meeting: sweeper completed %d meetings", n)
		}
		return true
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
