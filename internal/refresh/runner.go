package refresh

import (
	"context"
	"time"

	"github.com/pkozlov/trendrank/internal/cache"
	"github.com/pkozlov/trendrank/internal/ranking"
	"github.com/pkozlov/trendrank/pkg/logger"
)

// Runner drives the scheduler on a fixed interval. When a notifier is
// configured it also listens for mutation events and coalesces them into one
// early cycle per debounce window, so a burst of votes triggers a single
// refresh instead of one per vote.
type Runner struct {
	scheduler *Scheduler
	interval  time.Duration
	debounce  time.Duration
	notifier  cache.Notifier
}

// NewRunner creates a refresh runner. notifier may be nil to disable
// event-driven refreshes.
func NewRunner(scheduler *Scheduler, interval, debounce time.Duration, notifier cache.Notifier) *Runner {
	return &Runner{
		scheduler: scheduler,
		interval:  interval,
		debounce:  debounce,
		notifier:  notifier,
	}
}

// Run blocks until ctx is cancelled, executing refresh cycles on every
// interval tick and after debounced mutation events.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	var events <-chan cache.Message
	if r.notifier != nil {
		ch, err := r.notifier.Subscribe(ctx, ranking.MutationChannel)
		if err != nil {
			logger.Warn("Failed to subscribe to mutation events, interval-only refresh",
				logger.ErrorField(err),
			)
		} else {
			events = ch
		}
	}

	logger.Info("Refresh runner started",
		logger.Duration("interval", r.interval),
		logger.Duration("debounce", r.debounce),
		logger.Bool("event_driven", events != nil),
	)

	var debounce *time.Timer
	var debounceC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			logger.Info("Refresh runner stopped")
			return

		case <-ticker.C:
			r.runOnce(ctx)

		case _, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			// Coalesce: the first event arms the timer, later ones ride along
			if debounce == nil {
				debounce = time.NewTimer(r.debounce)
				debounceC = debounce.C
			}

		case <-debounceC:
			debounce = nil
			debounceC = nil
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	if _, err := r.scheduler.RunRefreshCycle(ctx); err != nil {
		// Logged by the scheduler; next tick retries
		return
	}
}
