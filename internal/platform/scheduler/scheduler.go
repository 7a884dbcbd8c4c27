// Package scheduler reloads open collections on a fixed interval so role
// dashboards pick up changes made by other users.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// Target is something that can refresh itself from the backend.
type Target interface {
	Name() string
	Reload(ctx context.Context) error
}

type TargetFunc struct {
	ID string
	Fn func(ctx context.Context) error
}

func (t TargetFunc) Name() string                     { return t.ID }
func (t TargetFunc) Reload(ctx context.Context) error { return t.Fn(ctx) }

type Reloader struct {
	interval  time.Duration
	timeout   time.Duration
	targets   []Target
	logger    zerolog.Logger
	scheduler *gocron.Scheduler

	mu      sync.Mutex
	lastRun time.Time
	cancel  context.CancelFunc
}

func NewReloader(interval time.Duration, logger zerolog.Logger, targets ...Target) *Reloader {
	s := gocron.NewScheduler(time.Local)
	s.SingletonModeAll()
	timeout := interval
	if timeout <= 0 || timeout > time.Minute {
		timeout = time.Minute
	}
	return &Reloader{
		interval:  interval,
		timeout:   timeout,
		targets:   targets,
		logger:    logger,
		scheduler: s,
	}
}

// Start schedules periodic reloads. The first run happens one interval after
// start; a run still in progress when the next is due is skipped.
func (r *Reloader) Start(ctx context.Context) error {
	if r.interval <= 0 {
		r.logger.Info().Msg("periodic reload disabled")
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	_, err := r.scheduler.Every(r.interval).WaitForSchedule().Do(func() {
		r.RunOnce(ctx)
	})
	if err != nil {
		cancel()
		return fmt.Errorf("schedule reload: %w", err)
	}
	r.scheduler.StartAsync()
	r.logger.Info().Dur("interval", r.interval).Int("targets", len(r.targets)).Msg("periodic reload started")
	return nil
}

// RunOnce reloads every target and returns the number that failed.
func (r *Reloader) RunOnce(ctx context.Context) int {
	start := time.Now()
	failed := 0
	for _, t := range r.targets {
		if ctx.Err() != nil {
			break
		}
		tctx, cancel := context.WithTimeout(ctx, r.timeout)
		err := t.Reload(tctx)
		cancel()
		if err != nil {
			failed++
			r.logger.Warn().Err(err).Str("target", t.Name()).Msg("reload failed")
		}
	}
	r.mu.Lock()
	r.lastRun = time.Now()
	r.mu.Unlock()
	r.logger.Debug().Dur("duration", time.Since(start)).Int("failed", failed).Msg("reload run completed")
	return failed
}

func (r *Reloader) LastRun() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRun
}

// Stop stops the scheduler and cancels a run in progress.
func (r *Reloader) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()
	r.scheduler.Stop()
}
