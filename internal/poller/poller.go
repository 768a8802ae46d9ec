// Package poller owns the update cadence: a gocron duration job in singleton
// mode, plus a throttle guard so no path (scheduled or manual) fetches before
// the configured interval has elapsed since the last attempt.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/kjstillabower/yandex-weather-bridge/internal/observability"
)

var (
	// ErrThrottled is returned when an update is requested before the poll
	// interval has elapsed since the last attempt.
	ErrThrottled = errors.New("update throttled")

	// ErrUpdateInFlight is returned when an update is already running.
	ErrUpdateInFlight = errors.New("update already in flight")
)

// Updater runs one fetch-and-map cycle. Implemented by the service layer.
type Updater interface {
	UpdateOnce(ctx context.Context) error
}

// Poller schedules entity updates at a fixed interval.
type Poller struct {
	updater   Updater
	interval  time.Duration
	tolerance time.Duration
	logger    *zap.Logger

	scheduler gocron.Scheduler

	mu          sync.Mutex
	lastAttempt time.Time
	running     bool
}

// New creates a Poller. interval must be positive.
func New(updater Updater, interval time.Duration, logger *zap.Logger) (*Poller, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", interval)
	}
	return &Poller{
		updater:   updater,
		interval:  interval,
		tolerance: throttleTolerance(interval),
		logger:    logger,
	}, nil
}

// throttleTolerance absorbs scheduler jitter. The duration job fires every
// interval, but lastAttempt is stamped a moment after the fire time, so a
// strict elapsed < interval comparison would reject legitimate scheduled
// ticks and stretch the effective cadence to a multiple of the interval.
func throttleTolerance(interval time.Duration) time.Duration {
	tolerance := interval / 10
	if tolerance > time.Second {
		tolerance = time.Second
	}
	return tolerance
}

// Start creates the scheduler and begins polling. The first update runs
// immediately; subsequent ticks fire every interval. Ticks that land while a
// previous run is still executing are rescheduled, not stacked.
func (p *Poller) Start(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(p.interval),
		gocron.NewTask(p.tick),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("entity_update_job"),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("create update job: %w", err)
	}

	p.scheduler = scheduler
	scheduler.Start()
	p.logger.Info("poller started", zap.Duration("interval", p.interval))
	return nil
}

// Shutdown stops the scheduler. Safe to call when Start was never called.
func (p *Poller) Shutdown() error {
	if p.scheduler == nil {
		return nil
	}
	return p.scheduler.Shutdown()
}

func (p *Poller) tick(ctx context.Context) {
	if err := p.TryUpdate(ctx); err != nil {
		if errors.Is(err, ErrThrottled) || errors.Is(err, ErrUpdateInFlight) {
			p.logger.Debug("poll tick skipped", zap.Error(err))
		}
		// Fetch failures are already logged by the updater.
	}
}

// TryUpdate runs one update if the throttle allows it. The throttle counts
// from the last attempt, successful or not: a failed fetch waits for the next
// interval rather than hammering the upstream.
func (p *Poller) TryUpdate(ctx context.Context) error {
	p.mu.Lock()
	now := time.Now()
	if p.running {
		p.mu.Unlock()
		observability.PollSkipsTotal.WithLabelValues("in_flight").Inc()
		return ErrUpdateInFlight
	}
	if !p.lastAttempt.IsZero() {
		if elapsed := now.Sub(p.lastAttempt); elapsed < p.interval-p.tolerance {
			p.mu.Unlock()
			observability.PollSkipsTotal.WithLabelValues("throttled").Inc()
			return fmt.Errorf("%w: %s until next update", ErrThrottled, p.interval-elapsed)
		}
	}
	p.running = true
	p.lastAttempt = now
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	observability.PollRunsTotal.Inc()
	return p.updater.UpdateOnce(ctx)
}

// NextAllowed returns when the throttle next permits an update.
func (p *Poller) NextAllowed() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastAttempt.IsZero() {
		return time.Time{}
	}
	return p.lastAttempt.Add(p.interval)
}
