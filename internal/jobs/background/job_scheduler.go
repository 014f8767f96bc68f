package background

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// PriceReconciler recomputes stored effective prices and reports how many changed
type PriceReconciler interface {
	RefreshEffectivePrices(ctx context.Context) (int, error)
}

// JobScheduler runs the periodic catalog maintenance jobs
type JobScheduler struct {
	scheduler gocron.Scheduler
	prices    PriceReconciler
	log       *zap.Logger
	jobs      map[string]gocron.Job
	mu        sync.RWMutex
}

// NewJobScheduler creates a scheduler that reconciles effective prices every interval
func NewJobScheduler(prices PriceReconciler, interval time.Duration, log *zap.Logger) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	js := &JobScheduler{
		scheduler: scheduler,
		prices:    prices,
		log:       log,
		jobs:      make(map[string]gocron.Job),
	}
	if err := js.registerJobs(interval); err != nil {
		_ = scheduler.Shutdown()
		return nil, err
	}
	return js, nil
}

// Start starts the job scheduler
func (js *JobScheduler) Start() {
	js.log.Info("starting background job scheduler")
	js.scheduler.Start()
}

// Stop stops the job scheduler
func (js *JobScheduler) Stop() error {
	js.log.Info("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs(interval time.Duration) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	priceJob, err := js.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(js.refreshEffectivePrices, context.Background()),
		gocron.WithName("effective-price-refresh"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("create effective price job: %w", err)
	}
	js.jobs["effective-price-refresh"] = priceJob

	js.log.Debug("registered background jobs", zap.Int("count", len(js.jobs)))
	return nil
}

func (js *JobScheduler) refreshEffectivePrices(ctx context.Context) error {
	started := time.Now()
	updated, err := js.prices.RefreshEffectivePrices(ctx)
	if err != nil {
		js.log.Error("effective price refresh failed", zap.Int("updated", updated), zap.Error(err))
		return err
	}
	js.log.Info("effective prices refreshed",
		zap.Int("updated", updated),
		zap.Duration("took", time.Since(started)))
	return nil
}

// GetJobStatus returns the names and next runs of the scheduled jobs
func (js *JobScheduler) GetJobStatus() map[string]any {
	js.mu.RLock()
	defer js.mu.RUnlock()

	next := make(map[string]string, len(js.jobs))
	for name, job := range js.jobs {
		run, err := job.NextRun()
		if err != nil || run.IsZero() {
			next[name] = "not scheduled"
			continue
		}
		next[name] = run.UTC().Format(time.RFC3339)
	}
	return map[string]any{
		"total_jobs": len(js.jobs),
		"next_run":   next,
	}
}
