package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/trayfoods/trayfoods-backend/pkg/logger"
	"github.com/trayfoods/trayfoods-backend/pkg/metrics"
)

// LockFactory mints one distributed lock per job name.
type LockFactory func(name string, ttl time.Duration) (Lock, error)

// ServiceParams configure the reconciler worker.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Locks    LockFactory
	Metrics  *metrics.CronJobMetrics
}

// Service schedules every registered job on its own cadence. Each run is
// guarded by a per-job lock so only one worker replica executes it.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	locks    map[string]Lock
	metrics  *metrics.CronJobMetrics
}

// NewService builds the worker and pre-mints the job locks.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Locks == nil {
		return nil, fmt.Errorf("lock factory required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	locks := make(map[string]Lock)
	for _, job := range registry.Jobs() {
		if job.Interval() <= 0 {
			return nil, fmt.Errorf("job %s has no interval", job.Name())
		}
		lock, err := params.Locks(job.Name(), job.Interval())
		if err != nil {
			return nil, fmt.Errorf("lock for %s: %w", job.Name(), err)
		}
		locks[job.Name()] = lock
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		locks:    locks,
		metrics:  params.Metrics,
	}, nil
}

// Run blocks until the context is canceled, driving every job loop.
func (s *Service) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, job := range s.registry.Jobs() {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			s.loop(ctx, job)
		}(job)
	}
	wg.Wait()
	return ctx.Err()
}

func (s *Service) loop(ctx context.Context, job Job) {
	s.runJob(ctx, job)
	ticker := time.NewTicker(job.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runJob(ctx, job)
		}
	}
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())

	lock := s.locks[job.Name()]
	held, err := lock.Acquire(ctx)
	if err != nil {
		s.logg.Error(jobCtx, "lock acquire failed", err)
		return
	}
	if !held {
		s.logg.Info(jobCtx, "another worker holds the job, skipping")
		return
	}
	defer func() {
		if relErr := lock.Release(ctx); relErr != nil {
			s.logg.Error(jobCtx, "lock release failed", relErr)
		}
	}()

	start := time.Now()
	runErr := job.Run(jobCtx)
	duration := time.Since(start)
	s.metrics.ObserveDuration(job.Name(), duration)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if runErr != nil {
		s.logg.Error(jobCtx, "job failed", runErr)
		s.metrics.IncFailure(job.Name())
		return
	}
	s.logg.Info(jobCtx, "job completed")
	s.metrics.IncSuccess(job.Name())
}
