package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/gheehive-storefront/pkg/logger"
	"github.com/angelmondragon/gheehive-storefront/pkg/metrics"
)

const (
	defaultInterval = time.Minute
	lockName        = "maintenance"
)

// Job is a task run on every maintenance cycle.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Locker grants a cross-instance lease. A nil release means the lease is held elsewhere.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error)
}

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Jobs     []Job
	Metrics  *metrics.Maintenance
	Interval time.Duration
	// Shared jobs run on one instance per cycle when Locker is set.
	Shared []Job
	Locker Locker
}

// Service executes registered jobs on a fixed cadence.
type Service struct {
	logg     *logger.Logger
	local    []Job
	shared   []Job
	locker   Locker
	metrics  *metrics.Maintenance
	interval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		local:    compact(params.Jobs),
		shared:   compact(params.Shared),
		locker:   params.Locker,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run loops until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Service) runCycle(ctx context.Context) {
	for _, job := range s.local {
		s.runJob(ctx, job)
	}
	if len(s.shared) == 0 {
		return
	}
	if s.locker != nil {
		release, err := s.locker.TryLock(ctx, lockName, s.interval)
		if err != nil {
			s.logg.Error(ctx, "maintenance lock acquire failed", err)
			return
		}
		if release == nil {
			s.logg.Debug(ctx, "another instance holds the maintenance lock; skipping shared jobs")
			return
		}
		defer func() {
			if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
				s.logg.Error(ctx, "failed to release maintenance lock", relErr)
			}
		}()
	}
	for _, job := range s.shared {
		s.runJob(ctx, job)
	}
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "cron.job"})
	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	s.metrics.ObserveRun(job.Name(), duration, err)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		return
	}
	s.logg.Debug(jobCtx, "job completed")
}

func compact(jobs []Job) []Job {
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		if job != nil {
			out = append(out, job)
		}
	}
	return out
}
