// Package worker runs the periodic jobs of cmd/subtrack-worker.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"subtrack/internal/log"
)

// JobObserver records job runs. *metrics.Collector implements it.
type JobObserver interface {
	ObserveJob(job string, err error, d time.Duration)
}

// Job is one scheduled unit of work.
type Job struct {
	Name     string
	Schedule string
	// Timeout bounds a single run; zero means DefaultJobTimeout.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

const DefaultJobTimeout = 2 * time.Minute

// Scheduler runs jobs on cron schedules. Panics inside a job are recovered
// and logged by the cron chain.
type Scheduler struct {
	cron     *cron.Cron
	logger   *log.Logger
	observer JobObserver

	mu   sync.Mutex
	jobs map[string]Job
	ctx  context.Context
}

func NewScheduler(logger *log.Logger, observer JobObserver) *Scheduler {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentWorker)
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))

	return &Scheduler{
		cron:     cron.New(cron.WithChain(cron.Recover(cronLogger))),
		logger:   logger,
		observer: observer,
		jobs:     make(map[string]Job),
		ctx:      context.Background(),
	}
}

// Add registers job under its standard five-field cron schedule.
func (s *Scheduler) Add(job Job) error {
	if job.Run == nil {
		return fmt.Errorf("job %s has no run function", job.Name)
	}
	if _, err := s.cron.AddFunc(job.Schedule, func() { _ = s.run(job) }); err != nil {
		return fmt.Errorf("schedule job %s: %w", job.Name, err)
	}

	s.mu.Lock()
	s.jobs[job.Name] = job
	s.mu.Unlock()

	s.logger.Info("Scheduled job", "job", job.Name, "schedule", job.Schedule)
	return nil
}

// Start begins running jobs. Runs derive their context from ctx, so
// cancelling it aborts jobs in flight.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.Start()
}

// Stop prevents new runs. The returned context is done once running jobs
// have completed.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunNow runs a registered job immediately, outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %s", name)
	}
	return s.run(job)
}

func (s *Scheduler) run(job Job) error {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()

	timeout := job.Timeout
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	start := time.Now()
	err := job.Run(ctx)
	elapsed := time.Since(start)

	if s.observer != nil {
		s.observer.ObserveJob(job.Name, err, elapsed)
	}
	if err != nil {
		s.logger.Error("Job failed", "job", job.Name, log.FieldError, err, log.FieldDuration, elapsed.Milliseconds())
		return err
	}
	s.logger.Info("Job completed", "job", job.Name, log.FieldDuration, elapsed.Milliseconds())
	return nil
}
