// Package scheduler runs the silent login on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one scheduled run.
type Job func(ctx context.Context)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Scheduler triggers a job on a cron expression. Overlapping runs are
// skipped.
type Scheduler struct {
	spec   string
	job    Job
	cron   *cron.Cron
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
	stopped bool

	running sync.Mutex
	wg      sync.WaitGroup
}

// New validates spec (five-field cron or a descriptor such as "@every 30m").
func New(spec string, job Job, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}

	cl := cronLogger{logger.Sugar()}
	c := cron.New(cron.WithParser(parser), cron.WithLogger(cl), cron.WithChain(cron.Recover(cl)))
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{spec: spec, job: job, cron: c, logger: logger, ctx: ctx, cancel: cancel}
	c.Schedule(schedule, cron.FuncJob(s.runOnce))
	return s, nil
}

// Start runs the job once immediately and then on schedule.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true

	s.logger.Info("scheduler started", zap.String("schedule", s.spec))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runOnce()
	}()
	s.cron.Start()
}

// Stop cancels any running job and waits for it to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// Next returns the time of the next scheduled run, or "" before Start.
func (s *Scheduler) Next() string {
	entries := s.cron.Entries()
	if len(entries) == 0 || entries[0].Next.IsZero() {
		return ""
	}
	return entries[0].Next.Format("2006-01-02 15:04:05")
}

func (s *Scheduler) runOnce() {
	if s.ctx.Err() != nil {
		return
	}
	if !s.running.TryLock() {
		s.logger.Info("previous run still in progress, skipping")
		return
	}
	defer s.running.Unlock()
	s.job(s.ctx)
}

type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
