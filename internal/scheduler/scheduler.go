// Package scheduler runs the periodic background work of the service: ICS
// feed refresh and calendar preview capture.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	appLog "apptcal/internal/log"
)

// Job is one unit of periodic work.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Scheduler runs its jobs sequentially on a cron spec. A run that is still
// going when the next tick fires is skipped.
type Scheduler struct {
	spec string
	jobs []Job

	cron   *cron.Cron
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New validates spec (standard 5-field cron, or descriptors like "@hourly").
func New(spec string, jobs ...Job) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("scheduler: invalid cron spec %q: %w", spec, err)
	}
	return &Scheduler{spec: spec, jobs: jobs}, nil
}

// RunOnce runs every job once, in order. Job errors are logged; the first
// one is returned after all jobs ran.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var first error
	for _, j := range s.jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := j.Run(ctx); err != nil {
			appLog.Error("scheduled job failed", err, "job", j.Name)
			if first == nil {
				first = fmt.Errorf("%s: %w", j.Name, err)
			}
			continue
		}
		appLog.Debug("scheduled job done", "job", j.Name)
	}
	return first
}

// Start runs the jobs once immediately in the background and then on every
// tick until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("scheduler: already started")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	runCtx := s.ctx
	if _, err := s.cron.AddFunc(s.spec, func() { _ = s.RunOnce(runCtx) }); err != nil {
		s.cancel()
		s.cron = nil
		return fmt.Errorf("scheduler: add job: %w", err)
	}

	s.cron.Start()
	go func() { _ = s.RunOnce(runCtx) }()
	go func() {
		<-runCtx.Done()
		s.Stop()
	}()

	appLog.Info("scheduler started", "spec", s.spec, "jobs", len(s.jobs))
	return nil
}

// Stop cancels in-flight jobs and waits for the cron runner to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	appLog.Info("scheduler stopped")
}
