package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"inbox-rpa/internal/config"
	"inbox-rpa/internal/maintenance"
	"inbox-rpa/internal/triage"
)

// Scheduler owns the repeat-every-interval loop around the single-cycle
// triage contract. Maintenance gates run before each cycle.
type Scheduler struct {
	cron         *cron.Cron
	entryID      cron.EntryID
	config       *config.SchedulerConfig
	orchestrator *triage.Orchestrator
	maintenance  *maintenance.Scheduler
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	isRunning    bool
	mu           sync.RWMutex
	cycleMu      sync.Mutex
}

// NewScheduler creates a new scheduler
func NewScheduler(cfg *config.SchedulerConfig, orch *triage.Orchestrator, maint *maintenance.Scheduler) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:         cron.New(cron.WithSeconds()),
		config:       cfg,
		orchestrator: orch,
		maintenance:  maint,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	schedule := fmt.Sprintf("@every %ds", s.config.IntervalSeconds)

	entryID, err := s.cron.AddFunc(schedule, s.runCycle)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.entryID = entryID
	s.cron.Start()
	s.isRunning = true

	logrus.Infof("Scheduler started with interval: %d seconds", s.config.IntervalSeconds)
	return nil
}

// Stop stops the scheduler. Interrupts are honored between cycles only; a
// running cycle is allowed to finish within the stop timeout.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.cancel()

	ctx := s.cron.Stop()

	select {
	case <-ctx.Done():
		logrus.Info("Scheduler stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Scheduler stop timeout, forcing shutdown")
	}

	s.isRunning = false
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// runCycle is the scheduled tick: maintenance gates first, then one triage
// cycle.
func (s *Scheduler) runCycle() {
	s.wg.Add(1)
	defer s.wg.Done()

	s.mu.RLock()
	if !s.isRunning {
		s.mu.RUnlock()
		logrus.Info("Scheduler not running, skipping cycle")
		return
	}
	s.mu.RUnlock()

	start := time.Now()

	// A cycle drives one IMAP session and at most one browser at a time,
	// so scheduled and manually triggered cycles never overlap.
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	s.maintenance.RunDue()
	s.orchestrator.RunCycle(s.ctx)

	logrus.Infof("Scheduled cycle completed in %v", time.Since(start))
}

// RunOnce runs the maintenance gates and one triage cycle immediately. Used
// by single-shot mode and the manual HTTP trigger.
func (s *Scheduler) RunOnce() {
	logrus.Info("Running triage cycle once")

	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	s.maintenance.RunDue()
	s.orchestrator.RunCycle(s.ctx)
}

// GetNextRun returns the time of the next scheduled run
func (s *Scheduler) GetNextRun() time.Time {
	if !s.IsRunning() {
		return time.Time{}
	}

	entry := s.cron.Entry(s.entryID)
	return entry.Next
}

// GetLastRun returns the time of the last run
func (s *Scheduler) GetLastRun() time.Time {
	if !s.IsRunning() {
		return time.Time{}
	}

	entry := s.cron.Entry(s.entryID)
	return entry.Prev
}

// Wait waits for any in-flight cycle to finish
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
