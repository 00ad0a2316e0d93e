package maintenance

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"inbox-rpa/internal/automation"
	"inbox-rpa/internal/config"
	"inbox-rpa/internal/store"
)

// Kind identifies one maintenance action with its own flag and cadence.
type Kind string

const (
	// KindRetention purges aged outcome rows, at most once per calendar day.
	KindRetention Kind = "retention"
	// KindCacheCleanup removes browser cache dirs once at least 7 days have
	// elapsed since the last run.
	KindCacheCleanup Kind = "cache_cleanup"
)

// flagDateLayout is the ISO calendar date stored in flag files.
const flagDateLayout = "2006-01-02"

// Scheduler gates the maintenance actions behind per-kind date flags. A
// missing or unparsable flag means the action is due (fail open toward
// running maintenance rather than silently skipping it).
type Scheduler struct {
	cfg   config.MaintenanceConfig
	store *store.OutcomeStore
	cache automation.Runner
	now   func() time.Time
}

// NewScheduler creates a maintenance scheduler over the configured state dir.
func NewScheduler(cfg config.MaintenanceConfig, st *store.OutcomeStore, cache automation.Runner) *Scheduler {
	return &Scheduler{cfg: cfg, store: st, cache: cache, now: time.Now}
}

// flagPath is the single-value date file for one kind.
func (s *Scheduler) flagPath(kind Kind) string {
	return filepath.Join(s.cfg.StateDir, fmt.Sprintf("last_%s.flag", kind))
}

// lastRun reads a kind's flag date. ok is false when the flag is missing or
// unparsable.
func (s *Scheduler) lastRun(kind Kind) (time.Time, bool) {
	raw, err := os.ReadFile(s.flagPath(kind))
	if err != nil {
		return time.Time{}, false
	}

	t, err := time.Parse(flagDateLayout, strings.TrimSpace(string(raw)))
	if err != nil {
		logrus.Warnf("Unparsable %s flag %q, treating as due", kind, strings.TrimSpace(string(raw)))
		return time.Time{}, false
	}
	return t, true
}

// ShouldRun reports whether a kind's action is due. Retention fires when the
// flag date differs from today's calendar date; cache cleanup fires when at
// least the configured number of whole days has elapsed since the flag date.
func (s *Scheduler) ShouldRun(kind Kind) bool {
	last, ok := s.lastRun(kind)
	if !ok {
		return true
	}

	today := s.now()
	switch kind {
	case KindRetention:
		return last.Format(flagDateLayout) != today.Format(flagDateLayout)
	case KindCacheCleanup:
		ly, lm, ld := last.Date()
		ty, tm, td := today.Date()
		lastDay := time.Date(ly, lm, ld, 0, 0, 0, 0, time.UTC)
		todayDay := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
		return int(todayDay.Sub(lastDay).Hours()/24) >= s.cfg.CacheIntervalDays
	default:
		return false
	}
}

// RecordRun stamps a kind's flag with today's date. Call only after the
// action completed; a failed action keeps its old flag so it retries on the
// next eligible cycle.
func (s *Scheduler) RecordRun(kind Kind) error {
	date := s.now().Format(flagDateLayout)
	if err := os.WriteFile(s.flagPath(kind), []byte(date+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write %s flag: %w", kind, err)
	}
	return nil
}

// RunDue executes whichever maintenance actions are due and stamps their
// flags on completion. Failures are logged and left unstamped.
func (s *Scheduler) RunDue() {
	if s.ShouldRun(KindRetention) {
		removed, ok := s.store.PurgeOlderThan(s.cfg.RetentionDays)
		if !ok {
			logrus.Error("Retention purge failed, will retry")
		} else {
			logrus.Infof("Retention purge removed %d records", removed)
			if err := s.RecordRun(KindRetention); err != nil {
				logrus.Errorf("Failed to record retention run: %v", err)
			}
		}
	}

	if s.ShouldRun(KindCacheCleanup) {
		if err := s.cache.CleanCache(); err != nil {
			logrus.Errorf("Browser cache cleanup failed, will retry: %v", err)
		} else if err := s.RecordRun(KindCacheCleanup); err != nil {
			logrus.Errorf("Failed to record cache cleanup run: %v", err)
		}
	}
}
