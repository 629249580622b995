package cron

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kayz/scribe/internal/logger"
	"github.com/robfig/cron/v3"
)

// Sweeper removes scratch files older than maxAge.
type Sweeper interface {
	Sweep(now time.Time, maxAge time.Duration) (int, error)
}

// Scheduler runs the scratch sweep on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	sweeper  Sweeper
	schedule string
	maxAge   time.Duration
	now      func() time.Time

	mu      sync.Mutex
	started bool
}

// NewScheduler creates a scheduler. schedule accepts 5-field (minute
// precision) or 6-field (with seconds) expressions and descriptors such as
// "@hourly".
func NewScheduler(sweeper Sweeper, schedule string, maxAge time.Duration) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()), // Support second-level precision
		sweeper:  sweeper,
		schedule: schedule,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// normalizeCron prepends "0 " to standard 5-field cron expressions
// so they work with the 6-field (with seconds) parser.
func normalizeCron(schedule string) string {
	if len(strings.Fields(schedule)) == 5 {
		return "0 " + schedule
	}
	return schedule
}

// Start registers the sweep job and starts the cron loop. An empty schedule
// leaves the scheduler idle.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if strings.TrimSpace(s.schedule) == "" {
		logger.Info("[CRON] Scratch sweep disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(normalizeCron(s.schedule), func() {
		if _, err := s.RunOnce(); err != nil {
			logger.Error("[CRON] Scratch sweep failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.started = true
	logger.Info("[CRON] Scratch sweep scheduled (%s, max age %s)", s.schedule, s.maxAge)
	return nil
}

// Stop stops the cron loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.started = false
	logger.Info("[CRON] Scheduler stopped")
}

// RunOnce sweeps immediately.
func (s *Scheduler) RunOnce() (int, error) {
	n, err := s.sweeper.Sweep(s.now(), s.maxAge)
	if err != nil {
		return n, err
	}
	if n > 0 {
		logger.Info("[CRON] Swept %d stale scratch file(s)", n)
	} else {
		logger.Debug("[CRON] Scratch sweep found nothing to remove")
	}
	return n, nil
}
