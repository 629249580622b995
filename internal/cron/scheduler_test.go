package cron

import (
	"errors"
	"testing"
	"time"
)

type fakeSweeper struct {
	calls  int
	maxAge time.Duration
	n      int
	err    error
}

func (f *fakeSweeper) Sweep(_ time.Time, maxAge time.Duration) (int, error) {
	f.calls++
	f.maxAge = maxAge
	return f.n, f.err
}

func TestNormalizeCron(t *testing.T) {
	if got := normalizeCron("*/15 * * * *"); got != "0 */15 * * * *" {
		t.Fatalf("unexpected 5-field normalization: %q", got)
	}
	if got := normalizeCron("30 */15 * * * *"); got != "30 */15 * * * *" {
		t.Fatalf("6-field expression should be untouched: %q", got)
	}
	if got := normalizeCron("@hourly"); got != "@hourly" {
		t.Fatalf("descriptor should be untouched: %q", got)
	}
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	s := NewScheduler(&fakeSweeper{}, "not a schedule", time.Hour)
	if err := s.Start(); err == nil {
		t.Fatalf("expected invalid schedule error")
	}
}

func TestStartWithEmptyScheduleIsIdle(t *testing.T) {
	s := NewScheduler(&fakeSweeper{}, "", time.Hour)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.Stop()
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(&fakeSweeper{}, "@every 1h", time.Hour)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("second start: %v", err)
	}
	s.Stop()
	s.Stop()
}

func TestRunOnce(t *testing.T) {
	sw := &fakeSweeper{n: 3}
	s := NewScheduler(sw, "@hourly", 90*time.Minute)

	n, err := s.RunOnce()
	if err != nil || n != 3 {
		t.Fatalf("unexpected result n=%d err=%v", n, err)
	}
	if sw.calls != 1 || sw.maxAge != 90*time.Minute {
		t.Fatalf("sweeper called with wrong args: %#v", sw)
	}

	sw.err = errors.New("disk gone")
	if _, err := s.RunOnce(); err == nil {
		t.Fatalf("expected sweep error")
	}
}
