package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/logger"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/models"
)

// Cadence is the recommended sync interval class for a given market time.
type Cadence string

const (
	CadenceMarketHours Cadence = "every_15m"   // market open
	CadenceAfterHours  Cadence = "hourly"      // weekday outside market hours
	CadenceWeekend     Cadence = "twice_daily" // fixed morning/evening ticks
)

// Interval returns the polling interval for interval-style cadences. The
// weekend cadence fires at fixed times instead and returns zero.
func (c Cadence) Interval() time.Duration {
	switch c {
	case CadenceMarketHours:
		return 15 * time.Minute
	case CadenceAfterHours:
		return time.Hour
	}
	return 0
}

// Weekend fixed tick hours, in market time.
var weekendSyncHours = [2]int{8, 20}

// SyncTrigger starts a sync over all active persons. Implemented by the sync
// service; the scheduler only decides when.
type SyncTrigger interface {
	SyncAll(ctx context.Context, triggeredBy string) []*models.SyncRun
}

// Scheduler evaluates the market-hours cadence on a minute tick and invokes
// the sync trigger when a sync is due. Cadence logic is pure over the injected
// clock so it is testable without real time.
type Scheduler struct {
	clock    Clock
	trigger  SyncTrigger
	openMin  int // minutes from midnight, market time
	closeMin int
	lastRun  time.Time
}

// NewScheduler builds a scheduler for an exchange open between the "HH:MM"
// open and close times in the clock's timezone.
func NewScheduler(clock Clock, trigger SyncTrigger, open, close string) (*Scheduler, error) {
	openMin, err := parseMinutes(open)
	if err != nil {
		return nil, fmt.Errorf("invalid market open time: %w", err)
	}
	closeMin, err := parseMinutes(close)
	if err != nil {
		return nil, fmt.Errorf("invalid market close time: %w", err)
	}
	if closeMin <= openMin {
		return nil, fmt.Errorf("market close %q must be after open %q", close, open)
	}
	return &Scheduler{clock: clock, trigger: trigger, openMin: openMin, closeMin: closeMin}, nil
}

func parseMinutes(hhmm string) (int, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// IsWeekend reports whether t falls on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsMarketOpen reports whether t is a weekday within the exchange's open and
// close minutes.
func (s *Scheduler) IsMarketOpen(t time.Time) bool {
	if IsWeekend(t) {
		return false
	}
	m := t.Hour()*60 + t.Minute()
	return m >= s.openMin && m < s.closeMin
}

// RecommendedCadence derives the sync cadence for the given market time.
func (s *Scheduler) RecommendedCadence(t time.Time) Cadence {
	switch {
	case IsWeekend(t):
		return CadenceWeekend
	case s.IsMarketOpen(t):
		return CadenceMarketHours
	default:
		return CadenceAfterHours
	}
}

// ShouldSync answers whether a sync should start at now given the last sync
// start. Interval cadences fire once the interval has elapsed; the weekend
// cadence fires on its fixed hour ticks.
func (s *Scheduler) ShouldSync(now, lastRun time.Time) bool {
	cadence := s.RecommendedCadence(now)
	if cadence == CadenceWeekend {
		if now.Minute() != 0 {
			return false
		}
		for _, h := range weekendSyncHours {
			if now.Hour() == h {
				// Guard against double-firing on repeated ticks within the hour.
				return lastRun.IsZero() || now.Sub(lastRun) > time.Hour
			}
		}
		return false
	}
	return lastRun.IsZero() || now.Sub(lastRun) >= cadence.Interval()
}

// Run drives the minute-granularity tick loop until ctx is cancelled. The
// cadence decision is re-evaluated on every tick.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	logger.L.Info("Market-hours scheduler started")
	for {
		select {
		case <-ctx.Done():
			logger.L.Info("Market-hours scheduler stopped")
			return
		case <-ticker.C:
			now := s.clock.Now()
			if !s.ShouldSync(now, s.lastRun) {
				continue
			}
			s.lastRun = now
			logger.L.Info("Scheduler firing sync", "cadence", string(s.RecommendedCadence(now)), "marketTime", now.Format(time.RFC3339))
			s.trigger.SyncAll(ctx, "scheduler")
		}
	}
}
