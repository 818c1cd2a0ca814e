package scheduler

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

type stubClock struct {
	t time.Time
}

func (c stubClock) Now() time.Time { return c.t }

// 2025-03-14 is a Friday, 2025-03-15 a Saturday.
func marketTime(day, hour, minute int) time.Time {
	return time.Date(2025, 3, day, hour, minute, 0, 0, time.UTC)
}

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := NewScheduler(stubClock{}, nil, "09:30", "16:00")
	require.NoError(t, err)
	return s
}

func TestNewScheduler_ValidatesHours(t *testing.T) {
	_, err := NewScheduler(stubClock{}, nil, "930", "16:00")
	assert.Error(t, err)

	_, err = NewScheduler(stubClock{}, nil, "09:30", "25:00")
	assert.Error(t, err)

	_, err = NewScheduler(stubClock{}, nil, "16:00", "09:30")
	assert.Error(t, err)
}

func TestIsWeekend(t *testing.T) {
	assert.False(t, IsWeekend(marketTime(14, 12, 0))) // Friday
	assert.True(t, IsWeekend(marketTime(15, 12, 0)))  // Saturday
	assert.True(t, IsWeekend(marketTime(16, 12, 0)))  // Sunday
	assert.False(t, IsWeekend(marketTime(17, 12, 0))) // Monday
}

func TestIsMarketOpen_Boundaries(t *testing.T) {
	s := newTestScheduler(t)

	assert.False(t, s.IsMarketOpen(marketTime(14, 9, 29)))
	assert.True(t, s.IsMarketOpen(marketTime(14, 9, 30))) // open is inclusive
	assert.True(t, s.IsMarketOpen(marketTime(14, 15, 59)))
	assert.False(t, s.IsMarketOpen(marketTime(14, 16, 0))) // close is exclusive
	assert.False(t, s.IsMarketOpen(marketTime(15, 12, 0))) // Saturday midday
}

func TestRecommendedCadence(t *testing.T) {
	s := newTestScheduler(t)

	assert.Equal(t, CadenceMarketHours, s.RecommendedCadence(marketTime(14, 10, 0)))
	assert.Equal(t, CadenceAfterHours, s.RecommendedCadence(marketTime(14, 7, 0)))
	assert.Equal(t, CadenceAfterHours, s.RecommendedCadence(marketTime(14, 20, 0)))
	assert.Equal(t, CadenceWeekend, s.RecommendedCadence(marketTime(15, 10, 0)))
}

func TestCadenceInterval(t *testing.T) {
	assert.Equal(t, 15*time.Minute, CadenceMarketHours.Interval())
	assert.Equal(t, time.Hour, CadenceAfterHours.Interval())
	assert.Equal(t, time.Duration(0), CadenceWeekend.Interval())
}

func TestShouldSync_MarketHoursInterval(t *testing.T) {
	s := newTestScheduler(t)
	now := marketTime(14, 10, 0)

	assert.True(t, s.ShouldSync(now, time.Time{}), "first ever tick fires immediately")
	assert.False(t, s.ShouldSync(now, now.Add(-14*time.Minute)))
	assert.True(t, s.ShouldSync(now, now.Add(-15*time.Minute)))
}

func TestShouldSync_AfterHoursInterval(t *testing.T) {
	s := newTestScheduler(t)
	now := marketTime(14, 19, 0)

	assert.False(t, s.ShouldSync(now, now.Add(-30*time.Minute)))
	assert.True(t, s.ShouldSync(now, now.Add(-time.Hour)))
}

func TestShouldSync_WeekendFixedTicks(t *testing.T) {
	s := newTestScheduler(t)

	assert.True(t, s.ShouldSync(marketTime(15, 8, 0), time.Time{}))
	assert.True(t, s.ShouldSync(marketTime(15, 20, 0), time.Time{}))
	assert.False(t, s.ShouldSync(marketTime(15, 12, 0), time.Time{}), "off-tick hours never fire")
	assert.False(t, s.ShouldSync(marketTime(15, 8, 1), time.Time{}), "only the top of the hour fires")

	// A tick within the same hour as the last run must not double-fire.
	assert.False(t, s.ShouldSync(marketTime(15, 8, 0), marketTime(15, 8, 0)))
	assert.True(t, s.ShouldSync(marketTime(15, 20, 0), marketTime(15, 8, 0)))
}
