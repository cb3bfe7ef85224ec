package schedule

import (
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"marketwatcher/internal/calendar"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSessions map[string][]calendar.Session

func (s staticSessions) SessionsFor(id string) ([]calendar.Session, error) {
	sessions, ok := s[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", calendar.ErrNotFound, id)
	}
	return sessions, nil
}

func mustSession(t *testing.T, s string) calendar.Session {
	t.Helper()
	v, err := calendar.ParseSession(s)
	require.NoError(t, err)
	return v
}

func mustTOD(t *testing.T, s string) calendar.TimeOfDay {
	t.Helper()
	v, err := calendar.ParseTimeOfDay(s)
	require.NoError(t, err)
	return v
}

// go test -v --run TestBuildCohorts
func TestBuildCohorts(t *testing.T) {
	src := staticSessions{
		"A": {mustSession(t, "09:30-11:30"), mustSession(t, "13:00-15:00")},
		"B": {mustSession(t, "13:00-15:00")},
		"C": {mustSession(t, "09:00-16:00")},
	}

	cohorts := BuildCohorts(src, []string{"A", "B", "C", "X"}, 180*time.Second)

	require.Len(t, cohorts, 2)
	assert.Equal(t, "15:03:00", cohorts[0].Instant.String())
	assert.Equal(t, []string{"A", "B"}, cohorts[0].Instruments)
	assert.Equal(t, "16:03:00", cohorts[1].Instant.String())
	assert.Equal(t, []string{"C"}, cohorts[1].Instruments)

	for _, c := range cohorts {
		assert.False(t, c.Contains("X"), "unscheduled instrument must not join a cohort")
	}
}

// go test -v --run TestBuildCohortsUsesLastSession
func TestBuildCohortsUsesLastSession(t *testing.T) {
	src := staticSessions{
		"cu": {mustSession(t, "09:00-10:15"), mustSession(t, "13:30-15:00"), mustSession(t, "21:00-01:00")},
		"al": {mustSession(t, "21:00-23:58")},
	}

	cohorts := BuildCohorts(src, []string{"cu", "al"}, 180*time.Second)

	require.Len(t, cohorts, 2)
	assert.Equal(t, "00:01:00", cohorts[0].Instant.String(), "grace wraps past midnight")
	assert.Equal(t, []string{"al"}, cohorts[0].Instruments)
	assert.Equal(t, "01:03:00", cohorts[1].Instant.String())
}

// go test -v --run TestNextOccurrence
func TestNextOccurrence(t *testing.T) {
	loc := time.UTC
	at := mustTOD(t, "00:30")

	from := time.Date(2025, 3, 10, 23, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2025, 3, 11, 0, 30, 0, 0, loc), NextOccurrence(from, at, loc))

	from = time.Date(2025, 3, 10, 0, 10, 0, 0, loc)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 30, 0, 0, loc), NextOccurrence(from, at, loc))

	from = time.Date(2025, 3, 10, 0, 30, 0, 0, loc)
	assert.Equal(t, from, NextOccurrence(from, at, loc), "an instant equal to from is due now")

	from = time.Date(2025, 12, 31, 23, 59, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 30, 0, 0, loc), NextOccurrence(from, at, loc))
}

// go test -v --run TestNextOccurrenceInZone
func TestNextOccurrenceInZone(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)
	from := time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC) // 14:00 local
	got := NextOccurrence(from, mustTOD(t, "15:03"), shanghai)
	assert.Equal(t, time.Date(2025, 3, 10, 7, 3, 0, 0, time.UTC), got.UTC())
}

// go test -v --run TestNextMidnight
func TestNextMidnight(t *testing.T) {
	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), NextMidnight(from, time.UTC))
	assert.Equal(t, "20250310", TradingDay(from, time.UTC))
}

// Mock timers run their callbacks on separate goroutines.
type firings struct {
	mu  sync.Mutex
	got []Firing
}

func (f *firings) fire(x Firing) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, x)
}

// snapshot returns the firings received so far, ordered by due time.
func (f *firings) snapshot() []Firing {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]Firing(nil), f.got...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Due.Before(out[j].Due) })
	return out
}

func (f *firings) flushes() int {
	n := 0
	for _, x := range f.snapshot() {
		if !x.Rollover() {
			n++
		}
	}
	return n
}

func mockAt(start time.Time) *clock.Mock {
	m := clock.NewMock()
	m.Set(start)
	return m
}

// go test -v --run TestSchedulerFiresAcrossMidnight
func TestSchedulerFiresAcrossMidnight(t *testing.T) {
	start := time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)
	mock := mockAt(start)
	rec := &firings{}
	s := NewScheduler(mock, time.UTC, rec.fire, nil)

	cohorts := []Cohort{
		{Instant: mustTOD(t, "00:30"), Instruments: []string{"night"}},
		{Instant: mustTOD(t, "15:03"), Instruments: []string{"day"}},
	}
	s.Arm(cohorts, start)
	assert.Equal(t, 3, s.Armed(), "two cohorts and the rollover")

	mock.Set(time.Date(2025, 3, 11, 0, 30, 0, 0, time.UTC))
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, time.Second, time.Millisecond)

	got := rec.snapshot()
	assert.True(t, got[0].Rollover())
	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), got[0].Due)
	assert.Equal(t, 0, got[1].Index)
	assert.Equal(t, time.Date(2025, 3, 11, 0, 30, 0, 0, time.UTC), got[1].Due)
	assert.True(t, s.Current(got[1]))
}

// go test -v --run TestSchedulerRearm
func TestSchedulerRearm(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	mock := mockAt(start)
	rec := &firings{}
	s := NewScheduler(mock, time.UTC, rec.fire, nil)
	s.Arm([]Cohort{{Instant: mustTOD(t, "15:03"), Instruments: []string{"A"}}}, start)

	mock.Set(time.Date(2025, 3, 10, 15, 3, 0, 0, time.UTC))
	require.Eventually(t, func() bool { return rec.flushes() == 1 }, time.Second, time.Millisecond)

	s.Rearm(0)
	assert.Equal(t, time.Date(2025, 3, 11, 15, 3, 0, 0, time.UTC), s.NextDue(0))

	mock.Set(time.Date(2025, 3, 11, 15, 3, 0, 0, time.UTC))
	require.Eventually(t, func() bool { return rec.flushes() == 2 }, time.Second, time.Millisecond)
	assert.Never(t, func() bool { return rec.flushes() > 2 }, 50*time.Millisecond, 5*time.Millisecond,
		"exactly one firing per day")
}

// go test -v --run TestSchedulerArmInvalidatesOldFirings
func TestSchedulerArmInvalidatesOldFirings(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	mock := mockAt(start)
	rec := &firings{}
	s := NewScheduler(mock, time.UTC, rec.fire, nil)

	cohorts := []Cohort{{Instant: mustTOD(t, "15:03"), Instruments: []string{"A"}}}
	s.Arm(cohorts, start)
	old := Firing{Generation: 1, Index: 0}
	assert.True(t, s.Current(old))

	s.Arm(cohorts, start)
	assert.False(t, s.Current(old))
	assert.Equal(t, 2, s.Armed())

	mock.Set(time.Date(2025, 3, 10, 15, 3, 0, 0, time.UTC))
	require.Eventually(t, func() bool { return rec.flushes() == 1 }, time.Second, time.Millisecond)
	assert.Never(t, func() bool { return rec.flushes() > 1 }, 50*time.Millisecond, 5*time.Millisecond,
		"previous timers are stopped")
	assert.True(t, s.Current(rec.snapshot()[0]))
}

// go test -v --run TestSchedulerDisarm
func TestSchedulerDisarm(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	mock := mockAt(start)
	rec := &firings{}
	s := NewScheduler(mock, time.UTC, rec.fire, nil)
	s.Arm([]Cohort{{Instant: mustTOD(t, "15:03"), Instruments: []string{"A"}}}, start)

	s.Disarm()
	assert.Equal(t, 0, s.Armed())
	s.Rearm(0) // no-op after disarm

	mock.Add(48 * time.Hour)
	assert.Never(t, func() bool { return len(rec.snapshot()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}
