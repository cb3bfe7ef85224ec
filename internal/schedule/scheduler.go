package schedule

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Firing is delivered when a timer falls due. Generation identifies the
// Arm call that created it; firings from an older generation are stale.
type Firing struct {
	Generation uint64
	Index      int // cohort index; -1 for the day rollover
	Due        time.Time
}

// Rollover reports whether this firing is the midnight rollover.
func (f Firing) Rollover() bool { return f.Index < 0 }

// Scheduler keeps one timer per cohort plus a midnight rollover timer. Its
// methods must be called from a single goroutine; timer callbacks only hand
// a Firing to the fire function, which must be safe to call concurrently.
type Scheduler struct {
	clk    clock.Clock
	loc    *time.Location
	fire   func(Firing)
	logger *zap.Logger

	gen      uint64
	cohorts  []Cohort
	due      []time.Time
	timers   []*clock.Timer
	rollover *clock.Timer
}

func NewScheduler(clk clock.Clock, loc *time.Location, fire func(Firing), logger *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		clk:    clk,
		loc:    loc,
		fire:   fire,
		logger: logger,
	}
}

// Arm replaces the current cohorts and arms each for its next occurrence at
// or after from, plus the rollover at the next local midnight after from.
func (s *Scheduler) Arm(cohorts []Cohort, from time.Time) {
	s.Disarm()
	s.gen++
	s.cohorts = cohorts
	s.due = make([]time.Time, len(cohorts))
	s.timers = make([]*clock.Timer, len(cohorts))

	for i, c := range cohorts {
		s.armCohort(i, NextOccurrence(from, c.Instant, s.loc))
	}
	s.armRollover(NextMidnight(from, s.loc))
}

// Rearm schedules cohort index for the day after its last due time.
func (s *Scheduler) Rearm(index int) {
	if index < 0 || index >= len(s.timers) {
		return
	}
	next := NextOccurrence(s.due[index].Add(time.Second), s.cohorts[index].Instant, s.loc)
	s.armCohort(index, next)
}

// Disarm stops every pending timer.
func (s *Scheduler) Disarm() {
	for _, t := range s.timers {
		if t != nil {
			t.Stop()
		}
	}
	if s.rollover != nil {
		s.rollover.Stop()
		s.rollover = nil
	}
	s.timers = nil
}

// Armed returns the number of timers held since the last Arm, the rollover
// included. It is zero after Disarm.
func (s *Scheduler) Armed() int {
	n := 0
	for _, t := range s.timers {
		if t != nil {
			n++
		}
	}
	if s.rollover != nil {
		n++
	}
	return n
}

// Current reports whether f was produced by the latest Arm.
func (s *Scheduler) Current(f Firing) bool {
	return f.Generation == s.gen
}

// Cohort returns the cohort at index of the current generation.
func (s *Scheduler) Cohort(index int) (Cohort, bool) {
	if index < 0 || index >= len(s.cohorts) {
		return Cohort{}, false
	}
	return s.cohorts[index], true
}

// Cohorts returns the current cohorts in instant order.
func (s *Scheduler) Cohorts() []Cohort {
	return s.cohorts
}

// NextDue returns when cohort index fires next.
func (s *Scheduler) NextDue(index int) time.Time {
	if index < 0 || index >= len(s.due) {
		return time.Time{}
	}
	return s.due[index]
}

func (s *Scheduler) armCohort(index int, at time.Time) {
	if s.timers[index] != nil {
		s.timers[index].Stop()
	}
	s.due[index] = at
	f := Firing{Generation: s.gen, Index: index, Due: at}
	s.timers[index] = s.clk.AfterFunc(s.clk.Until(at), func() { s.fire(f) })

	s.logger.Debug("flush armed",
		zap.Int("cohort", index),
		zap.String("instant", s.cohorts[index].Instant.String()),
		zap.Time("due", at),
		zap.Int("instruments", len(s.cohorts[index].Instruments)),
	)
}
