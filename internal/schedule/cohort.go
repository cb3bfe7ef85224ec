// Package schedule decides when buffered ticks are persisted: it groups
// instruments into cohorts by flush instant and arms a daily timer per cohort.
package schedule

import (
	"sort"
	"time"

	"marketwatcher/internal/calendar"
)

// SessionSource looks up an instrument's trading sessions.
type SessionSource interface {
	SessionsFor(instrumentID string) ([]calendar.Session, error)
}

// Cohort is the set of instruments flushed together at Instant.
type Cohort struct {
	Instant     calendar.TimeOfDay
	Instruments []string
}

// Contains reports whether instrumentID is a member of the cohort.
func (c Cohort) Contains(instrumentID string) bool {
	for _, id := range c.Instruments {
		if id == instrumentID {
			return true
		}
	}
	return false
}

// FlushInstant is the end of the last session plus the grace period.
func FlushInstant(sessions []calendar.Session, grace time.Duration) (calendar.TimeOfDay, bool) {
	if len(sessions) == 0 {
		return 0, false
	}
	return sessions[len(sessions)-1].End.Add(grace), true
}

// BuildCohorts groups instruments by identical flush instant and returns the
// cohorts sorted by instant. Instruments without sessions are left out.
// Members keep the order of instruments.
func BuildCohorts(src SessionSource, instruments []string, grace time.Duration) []Cohort {
	byInstant := make(map[calendar.TimeOfDay][]string)
	for _, id := range instruments {
		sessions, err := src.SessionsFor(id)
		if err != nil {
			continue
		}
		instant, ok := FlushInstant(sessions, grace)
		if !ok {
			continue
		}
		byInstant[instant] = append(byInstant[instant], id)
	}

	cohorts := make([]Cohort, 0, len(byInstant))
	for instant, ids := range byInstant {
		cohorts = append(cohorts, Cohort{Instant: instant, Instruments: ids})
	}
	sort.Slice(cohorts, func(i, j int) bool {
		return cohorts[i].Instant < cohorts[j].Instant
	})
	return cohorts
}

// NextOccurrence returns the first time at or after from whose local
// time-of-day (in loc) equals at.
func NextOccurrence(from time.Time, at calendar.TimeOfDay, loc *time.Location) time.Time {
	local := from.In(loc)
	s := at.Seconds()
	y, m, d := local.Date()
	next := time.Date(y, m, d, s/3600, s/60%60, s%60, 0, loc)
	if next.Before(local) {
		next = time.Date(y, m, d+1, s/3600, s/60%60, s%60, 0, loc)
	}
	return next
}
