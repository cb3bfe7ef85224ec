package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SecondsPerDay is the length of a trading calendar day.
const SecondsPerDay = 24 * 60 * 60

var ErrInvalidSession = errors.New("invalid session")

// TimeOfDay is a wall-clock time expressed as seconds since local midnight,
// always in [0, SecondsPerDay).
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from clock components.
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay(hour*3600 + minute*60 + second).normalize()
}

// TimeOfDayOf returns the time-of-day of t in t's location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return NewTimeOfDay(h, m, s)
}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: time %q, expected HH:MM or HH:MM:SS", ErrInvalidSession, s)
	}
	var fields [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("%w: time %q: %v", ErrInvalidSession, s, err)
		}
		fields[i] = n
	}
	h, m, sec := fields[0], fields[1], fields[2]
	if h < 0 || h > 23 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("%w: time %q out of range", ErrInvalidSession, s)
	}
	return NewTimeOfDay(h, m, sec), nil
}

// Seconds returns the elapsed seconds since midnight.
func (t TimeOfDay) Seconds() int { return int(t) }

// Add shifts t by d, wrapping around midnight in either direction.
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	return (t + TimeOfDay(d/time.Second)).normalize()
}

// Duration returns t as an offset from midnight.
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t) * time.Second
}

func (t TimeOfDay) String() string {
	s := int(t)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60)
}

func (t TimeOfDay) normalize() TimeOfDay {
	t %= SecondsPerDay
	if t < 0 {
		t += SecondsPerDay
	}
	return t
}

// Session is a trading window. When Start > End the window wraps past midnight.
type Session struct {
	Start TimeOfDay
	End   TimeOfDay
}

// ParseSession parses "HH:MM[:SS]-HH:MM[:SS]".
func ParseSession(s string) (Session, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return Session{}, fmt.Errorf("%w: %q, expected start-end", ErrInvalidSession, s)
	}
	start, err := ParseTimeOfDay(strings.TrimSpace(parts[0]))
	if err != nil {
		return Session{}, err
	}
	end, err := ParseTimeOfDay(strings.TrimSpace(parts[1]))
	if err != nil {
		return Session{}, err
	}
	return Session{Start: start, End: end}, nil
}

// Wraps reports whether the session crosses midnight.
func (s Session) Wraps() bool {
	return s.Start > s.End
}

// Contains reports whether t lies within the session, both ends inclusive.
func (s Session) Contains(t TimeOfDay) bool {
	if s.Wraps() {
		return t >= s.Start || t <= s.End
	}
	return s.Start <= t && t <= s.End
}

func (s Session) String() string {
	return s.Start.String() + "-" + s.End.String()
}
