package calendar

import "time"

// Decision is the outcome of validating a tick's time-of-day.
type Decision struct {
	Accept  bool
	Seconds int // normalized seconds since midnight
	Session int // index of the containing session
}

// Validate tests t against sessions in order. The first containing session
// wins; a tick exactly on its end is moved back one second so abutting
// sessions never share a timestamp.
func Validate(sessions []Session, t TimeOfDay) Decision {
	for i, s := range sessions {
		if !s.Contains(t) {
			continue
		}
		if t == s.End {
			t = t.Add(-time.Second)
		}
		return Decision{Accept: true, Seconds: t.Seconds(), Session: i}
	}
	return Decision{}
}
