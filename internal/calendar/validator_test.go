package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// go test -v --run TestValidateDaySession
func TestValidateDaySession(t *testing.T) {
	sessions := []Session{session(t, "09:30-11:30")}

	d := Validate(sessions, tod(t, "09:30"))
	assert.True(t, d.Accept)
	assert.Equal(t, 34200, d.Seconds)

	d = Validate(sessions, tod(t, "11:30"))
	assert.True(t, d.Accept)
	assert.Equal(t, tod(t, "11:29:59").Seconds(), d.Seconds, "end tick is moved back one second")

	assert.False(t, Validate(sessions, tod(t, "11:30:01")).Accept)
	assert.False(t, Validate(sessions, tod(t, "09:29")).Accept)
}

// go test -v --run TestValidateWrappingSession
func TestValidateWrappingSession(t *testing.T) {
	sessions := []Session{session(t, "21:00-02:00")}

	for _, in := range []string{"23:00", "00:30"} {
		d := Validate(sessions, tod(t, in))
		assert.True(t, d.Accept, in)
		assert.Equal(t, tod(t, in).Seconds(), d.Seconds, in)
	}

	d := Validate(sessions, tod(t, "02:00"))
	assert.True(t, d.Accept)
	assert.Equal(t, tod(t, "01:59:59").Seconds(), d.Seconds)

	assert.False(t, Validate(sessions, tod(t, "10:00")).Accept)
}

// go test -v --run TestValidateAbuttingSessions
func TestValidateAbuttingSessions(t *testing.T) {
	sessions := []Session{
		session(t, "09:00-10:15"),
		session(t, "10:15-11:30"),
	}

	d := Validate(sessions, tod(t, "10:15"))
	assert.True(t, d.Accept)
	assert.Equal(t, 0, d.Session, "first containing session wins")
	assert.Equal(t, tod(t, "10:14:59").Seconds(), d.Seconds)

	d = Validate(sessions, tod(t, "10:16"))
	assert.Equal(t, 1, d.Session)
}

// go test -v --run TestValidateMidnightEnd
func TestValidateMidnightEnd(t *testing.T) {
	sessions := []Session{session(t, "21:00-00:00")}

	d := Validate(sessions, tod(t, "00:00"))
	assert.True(t, d.Accept)
	assert.Equal(t, SecondsPerDay-1, d.Seconds)
}

// go test -v --run TestValidateNoSessions
func TestValidateNoSessions(t *testing.T) {
	assert.False(t, Validate(nil, tod(t, "10:00")).Accept)
}
