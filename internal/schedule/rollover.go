package schedule

import "time"

// NextMidnight returns the first local midnight strictly after from.
func NextMidnight(from time.Time, loc *time.Location) time.Time {
	local := from.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}

// TradingDay formats the local date of t as yyyyMMdd.
func TradingDay(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("20060102")
}

// armRollover schedules the daily reset at midnight. The rollover is armed
// once per generation; the coordinator re-arms everything when it fires.
func (s *Scheduler) armRollover(at time.Time) {
	f := Firing{Generation: s.gen, Index: -1, Due: at}
	s.rollover = s.clk.AfterFunc(s.clk.Until(at), func() { s.fire(f) })
}
