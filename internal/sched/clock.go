package sched

import "time"

const secondsPerDay = 86400

// Clock converts wall time into collection day numbers. Day boundaries are
// fixed by the creation time, rollover hour and the UTC offset captured at
// creation, so they do not move with daylight saving changes.
type Clock struct {
	now      func() time.Time
	dayStart int64 // start of day 0 in epoch seconds
}

// NewClock returns a clock for a collection created at crt (epoch seconds)
// with the given rollover hour and offset in minutes west of UTC.
func NewClock(now func() time.Time, crt int64, rollover, offsetMinutesWest int) *Clock {
	if now == nil {
		now = time.Now
	}
	loc := time.FixedZone("collection", -offsetMinutesWest*60)
	created := time.Unix(crt, 0).In(loc)
	start := time.Date(created.Year(), created.Month(), created.Day(), rollover, 0, 0, 0, loc)
	if created.Before(start) {
		start = start.AddDate(0, 0, -1)
	}
	return &Clock{now: now, dayStart: start.Unix()}
}

// Now returns the current time.
func (c *Clock) Now() time.Time { return c.now() }

// NowUnix returns the current time in epoch seconds.
func (c *Clock) NowUnix() int64 { return c.now().Unix() }

// NowMillis returns the current time in epoch milliseconds.
func (c *Clock) NowMillis() int64 { return c.now().UnixMilli() }

// Today returns the number of days elapsed since the collection's first day.
func (c *Clock) Today() int {
	return int((c.NowUnix() - c.dayStart) / secondsPerDay)
}

// DayCutoff returns the epoch second at which today ends.
func (c *Clock) DayCutoff() int64 {
	return c.dayStart + int64(c.Today()+1)*secondsPerDay
}

// OffsetMinutesWest returns the local UTC offset of t in minutes west.
func OffsetMinutesWest(t time.Time) int {
	_, off := t.Zone()
	return -off / 60
}
