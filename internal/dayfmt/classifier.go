// Package dayfmt turns feed timestamps into the day and time-of-day labels
// shown above and beside chat messages.
package dayfmt

import (
	"fmt"
	"time"
)

// TodayLabel is the day label used for timestamps on the current local day.
const TodayLabel = "Today"

const (
	dayLayout  = "2 January"
	timeLayout = "15:04"
)

// Labels is the display form of a single timestamp.
type Labels struct {
	Day  string
	Time string
}

// Classifier buckets timestamps by local calendar day relative to a clock.
// It is safe for concurrent use.
type Classifier struct {
	now func() time.Time
	loc *time.Location
}

// New creates a classifier. A nil clock means time.Now and a nil location
// means time.Local.
func New(now func() time.Time, loc *time.Location) *Classifier {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Classifier{now: now, loc: loc}
}

// Classify parses an RFC 3339 timestamp and returns its labels. The day label
// is TodayLabel when the timestamp falls on the same local calendar day as
// the clock, otherwise "<day> <month>" (e.g. "24 December").
func (c *Classifier) Classify(ts string) (Labels, error) {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return Labels{}, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}
	t = t.In(c.loc)

	day := t.Format(dayLayout)
	if sameDay(t, c.now().In(c.loc)) {
		day = TodayLabel
	}
	return Labels{Day: day, Time: t.Format(timeLayout)}, nil
}

// MustClassify is like Classify but panics on a malformed timestamp. A feed
// that sends one is broken; dropping the message would misplace day buckets.
func (c *Classifier) MustClassify(ts string) Labels {
	l, err := c.Classify(ts)
	if err != nil {
		panic("dayfmt: " + err.Error())
	}
	return l
}

// TimeOfDayNow returns the clock's current time of day, e.g. "14:45".
func (c *Classifier) TimeOfDayNow() string {
	return c.now().In(c.loc).Format(timeLayout)
}

// Today returns the day label for the clock's current day.
func (c *Classifier) Today() string {
	return TodayLabel
}

// Location returns the time zone labels are rendered in.
func (c *Classifier) Location() *time.Location {
	return c.loc
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
