package schedule

import (
	"fmt"
	"time"
)

// ServiceDate is a calendar date in the agency's timezone. The service
// period it denotes extends up to 26 hours past its nominal midnight,
// per spec.md §3/§8.
type ServiceDate struct {
	Y int
	M time.Month
	D int
}

// ServiceDateFromTime returns the calendar date of t, expressed in loc.
func ServiceDateFromTime(t time.Time, loc *time.Location) ServiceDate {
	t = t.In(loc)
	y, m, d := t.Date()
	return ServiceDate{y, m, d}
}

func (d ServiceDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Y, int(d.M), d.D)
}

// Compact renders d in GTFS-RT's unseparated YYYYMMDD form.
func (d ServiceDate) Compact() string {
	return fmt.Sprintf("%04d%02d%02d", d.Y, int(d.M), d.D)
}

// Previous returns the calendar date immediately before d.
func (d ServiceDate) Previous() ServiceDate {
	return fromTime(d.midnight(time.UTC).AddDate(0, 0, -1))
}

// Next returns the calendar date immediately after d.
func (d ServiceDate) Next() ServiceDate {
	return fromTime(d.midnight(time.UTC).AddDate(0, 0, 1))
}

func fromTime(t time.Time) ServiceDate {
	y, m, d := t.Date()
	return ServiceDate{y, m, d}
}

// midnight returns the instant of nominal midnight for d in loc.
func (d ServiceDate) midnight(loc *time.Location) time.Time {
	return time.Date(d.Y, d.M, d.D, 0, 0, 0, 0, loc)
}

// SecondsSinceMidnight returns the number of seconds between d's nominal
// midnight in loc and t. The result may be negative (t before midnight)
// or exceed 86400 (t after the nominal 24h day, within the 26h service
// window or beyond).
func (d ServiceDate) SecondsSinceMidnight(t time.Time, loc *time.Location) int {
	return int(t.In(loc).Sub(d.midnight(loc)).Seconds())
}

func (d ServiceDate) Compare(o ServiceDate) int {
	if d.Y != o.Y {
		return d.Y - o.Y
	}
	if d.M != o.M {
		return int(d.M) - int(o.M)
	}
	return d.D - o.D
}

func (d ServiceDate) Before(o ServiceDate) bool { return d.Compare(o) < 0 }
func (d ServiceDate) After(o ServiceDate) bool  { return d.Compare(o) > 0 }
func (d ServiceDate) Equal(o ServiceDate) bool  { return d.Compare(o) == 0 }
