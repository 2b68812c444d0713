// Package schedule resolves which chapters the monthly and weekly plans
// assign to a given date.
package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/bryan-buckman/tehillim-bot/internal/model"
	"github.com/hebcal/hdate"
)

// Psalm119 is the chapter split into per-day segments.
const Psalm119 = 119

// Calendar yields the day of month used to key the monthly plan.
type Calendar interface {
	DayOfMonth(t time.Time) int
	Name() string
}

// HebrewCalendar uses the civil date of t in its own location.
type HebrewCalendar struct{}

// DayOfMonth returns the Hebrew day of month (1-30).
func (HebrewCalendar) DayOfMonth(t time.Time) int {
	return hdate.FromTime(t).Day()
}

// Name implements Calendar.
func (HebrewCalendar) Name() string { return "hebrew" }

// GregorianCalendar keys the monthly plan to the Gregorian day of month.
type GregorianCalendar struct{}

// DayOfMonth implements Calendar.
func (GregorianCalendar) DayOfMonth(t time.Time) int {
	return t.Day()
}

// Name implements Calendar.
func (GregorianCalendar) Name() string { return "gregorian" }

// ParseCalendar returns the calendar named by s.
func ParseCalendar(s string) (Calendar, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "hebrew":
		return HebrewCalendar{}, nil
	case "gregorian":
		return GregorianCalendar{}, nil
	default:
		return nil, fmt.Errorf("unknown calendar %q", s)
	}
}

// Resolver looks up schedule slots in a fixed time zone.
type Resolver struct {
	loc *time.Location
	cal Calendar
	now func() time.Time
}

// NewResolver creates a resolver. A nil location means UTC and a nil
// calendar means HebrewCalendar.
func NewResolver(loc *time.Location, cal Calendar) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	if cal == nil {
		cal = HebrewCalendar{}
	}
	return &Resolver{loc: loc, cal: cal, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Now returns the current time in the resolver's zone.
func (r *Resolver) Now() time.Time {
	return r.now().In(r.loc)
}

// Location returns the configured zone.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Calendar returns the calendar keying the monthly plan.
func (r *Resolver) Calendar() Calendar {
	return r.cal
}

// Monthly returns the day of month and its chapter range for t.
func (r *Resolver) Monthly(t time.Time) (int, model.Range) {
	day := r.cal.DayOfMonth(t.In(r.loc))
	if day > 30 {
		day = 30
	}
	if day < 1 {
		day = 1
	}
	return day, MonthlyTable[day]
}

// Weekly returns the ISO weekday (Monday=1) and its chapter range for t.
func (r *Resolver) Weekly(t time.Time) (int, model.Range) {
	wd := int(t.In(r.loc).Weekday())
	if wd == 0 {
		wd = 7
	}
	return wd, WeeklyTable[wd]
}

// PrefersSegment reports whether a monthly slot should be read from the
// Psalm 119 segment for its day instead of the whole chapter.
func PrefersSegment(rng model.Range) bool {
	return rng.From == Psalm119 && rng.To == Psalm119
}
