package schedule

import (
	"testing"
	"time"

	"github.com/bryan-buckman/tehillim-bot/internal/model"
)

var jerusalem = time.FixedZone("IDT", 3*60*60)

func TestTablesAreValid(t *testing.T) {
	if err := Validate(MonthlyTable, 30); err != nil {
		t.Errorf("MonthlyTable: %v", err)
	}
	if err := Validate(WeeklyTable, 7); err != nil {
		t.Errorf("WeeklyTable: %v", err)
	}
}

func TestMonthlyPsalm119Days(t *testing.T) {
	for day := 25; day <= 28; day++ {
		if got := MonthlyTable[day]; got != (model.Range{From: 119, To: 119}) {
			t.Errorf("MonthlyTable[%d] = %+v, want 119-119", day, got)
		}
	}
}

func TestMonthlyStartsNonDecreasing(t *testing.T) {
	prev := 0
	for day := 1; day <= 30; day++ {
		r := MonthlyTable[day]
		if r.From < prev {
			t.Errorf("day %d starts at %d, before previous start %d", day, r.From, prev)
		}
		prev = r.From
	}
}

func TestWeeklyEndpoints(t *testing.T) {
	if got := WeeklyTable[1]; got != (model.Range{From: 1, To: 29}) {
		t.Errorf("WeeklyTable[1] = %+v", got)
	}
	if got := WeeklyTable[7]; got != (model.Range{From: 120, To: 150}) {
		t.Errorf("WeeklyTable[7] = %+v", got)
	}
}

func TestValidateRejectsGaps(t *testing.T) {
	table := map[int]model.Range{1: {From: 1, To: 10}, 2: {From: 12, To: 150}}
	if err := Validate(table, 2); err == nil {
		t.Error("Validate accepted a gap")
	}
	table = map[int]model.Range{1: {From: 1, To: 10}, 2: {From: 10, To: 150}}
	if err := Validate(table, 2); err == nil {
		t.Error("Validate accepted an overlap")
	}
	table = map[int]model.Range{1: {From: 1, To: 149}}
	if err := Validate(table, 1); err == nil {
		t.Error("Validate accepted a short table")
	}
}

func TestHebrewMonthly(t *testing.T) {
	r := NewResolver(jerusalem, HebrewCalendar{})
	tests := []struct {
		date    time.Time
		wantDay int
		want    model.Range
	}{
		// 1 Tishrei 5785
		{time.Date(2024, 10, 3, 12, 0, 0, 0, jerusalem), 1, model.Range{From: 1, To: 9}},
		// 10 Tishrei 5785
		{time.Date(2024, 10, 12, 12, 0, 0, 0, jerusalem), 10, model.Range{From: 55, To: 59}},
		// 25 Tishrei 5785
		{time.Date(2024, 10, 27, 12, 0, 0, 0, jerusalem), 25, model.Range{From: 119, To: 119}},
		// 30 Tishrei 5785
		{time.Date(2024, 11, 1, 12, 0, 0, 0, jerusalem), 30, model.Range{From: 135, To: 150}},
	}
	for _, tt := range tests {
		day, rng := r.Monthly(tt.date)
		if day != tt.wantDay || rng != tt.want {
			t.Errorf("Monthly(%s) = %d %+v, want %d %+v", tt.date.Format("2006-01-02"), day, rng, tt.wantDay, tt.want)
		}
	}
}

func TestMonthlyUsesConfiguredZone(t *testing.T) {
	r := NewResolver(jerusalem, HebrewCalendar{})
	// 22:30 UTC on 2 Oct is already 3 Oct in Jerusalem.
	instant := time.Date(2024, 10, 2, 22, 30, 0, 0, time.UTC)
	if day, _ := r.Monthly(instant); day != 1 {
		t.Errorf("Monthly in Jerusalem = %d, want 1", day)
	}
	utc := NewResolver(time.UTC, HebrewCalendar{})
	if day, _ := utc.Monthly(instant); day != 29 {
		t.Errorf("Monthly in UTC = %d, want 29", day)
	}
}

func TestGregorianMonthlyClampsTo30(t *testing.T) {
	r := NewResolver(time.UTC, GregorianCalendar{})
	day, rng := r.Monthly(time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC))
	if day != 30 || rng != MonthlyTable[30] {
		t.Errorf("Monthly(Jan 31) = %d %+v, want 30", day, rng)
	}
}

func TestWeekly(t *testing.T) {
	r := NewResolver(jerusalem, nil)
	tests := []struct {
		date time.Time
		want int
	}{
		{time.Date(2024, 10, 7, 8, 0, 0, 0, jerusalem), 1},  // Monday
		{time.Date(2024, 10, 12, 8, 0, 0, 0, jerusalem), 6}, // Saturday
		{time.Date(2024, 10, 13, 8, 0, 0, 0, jerusalem), 7}, // Sunday
	}
	for _, tt := range tests {
		wd, rng := r.Weekly(tt.date)
		if wd != tt.want || rng != WeeklyTable[tt.want] {
			t.Errorf("Weekly(%s) = %d %+v, want %d", tt.date.Weekday(), wd, rng, tt.want)
		}
	}
}

func TestResolverClock(t *testing.T) {
	fixed := time.Date(2024, 10, 7, 5, 0, 0, 0, time.UTC)
	r := NewResolver(jerusalem, nil).WithClock(func() time.Time { return fixed })
	if got := r.Now(); !got.Equal(fixed) || got.Location() != jerusalem {
		t.Errorf("Now() = %v, want %v in IDT", got, fixed)
	}
}

func TestParseCalendar(t *testing.T) {
	if c, err := ParseCalendar(""); err != nil || c.Name() != "hebrew" {
		t.Errorf("ParseCalendar(\"\") = %v, %v", c, err)
	}
	if c, err := ParseCalendar("Gregorian"); err != nil || c.Name() != "gregorian" {
		t.Errorf("ParseCalendar(Gregorian) = %v, %v", c, err)
	}
	if _, err := ParseCalendar("julian"); err == nil {
		t.Error("ParseCalendar(julian) succeeded")
	}
}

func TestPrefersSegment(t *testing.T) {
	if !PrefersSegment(MonthlyTable[26]) {
		t.Error("day 26 should prefer the segment")
	}
	if PrefersSegment(WeeklyTable[6]) {
		t.Error("weekly 107-119 should not prefer the segment")
	}
}
