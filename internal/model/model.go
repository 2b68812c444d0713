// Package model defines shared data structures.
package model

import (
	"strings"
	"time"
)

// Chapter bounds for the book of Psalms.
const (
	FirstChapter = 1
	MaxChapter   = 150
)

// Mode is one of the three independent reading plans.
type Mode int

const (
	// ModeRegular reads sequentially from the stored pointer.
	ModeRegular Mode = iota
	// ModeMonthly follows the 30-day split keyed to the day of the month.
	ModeMonthly
	// ModeWeekly follows the 7-day split keyed to the weekday.
	ModeWeekly
)

// Modes lists every mode in a stable order.
var Modes = []Mode{ModeRegular, ModeMonthly, ModeWeekly}

// String returns the persisted name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeMonthly:
		return "monthly"
	case ModeWeekly:
		return "weekly"
	default:
		return "regular"
	}
}

// ParseMode converts a persisted or user-supplied name into a Mode.
// Unknown or empty values yield ModeRegular. "daily" is accepted as an
// alias for the monthly plan.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monthly", "daily":
		return ModeMonthly
	case "weekly":
		return ModeWeekly
	default:
		return ModeRegular
	}
}

// Range is an inclusive chapter range.
type Range struct {
	From int
	To   int
}

// Single reports whether the range covers exactly one chapter.
func (r Range) Single() bool {
	return r.From == r.To
}

// Bookmark is a user's reading position in every mode.
type Bookmark struct {
	UserID    int64
	Regular   int
	Monthly   int
	Weekly    int
	Mode      Mode
	UpdatedAt time.Time
}

// NewBookmark returns the default record for a user that has never saved anything.
func NewBookmark(userID int64) *Bookmark {
	return &Bookmark{
		UserID:  userID,
		Regular: FirstChapter,
		Monthly: FirstChapter,
		Weekly:  FirstChapter,
		Mode:    ModeRegular,
	}
}

// Chapter returns the pointer stored for mode.
func (b *Bookmark) Chapter(mode Mode) int {
	switch mode {
	case ModeMonthly:
		return b.Monthly
	case ModeWeekly:
		return b.Weekly
	default:
		return b.Regular
	}
}

// ClampChapter forces n into [FirstChapter, MaxChapter].
func ClampChapter(n int) int {
	if n < FirstChapter {
		return FirstChapter
	}
	if n > MaxChapter {
		return MaxChapter
	}
	return n
}

// ValidChapter reports whether n names a chapter.
func ValidChapter(n int) bool {
	return n >= FirstChapter && n <= MaxChapter
}
