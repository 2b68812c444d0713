package schedule

import (
	"fmt"

	"github.com/bryan-buckman/tehillim-bot/internal/model"
)

// MonthlyTable maps day of month (1-30) to the chapters read that day.
// Days 25-28 all read Psalm 119, one segment per day when segments exist.
var MonthlyTable = map[int]model.Range{
	1:  {From: 1, To: 9},
	2:  {From: 10, To: 17},
	3:  {From: 18, To: 22},
	4:  {From: 23, To: 28},
	5:  {From: 29, To: 34},
	6:  {From: 35, To: 38},
	7:  {From: 39, To: 43},
	8:  {From: 44, To: 48},
	9:  {From: 49, To: 54},
	10: {From: 55, To: 59},
	11: {From: 60, To: 65},
	12: {From: 66, To: 68},
	13: {From: 69, To: 71},
	14: {From: 72, To: 76},
	15: {From: 77, To: 78},
	16: {From: 79, To: 82},
	17: {From: 83, To: 87},
	18: {From: 88, To: 89},
	19: {From: 90, To: 96},
	20: {From: 97, To: 103},
	21: {From: 104, To: 105},
	22: {From: 106, To: 107},
	23: {From: 108, To: 112},
	24: {From: 113, To: 118},
	25: {From: 119, To: 119},
	26: {From: 119, To: 119},
	27: {From: 119, To: 119},
	28: {From: 119, To: 119},
	29: {From: 120, To: 134},
	30: {From: 135, To: 150},
}

// WeeklyTable maps ISO weekday (Monday=1 .. Sunday=7) to chapters.
var WeeklyTable = map[int]model.Range{
	1: {From: 1, To: 29},
	2: {From: 30, To: 50},
	3: {From: 51, To: 72},
	4: {From: 73, To: 89},
	5: {From: 90, To: 106},
	6: {From: 107, To: 119},
	7: {From: 120, To: 150},
}

// Validate checks that table has keys 1..slots, that each range is well
// formed, and that the ranges walk through every chapter in order with no
// gaps. A range may repeat the previous one exactly (a chapter split over
// several days) but may not otherwise overlap it.
func Validate(table map[int]model.Range, slots int) error {
	if len(table) != slots {
		return fmt.Errorf("table has %d slots, want %d", len(table), slots)
	}
	next := model.FirstChapter
	var prev model.Range
	for key := 1; key <= slots; key++ {
		r, ok := table[key]
		if !ok {
			return fmt.Errorf("slot %d missing", key)
		}
		if r.From > r.To {
			return fmt.Errorf("slot %d: range %d-%d is reversed", key, r.From, r.To)
		}
		if key > 1 && r == prev {
			continue
		}
		if r.From != next {
			return fmt.Errorf("slot %d: starts at %d, want %d", key, r.From, next)
		}
		next = r.To + 1
		prev = r
	}
	if next != model.MaxChapter+1 {
		return fmt.Errorf("table ends at chapter %d, want %d", next-1, model.MaxChapter)
	}
	return nil
}
