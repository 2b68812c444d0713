package reader

import (
	"fmt"

	"github.com/bryan-buckman/tehillim-bot/internal/model"
)

// User-facing texts.
const (
	msgGotoPrompt     = "הקלד/י מספר פרק (1–150):"
	msgInvalidNumber  = "אנא הזן/י מספר תקין בין 1 ל־150."
	msgOutOfRange     = "טווח חוקי: 1–150."
	msgResetDone      = "הסימנייה אופסה לפרק 1."
	msgAdminOnly      = "פקודה זו מיועדת למנהל בלבד."
	msgRefreshStart   = "מתחיל למשוך טקסטים (1–150)..."
	msgRefreshDone    = "הטקסטים נשמרו בהצלחה."
	msgRefreshFailed  = "שגיאה במשיכה: %v"
	msgWhere          = "הסימנייה שלך נמצאת בפרק %d."
	msgWhereDetail    = "מצב נוכחי: %s\nרציף: %d | חודשי: %d | שבועי: %d"
	msgHeader         = "תהילים - פרק %d (%s)"
	msgMissingText    = "[חסר טקסט לפרק %d]"
	msgSegmentHeader  = "פרק קי\"ט - חלק יום %d"
	msgMonthlySlot    = "חלוקה חודשית - יום %d: %s"
	msgWeeklySlot     = "חלוקה שבועית - יום %d: %s"
	msgSingleChapter  = "פרק %d"
	msgChapterRange   = "פרקים %d–%d"
	msgInternalError  = "אירעה שגיאה. נסה/י שוב מאוחר יותר."
	msgRefreshSummary = "%d פרקים, %s"
	msgUnchanged      = "ללא שינוי"
	msgChanged        = "עודכן"
)

// InternalError is sent when a transition fails on storage.
const InternalError = msgInternalError

// ModeLabel returns the Hebrew name of a reading plan.
func ModeLabel(m model.Mode) string {
	switch m {
	case model.ModeMonthly:
		return "חלוקה חודשית"
	case model.ModeWeekly:
		return "חלוקה שבועית"
	default:
		return "קריאה רציפה"
	}
}

func renderRange(r model.Range) string {
	if r.Single() {
		return fmt.Sprintf(msgSingleChapter, r.From)
	}
	return fmt.Sprintf(msgChapterRange, r.From, r.To)
}
