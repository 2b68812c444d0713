package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data carried by the navigation buttons.
const (
	actionPrev    = "prev"
	actionNext    = "next"
	actionGoto    = "goto"
	actionReset   = "reset"
	actionDaily   = "daily"
	actionMonthly = "monthly"
	actionWeekly  = "weekly"
	actionRegular = "regular"
)

// NavKeyboard is attached to the last chunk of every chapter reply.
func NavKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀\ufe0f הקודם", actionPrev),
			tgbotapi.NewInlineKeyboardButtonData("▶\ufe0f הבא", actionNext),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔢 קפיצה לפרק", actionGoto),
			tgbotapi.NewInlineKeyboardButtonData("♻\ufe0f איפוס", actionReset),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗓\ufe0f יומי", actionDaily),
			tgbotapi.NewInlineKeyboardButtonData("📅 שבועי", actionWeekly),
			tgbotapi.NewInlineKeyboardButtonData("📖 רציף", actionRegular),
		),
	)
}

// emptyKeyboard removes the inline keyboard when used in an edit.
func emptyKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
}

// Commands is the menu registered with Telegram at startup.
func Commands() []tgbotapi.BotCommand {
	return []tgbotapi.BotCommand{
		{Command: "start", Description: "המשך מהסימנייה"},
		{Command: "next", Description: "הפרק הבא"},
		{Command: "prev", Description: "הפרק הקודם"},
		{Command: "where", Description: "היכן אני?"},
		{Command: "goto", Description: "קפיצה לפרק"},
		{Command: "reset", Description: "איפוס הסימנייה"},
		{Command: "daily", Description: "חלוקה חודשית להיום"},
		{Command: "weekly", Description: "חלוקה שבועית להיום"},
		{Command: "regular", Description: "חזרה לקריאה רציפה"},
	}
}
