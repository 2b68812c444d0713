// Package bot connects the navigator to Telegram.
package bot

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bryan-buckman/tehillim-bot/internal/chunk"
	"github.com/bryan-buckman/tehillim-bot/internal/model"
	"github.com/bryan-buckman/tehillim-bot/internal/reader"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

// editFallbackLimit is used when Telegram rejects an edit as too long.
// Telegram counts UTF-16 units, so a text under the rune limit can still
// overflow.
const editFallbackLimit = 2000

const truncationMarker = "\n…"

// Sender is the part of *tgbotapi.BotAPI the handler uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Options configures a Handler.
type Options struct {
	Navigator  *reader.Navigator
	Sender     Sender
	ChunkLimit int
	// EditInPlace updates the pressed message for single-message button
	// replies instead of sending a new one.
	EditInPlace bool
	Logger      *slog.Logger
}

// Handler dispatches Telegram updates. It is safe for concurrent use.
type Handler struct {
	nav         *reader.Navigator
	sender      Sender
	limit       int
	editInPlace bool
	logger      *slog.Logger
}

// NewHandler creates a handler.
func NewHandler(opts Options) *Handler {
	if opts.ChunkLimit <= 0 {
		opts.ChunkLimit = chunk.DefaultLimit
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Handler{
		nav:         opts.Navigator,
		sender:      opts.Sender,
		limit:       opts.ChunkLimit,
		editInPlace: opts.EditInPlace,
		logger:      opts.Logger,
	}
}

// HandleUpdate processes one update. Errors are logged and, where a chat
// is known, answered with a generic message.
func (h *Handler) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	log := h.logger.With("update_id", u.UpdateID, "interaction_id", uuid.NewString())
	switch {
	case u.CallbackQuery != nil:
		h.handleCallback(ctx, log, u.CallbackQuery)
	case u.Message != nil:
		h.handleMessage(ctx, log, u.Message)
	default:
		log.Debug("ignoring update")
	}
}

func (h *Handler) handleMessage(ctx context.Context, log *slog.Logger, m *tgbotapi.Message) {
	if m.From == nil || m.Chat == nil {
		return
	}
	userID, chatID := m.From.ID, m.Chat.ID
	log = log.With("user_id", userID)

	var (
		msgs []reader.Message
		err  error
	)
	if !m.IsCommand() {
		msgs, err = h.nav.Text(ctx, userID, m.Text)
		h.reply(log, chatID, msgs, err)
		return
	}

	cmd := m.Command()
	log = log.With("command", cmd)
	switch cmd {
	case "start":
		msgs, err = h.nav.Start(ctx, userID)
	case "next":
		msgs, err = h.nav.Next(ctx, userID)
	case "prev":
		msgs, err = h.nav.Prev(ctx, userID)
	case "where":
		msgs, err = h.nav.Where(ctx, userID)
	case "goto":
		msgs, err = h.nav.Goto(ctx, userID)
	case "reset":
		msgs, err = h.nav.Reset(ctx, userID)
	case "daily", "monthly", "weekly", "regular":
		msgs, err = h.nav.SwitchMode(ctx, userID, model.ParseMode(cmd))
	case "load_texts":
		h.refresh(ctx, log, chatID, userID)
		return
	default:
		log.Debug("unknown command")
		return
	}
	log.Debug("command handled")
	h.reply(log, chatID, msgs, err)
}

func (h *Handler) handleCallback(ctx context.Context, log *slog.Logger, q *tgbotapi.CallbackQuery) {
	if _, err := h.sender.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		log.Warn("answer callback", "error", err)
	}
	if q.From == nil || q.Message == nil || q.Message.Chat == nil {
		return
	}
	userID, chatID, msgID := q.From.ID, q.Message.Chat.ID, q.Message.MessageID
	log = log.With("user_id", userID, "action", q.Data)

	var (
		msgs     []reader.Message
		err      error
		editable bool
	)
	switch q.Data {
	case actionNext:
		msgs, err = h.nav.Next(ctx, userID)
		editable = true
	case actionPrev:
		msgs, err = h.nav.Prev(ctx, userID)
		editable = true
	case actionGoto:
		msgs, err = h.nav.Goto(ctx, userID)
	case actionReset:
		h.stripKeyboard(log, chatID, msgID)
		msgs, err = h.nav.Reset(ctx, userID)
	case actionDaily, actionMonthly, actionWeekly, actionRegular:
		msgs, err = h.nav.SwitchMode(ctx, userID, model.ParseMode(q.Data))
		editable = true
	default:
		log.Warn("unknown callback data")
		return
	}
	if err != nil {
		h.reply(log, chatID, nil, err)
		return
	}
	if editable && h.editInPlace && len(msgs) == 1 && len(chunk.Split(msgs[0].Text, h.limit)) == 1 {
		err := h.edit(chatID, msgID, msgs[0].Text)
		if err == nil {
			return
		}
		log.Warn("edit in place failed, sending new message", "error", err)
	}
	h.deliver(log, chatID, msgs)
}

// refresh runs the admin text rebuild, reporting before and after.
func (h *Handler) refresh(ctx context.Context, log *slog.Logger, chatID, userID int64) {
	msgs, ok := h.nav.BeginRefresh(userID)
	h.deliver(log, chatID, msgs)
	if !ok {
		return
	}
	log.Info("refresh started")
	h.deliver(log, chatID, h.nav.Refresh(ctx, userID))
}

func (h *Handler) reply(log *slog.Logger, chatID int64, msgs []reader.Message, err error) {
	if err != nil {
		log.Error("transition failed", "error", err)
		msgs = []reader.Message{{Text: reader.InternalError}}
	}
	h.deliver(log, chatID, msgs)
}

// deliver sends every message in chunks. Controls go on the last chunk only.
func (h *Handler) deliver(log *slog.Logger, chatID int64, msgs []reader.Message) {
	for _, m := range msgs {
		chunks := chunk.Split(m.Text, h.limit)
		for i, c := range chunks {
			cfg := tgbotapi.NewMessage(chatID, c)
			if m.Nav && i == len(chunks)-1 {
				cfg.ReplyMarkup = NavKeyboard()
			}
			if _, err := h.sender.Send(cfg); err != nil {
				log.Error("send message", "chat_id", chatID, "chunk", i+1, "chunks", len(chunks), "error", err)
				return
			}
		}
	}
}

// edit replaces the text of a sent message and keeps the controls on it.
func (h *Handler) edit(chatID int64, msgID int, text string) error {
	cfg := tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, text, NavKeyboard())
	_, err := h.sender.Request(cfg)
	switch {
	case err == nil, isNotModified(err):
		return nil
	case isTooLong(err):
		cfg.Text = chunk.Truncate(text, editFallbackLimit, truncationMarker)
		if _, err := h.sender.Request(cfg); err != nil && !isNotModified(err) {
			return err
		}
		return nil
	default:
		return err
	}
}

func (h *Handler) stripKeyboard(log *slog.Logger, chatID int64, msgID int) {
	cfg := tgbotapi.NewEditMessageReplyMarkup(chatID, msgID, emptyKeyboard())
	if _, err := h.sender.Request(cfg); err != nil && !isNotModified(err) {
		log.Warn("remove keyboard", "error", err)
	}
}

func isNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}

func isTooLong(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ReplaceAll(strings.ToLower(err.Error()), "_", " ")
	return strings.Contains(msg, "too long")
}
