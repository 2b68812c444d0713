package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bryan-buckman/tehillim-bot/internal/database"
	"github.com/bryan-buckman/tehillim-bot/internal/model"
	"github.com/bryan-buckman/tehillim-bot/internal/pending"
	"github.com/bryan-buckman/tehillim-bot/internal/reader"
	"github.com/bryan-buckman/tehillim-bot/internal/schedule"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// fakeSender records every call. requestErrs are returned by Request in order.
type fakeSender struct {
	mu          sync.Mutex
	sent        []tgbotapi.MessageConfig
	requests    []tgbotapi.Chattable
	requestErrs []error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	if _, ok := c.(tgbotapi.CallbackConfig); ok {
		return &tgbotapi.APIResponse{Ok: true}, nil
	}
	if len(f.requestErrs) > 0 {
		err := f.requestErrs[0]
		f.requestErrs = f.requestErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// edits returns the non-callback requests.
func (f *fakeSender) edits() []tgbotapi.Chattable {
	var out []tgbotapi.Chattable
	for _, r := range f.requests {
		if _, ok := r.(tgbotapi.CallbackConfig); !ok {
			out = append(out, r)
		}
	}
	return out
}

// longSource returns a body of many lines for chapter 119 and a short one otherwise.
type longSource struct{}

func (longSource) Chapter(n int) (string, bool) {
	if n == 119 {
		lines := make([]string, 200)
		for i := range lines {
			lines[i] = strings.Repeat("א", 30)
		}
		return strings.Join(lines, "\n"), true
	}
	return fmt.Sprintf("text %d", n), true
}

func (longSource) Segment(int) (string, bool) { return "", false }

func newTestHandler(t *testing.T, editInPlace bool) (*Handler, *fakeSender, database.Store) {
	t.Helper()
	store, err := database.New(filepath.Join(t.TempDir(), "bot.db"))
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fixed := time.Date(2024, 10, 12, 9, 0, 0, 0, time.UTC)
	nav := reader.New(reader.Options{
		Store:    store,
		Texts:    longSource{},
		Schedule: schedule.NewResolver(time.UTC, nil).WithClock(func() time.Time { return fixed }),
		Pending:  pending.NewMemory(time.Minute),
		Logger:   logger,
	})
	sender := &fakeSender{}
	h := NewHandler(Options{
		Navigator:   nav,
		Sender:      sender,
		ChunkLimit:  1000,
		EditInPlace: editInPlace,
		Logger:      logger,
	})
	return h, sender, store
}

func commandUpdate(userID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		cmd := strings.Fields(text)[0]
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return tgbotapi.Update{UpdateID: 1, Message: msg}
}

func callbackUpdate(userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 2,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb-1",
			From: &tgbotapi.User{ID: userID},
			Message: &tgbotapi.Message{
				MessageID: 77,
				Chat:      &tgbotapi.Chat{ID: userID},
			},
			Data: data,
		},
	}
}

func hasKeyboard(m tgbotapi.MessageConfig) bool {
	_, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	return ok
}

func TestCommandNext(t *testing.T) {
	h, sender, store := newTestHandler(t, false)
	ctx := context.Background()

	h.HandleUpdate(ctx, commandUpdate(10, "/next"))
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	if !strings.HasPrefix(sender.sent[0].Text, "תהילים - פרק 2 ") || !hasKeyboard(sender.sent[0]) {
		t.Errorf("reply = %+v", sender.sent[0])
	}
	if ch, _ := store.Chapter(ctx, 10, model.ModeRegular); ch != 2 {
		t.Errorf("stored %d, want 2", ch)
	}
}

func TestKeyboardOnLastChunkOnly(t *testing.T) {
	h, sender, store := newTestHandler(t, false)
	ctx := context.Background()
	store.SetChapter(ctx, 10, 119, model.ModeRegular)

	h.HandleUpdate(ctx, commandUpdate(10, "/start"))
	if len(sender.sent) < 2 {
		t.Fatalf("sent %d messages, want several chunks", len(sender.sent))
	}
	var joined strings.Builder
	for i, m := range sender.sent {
		last := i == len(sender.sent)-1
		if hasKeyboard(m) != last {
			t.Errorf("chunk %d keyboard = %v, want %v", i, hasKeyboard(m), last)
		}
		if n := len([]rune(m.Text)); n > 1000 {
			t.Errorf("chunk %d has %d runes", i, n)
		}
		joined.WriteString(m.Text)
	}
	if !strings.HasSuffix(joined.String(), strings.Repeat("א", 30)) {
		t.Error("chunks do not end with the chapter text")
	}
}

func TestGotoConversation(t *testing.T) {
	h, sender, store := newTestHandler(t, false)
	ctx := context.Background()

	h.HandleUpdate(ctx, commandUpdate(10, "hello"))
	if len(sender.sent) != 0 {
		t.Fatalf("free text without prompt got %d replies", len(sender.sent))
	}

	h.HandleUpdate(ctx, callbackUpdate(10, "goto"))
	h.HandleUpdate(ctx, commandUpdate(10, "x"))
	h.HandleUpdate(ctx, commandUpdate(10, "33"))

	if len(sender.sent) != 3 {
		t.Fatalf("sent %d messages, want 3", len(sender.sent))
	}
	if hasKeyboard(sender.sent[0]) || hasKeyboard(sender.sent[1]) {
		t.Error("prompt replies carry a keyboard")
	}
	if !strings.HasPrefix(sender.sent[2].Text, "תהילים - פרק 33 ") {
		t.Errorf("final reply = %q", sender.sent[2].Text)
	}
	if ch, _ := store.Chapter(ctx, 10, model.ModeRegular); ch != 33 {
		t.Errorf("stored %d, want 33", ch)
	}
}

func TestCallbackIsAnswered(t *testing.T) {
	h, sender, _ := newTestHandler(t, false)
	h.HandleUpdate(context.Background(), callbackUpdate(10, "next"))

	if len(sender.requests) == 0 {
		t.Fatal("callback not answered")
	}
	if cb, ok := sender.requests[0].(tgbotapi.CallbackConfig); !ok || cb.CallbackQueryID != "cb-1" {
		t.Errorf("first request = %#v", sender.requests[0])
	}
}

func TestResetStripsKeyboard(t *testing.T) {
	h, sender, _ := newTestHandler(t, false)
	sender.requestErrs = []error{&tgbotapi.Error{Code: 400, Message: "Bad Request: message is not modified"}}

	h.HandleUpdate(context.Background(), callbackUpdate(10, "reset"))

	edits := sender.edits()
	if len(edits) != 1 {
		t.Fatalf("got %d edits, want 1", len(edits))
	}
	markup, ok := edits[0].(tgbotapi.EditMessageReplyMarkupConfig)
	if !ok || markup.MessageID != 77 || markup.ReplyMarkup == nil || len(markup.ReplyMarkup.InlineKeyboard) != 0 {
		t.Errorf("edit = %#v", edits[0])
	}
	if len(sender.sent) != 2 {
		t.Fatalf("sent %d messages, want confirmation and chapter", len(sender.sent))
	}
	if hasKeyboard(sender.sent[0]) || !hasKeyboard(sender.sent[1]) {
		t.Error("keyboard should be on the chapter message only")
	}
}

func TestEditInPlace(t *testing.T) {
	h, sender, _ := newTestHandler(t, true)
	h.HandleUpdate(context.Background(), callbackUpdate(10, "next"))

	if len(sender.sent) != 0 {
		t.Errorf("sent %d new messages, want edit only", len(sender.sent))
	}
	edits := sender.edits()
	if len(edits) != 1 {
		t.Fatalf("got %d edits, want 1", len(edits))
	}
	e, ok := edits[0].(tgbotapi.EditMessageTextConfig)
	if !ok || e.MessageID != 77 || !strings.HasPrefix(e.Text, "תהילים - פרק 2 ") || e.ReplyMarkup == nil {
		t.Errorf("edit = %#v", edits[0])
	}
}

func TestEditNotModifiedIsNoop(t *testing.T) {
	h, sender, _ := newTestHandler(t, true)
	sender.requestErrs = []error{&tgbotapi.Error{Code: 400, Message: "Bad Request: message is not modified"}}

	h.HandleUpdate(context.Background(), callbackUpdate(10, "regular"))
	if len(sender.sent) != 0 {
		t.Errorf("sent %d messages after not-modified edit", len(sender.sent))
	}
	if len(sender.edits()) != 1 {
		t.Errorf("got %d edits, want 1", len(sender.edits()))
	}
}

func TestEditTooLongFallsBackToTruncated(t *testing.T) {
	h, sender, _ := newTestHandler(t, true)
	sender.requestErrs = []error{&tgbotapi.Error{Code: 400, Message: "Bad Request: MESSAGE_TOO_LONG"}}

	h.HandleUpdate(context.Background(), callbackUpdate(10, "prev"))
	edits := sender.edits()
	if len(edits) != 2 {
		t.Fatalf("got %d edits, want 2", len(edits))
	}
	if len(sender.sent) != 0 {
		t.Errorf("sent %d messages, want none", len(sender.sent))
	}
}

func TestEditFailureSendsNewMessage(t *testing.T) {
	h, sender, _ := newTestHandler(t, true)
	sender.requestErrs = []error{&tgbotapi.Error{Code: 400, Message: "Bad Request: message to edit not found"}}

	h.HandleUpdate(context.Background(), callbackUpdate(10, "weekly"))
	if len(sender.sent) != 1 || !hasKeyboard(sender.sent[0]) {
		t.Errorf("sent = %+v, want one message with keyboard", sender.sent)
	}
	if !strings.HasPrefix(sender.sent[0].Text, "חלוקה שבועית - יום 6") {
		t.Errorf("text = %q", sender.sent[0].Text)
	}
}

func TestLoadTextsDeniedWithoutAdmin(t *testing.T) {
	h, sender, _ := newTestHandler(t, false)
	h.HandleUpdate(context.Background(), commandUpdate(10, "/load_texts"))
	if len(sender.sent) != 1 || sender.sent[0].Text != "פקודה זו מיועדת למנהל בלבד." {
		t.Errorf("sent = %+v", sender.sent)
	}
}

func TestRunStopsWhenChannelCloses(t *testing.T) {
	h, sender, _ := newTestHandler(t, false)
	updates := make(chan tgbotapi.Update, 3)
	for i := int64(1); i <= 3; i++ {
		updates <- commandUpdate(i, "/start")
	}
	close(updates)

	done := make(chan struct{})
	go func() {
		h.Run(context.Background(), updates, 2)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.sent) != 3 {
		t.Errorf("sent %d messages, want 3", len(sender.sent))
	}
}
