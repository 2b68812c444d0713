// Package reader moves users through the book and composes the replies for
// every transition.
package reader

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/bryan-buckman/tehillim-bot/internal/database"
	"github.com/bryan-buckman/tehillim-bot/internal/model"
	"github.com/bryan-buckman/tehillim-bot/internal/pending"
	"github.com/bryan-buckman/tehillim-bot/internal/schedule"
	"github.com/bryan-buckman/tehillim-bot/internal/texts"
)

// Message is one reply. Nav asks the transport to attach the navigation
// controls.
type Message struct {
	Text string
	Nav  bool
}

// Refresher rebuilds the text store from the remote source.
type Refresher interface {
	RefreshAll(ctx context.Context) (texts.RefreshReport, error)
}

// Options wires a Navigator.
type Options struct {
	Store     database.Store
	Texts     texts.Source
	Schedule  *schedule.Resolver
	Pending   pending.Store
	Refresher Refresher
	// AdminID may trigger a refresh. Zero disables the command.
	AdminID int64
	Logger  *slog.Logger
}

// Navigator implements the reading-position transitions.
type Navigator struct {
	store     database.Store
	texts     texts.Source
	sched     *schedule.Resolver
	pending   pending.Store
	refresher Refresher
	adminID   int64
	logger    *slog.Logger
}

// New creates a navigator. A nil Pending gets an in-memory store and a nil
// Schedule resolves in UTC on the Hebrew calendar.
func New(opts Options) *Navigator {
	if opts.Pending == nil {
		opts.Pending = pending.NewMemory(pending.DefaultTTL)
	}
	if opts.Schedule == nil {
		opts.Schedule = schedule.NewResolver(nil, nil)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Navigator{
		store:     opts.Store,
		texts:     opts.Texts,
		sched:     opts.Schedule,
		pending:   opts.Pending,
		refresher: opts.Refresher,
		adminID:   opts.AdminID,
		logger:    opts.Logger,
	}
}

// Start shows the stored chapter of the current mode.
func (n *Navigator) Start(ctx context.Context, userID int64) ([]Message, error) {
	mode, chapter, err := n.position(ctx, userID)
	if err != nil {
		return nil, err
	}
	return []Message{n.chapterMessage(mode, chapter, "")}, nil
}

// Next advances the current mode's pointer, wrapping 150 to 1.
func (n *Navigator) Next(ctx context.Context, userID int64) ([]Message, error) {
	return n.step(ctx, userID, 1)
}

// Prev moves the current mode's pointer back, wrapping 1 to 150.
func (n *Navigator) Prev(ctx context.Context, userID int64) ([]Message, error) {
	return n.step(ctx, userID, -1)
}

func (n *Navigator) step(ctx context.Context, userID int64, delta int) ([]Message, error) {
	mode, chapter, err := n.store.Advance(ctx, userID, delta)
	if err != nil {
		return nil, err
	}
	return []Message{n.chapterMessage(mode, chapter, "")}, nil
}

// Reset puts the current mode's pointer back on chapter 1.
func (n *Navigator) Reset(ctx context.Context, userID int64) ([]Message, error) {
	mode, err := n.store.Mode(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := n.store.SetChapter(ctx, userID, model.FirstChapter, mode); err != nil {
		return nil, err
	}
	return []Message{
		{Text: msgResetDone},
		n.chapterMessage(mode, model.FirstChapter, ""),
	}, nil
}

// Goto asks for a chapter number and waits for it.
func (n *Navigator) Goto(ctx context.Context, userID int64) ([]Message, error) {
	if err := n.pending.Mark(ctx, userID); err != nil {
		return nil, err
	}
	return []Message{{Text: msgGotoPrompt}}, nil
}

// Text handles free text. It only replies while a Goto prompt is pending.
// Input that is not a number keeps the prompt open. A number outside the
// book closes it.
func (n *Navigator) Text(ctx context.Context, userID int64, input string) ([]Message, error) {
	waiting, err := n.pending.Pending(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !waiting {
		return nil, nil
	}

	num, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return []Message{{Text: msgInvalidNumber}}, nil
	}
	if err := n.pending.Clear(ctx, userID); err != nil {
		return nil, err
	}
	if !model.ValidChapter(num) {
		return []Message{{Text: msgOutOfRange}}, nil
	}

	mode, err := n.store.Mode(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := n.store.SetChapter(ctx, userID, num, mode); err != nil {
		return nil, err
	}
	return []Message{n.chapterMessage(mode, num, "")}, nil
}

// SwitchMode makes mode current. The monthly and weekly plans jump to the
// first chapter of today's slot. The regular plan resumes its pointer.
func (n *Navigator) SwitchMode(ctx context.Context, userID int64, mode model.Mode) ([]Message, error) {
	now := n.sched.Now()
	switch mode {
	case model.ModeMonthly:
		day, rng := n.sched.Monthly(now)
		if err := n.store.SetPosition(ctx, userID, mode, rng.From); err != nil {
			return nil, err
		}
		slot := fmt.Sprintf(msgMonthlySlot, day, renderRange(rng))
		if schedule.PrefersSegment(rng) {
			if seg, ok := n.texts.Segment(day); ok {
				return []Message{n.segmentMessage(day, slot, seg)}, nil
			}
		}
		return []Message{n.chapterMessage(mode, rng.From, slot)}, nil

	case model.ModeWeekly:
		weekday, rng := n.sched.Weekly(now)
		if err := n.store.SetPosition(ctx, userID, mode, rng.From); err != nil {
			return nil, err
		}
		slot := fmt.Sprintf(msgWeeklySlot, weekday, renderRange(rng))
		return []Message{n.chapterMessage(mode, rng.From, slot)}, nil

	default:
		if err := n.store.SetMode(ctx, userID, model.ModeRegular); err != nil {
			return nil, err
		}
		chapter, err := n.store.Chapter(ctx, userID, model.ModeRegular)
		if err != nil {
			return nil, err
		}
		return []Message{n.chapterMessage(model.ModeRegular, chapter, "")}, nil
	}
}

// Where reports the current mode and every stored pointer.
func (n *Navigator) Where(ctx context.Context, userID int64) ([]Message, error) {
	b, err := n.store.Bookmark(ctx, userID)
	if err != nil {
		return nil, err
	}
	text := fmt.Sprintf(msgWhere, b.Chapter(b.Mode)) + "\n" +
		fmt.Sprintf(msgWhereDetail, ModeLabel(b.Mode), b.Regular, b.Monthly, b.Weekly)
	return []Message{{Text: text}}, nil
}

// CanRefresh reports whether userID may rebuild the texts.
func (n *Navigator) CanRefresh(userID int64) bool {
	return n.adminID != 0 && userID == n.adminID && n.refresher != nil
}

// BeginRefresh returns the reply sent before a refresh and whether the
// caller should go on to call Refresh.
func (n *Navigator) BeginRefresh(userID int64) ([]Message, bool) {
	if !n.CanRefresh(userID) {
		n.logger.Warn("refresh denied", "user_id", userID)
		return []Message{{Text: msgAdminOnly}}, false
	}
	return []Message{{Text: msgRefreshStart}}, true
}

// Refresh rebuilds the texts and reports the outcome.
func (n *Navigator) Refresh(ctx context.Context, userID int64) []Message {
	if !n.CanRefresh(userID) {
		return []Message{{Text: msgAdminOnly}}
	}
	report, err := n.refresher.RefreshAll(ctx)
	if err != nil {
		n.logger.Error("refresh failed", "user_id", userID, "error", err)
		return []Message{{Text: fmt.Sprintf(msgRefreshFailed, err)}}
	}
	state := msgChanged
	if !report.Changed {
		state = msgUnchanged
	}
	return []Message{{Text: msgRefreshDone + "\n" + fmt.Sprintf(msgRefreshSummary, report.Chapters, state)}}
}

func (n *Navigator) position(ctx context.Context, userID int64) (model.Mode, int, error) {
	mode, err := n.store.Mode(ctx, userID)
	if err != nil {
		return model.ModeRegular, 0, err
	}
	chapter, err := n.store.Chapter(ctx, userID, mode)
	if err != nil {
		return mode, 0, err
	}
	return mode, chapter, nil
}

// chapterMessage renders header and body for chapter. A missing text gets
// a placeholder body.
func (n *Navigator) chapterMessage(mode model.Mode, chapter int, slot string) Message {
	header := fmt.Sprintf(msgHeader, chapter, ModeLabel(mode))
	if slot != "" {
		header = slot + "\n" + header
	}
	body, ok := n.texts.Chapter(chapter)
	if !ok {
		n.logger.Warn("chapter text missing", "chapter", chapter)
		body = fmt.Sprintf(msgMissingText, chapter)
	}
	return Message{Text: header + "\n\n" + body, Nav: true}
}

func (n *Navigator) segmentMessage(day int, slot, body string) Message {
	header := slot + "\n" + fmt.Sprintf(msgSegmentHeader, day)
	return Message{Text: header + "\n\n" + body, Nav: true}
}
