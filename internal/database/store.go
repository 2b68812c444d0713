// Package database persists per-user reading positions.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/bryan-buckman/tehillim-bot/internal/model"
)

// Store defines the bookmark operations.
// Both SQLite and PostgreSQL implementations satisfy this interface.
type Store interface {
	Close() error

	// DatabaseType returns the name of the database backend ("SQLite" or "PostgreSQL").
	DatabaseType() string

	// Mode returns the user's current mode, ModeRegular when unset.
	Mode(ctx context.Context, userID int64) (model.Mode, error)
	SetMode(ctx context.Context, userID int64, mode model.Mode) error

	// Chapter returns the pointer stored for mode, 1 when unset.
	Chapter(ctx context.Context, userID int64, mode model.Mode) (int, error)
	// SetChapter clamps chapter into range and stores it for mode only.
	SetChapter(ctx context.Context, userID int64, chapter int, mode model.Mode) error

	// SetPosition stores the current mode and that mode's pointer in one write.
	SetPosition(ctx context.Context, userID int64, mode model.Mode, chapter int) error

	// Advance moves the current mode's pointer by delta, wrapping around the
	// ends of the book, as a single update. It returns the mode and the new
	// pointer.
	Advance(ctx context.Context, userID int64, delta int) (model.Mode, int, error)

	// Bookmark returns the full record, defaults when the user has none.
	Bookmark(ctx context.Context, userID int64) (*model.Bookmark, error)
}

// Options selects and configures a backend.
type Options struct {
	// Path is the SQLite file, used when URL is empty.
	Path string
	// URL is a PostgreSQL connection string.
	URL string
}

// Open returns a PostgreSQL store when opts.URL is set and an SQLite store otherwise.
func Open(opts Options) (Store, error) {
	if opts.URL != "" {
		return NewPostgres(opts.URL)
	}
	if opts.Path == "" {
		return nil, fmt.Errorf("no database configured")
	}
	return New(opts.Path)
}

// column describes a bookmark column that migrations add when missing.
type column struct {
	name       string
	definition string
}

// bookmarkColumns lists the columns added on top of the single-pointer schema.
var bookmarkColumns = []column{
	{"chapter_regular", "INTEGER NOT NULL DEFAULT 1"},
	{"chapter_monthly", "INTEGER NOT NULL DEFAULT 1"},
	{"chapter_weekly", "INTEGER NOT NULL DEFAULT 1"},
	{"current_mode", "TEXT NOT NULL DEFAULT 'regular'"},
}

// chapterColumn names the pointer column for mode.
func chapterColumn(mode model.Mode) string {
	switch mode {
	case model.ModeMonthly:
		return "chapter_monthly"
	case model.ModeWeekly:
		return "chapter_weekly"
	default:
		return "chapter_regular"
	}
}

// upsertSQL builds an insert keyed on user_id that updates only cols and
// updated_at on conflict. placeholder renders the nth (1-based) parameter.
func upsertSQL(placeholder func(n int) string, cols ...string) string {
	all := append([]string{"user_id"}, cols...)
	all = append(all, "updated_at")

	params := make([]string, len(all))
	for i := range all {
		params[i] = placeholder(i + 1)
	}
	sets := make([]string, 0, len(all)-1)
	for _, c := range all[1:] {
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
	}
	return fmt.Sprintf(
		"INSERT INTO bookmarks (%s) VALUES (%s) ON CONFLICT (user_id) DO UPDATE SET %s",
		strings.Join(all, ", "), strings.Join(params, ", "), strings.Join(sets, ", "),
	)
}

// wrapExpr renders col moved by delta and wrapped into [1, MaxChapter].
func wrapExpr(col string, delta int) string {
	return fmt.Sprintf("((%s - 1 + %d) %% %d + %d) %% %d + 1",
		col, delta%model.MaxChapter, model.MaxChapter, model.MaxChapter, model.MaxChapter)
}

// advanceSQL updates the pointer of whichever mode is current in one
// statement. Unknown stored modes move the regular pointer, matching how
// they are read.
func advanceSQL(placeholder func(n int) string, delta int) string {
	return fmt.Sprintf(`UPDATE bookmarks SET
		chapter_regular = CASE WHEN current_mode IN ('monthly', 'weekly') THEN chapter_regular ELSE %s END,
		chapter_monthly = CASE WHEN current_mode = 'monthly' THEN %s ELSE chapter_monthly END,
		chapter_weekly = CASE WHEN current_mode = 'weekly' THEN %s ELSE chapter_weekly END,
		updated_at = %s
	WHERE user_id = %s
	RETURNING current_mode, chapter_regular, chapter_monthly, chapter_weekly`,
		wrapExpr("chapter_regular", delta),
		wrapExpr("chapter_monthly", delta),
		wrapExpr("chapter_weekly", delta),
		placeholder(1), placeholder(2),
	)
}

// advance creates the user's row if needed, then applies advanceSQL.
func advance(ctx context.Context, conn *sql.DB, placeholder func(n int) string, now any, userID int64, delta int) (model.Mode, int, error) {
	insert := fmt.Sprintf(
		"INSERT INTO bookmarks (user_id, updated_at) VALUES (%s, %s) ON CONFLICT (user_id) DO NOTHING",
		placeholder(1), placeholder(2),
	)
	if _, err := conn.ExecContext(ctx, insert, userID, now); err != nil {
		return model.ModeRegular, model.FirstChapter, fmt.Errorf("advance: %w", err)
	}

	b := model.NewBookmark(userID)
	var mode string
	err := conn.QueryRowContext(ctx, advanceSQL(placeholder, delta), now, userID).
		Scan(&mode, &b.Regular, &b.Monthly, &b.Weekly)
	if err != nil {
		return model.ModeRegular, model.FirstChapter, fmt.Errorf("advance: %w", err)
	}
	b.Mode = model.ParseMode(mode)
	return b.Mode, model.ClampChapter(b.Chapter(b.Mode)), nil
}
