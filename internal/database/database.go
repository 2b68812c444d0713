package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bryan-buckman/tehillim-bot/internal/model"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection.
type DB struct {
	conn *sql.DB
}

// Ensure DB implements Store interface.
var _ Store = (*DB)(nil)

// New opens or creates an SQLite database at the given path.
func New(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Enable WAL mode for better concurrency.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	db := &DB{conn: conn}
	if err := db.migrate(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// DatabaseType returns the database backend name.
func (db *DB) DatabaseType() string {
	return "SQLite"
}

// migrate creates the bookmarks table, or brings a single-pointer table
// up to date. The legacy chapter value is copied into chapter_regular in
// the same transaction that adds the column, so it happens once.
func (db *DB) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS bookmarks (
		user_id INTEGER PRIMARY KEY,
		chapter_regular INTEGER NOT NULL DEFAULT 1,
		chapter_monthly INTEGER NOT NULL DEFAULT 1,
		chapter_weekly INTEGER NOT NULL DEFAULT 1,
		current_mode TEXT NOT NULL DEFAULT 'regular',
		updated_at TEXT NOT NULL
	);
	`
	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create bookmarks: %w", err)
	}

	existing, err := db.columns(ctx)
	if err != nil {
		return err
	}

	var missing []column
	for _, c := range bookmarkColumns {
		if !existing[c.name] {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, c := range missing {
		stmt := fmt.Sprintf("ALTER TABLE bookmarks ADD COLUMN %s %s", c.name, c.definition)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("add column %s: %w", c.name, err)
		}
	}
	if !existing["chapter_regular"] && existing["chapter"] {
		seed := `UPDATE bookmarks SET chapter_regular = MIN(MAX(COALESCE(chapter, 1), 1), 150)`
		if _, err := tx.ExecContext(ctx, seed); err != nil {
			return fmt.Errorf("seed chapter_regular: %w", err)
		}
	}
	return tx.Commit()
}

// columns returns the set of column names on the bookmarks table.
func (db *DB) columns(ctx context.Context) (map[string]bool, error) {
	rows, err := db.conn.QueryContext(ctx, "PRAGMA table_info(bookmarks)")
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

func sqlitePlaceholder(int) string { return "?" }

func sqliteNow() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// parseTimestamp accepts RFC 3339 values and the naive ISO timestamps
// written by earlier versions of the bot.
func parseTimestamp(s string) time.Time {
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// --- Bookmark Methods ---

// Mode returns the user's current mode.
func (db *DB) Mode(ctx context.Context, userID int64) (model.Mode, error) {
	var name string
	err := db.conn.QueryRowContext(ctx, "SELECT current_mode FROM bookmarks WHERE user_id = ?", userID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ModeRegular, nil
	}
	if err != nil {
		return model.ModeRegular, fmt.Errorf("get mode: %w", err)
	}
	return model.ParseMode(name), nil
}

// SetMode stores the user's current mode.
func (db *DB) SetMode(ctx context.Context, userID int64, mode model.Mode) error {
	_, err := db.conn.ExecContext(ctx, upsertSQL(sqlitePlaceholder, "current_mode"),
		userID, mode.String(), sqliteNow())
	if err != nil {
		return fmt.Errorf("set mode: %w", err)
	}
	return nil
}

// Chapter returns the pointer stored for mode.
func (db *DB) Chapter(ctx context.Context, userID int64, mode model.Mode) (int, error) {
	var chapter int
	query := fmt.Sprintf("SELECT %s FROM bookmarks WHERE user_id = ?", chapterColumn(mode))
	err := db.conn.QueryRowContext(ctx, query, userID).Scan(&chapter)
	if errors.Is(err, sql.ErrNoRows) {
		return model.FirstChapter, nil
	}
	if err != nil {
		return model.FirstChapter, fmt.Errorf("get chapter: %w", err)
	}
	return model.ClampChapter(chapter), nil
}

// SetChapter stores chapter for mode, leaving the other pointers alone.
func (db *DB) SetChapter(ctx context.Context, userID int64, chapter int, mode model.Mode) error {
	_, err := db.conn.ExecContext(ctx, upsertSQL(sqlitePlaceholder, chapterColumn(mode)),
		userID, model.ClampChapter(chapter), sqliteNow())
	if err != nil {
		return fmt.Errorf("set chapter: %w", err)
	}
	return nil
}

// SetPosition stores the current mode together with its pointer.
func (db *DB) SetPosition(ctx context.Context, userID int64, mode model.Mode, chapter int) error {
	_, err := db.conn.ExecContext(ctx, upsertSQL(sqlitePlaceholder, "current_mode", chapterColumn(mode)),
		userID, mode.String(), model.ClampChapter(chapter), sqliteNow())
	if err != nil {
		return fmt.Errorf("set position: %w", err)
	}
	return nil
}

// Advance steps the current mode's pointer by delta.
func (db *DB) Advance(ctx context.Context, userID int64, delta int) (model.Mode, int, error) {
	return advance(ctx, db.conn, sqlitePlaceholder, sqliteNow(), userID, delta)
}

// Bookmark returns every pointer for the user.
func (db *DB) Bookmark(ctx context.Context, userID int64) (*model.Bookmark, error) {
	b := model.NewBookmark(userID)
	var (
		mode    string
		updated sql.NullString
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT chapter_regular, chapter_monthly, chapter_weekly, current_mode, updated_at
		FROM bookmarks WHERE user_id = ?`, userID,
	).Scan(&b.Regular, &b.Monthly, &b.Weekly, &mode, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return b, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get bookmark: %w", err)
	}
	b.Regular = model.ClampChapter(b.Regular)
	b.Monthly = model.ClampChapter(b.Monthly)
	b.Weekly = model.ClampChapter(b.Weekly)
	b.Mode = model.ParseMode(mode)
	if updated.Valid {
		b.UpdatedAt = parseTimestamp(updated.String)
	}
	return b, nil
}
