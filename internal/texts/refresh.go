package texts

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bryan-buckman/tehillim-bot/internal/hebrew"
	"github.com/bryan-buckman/tehillim-bot/internal/model"
	"github.com/bryan-buckman/tehillim-bot/internal/sefaria"
	"github.com/zeebo/blake3"
)

// ErrRefreshAborted wraps every RefreshAll failure. Nothing on disk or in
// memory has changed when it is returned.
var ErrRefreshAborted = errors.New("refresh aborted")

// Psalm 119 is read over days 25-28 in stanzas of 8 verses.
const (
	psalm119       = 119
	psalm119Verses = 176
	stanzaVerses   = 8
)

// segmentStanzas is the number of stanzas read on each day from 25 to 28.
var segmentStanzas = []int{6, 5, 6, 5}

// RefreshReport summarizes a successful RefreshAll.
type RefreshReport struct {
	Chapters int
	// Digest is the hex BLAKE3 hash of the written chapter mapping.
	Digest string
	// Changed is false when the new mapping is byte-identical to the old one.
	Changed         bool
	SegmentsWritten bool
	Duration        time.Duration
}

// RefreshAll fetches every chapter, and only when all succeed rewrites the
// chapter mapping and drops the caches. A missing segment file is derived
// from the fetched Psalm 119.
func (r *Repository) RefreshAll(ctx context.Context) (RefreshReport, error) {
	start := time.Now()

	chapters := make([]int, 0, model.MaxChapter)
	for n := model.FirstChapter; n <= model.MaxChapter; n++ {
		chapters = append(chapters, n)
	}
	results, err := r.fetcher.FetchAll(ctx, chapters, sefaria.AbortOnError)
	if err != nil {
		return RefreshReport{}, fmt.Errorf("%w: %w", ErrRefreshAborted, err)
	}
	if failed := sefaria.Failed(results); len(failed) > 0 {
		return RefreshReport{}, fmt.Errorf("%w: %w", ErrRefreshAborted, failed[0].Err)
	}
	if len(results) != len(chapters) {
		return RefreshReport{}, fmt.Errorf("%w: got %d chapters, want %d", ErrRefreshAborted, len(results), len(chapters))
	}

	mapping := make(map[int]string, len(results))
	var ps119 []string
	for _, res := range results {
		mapping[res.Chapter] = hebrew.VerseLines(res.Verses)
		if res.Chapter == psalm119 {
			ps119 = res.Verses
		}
	}
	data, err := encodeMapping(mapping)
	if err != nil {
		return RefreshReport{}, fmt.Errorf("%w: %w", ErrRefreshAborted, err)
	}

	sum := blake3.Sum256(data)
	report := RefreshReport{
		Chapters: len(mapping),
		Digest:   hex.EncodeToString(sum[:]),
		Changed:  true,
	}
	if old, err := os.ReadFile(r.cfg.DataPath); err == nil {
		report.Changed = blake3.Sum256(old) != sum
	}

	if err := writeFileAtomic(r.cfg.DataPath, data); err != nil {
		return RefreshReport{}, fmt.Errorf("%w: %w", ErrRefreshAborted, err)
	}

	written, err := r.writeSegmentsIfMissing(ps119)
	if err != nil {
		// The chapter mapping is already in place, so keep going.
		r.logger.Error("write psalm 119 segments", "path", r.cfg.SegmentsPath, "error", err)
	}
	report.SegmentsWritten = written

	r.Invalidate()
	report.Duration = time.Since(start)
	r.logger.Info("texts refreshed",
		"chapters", report.Chapters,
		"digest", report.Digest,
		"changed", report.Changed,
		"segments_written", report.SegmentsWritten,
		"duration", report.Duration,
	)
	return report, nil
}

func (r *Repository) writeSegmentsIfMissing(verses []string) (bool, error) {
	if _, err := os.Stat(r.cfg.SegmentsPath); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}
	segments, err := Psalm119Segments(verses)
	if err != nil {
		return false, err
	}
	data, err := encodeMapping(segments)
	if err != nil {
		return false, err
	}
	if err := writeFileAtomic(r.cfg.SegmentsPath, data); err != nil {
		return false, err
	}
	return true, nil
}

// Psalm119Segments splits the 176 raw verses of Psalm 119 into the four
// day segments keyed 25-28, keeping the chapter's verse numbering.
func Psalm119Segments(verses []string) (map[int]string, error) {
	if len(verses) != psalm119Verses {
		return nil, fmt.Errorf("psalm 119 has %d verses, want %d", len(verses), psalm119Verses)
	}
	segments := make(map[int]string, len(segmentStanzas))
	first := 0
	for i, stanzas := range segmentStanzas {
		last := first + stanzas*stanzaVerses
		segments[25+i] = hebrew.VerseLinesFrom(first+1, verses[first:last])
		first = last
	}
	return segments, nil
}

// encodeMapping renders m as indented JSON with decimal string keys and
// unescaped UTF-8.
func encodeMapping(m map[int]string) ([]byte, error) {
	raw := make(map[string]string, len(m))
	for k, v := range m {
		raw[strconv.Itoa(k)] = v
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeFileAtomic replaces path with data via a temp file in the same directory.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
