// Package texts caches chapter texts and Psalm 119 segments backed by JSON
// mapping files, and rebuilds those files from the remote source.
package texts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"github.com/bryan-buckman/tehillim-bot/internal/sefaria"
)

// Default mapping file locations.
const (
	DefaultDataPath     = "data/tehillim.json"
	DefaultSegmentsPath = "data/psalm119_parts.json"
)

// Source is the read side used by the navigator.
type Source interface {
	Chapter(n int) (string, bool)
	Segment(day int) (string, bool)
}

// Fetcher retrieves raw verses for a list of chapters.
type Fetcher interface {
	FetchAll(ctx context.Context, chapters []int, policy sefaria.Policy) ([]sefaria.FetchResult, error)
}

// Config locates the mapping files.
type Config struct {
	DataPath     string
	SegmentsPath string
}

// Repository is safe for concurrent use.
type Repository struct {
	cfg     Config
	fetcher Fetcher
	logger  *slog.Logger

	mu       sync.RWMutex
	chapters map[int]string
	segments map[int]string
}

var _ Source = (*Repository)(nil)

// NewRepository creates a repository. Nothing is read until first use.
func NewRepository(cfg Config, fetcher Fetcher, logger *slog.Logger) *Repository {
	if cfg.DataPath == "" {
		cfg.DataPath = DefaultDataPath
	}
	if cfg.SegmentsPath == "" {
		cfg.SegmentsPath = DefaultSegmentsPath
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{cfg: cfg, fetcher: fetcher, logger: logger}
}

// Chapter returns the text of chapter n.
func (r *Repository) Chapter(n int) (string, bool) {
	m, err := r.chapterMap()
	if err != nil {
		r.logger.Error("load chapters", "path", r.cfg.DataPath, "error", err)
		return "", false
	}
	text, ok := m[n]
	return text, ok
}

// Segment returns the Psalm 119 segment read on the given day of month.
func (r *Repository) Segment(day int) (string, bool) {
	m, err := r.segmentMap()
	if err != nil {
		r.logger.Error("load segments", "path", r.cfg.SegmentsPath, "error", err)
		return "", false
	}
	text, ok := m[day]
	return text, ok
}

// Load reads both mapping files now, surfacing malformed files.
func (r *Repository) Load() error {
	if _, err := r.chapterMap(); err != nil {
		return fmt.Errorf("load chapters: %w", err)
	}
	if _, err := r.segmentMap(); err != nil {
		return fmt.Errorf("load segments: %w", err)
	}
	return nil
}

// Invalidate drops both caches so the next read goes back to disk.
func (r *Repository) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chapters = nil
	r.segments = nil
}

// Len returns the number of cached chapters, loading them if needed.
func (r *Repository) Len() int {
	m, err := r.chapterMap()
	if err != nil {
		return 0
	}
	return len(m)
}

func (r *Repository) chapterMap() (map[int]string, error) {
	return r.cached(&r.chapters, r.cfg.DataPath)
}

func (r *Repository) segmentMap() (map[int]string, error) {
	return r.cached(&r.segments, r.cfg.SegmentsPath)
}

// cached returns *slot, filling it from path on first use. Two callers may
// race to read the file; the first to finish wins and both see a complete map.
func (r *Repository) cached(slot *map[int]string, path string) (map[int]string, error) {
	r.mu.RLock()
	m := *slot
	r.mu.RUnlock()
	if m != nil {
		return m, nil
	}

	loaded, err := readMapping(path)
	if errors.Is(err, fs.ErrNotExist) {
		r.logger.Warn("mapping file not found, using empty set", "path", path)
		loaded = map[int]string{}
	} else if err != nil {
		return nil, err
	} else {
		r.logger.Info("loaded mapping", "path", path, "entries", len(loaded))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if *slot == nil {
		*slot = loaded
	}
	return *slot, nil
}

// readMapping decodes a JSON object keyed by decimal integers.
func readMapping(path string) (map[int]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	m := make(map[int]string, len(raw))
	for k, v := range raw {
		n, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("parse %s: key %q is not a number", path, k)
		}
		m[n] = v
	}
	return m, nil
}
