// Package sefaria fetches raw chapter texts from the Sefaria API.
package sefaria

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Defaults for the public Sefaria API.
const (
	DefaultBaseURL = "https://www.sefaria.org"
	DefaultBook    = "Psalms"
	DefaultTimeout = 20 * time.Second
	// DefaultDelay is the minimum gap between two requests.
	DefaultDelay = 250 * time.Millisecond
)

// Config controls the fetcher.
type Config struct {
	BaseURL string
	Book    string
	// Timeout applies to each chapter request.
	Timeout time.Duration
	Delay   time.Duration
}

// FetchError reports why a single chapter could not be fetched.
type FetchError struct {
	Chapter int
	Status  int
	Err     error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch chapter %d: status %d: %v", e.Chapter, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch chapter %d: %v", e.Chapter, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Policy decides what FetchAll does after a chapter fails.
type Policy int

const (
	// AbortOnError stops at the first failed chapter.
	AbortOnError Policy = iota
	// BestEffort records the failure and keeps going.
	BestEffort
)

// FetchResult holds the outcome for one chapter.
type FetchResult struct {
	Chapter int
	Verses  []string
	Err     error
}

// pacer spaces out requests to the API host.
type pacer struct {
	mu          sync.Mutex
	delay       time.Duration
	lastRequest time.Time
}

// wait blocks until delay has passed since the previous request.
func (p *pacer) wait(ctx context.Context) error {
	p.mu.Lock()
	last := p.lastRequest
	p.mu.Unlock()

	if last.IsZero() {
		return nil
	}
	elapsed := time.Since(last)
	if elapsed >= p.delay {
		return nil
	}
	select {
	case <-time.After(p.delay - elapsed):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// done records the request time.
func (p *pacer) done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastRequest = time.Now()
}

// Fetcher retrieves chapters over HTTP.
type Fetcher struct {
	client  *http.Client
	baseURL string
	book    string
	timeout time.Duration
	pacer   *pacer
	logger  *slog.Logger
}

// NewFetcher creates a fetcher, filling unset config fields with defaults.
func NewFetcher(cfg Config, logger *slog.Logger) *Fetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Book == "" {
		cfg.Book = DefaultBook
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:  &http.Client{},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		book:    cfg.Book,
		timeout: cfg.Timeout,
		pacer:   &pacer{delay: cfg.Delay},
		logger:  logger,
	}
}

type textResponse struct {
	He    []string `json:"he"`
	Error string   `json:"error"`
}

// FetchChapter returns the raw, possibly marked-up verses of chapter n.
func (f *Fetcher) FetchChapter(ctx context.Context, n int) ([]string, error) {
	if err := f.pacer.wait(ctx); err != nil {
		return nil, &FetchError{Chapter: n, Err: err}
	}
	defer f.pacer.done()

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/api/texts/%s.%d?lang=he", f.baseURL, f.book, n)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Chapter: n, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Chapter: n, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, &FetchError{
			Chapter: n,
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body))),
		}
	}

	var tr textResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, &FetchError{Chapter: n, Status: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	if tr.Error != "" {
		return nil, &FetchError{Chapter: n, Status: resp.StatusCode, Err: fmt.Errorf("api: %s", tr.Error)}
	}
	if len(tr.He) == 0 {
		return nil, &FetchError{Chapter: n, Status: resp.StatusCode, Err: fmt.Errorf("no verses")}
	}
	return tr.He, nil
}

// FetchAll fetches chapters one at a time, in order.
// With AbortOnError the returned error is the first chapter failure and the
// results end at that chapter. With BestEffort failures are only recorded in
// the results. Cancellation of ctx always stops the loop.
func (f *Fetcher) FetchAll(ctx context.Context, chapters []int, policy Policy) ([]FetchResult, error) {
	results := make([]FetchResult, 0, len(chapters))
	for i, n := range chapters {
		select {
		case <-ctx.Done():
			f.logger.Warn("fetch cancelled", "done", i, "total", len(chapters))
			return results, ctx.Err()
		default:
		}

		verses, err := f.FetchChapter(ctx, n)
		results = append(results, FetchResult{Chapter: n, Verses: verses, Err: err})
		if err != nil {
			f.logger.Error("fetch chapter failed", "chapter", n, "error", err)
			if policy == AbortOnError {
				return results, err
			}
			continue
		}

		if (i+1)%50 == 0 {
			f.logger.Info("fetch progress", "done", i+1, "total", len(chapters))
		}
	}
	return results, nil
}

// Failed returns the results that carry an error.
func Failed(results []FetchResult) []FetchResult {
	var failed []FetchResult
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}
