package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bryan-buckman/tehillim-bot/internal/texts"
)

func TestLoadTextsRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "tehillim.json")
	if err := os.WriteFile(data, []byte(`{"1": "broken`), 0o644); err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := texts.NewRepository(texts.Config{
		DataPath:     data,
		SegmentsPath: filepath.Join(dir, "parts.json"),
	}, nil, logger)

	if err := loadTexts(repo, logger); err == nil {
		t.Fatal("loadTexts accepted a malformed text file")
	}
}

func TestLoadTextsWarnsWhenIncomplete(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "tehillim.json")
	if err := os.WriteFile(data, []byte(`{"1": "א. אשרי האיש"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	repo := texts.NewRepository(texts.Config{
		DataPath:     data,
		SegmentsPath: filepath.Join(dir, "parts.json"),
	}, nil, logger)

	if err := loadTexts(repo, logger); err != nil {
		t.Fatalf("loadTexts: %v", err)
	}
	if !strings.Contains(buf.String(), "chapter texts incomplete") || !strings.Contains(buf.String(), "chapters=1") {
		t.Errorf("log = %q", buf.String())
	}
}

func TestLoadTextsMissingFilesStart(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := texts.NewRepository(texts.Config{
		DataPath:     filepath.Join(dir, "tehillim.json"),
		SegmentsPath: filepath.Join(dir, "parts.json"),
	}, nil, logger)

	if err := loadTexts(repo, logger); err != nil {
		t.Fatalf("loadTexts: %v", err)
	}
	if repo.Len() != 0 {
		t.Errorf("Len() = %d, want 0", repo.Len())
	}
}

func TestPollStopsWhenServerFails(t *testing.T) {
	listenErr := errors.New("listen tcp :8080: bind: address already in use")
	done := make(chan error, 1)
	go func() {
		done <- pollWithServer(context.Background(),
			func(context.Context) error { return listenErr },
			func(ctx context.Context) { <-ctx.Done() },
		)
	}()

	select {
	case err := <-done:
		if !errors.Is(err, listenErr) {
			t.Errorf("err = %v, want %v", err, listenErr)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("polling kept running after the server failed")
	}
}

func TestPollWithServerCleanShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	polled := make(chan struct{})
	go func() {
		<-polled
		cancel()
	}()

	err := pollWithServer(ctx,
		func(ctx context.Context) error { <-ctx.Done(); return nil },
		func(ctx context.Context) { close(polled); <-ctx.Done() },
	)
	if err != nil {
		t.Errorf("err = %v, want nil", err)
	}
}
