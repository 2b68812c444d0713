// Package server provides the HTTP server and handlers.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bryan-buckman/tehillim-bot/internal/database"
	"github.com/bryan-buckman/tehillim-bot/internal/logging"
	"github.com/bryan-buckman/tehillim-bot/internal/schedule"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// SecretHeader carries the webhook secret set with setWebhook.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateHandler processes one Telegram update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, u tgbotapi.Update)
}

// Options wires a Server.
type Options struct {
	Store    database.Store
	Schedule *schedule.Resolver
	// Updates is nil when the bot polls instead of receiving webhooks.
	Updates       UpdateHandler
	WebhookSecret string
	Logger        *slog.Logger
}

// Server is the main HTTP server.
type Server struct {
	store   database.Store
	sched   *schedule.Resolver
	updates UpdateHandler
	secret  string
	logger  *slog.Logger
	router  chi.Router

	// baseCtx outlives webhook requests so updates finish after the reply.
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a new server.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Schedule == nil {
		opts.Schedule = schedule.NewResolver(nil, nil)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		store:   opts.Store,
		sched:   opts.Schedule,
		updates: opts.Updates,
		secret:  opts.WebhookSecret,
		logger:  opts.Logger,
		baseCtx: ctx,
		cancel:  cancel,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/schedule/today", s.handleScheduleToday)
	})

	if s.updates != nil {
		r.Post("/telegram/webhook", s.handleWebhook)
	}

	s.router = r
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until ctx is done, then shuts down and waits for
// webhook updates still in progress.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Stop()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Stop()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop waits for in-flight updates, then cancels their context.
func (s *Server) Stop() {
	s.wg.Wait()
	s.cancel()
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"status": "ok"}
	if s.store != nil {
		resp["database"] = s.store.DatabaseType()
	}
	writeJSON(w, http.StatusOK, resp)
}

type slotJSON struct {
	Key     int  `json:"key"`
	From    int  `json:"from"`
	To      int  `json:"to"`
	Segment bool `json:"segment,omitempty"`
}

func (s *Server) handleScheduleToday(w http.ResponseWriter, r *http.Request) {
	t := s.sched.Now()
	if d := r.URL.Query().Get("date"); d != "" {
		parsed, err := time.ParseInLocation("2006-01-02", d, s.sched.Location())
		if err != nil {
			http.Error(w, "Invalid date, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		// Resolve at local noon.
		t = parsed.Add(12 * time.Hour)
	}

	day, monthly := s.sched.Monthly(t)
	weekday, weekly := s.sched.Weekly(t)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":     t.In(s.sched.Location()).Format("2006-01-02"),
		"timezone": s.sched.Location().String(),
		"calendar": s.sched.Calendar().Name(),
		"monthly": slotJSON{
			Key:     day,
			From:    monthly.From,
			To:      monthly.To,
			Segment: schedule.PrefersSegment(monthly),
		},
		"weekly": slotJSON{Key: weekday, From: weekly.From, To: weekly.To},
	})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if s.secret != "" {
		got := r.Header.Get(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.secret)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&update); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.updates.HandleUpdate(s.baseCtx, update)
	}()
	w.WriteHeader(http.StatusOK)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
