// Command tehillim-bot runs the Tehillim reading bot and its maintenance
// commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/bryan-buckman/tehillim-bot/internal/bot"
	"github.com/bryan-buckman/tehillim-bot/internal/config"
	"github.com/bryan-buckman/tehillim-bot/internal/database"
	"github.com/bryan-buckman/tehillim-bot/internal/hebrew"
	"github.com/bryan-buckman/tehillim-bot/internal/logging"
	"github.com/bryan-buckman/tehillim-bot/internal/model"
	"github.com/bryan-buckman/tehillim-bot/internal/pending"
	"github.com/bryan-buckman/tehillim-bot/internal/reader"
	"github.com/bryan-buckman/tehillim-bot/internal/schedule"
	"github.com/bryan-buckman/tehillim-bot/internal/sefaria"
	"github.com/bryan-buckman/tehillim-bot/internal/server"
	"github.com/bryan-buckman/tehillim-bot/internal/texts"
)

// CLI defines the command-line interface.
var CLI struct {
	Config config.Config `embed:""`

	Serve   ServeCmd   `cmd:"" default:"1" help:"Run the bot (default)"`
	Refresh RefreshCmd `cmd:"" help:"Download all chapters from Sefaria and rewrite the text files"`
	Migrate MigrateCmd `cmd:"" help:"Create or upgrade the bookmark schema and exit"`
	Today   TodayCmd   `cmd:"" help:"Print the monthly and weekly portions for a date"`
}

// app carries what every command needs.
type app struct {
	ctx    context.Context
	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	if err := config.LoadDotenv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	kctx := kong.Parse(&CLI,
		kong.Name("tehillim-bot"),
		kong.Description("Telegram bot for reading Tehillim by chapter, month or week"),
		kong.UsageOnError(),
	)
	kctx.FatalIfErrorf(CLI.Config.Validate())

	logger, err := logging.Setup(CLI.Config.LogLevel, CLI.Config.LogFormat)
	kctx.FatalIfErrorf(err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = kctx.Run(&app{ctx: ctx, cfg: &CLI.Config, logger: logger})
	kctx.FatalIfErrorf(err)
}

func openStore(a *app) (database.Store, error) {
	store, err := database.Open(database.Options{Path: a.cfg.DBPath, URL: a.cfg.DatabaseURL})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return store, nil
}

func newRepository(a *app) *texts.Repository {
	fetcher := sefaria.NewFetcher(sefaria.Config{
		BaseURL: a.cfg.SefariaURL,
		Timeout: a.cfg.FetchTimeout,
	}, a.logger)
	return texts.NewRepository(texts.Config{
		DataPath:     a.cfg.DataPath,
		SegmentsPath: a.cfg.SegmentsPath,
	}, fetcher, a.logger)
}

// newPending picks Redis when configured and an in-process store otherwise.
// The returned func releases whichever was created.
func newPending(a *app) (pending.Store, func(), error) {
	if rc, ok := a.cfg.Redis(); ok {
		r, err := pending.NewRedis(rc, a.cfg.PendingTTL)
		if err != nil {
			return nil, nil, err
		}
		a.logger.Info("goto prompts kept in redis", "addr", rc.Addr)
		return r, func() { r.Close() }, nil
	}
	mem := pending.NewMemory(a.cfg.PendingTTL)
	janitor := pending.NewJanitor(mem, time.Minute, a.logger)
	janitor.Start()
	return mem, janitor.Stop, nil
}

// loadTexts reads the text files up front so a malformed file stops startup
// instead of turning every chapter into a placeholder.
func loadTexts(repo *texts.Repository, logger *slog.Logger) error {
	if err := repo.Load(); err != nil {
		return fmt.Errorf("text files: %w", err)
	}
	if n := repo.Len(); n < model.MaxChapter {
		logger.Warn("chapter texts incomplete, run refresh or /load_texts",
			"chapters", n, "want", model.MaxChapter)
	}
	return nil
}

// ServeCmd runs the bot.
type ServeCmd struct {
	Workers int `default:"4" help:"Updates handled concurrently when polling"`
}

func (c *ServeCmd) Run(a *app) error {
	if err := a.cfg.RequireToken(); err != nil {
		return err
	}

	store, err := openStore(a)
	if err != nil {
		return err
	}
	defer store.Close()
	a.logger.Info("database ready", "type", store.DatabaseType())

	resolver, err := a.cfg.Resolver()
	if err != nil {
		return err
	}

	pend, release, err := newPending(a)
	if err != nil {
		return err
	}
	defer release()

	repo := newRepository(a)
	if err := loadTexts(repo, a.logger); err != nil {
		return err
	}

	adminID, err := a.cfg.AdminID()
	if err != nil {
		return err
	}

	tgbotapi.SetLogger(slog.NewLogLogger(a.logger.Handler(), slog.LevelWarn))
	api, err := tgbotapi.NewBotAPI(a.cfg.BotToken)
	if err != nil {
		return fmt.Errorf("connect to telegram: %w", err)
	}
	a.logger.Info("authorized", "bot", api.Self.UserName)

	nav := reader.New(reader.Options{
		Store:     store,
		Texts:     repo,
		Schedule:  resolver,
		Pending:   pend,
		Refresher: repo,
		AdminID:   adminID,
		Logger:    a.logger,
	})
	handler := bot.NewHandler(bot.Options{
		Navigator:   nav,
		Sender:      api,
		ChunkLimit:  a.cfg.ChunkLimit,
		EditInPlace: a.cfg.EditInPlace,
		Logger:      a.logger,
	})

	if err := bot.RegisterCommands(api); err != nil {
		a.logger.Warn("could not register commands", "error", err)
	}

	opts := server.Options{
		Store:         store,
		Schedule:      resolver,
		WebhookSecret: a.cfg.WebhookSecret,
		Logger:        a.logger,
	}

	if a.cfg.Webhook() {
		opts.Updates = handler
		srv := server.New(opts)
		if err := bot.SetWebhook(api, a.cfg.WebhookURL, a.cfg.WebhookSecret); err != nil {
			return err
		}
		a.logger.Info("receiving updates by webhook", "url", a.cfg.WebhookURL)
		return srv.Start(a.ctx, a.cfg.HTTPAddr)
	}

	if err := bot.DeleteWebhook(api); err != nil {
		return err
	}
	srv := server.New(opts)
	return pollWithServer(a.ctx,
		func(ctx context.Context) error { return srv.Start(ctx, a.cfg.HTTPAddr) },
		func(ctx context.Context) { bot.Poll(ctx, api, handler, c.Workers) },
	)
}

// pollWithServer runs serve and poll side by side. Polling stops when serve
// returns, so a failed listen ends the command instead of waiting for a
// signal.
func pollWithServer(ctx context.Context, serve func(context.Context) error, poll func(context.Context)) error {
	pollCtx, cancelPoll := context.WithCancel(ctx)
	defer cancelPoll()
	errCh := make(chan error, 1)
	go func() {
		errCh <- serve(ctx)
		cancelPoll()
	}()

	poll(pollCtx)

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// RefreshCmd rewrites the text files from Sefaria.
type RefreshCmd struct{}

func (c *RefreshCmd) Run(a *app) error {
	report, err := newRepository(a).RefreshAll(a.ctx)
	if err != nil {
		return err
	}
	fmt.Printf("chapters: %d\ndigest:   %s\nchanged:  %t\nsegments: %t\ntook:     %s\n",
		report.Chapters, report.Digest, report.Changed, report.SegmentsWritten,
		report.Duration.Round(time.Millisecond))
	return nil
}

// MigrateCmd opens the store, which creates or upgrades the schema.
type MigrateCmd struct{}

func (c *MigrateCmd) Run(a *app) error {
	store, err := openStore(a)
	if err != nil {
		return err
	}
	defer store.Close()
	a.logger.Info("schema up to date", "type", store.DatabaseType())
	return nil
}

// TodayCmd prints the scheduled portions.
type TodayCmd struct {
	Date string `arg:"" optional:"" help:"Date as YYYY-MM-DD (default today)"`
}

func (c *TodayCmd) Run(a *app) error {
	resolver, err := a.cfg.Resolver()
	if err != nil {
		return err
	}
	t := resolver.Now()
	if c.Date != "" {
		d, err := time.ParseInLocation("2006-01-02", c.Date, resolver.Location())
		if err != nil {
			return fmt.Errorf("date %q: %w", c.Date, err)
		}
		t = d.Add(12 * time.Hour)
	}

	day, monthly := resolver.Monthly(t)
	weekday, weekly := resolver.Weekly(t)
	fmt.Printf("%s (%s, %s calendar)\n", t.In(resolver.Location()).Format("2006-01-02"),
		resolver.Location(), resolver.Calendar().Name())
	fmt.Printf("monthly: day %d (%s): %s\n", day, hebrew.Numeral(day), formatRange(monthly.From, monthly.To))
	if schedule.PrefersSegment(monthly) {
		fmt.Println("         read as a Psalm 119 segment")
	}
	fmt.Printf("weekly:  day %d: %s\n", weekday, formatRange(weekly.From, weekly.To))
	return nil
}

func formatRange(from, to int) string {
	if from == to {
		return fmt.Sprintf("%d", from)
	}
	return fmt.Sprintf("%d-%d", from, to)
}
