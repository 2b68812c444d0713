// Package config holds the runtime settings shared by every command.
// Values come from flags or environment variables, with a .env file
// loaded into the environment first.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/bryan-buckman/tehillim-bot/internal/logging"
	"github.com/bryan-buckman/tehillim-bot/internal/pending"
	"github.com/bryan-buckman/tehillim-bot/internal/schedule"
)

// Config is embedded into the CLI so every command sees the same settings.
type Config struct {
	BotToken string `name:"bot-token" env:"BOT_TOKEN" help:"Telegram bot token."`
	// Admin is kept as text so an empty ADMIN_USER_ID means no admin.
	Admin string `name:"admin-user-id" env:"ADMIN_USER_ID" help:"Telegram user allowed to run /load_texts."`

	DataPath     string `name:"data-path" env:"DATA_PATH" default:"data/tehillim.json" help:"Chapter text mapping file."`
	SegmentsPath string `name:"ps119-parts-path" env:"PS119_PARTS_PATH" default:"data/psalm119_parts.json" help:"Psalm 119 segment mapping file."`

	DBPath      string `name:"db-path" env:"DB_PATH" default:"bookmarks.db" help:"SQLite bookmark database."`
	DatabaseURL string `name:"database-url" env:"DATABASE_URL" help:"PostgreSQL URL; overrides --db-path."`

	Timezone string `name:"tz-name" env:"TZ_NAME" default:"Asia/Jerusalem" help:"Zone used to pick today's portion."`
	Calendar string `name:"calendar" env:"CALENDAR" default:"hebrew" enum:"hebrew,gregorian" help:"Calendar for the monthly plan (hebrew, gregorian)."`

	RedisAddr     string        `name:"redis-addr" env:"REDIS_ADDR" help:"Keep goto prompts in Redis instead of memory."`
	RedisPassword string        `name:"redis-password" env:"REDIS_PASSWORD" help:"Redis password."`
	RedisDB       int           `name:"redis-db" env:"REDIS_DB" default:"0" help:"Redis database number."`
	PendingTTL    time.Duration `name:"pending-ttl" env:"PENDING_TTL" default:"10m" help:"How long a goto prompt waits for a number."`

	HTTPAddr      string `name:"http-addr" env:"HTTP_ADDR" default:":8080" help:"Listen address for health and webhook endpoints."`
	WebhookURL    string `name:"webhook-url" env:"WEBHOOK_URL" help:"Public webhook URL; long polling is used when empty."`
	WebhookSecret string `name:"webhook-secret" env:"WEBHOOK_SECRET" help:"Secret token Telegram sends with each webhook call."`

	SefariaURL   string        `name:"sefaria-url" env:"SEFARIA_URL" default:"https://www.sefaria.org" help:"Sefaria API base URL."`
	FetchTimeout time.Duration `name:"fetch-timeout" env:"FETCH_TIMEOUT" default:"20s" help:"Per-chapter fetch timeout."`

	ChunkLimit  int  `name:"chunk-limit" env:"CHUNK_LIMIT" default:"3500" help:"Maximum characters per outgoing message."`
	EditInPlace bool `name:"edit-in-place" env:"EDIT_IN_PLACE" help:"Edit the pressed message instead of sending a new one."`

	LogLevel  string `name:"log-level" env:"LOG_LEVEL" default:"info" help:"debug, info, warn or error."`
	LogFormat string `name:"log-format" env:"LOG_FORMAT" default:"json" help:"json or text."`
}

// LoadDotenv loads each file into the environment without overriding
// variables that are already set. Missing files are skipped.
func LoadDotenv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Validate checks the settings that are not already constrained by their
// types.
func (c *Config) Validate() error {
	if _, err := c.AdminID(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := schedule.ParseCalendar(c.Calendar); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		return err
	}
	if c.ChunkLimit < 100 {
		return fmt.Errorf("chunk limit %d is too small", c.ChunkLimit)
	}
	if c.PendingTTL <= 0 {
		return fmt.Errorf("pending ttl must be positive, got %s", c.PendingTTL)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %s", c.FetchTimeout)
	}
	return nil
}

// RequireToken reports a missing bot token.
func (c *Config) RequireToken() error {
	if c.BotToken == "" {
		return errors.New("BOT_TOKEN is not set")
	}
	return nil
}

// AdminID parses the admin user id. Empty means no admin and returns 0.
func (c *Config) AdminID() (int64, error) {
	s := strings.TrimSpace(c.Admin)
	if s == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("admin user id %q: %w", c.Admin, err)
	}
	return id, nil
}

// Location loads the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("time zone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Resolver builds the schedule resolver for the configured zone and calendar.
func (c *Config) Resolver() (*schedule.Resolver, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	cal, err := schedule.ParseCalendar(c.Calendar)
	if err != nil {
		return nil, err
	}
	return schedule.NewResolver(loc, cal), nil
}

// Redis returns the Redis settings, or false when Redis is not configured.
func (c *Config) Redis() (pending.RedisConfig, bool) {
	if c.RedisAddr == "" {
		return pending.RedisConfig{}, false
	}
	return pending.RedisConfig{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}, true
}

// Webhook reports whether updates arrive by webhook rather than polling.
func (c *Config) Webhook() bool {
	return c.WebhookURL != ""
}
