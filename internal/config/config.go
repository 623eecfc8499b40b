package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/blackmichael/swapbot/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var defaultPolicy []byte

// Schedule holds the cron specs of the bot's recurring jobs.
type Schedule struct {
	ProcessPosts  string `yaml:"process_posts"`
	ProcessTrades string `yaml:"process_trades"`
	TradeThread   string `yaml:"trade_thread"`
	CheckThread   string `yaml:"check_thread"`
}

// File is the layout of the policy file.
type File struct {
	Policy   domain.Policy `yaml:"policy"`
	Schedule Schedule      `yaml:"schedule"`
}

// Config holds all configuration for the application.
type Config struct {
	// Reddit script app credentials.
	ClientID     string
	ClientSecret string
	RefreshToken string
	UserAgent    string

	// Subreddit is the moderated subreddit, without the "r/" prefix.
	Subreddit string

	// BotUsername is the account the bot acts as.
	BotUsername string

	// DatabaseDriver is "sqlite" or "postgres".
	DatabaseDriver string

	// DatabaseURL is the driver-specific connection string.
	DatabaseURL string

	// Port is the dashboard HTTP port.
	Port int

	// DashboardURL is the public dashboard base URL linked from the bot's
	// replies. Empty disables the link.
	DashboardURL string

	LogLevel slog.Level

	// RosterTTL is how long the moderator roster is cached. Zero caches it
	// for the life of the process.
	RosterTTL time.Duration

	Policy   domain.Policy
	Schedule Schedule
}

// HistoryURL returns the dashboard API base that user history links hang off,
// or "" when no dashboard is configured.
func (c *Config) HistoryURL() string {
	if c.DashboardURL == "" {
		return ""
	}
	return strings.TrimRight(c.DashboardURL, "/") + "/api"
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		ClientID:       os.Getenv("REDDIT_CLIENT_ID"),
		ClientSecret:   os.Getenv("REDDIT_CLIENT_SECRET"),
		RefreshToken:   os.Getenv("REDDIT_REFRESH_TOKEN"),
		Subreddit:      os.Getenv("SUBREDDIT"),
		BotUsername:    os.Getenv("BOT_USERNAME"),
		DatabaseDriver: os.Getenv("DATABASE_DRIVER"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DashboardURL:   os.Getenv("DASHBOARD_URL"),
		Port:           3000,
	}

	required := []struct{ name, value string }{
		{"REDDIT_CLIENT_ID", cfg.ClientID},
		{"REDDIT_CLIENT_SECRET", cfg.ClientSecret},
		{"REDDIT_REFRESH_TOKEN", cfg.RefreshToken},
		{"SUBREDDIT", cfg.Subreddit},
		{"BOT_USERNAME", cfg.BotUsername},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, fmt.Errorf("%s is required", r.name)
		}
	}

	cfg.UserAgent = os.Getenv("REDDIT_USER_AGENT")
	if cfg.UserAgent == "" {
		cfg.UserAgent = fmt.Sprintf("swapbot/1.0 (by /u/%s)", cfg.BotUsername)
	}

	if cfg.DatabaseDriver == "" {
		cfg.DatabaseDriver = "sqlite"
	}
	if cfg.DatabaseURL == "" {
		switch cfg.DatabaseDriver {
		case "sqlite":
			cfg.DatabaseURL = "file:swapbot.db?_pragma=busy_timeout(5000)"
		default:
			return nil, fmt.Errorf("DATABASE_URL is required for driver %q", cfg.DatabaseDriver)
		}
	}

	if p := os.Getenv("PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		cfg.Port = port
	}

	if l := os.Getenv("LOG_LEVEL"); l != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(l)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
	}

	if ttl := os.Getenv("ROSTER_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("invalid ROSTER_TTL: %w", err)
		}
		cfg.RosterTTL = d
	}

	file, err := LoadPolicy(os.Getenv("SWAPBOT_POLICY_FILE"))
	if err != nil {
		return nil, err
	}
	cfg.Policy, cfg.Schedule = file.Policy, file.Schedule

	if r := os.Getenv("EMT_REP_REQUIRED"); r != "" {
		n, err := strconv.Atoi(r)
		if err != nil {
			return nil, fmt.Errorf("invalid EMT_REP_REQUIRED: %w", err)
		}
		cfg.Policy.EMTRepRequired = n
	}

	return cfg, nil
}

// LoadPolicy decodes the embedded default policy and, when path is set,
// overlays the file at path on top of it. Keys missing from the file keep
// their default values; lists present in the file replace the defaults.
func LoadPolicy(path string) (*File, error) {
	var f File
	if err := yaml.Unmarshal(defaultPolicy, &f); err != nil {
		return nil, fmt.Errorf("decode default policy: %w", err)
	}
	if path == "" {
		return &f, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode policy file %s: %w", path, err)
	}
	return &f, nil
}
