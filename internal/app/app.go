package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/blackmichael/swapbot/internal/config"
	"github.com/blackmichael/swapbot/internal/domain"
	"github.com/blackmichael/swapbot/internal/livefeed"
	"github.com/blackmichael/swapbot/internal/reddit"
	"github.com/blackmichael/swapbot/internal/schedule"
	"github.com/blackmichael/swapbot/internal/sqlstore"
)

// Bot holds the wired services shared by the swapbot and swapadmin commands.
type Bot struct {
	Repo       *sqlstore.Repository
	Platform   domain.Platform
	Hub        *livefeed.Hub
	Ledger     *domain.Ledger
	Flair      *domain.FlairService
	Moderation *domain.ModerationService
	Trades     *domain.TradeScanner
	Threads    *domain.TradeThreads
	History    *domain.HistoryService
}

// New opens the database and connects the services to Reddit.
func New(cfg *config.Config, logger *slog.Logger) (*Bot, error) {
	repo, err := sqlstore.Open(sqlstore.Dialect(cfg.DatabaseDriver), cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	logger.Info("connected to database", "driver", cfg.DatabaseDriver)

	client := reddit.NewClient(reddit.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RefreshToken: cfg.RefreshToken,
		UserAgent:    cfg.UserAgent,
		Subreddit:    cfg.Subreddit,
	})

	bot, err := Wire(cfg, repo, client, logger)
	if err != nil {
		repo.Close()
		return nil, err
	}
	return bot, nil
}

// Wire builds the services on top of an open repository and platform.
func Wire(cfg *config.Config, repo *sqlstore.Repository, platform domain.Platform, logger *slog.Logger) (*Bot, error) {
	hub := livefeed.NewHub(logger)
	ledger := domain.NewLedger(repo, logger, hub)

	roster := domain.NewRoster(platform, cfg.RosterTTL)
	flair := domain.NewFlairService(roster, ledger, platform, logger)
	ledger.SetFlairRefresher(flair)

	moderation, err := domain.NewModerationService(domain.ModerationConfig{
		Forum:      cfg.Subreddit,
		BotName:    cfg.BotUsername,
		HistoryURL: cfg.HistoryURL(),
		Policy:     cfg.Policy,
	}, platform, repo, ledger, flair, logger)
	if err != nil {
		return nil, fmt.Errorf("create moderation service: %w", err)
	}

	return &Bot{
		Repo:       repo,
		Platform:   platform,
		Hub:        hub,
		Ledger:     ledger,
		Flair:      flair,
		Moderation: moderation,
		Trades:     domain.NewTradeScanner(platform, ledger, repo, cfg.BotUsername, logger),
		Threads:    domain.NewTradeThreads(platform, repo, cfg.Subreddit, cfg.Policy.Tags.TradeThread, logger),
		History:    domain.NewHistoryService(repo, repo),
	}, nil
}

// Close disconnects live feed clients and closes the database.
func (b *Bot) Close() error {
	b.Hub.Close()
	return b.Repo.Close()
}

// Schedule registers the bot's recurring jobs.
func (b *Bot) Schedule(s *schedule.Scheduler, specs config.Schedule) error {
	jobs := []struct {
		name string
		spec string
		fn   schedule.JobFunc
	}{
		{"process-posts", specs.ProcessPosts, b.Moderation.ProcessNewPosts},
		{"process-trades", specs.ProcessTrades, b.Trades.ScanThreads},
		{"make-trade-thread", specs.TradeThread, func(ctx context.Context) error {
			_, err := b.Threads.MakeTradeThread(ctx)
			return err
		}},
		{"make-check-thread", specs.CheckThread, func(ctx context.Context) error {
			_, err := b.Threads.MakeCheckThread(ctx)
			return err
		}},
	}

	for _, j := range jobs {
		if j.spec == "" {
			continue
		}
		if err := s.Add(j.name, j.spec, j.fn); err != nil {
			return err
		}
	}
	return nil
}
