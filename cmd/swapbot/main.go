package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blackmichael/swapbot/internal/app"
	"github.com/blackmichael/swapbot/internal/config"
	"github.com/blackmichael/swapbot/internal/httpserver"
	"github.com/blackmichael/swapbot/internal/schedule"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	bot, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer bot.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := bot.Repo.InitSchema(ctx); err != nil {
		return err
	}

	sched := schedule.New(logger)
	if err := bot.Schedule(sched, cfg.Schedule); err != nil {
		return fmt.Errorf("schedule jobs: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start the scheduler in the background
	schedErr := make(chan error, 1)
	go func() {
		schedErr <- sched.Run(ctx)
	}()

	// Start the dashboard
	server := httpserver.NewServer(cfg.Port, bot.History, bot.Hub, logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server exited with error", "error", err)
		}
	}()

	logger.Info("swapbot started", "port", cfg.Port, "subreddit", cfg.Subreddit)

	var fatal error
	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
		<-schedErr
	case fatal = <-schedErr:
		logger.Error("fatal job error, shutting down", "error", fatal)
	}

	bot.Hub.Close()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}

	return fatal
}
