package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/blackmichael/swapbot/internal/app"
	"github.com/blackmichael/swapbot/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "swapadmin",
		Short:         "One-shot administrative commands for swapbot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Create the database tables",
			Args:  cobra.NoArgs,
			RunE: withBot(func(ctx context.Context, cmd *cobra.Command, bot *app.Bot, _ []string) error {
				if err := bot.Repo.InitSchema(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Database initialized")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "ignore-new-posts",
			Short: "Record every current submission as handled without moderating it",
			Args:  cobra.NoArgs,
			RunE: withBot(func(ctx context.Context, cmd *cobra.Command, bot *app.Bot, _ []string) error {
				n, err := bot.Moderation.IgnoreNewPosts(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Ignored %d submissions\n", n)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "force-vouch <user>",
			Short: "Grant a user one confirmed trade",
			Args:  cobra.ExactArgs(1),
			RunE: withBot(func(ctx context.Context, cmd *cobra.Command, bot *app.Bot, args []string) error {
				permalink, err := bot.Ledger.ForceVouch(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded vouch %s for %s\n", permalink, args[0])
				return nil
			}),
		},
		&cobra.Command{
			Use:   "make-trade-thread",
			Short: "Post a new confirmed trade thread",
			Args:  cobra.NoArgs,
			RunE: withBot(func(ctx context.Context, cmd *cobra.Command, bot *app.Bot, _ []string) error {
				id, err := bot.Threads.MakeTradeThread(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Posted trade thread %s\n", id)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "make-check-thread",
			Short: "Post a new price check thread",
			Args:  cobra.NoArgs,
			RunE: withBot(func(ctx context.Context, cmd *cobra.Command, bot *app.Bot, _ []string) error {
				id, err := bot.Threads.MakeCheckThread(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Posted price check thread %s\n", id)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "process-posts",
			Short: "Run one moderation pass over the newest submissions",
			Args:  cobra.NoArgs,
			RunE: withBot(func(ctx context.Context, _ *cobra.Command, bot *app.Bot, _ []string) error {
				return bot.Moderation.ProcessNewPosts(ctx)
			}),
		},
		&cobra.Command{
			Use:   "process-trades",
			Short: "Scan the trade threads once for new confirmations",
			Args:  cobra.NoArgs,
			RunE: withBot(func(ctx context.Context, _ *cobra.Command, bot *app.Bot, _ []string) error {
				return bot.Trades.ScanThreads(ctx)
			}),
		},
	)

	return root
}

type botFunc func(ctx context.Context, cmd *cobra.Command, bot *app.Bot, args []string) error

// withBot loads configuration and wires the services before running fn.
func withBot(fn botFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
			Level: cfg.LogLevel,
		}))

		bot, err := app.New(cfg, logger)
		if err != nil {
			return err
		}
		defer bot.Close()

		return fn(cmd.Context(), cmd, bot, args)
	}
}
