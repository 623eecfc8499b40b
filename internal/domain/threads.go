package domain

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// TradeThreads creates the forum's recurring stickied threads.
type TradeThreads struct {
	platform Platform
	state    StateRepository
	forum    string
	tagID    string
	logger   *slog.Logger
	now      func() time.Time
}

// NewTradeThreads creates a TradeThreads. tagID is the content tag applied to
// each new thread; it may be empty.
func NewTradeThreads(platform Platform, state StateRepository, forum, tagID string, logger *slog.Logger) *TradeThreads {
	return &TradeThreads{
		platform: platform,
		state:    state,
		forum:    forum,
		tagID:    tagID,
		logger:   logger,
		now:      time.Now,
	}
}

// MakeTradeThread posts a new confirmed trade thread and makes it the
// current one. The thread it replaces becomes the previous thread, which is
// still scanned until the next rotation. The stored thread ids only change
// once the new thread is published.
func (t *TradeThreads) MakeTradeThread(ctx context.Context) (string, error) {
	current, err := t.state.GetState(ctx, KeyTradeThread)
	if err != nil {
		return "", fmt.Errorf("load %s: %w", KeyTradeThread, err)
	}

	title := "Confirmed Trade Thread - " + t.now().Format("January 2 2006")
	text := "Post your confirmed trades below.\n\n To confirm a trade: User1 should create a comment tagging User2. User2 then replies to that comment with \"Confirmed\"." +
		"\n\nConfirming non-" + t.forum + " trades, farming trades, or any other shenanigans will result in an immediate ban. " +
		"**Please only confirm trades once both parties have their items in-hand (Don't confirm before you've actually received your package).**" +
		"\n\nPosting what prices things sold for is highly encouraged." +
		"\n\nStay safe, and happy swapping!"

	id, err := t.publish(ctx, title, text)
	if err != nil {
		return "", err
	}
	if current != "" {
		if err := t.state.SetState(ctx, KeyPrevTradeThread, current); err != nil {
			return "", fmt.Errorf("save %s: %w", KeyPrevTradeThread, err)
		}
	}
	if err := t.state.SetState(ctx, KeyTradeThread, id); err != nil {
		return "", fmt.Errorf("save %s: %w", KeyTradeThread, err)
	}
	return id, nil
}

// MakeCheckThread posts a new monthly price check thread.
func (t *TradeThreads) MakeCheckThread(ctx context.Context) (string, error) {
	title := "Price Check Thread - " + t.now().Format("January 2006")
	text := "Get your hardware appraised here!\n" +
		"Please consider sorting the comments by \"new\" (instead of \"best\" or \"top\") to see the newest posts.\n"
	return t.publish(ctx, title, text)
}

func (t *TradeThreads) publish(ctx context.Context, title, text string) (string, error) {
	id, err := t.platform.SubmitSelfPost(ctx, title, text)
	if err != nil {
		return "", fmt.Errorf("submit %q: %w", title, err)
	}
	if err := t.platform.StickySubmission(ctx, id); err != nil {
		return "", fmt.Errorf("sticky %s: %w", id, err)
	}
	if err := t.platform.ApproveSubmission(ctx, id); err != nil {
		return "", fmt.Errorf("approve %s: %w", id, err)
	}
	if t.tagID != "" {
		if err := t.platform.SetSubmissionTag(ctx, id, t.tagID); err != nil {
			t.logger.Warn("setting thread tag failed, probably a bad tag template id", "id", id, "error", err)
		}
	}
	t.logger.Info("thread posted", "id", id, "title", title)
	return id, nil
}
