package domain

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"math/rand/v2"
	"strings"
)

// State keys for the confirmed trade threads.
const (
	KeyTradeThread     = "tradeThreadID"
	KeyPrevTradeThread = "prevTradeThreadID"
)

// scanDepth is how deep a trade thread's comment tree is expanded: top-level
// comment, confirming reply, and the bot's acknowledgement beneath it.
const scanDepth = 3

// deletedAuthor is the name the platform reports for removed accounts.
const deletedAuthor = "[deleted]"

// Comment is a node in a submission's comment tree.
type Comment struct {
	ID        string
	Author    string
	Body      string
	Permalink string
	Replies   []*Comment
}

// ReplyPairs yields every (top-level comment, direct reply) pair of a comment
// forest in platform order.
func ReplyPairs(roots []*Comment) iter.Seq2[*Comment, *Comment] {
	return func(yield func(*Comment, *Comment) bool) {
		for _, c := range roots {
			for _, r := range c.Replies {
				if !yield(c, r) {
					return
				}
			}
		}
	}
}

// IsConfirmation reports whether reply confirms a trade proposed in comment:
// the reply says "confirm", the comment names the reply's author, and the two
// authors differ.
func IsConfirmation(comment, reply *Comment) bool {
	if comment.Author == "" || reply.Author == "" ||
		comment.Author == deletedAuthor || reply.Author == deletedAuthor {
		return false
	}
	return strings.Contains(strings.ToLower(reply.Body), "confirm") &&
		strings.Contains(strings.ToLower(comment.Body), strings.ToLower(reply.Author)) &&
		!strings.EqualFold(comment.Author, reply.Author)
}

func hasReplyFrom(c *Comment, author string) bool {
	for _, r := range c.Replies {
		if strings.EqualFold(r.Author, author) {
			return true
		}
	}
	return false
}

var signoffs = []string{
	"Merci!", "Thank you!", "Thank you!", "Thanks!", "Watch out for moose.", "Thanks for using the swap!",
	"Have a good one!", "Have a nice day!", "Have a nice day!", "Buy Igloo insurance!",
	"The best milk comes in bags.", "Buy me a house hippo.", "The robot uprising is imminent!",
	"🍁", "🍁", "🍁🍁🍁",
}

// randomSignoff occasionally returns a short sign-off, prefixed with a space.
func randomSignoff() string {
	if rand.Float64() > 0.2 {
		return ""
	}
	return " " + signoffs[rand.IntN(len(signoffs))]
}

// TradeScanner finds confirmed trades in the trade threads and records them
// in the ledger.
type TradeScanner struct {
	platform Platform
	ledger   *Ledger
	state    StateRepository
	botName  string
	logger   *slog.Logger
	signoff  func() string
}

// NewTradeScanner creates a TradeScanner.
func NewTradeScanner(platform Platform, ledger *Ledger, state StateRepository, botName string, logger *slog.Logger) *TradeScanner {
	return &TradeScanner{
		platform: platform,
		ledger:   ledger,
		state:    state,
		botName:  botName,
		logger:   logger,
		signoff:  randomSignoff,
	}
}

// ScanThreads scans the current and previous trade threads.
func (s *TradeScanner) ScanThreads(ctx context.Context) error {
	for _, key := range []string{KeyTradeThread, KeyPrevTradeThread} {
		id, err := s.state.GetState(ctx, key)
		if err != nil {
			return fmt.Errorf("load %s: %w", key, err)
		}
		if id == "" {
			continue
		}
		if _, err := s.ScanThread(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// ScanThread records every new confirmed trade in one thread and returns how
// many confirmations it acknowledged.
func (s *TradeScanner) ScanThread(ctx context.Context, threadID string) (int, error) {
	s.logger.Debug("looking at trade thread", "thread", threadID)

	comments, err := s.platform.CommentTree(ctx, threadID, scanDepth)
	if err != nil {
		return 0, fmt.Errorf("fetch comments for %s: %w", threadID, err)
	}

	confirmed := 0
	for comment, reply := range ReplyPairs(comments) {
		if !IsConfirmation(comment, reply) || hasReplyFrom(reply, s.botName) {
			continue
		}

		s.logger.Info("new trade", "thread", threadID, "user1", comment.Author, "user2", reply.Author)
		if _, err := s.ledger.Record(ctx, comment.Author, reply.Author, comment.Permalink); err != nil {
			return confirmed, err
		}

		text := fmt.Sprintf("Confirmed a trade between /u/%s and /u/%s.%s", comment.Author, reply.Author, s.signoff())
		if _, err := s.platform.ReplyToComment(ctx, reply.ID, text); err != nil {
			return confirmed, fmt.Errorf("reply to confirmation %s: %w", reply.ID, err)
		}
		confirmed++
	}

	s.logger.Debug("done processing trades", "thread", threadID, "confirmed", confirmed)
	return confirmed, nil
}
