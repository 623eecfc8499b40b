package domain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Nobody is the synthetic counterpart of a forced vouch. It never receives
// flair.
const Nobody = "nobody"

// Vouch is one confirmed trade between two users.
type Vouch struct {
	User1 string `json:"user1"`
	User2 string `json:"user2"`

	// Permalink identifies the comment that produced the vouch and is unique
	// across the ledger.
	Permalink string `json:"permalink"`

	Timestamp time.Time `json:"timestamp"`
}

// Ledger is the append-only record of confirmed trades and the source of
// truth for reputation.
type Ledger struct {
	repo      VouchRepository
	flair     FlairRefresher
	listeners []VouchListener
	logger    *slog.Logger
	now       func() time.Time
}

// NewLedger creates a Ledger. flair may be nil until SetFlairRefresher is
// called; the flair service itself reads reputation from the ledger.
func NewLedger(repo VouchRepository, logger *slog.Logger, listeners ...VouchListener) *Ledger {
	return &Ledger{
		repo:      repo,
		listeners: listeners,
		logger:    logger,
		now:       time.Now,
	}
}

// SetFlairRefresher sets the service used to update participants' flair
// after a new vouch.
func (l *Ledger) SetFlairRefresher(f FlairRefresher) {
	l.flair = f
}

// Reputation returns the number of vouches naming user.
func (l *Ledger) Reputation(ctx context.Context, user string) (int, error) {
	n, err := l.repo.CountVouches(ctx, user)
	if err != nil {
		return 0, fmt.Errorf("count vouches for %s: %w", user, err)
	}
	return n, nil
}

// Record stores a vouch between user1 and user2 keyed by permalink. A
// permalink that is already recorded is silently ignored. It reports whether
// the vouch was new.
func (l *Ledger) Record(ctx context.Context, user1, user2, permalink string) (bool, error) {
	v := Vouch{
		User1:     user1,
		User2:     user2,
		Permalink: permalink,
		Timestamp: l.now().UTC(),
	}
	inserted, err := l.repo.InsertVouch(ctx, &v)
	if err != nil {
		return false, fmt.Errorf("insert vouch %s: %w", permalink, err)
	}
	if !inserted {
		l.logger.Debug("vouch already recorded", "permalink", permalink)
		return false, nil
	}
	l.logger.Info("vouch recorded", "user1", user1, "user2", user2, "permalink", permalink)

	for _, user := range []string{user1, user2} {
		if user == Nobody || l.flair == nil {
			continue
		}
		if err := l.flair.Refresh(ctx, user); err != nil {
			l.logger.Error("failed to update flair after vouch", "user", user, "error", err)
		}
	}
	for _, lst := range l.listeners {
		lst.VouchRecorded(v)
	}
	return true, nil
}

// ForceVouch records a one-sided confirmed trade for user against Nobody.
func (l *Ledger) ForceVouch(ctx context.Context, user string) (string, error) {
	if user == "" {
		return "", fmt.Errorf("force vouch: username is required")
	}
	permalink := "Override_" + uuid.NewString()
	if _, err := l.Record(ctx, user, Nobody, permalink); err != nil {
		return "", err
	}
	return permalink, nil
}
