package domain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Flair is the label and style class shown next to a user's name.
type Flair struct {
	Text  string `json:"text"`
	Class string `json:"class"`
}

// Moderator is an entry in the forum's moderator roster.
type Moderator struct {
	Name string

	// FlairText is the moderator's own flair. The part before the first "|"
	// becomes their moderator label.
	FlairText string
}

// Label returns the moderator's display label, "Mod" when none is set.
func (m Moderator) Label() string {
	label, _, _ := strings.Cut(m.FlairText, "|")
	if label = strings.TrimSpace(label); label != "" {
		return label
	}
	return "Mod"
}

// FlairFor maps a user's role and confirmed-trade count to a flair tier.
func FlairFor(isModerator bool, modLabel string, reputation int) Flair {
	switch {
	case isModerator && reputation > 1:
		if modLabel == "" {
			modLabel = "Mod"
		}
		return Flair{Text: modLabel, Class: "mod"}
	case reputation == 0:
		return Flair{Text: "No Confirmed Trades", Class: "newuser"}
	case reputation == 1:
		return Flair{Text: "1 Trade", Class: "user"}
	case reputation > 25:
		return Flair{Text: fmt.Sprintf("%d Trades! 🏆", reputation), Class: "poweruser"}
	case reputation > 15:
		return Flair{Text: fmt.Sprintf("%d Trades!", reputation), Class: "poweruser"}
	default:
		return Flair{Text: fmt.Sprintf("%d Trades", reputation), Class: "user"}
	}
}

// Roster caches the forum's moderator list. With a zero TTL the list is
// fetched once and kept for the life of the Roster; otherwise it is fetched
// again on the first lookup after the TTL has elapsed.
type Roster struct {
	source ModeratorSource
	ttl    time.Duration
	now    func() time.Time

	mu          sync.Mutex
	moderators  []Moderator
	refreshedAt time.Time
}

// NewRoster creates a Roster backed by source.
func NewRoster(source ModeratorSource, ttl time.Duration) *Roster {
	return &Roster{
		source: source,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Lookup returns the roster entry for user, matching names
// case-insensitively.
func (r *Roster) Lookup(ctx context.Context, user string) (Moderator, bool, error) {
	mods, err := r.snapshot(ctx)
	if err != nil {
		return Moderator{}, false, err
	}
	for _, m := range mods {
		if strings.EqualFold(m.Name, user) {
			return m, true, nil
		}
	}
	return Moderator{}, false, nil
}

func (r *Roster) snapshot(ctx context.Context) ([]Moderator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fresh := !r.refreshedAt.IsZero() && (r.ttl <= 0 || r.now().Sub(r.refreshedAt) < r.ttl)
	if fresh {
		return r.moderators, nil
	}

	mods, err := r.source.Moderators(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch moderators: %w", err)
	}
	r.moderators = mods
	r.refreshedAt = r.now()
	return mods, nil
}

// FlairService recomputes and assigns user flair.
type FlairService struct {
	roster     *Roster
	reputation ReputationReader
	assigner   FlairAssigner
	logger     *slog.Logger
}

// NewFlairService creates a FlairService.
func NewFlairService(roster *Roster, reputation ReputationReader, assigner FlairAssigner, logger *slog.Logger) *FlairService {
	return &FlairService{
		roster:     roster,
		reputation: reputation,
		assigner:   assigner,
		logger:     logger,
	}
}

// Refresh computes user's current flair from the ledger and assigns it.
func (s *FlairService) Refresh(ctx context.Context, user string) error {
	mod, isMod, err := s.roster.Lookup(ctx, user)
	if err != nil {
		return err
	}
	rep, err := s.reputation.Reputation(ctx, user)
	if err != nil {
		return err
	}

	flair := FlairFor(isMod, mod.Label(), rep)
	if err := s.assigner.SetUserFlair(ctx, user, flair); err != nil {
		return fmt.Errorf("assign flair to %s: %w", user, err)
	}
	s.logger.Debug("flair updated", "user", user, "text", flair.Text, "class", flair.Class)
	return nil
}
