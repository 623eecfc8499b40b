package domain

import (
	"context"
	"fmt"
)

// UserHistory is everything the bot has recorded about one user.
type UserHistory struct {
	Name    string        `json:"name"`
	Posts   []TrackedPost `json:"posts"`
	Vouches []Vouch       `json:"vouches"`
}

// HistoryService serves the read-only views of the bot's records.
type HistoryService struct {
	posts   PostRepository
	vouches VouchRepository
}

// NewHistoryService creates a HistoryService.
func NewHistoryService(posts PostRepository, vouches VouchRepository) *HistoryService {
	return &HistoryService{posts: posts, vouches: vouches}
}

// UserHistory returns a user's recorded posts and vouches, newest first.
func (s *HistoryService) UserHistory(ctx context.Context, name string) (*UserHistory, error) {
	posts, err := s.posts.PostsByUser(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get posts for %s: %w", name, err)
	}
	vouches, err := s.vouches.VouchesByUser(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get vouches for %s: %w", name, err)
	}
	if posts == nil {
		posts = []TrackedPost{}
	}
	if vouches == nil {
		vouches = []Vouch{}
	}
	return &UserHistory{Name: name, Posts: posts, Vouches: vouches}, nil
}

// AllVouches returns the whole ledger, newest first.
func (s *HistoryService) AllVouches(ctx context.Context) ([]Vouch, error) {
	vouches, err := s.vouches.ListVouches(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vouches: %w", err)
	}
	if vouches == nil {
		vouches = []Vouch{}
	}
	return vouches, nil
}
