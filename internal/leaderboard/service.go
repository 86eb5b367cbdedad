package leaderboard

import (
	"context"
	"strings"
	"time"

	"profileapi/internal/competition"
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 500
)

// Page is one slice of a competition leaderboard.
type Page struct {
	Competition competition.ID `json:"competition"`
	Entries     []Entry        `json:"entries"`
	Total       int64          `json:"total"`
	Offset      int64          `json:"offset"`
	Limit       int64          `json:"limit"`
	UpdatedAt   *time.Time     `json:"updated_at,omitempty"`
}

// Service resolves raw competition identifiers to leaderboard keys.
type Service struct {
	store *Store
}

// NewService returns a Service reading from store.
func NewService(store *Store) *Service {
	return &Service{store: store}
}

// Page returns a page of the leaderboard of rawCompetitionID. Unknown
// identifiers fall back to the default competition.
func (s *Service) Page(ctx context.Context, rawCompetitionID string, offset, limit int64) (*Page, error) {
	id := competition.ParseID(rawCompetitionID)
	key := competition.LeaderboardKey(id)

	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	entries, err := s.store.Page(ctx, key, offset, limit)
	if err != nil {
		return nil, err
	}
	total, err := s.store.Count(ctx, key)
	if err != nil {
		return nil, err
	}
	updated, err := s.store.UpdatedAt(ctx, key)
	if err != nil {
		return nil, err
	}

	page := &Page{
		Competition: id,
		Entries:     entries,
		Total:       total,
		Offset:      offset,
		Limit:       limit,
	}
	if !updated.IsZero() {
		page.UpdatedAt = &updated
	}
	return page, nil
}

// Participant returns the entry of address in rawCompetitionID, or nil.
func (s *Service) Participant(ctx context.Context, rawCompetitionID, address string) (*Entry, error) {
	key := competition.LeaderboardKey(competition.ParseID(rawCompetitionID))
	return s.store.Participant(ctx, key, strings.ToLower(address))
}
