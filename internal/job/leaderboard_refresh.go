package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"profileapi/internal/competition"
	"profileapi/internal/leaderboard"
	"profileapi/internal/observability"
	"profileapi/internal/subgraph"

	"go.opentelemetry.io/otel/attribute"
)

// ErrRefreshInProgress is returned when the competition is already refreshing.
var ErrRefreshInProgress = errors.New("leaderboard refresh already in progress")

// ParticipantFetcher loads every participant of a competition subgraph.
type ParticipantFetcher interface {
	FetchAll(ctx context.Context, url string) ([]subgraph.Participant, error)
}

// UsernameLookup resolves registered usernames for addresses.
type UsernameLookup interface {
	UsernamesByAddress(ctx context.Context, addresses []string) (map[string]string, error)
}

// RefreshPublisher announces finished refreshes.
type RefreshPublisher interface {
	PublishLeaderboardRefreshed(ctx context.Context, key string, count int) error
}

// LeaderboardRefresher rebuilds stored leaderboards from the subgraphs.
type LeaderboardRefresher struct {
	fetcher   ParticipantFetcher
	usernames UsernameLookup
	store     *leaderboard.Store
	publisher RefreshPublisher
	testURL   string
	logger    *slog.Logger

	mu      sync.Mutex
	running map[competition.ID]bool
}

// NewLeaderboardRefresher wires a refresher. publisher may be nil.
func NewLeaderboardRefresher(
	fetcher ParticipantFetcher,
	usernames UsernameLookup,
	store *leaderboard.Store,
	publisher RefreshPublisher,
	testURL string,
	logger *slog.Logger,
) *LeaderboardRefresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LeaderboardRefresher{
		fetcher:   fetcher,
		usernames: usernames,
		store:     store,
		publisher: publisher,
		testURL:   testURL,
		logger:    logger,
		running:   make(map[competition.ID]bool),
	}
}

func (r *LeaderboardRefresher) acquire(id competition.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running[id] {
		return false
	}
	r.running[id] = true
	return true
}

func (r *LeaderboardRefresher) release(id competition.ID) {
	r.mu.Lock()
	delete(r.running, id)
	r.mu.Unlock()
}

// Refresh replaces the leaderboard of rawID and returns the participant count.
func (r *LeaderboardRefresher) Refresh(ctx context.Context, rawID string) (count int, err error) {
	id := competition.ParseID(rawID)
	if !r.acquire(id) {
		return 0, ErrRefreshInProgress
	}
	defer r.release(id)

	key := competition.LeaderboardKey(id)
	url := competition.SubgraphURL(id, r.testURL)
	started := time.Now()

	ctx, span := observability.StartSpan(ctx, "leaderboard.refresh",
		attribute.String("competition", string(id)),
		attribute.String("key", key),
	)
	defer func() {
		status := "success"
		if err != nil {
			status = "failed"
		}
		observability.RecordRefresh(string(id), status, started, count)
		observability.EndSpan(span, err)
	}()

	participants, err := r.fetcher.FetchAll(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("fetch competition %s: %w", id, err)
	}

	addresses := make([]string, 0, len(participants))
	for _, p := range participants {
		addresses = append(addresses, p.Address)
	}
	names, err := r.usernames.UsernamesByAddress(ctx, addresses)
	if err != nil {
		return 0, fmt.Errorf("resolve usernames: %w", err)
	}

	entries := make([]leaderboard.Entry, 0, len(participants))
	for _, p := range participants {
		entries = append(entries, leaderboard.Entry{
			Address:   p.Address,
			Username:  names[p.Address],
			TeamID:    p.TeamID,
			VolumeUSD: p.VolumeUSD,
		})
	}

	if err := r.store.Replace(ctx, key, entries); err != nil {
		return 0, err
	}

	if r.publisher != nil {
		if perr := r.publisher.PublishLeaderboardRefreshed(ctx, key, len(entries)); perr != nil {
			r.logger.WarnContext(ctx, "publish leaderboard refresh failed",
				slog.String("key", key), slog.String("error", perr.Error()))
		}
	}

	r.logger.InfoContext(ctx, "leaderboard refreshed",
		slog.String("competition", string(id)),
		slog.Int("participants", len(entries)),
		slog.Duration("elapsed", time.Since(started)),
	)
	return len(entries), nil
}

// RefreshJob refreshes a fixed set of competitions on each run.
type RefreshJob struct {
	refresher    *LeaderboardRefresher
	competitions []string
}

// NewRefreshJob returns a Runnable over competitions.
func NewRefreshJob(refresher *LeaderboardRefresher, competitions []string) *RefreshJob {
	return &RefreshJob{refresher: refresher, competitions: competitions}
}

// Name implements Runnable.
func (*RefreshJob) Name() string { return "leaderboard_refresh" }

// Run implements Runnable. A failing competition does not stop the others.
func (j *RefreshJob) Run(ctx context.Context) error {
	var errs []error
	for _, raw := range j.competitions {
		if _, err := j.refresher.Refresh(ctx, raw); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
