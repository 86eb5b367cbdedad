// Package notifications publishes domain events over Redis pub/sub.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"profileapi/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	leaderboardPattern = "leaderboard:*:refreshed"
	profilePattern     = "profile:*:updated"
)

// LeaderboardRefreshed is published after a leaderboard is replaced.
type LeaderboardRefreshed struct {
	Key          string    `json:"key"`
	Participants int       `json:"participants"`
	RefreshedAt  time.Time `json:"refreshed_at"`
}

// ProfileUpdated is published after a profile username changes.
type ProfileUpdated struct {
	Address  string `json:"address"`
	Username string `json:"username"`
}

// LeaderboardChannel returns the channel for refresh events of key.
func LeaderboardChannel(key string) string {
	return fmt.Sprintf("leaderboard:%s:refreshed", key)
}

// ProfileChannel returns the channel for updates of address.
func ProfileChannel(address string) string {
	return fmt.Sprintf("profile:%s:updated", strings.ToLower(address))
}

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishLeaderboardRefreshed announces that key now holds count participants.
func (n *Notifier) PublishLeaderboardRefreshed(ctx context.Context, key string, count int) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.publishJSON(ctx, LeaderboardChannel(key), LeaderboardRefreshed{
		Key:          key,
		Participants: count,
		RefreshedAt:  time.Now().UTC(),
	})
}

// PublishProfileUpdated announces a username change.
func (n *Notifier) PublishProfileUpdated(ctx context.Context, address, username string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.publishJSON(ctx, ProfileChannel(address), ProfileUpdated{Address: address, Username: username})
}

func (n *Notifier) publishJSON(ctx context.Context, channel string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return n.rdb.Publish(ctx, channel, string(payload)).Err()
}

// SubscribeLeaderboard calls onEvent for every leaderboard refresh until ctx
// is done. It returns once the subscription is active.
func (n *Notifier) SubscribeLeaderboard(ctx context.Context, onEvent func(LeaderboardRefreshed)) error {
	return n.subscribe(ctx, leaderboardPattern, func(payload string) error {
		var ev LeaderboardRefreshed
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return err
		}
		onEvent(ev)
		return nil
	})
}

// SubscribeProfiles calls onEvent for every profile update until ctx is done.
func (n *Notifier) SubscribeProfiles(ctx context.Context, onEvent func(ProfileUpdated)) error {
	return n.subscribe(ctx, profilePattern, func(payload string) error {
		var ev ProfileUpdated
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return err
		}
		onEvent(ev)
		return nil
	})
}

func (n *Notifier) subscribe(ctx context.Context, pattern string, handle func(payload string) error) error {
	if n == nil || n.rdb == nil {
		return nil
	}

	sub := n.rdb.PSubscribe(ctx, pattern)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", pattern, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in notification subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					if err := handle(msg.Payload); err != nil {
						middleware.Logger.Warn("dropping malformed notification",
							slog.String("channel", msg.Channel), slog.String("error", err.Error()))
					}
				}()
			}
		}
	}()

	return nil
}
