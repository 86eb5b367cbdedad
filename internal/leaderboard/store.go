// Package leaderboard stores ranked competition participants in Redis.
package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned when no Redis client is configured.
var ErrUnavailable = errors.New("leaderboard store unavailable")

// Entry is one ranked participant. Rank is 1-based and filled on read.
type Entry struct {
	Rank      int64   `json:"rank"`
	Address   string  `json:"address"`
	Username  string  `json:"username,omitempty"`
	TeamID    string  `json:"team_id,omitempty"`
	VolumeUSD float64 `json:"volume_usd"`
}

// Store keeps one leaderboard per key K as a sorted set K (address by volume),
// a hash K:participants (address to JSON entry) and a string K:updated_at.
type Store struct {
	rdb *redis.Client
	now func() time.Time
}

// NewStore returns a Store backed by rdb.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb, now: time.Now}
}

func participantsKey(key string) string { return key + ":participants" }
func updatedAtKey(key string) string    { return key + ":updated_at" }

// Replace swaps the whole leaderboard at key for entries in one transaction.
func (s *Store) Replace(ctx context.Context, key string, entries []Entry) error {
	if s.rdb == nil {
		return ErrUnavailable
	}

	members := make([]redis.Z, 0, len(entries))
	fields := make(map[string]interface{}, len(entries))
	for _, e := range entries {
		e.Rank = 0
		raw, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode entry %s: %w", e.Address, err)
		}
		members = append(members, redis.Z{Score: e.VolumeUSD, Member: e.Address})
		fields[e.Address] = raw
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key, participantsKey(key))
		if len(members) > 0 {
			pipe.ZAdd(ctx, key, members...)
			pipe.HSet(ctx, participantsKey(key), fields)
		}
		pipe.Set(ctx, updatedAtKey(key), s.now().UTC().Format(time.RFC3339), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace leaderboard %s: %w", key, err)
	}
	return nil
}

// Page returns up to limit entries starting at offset, highest volume first.
func (s *Store) Page(ctx context.Context, key string, offset, limit int64) ([]Entry, error) {
	if s.rdb == nil {
		return nil, ErrUnavailable
	}
	if limit <= 0 {
		return []Entry{}, nil
	}

	addrs, err := s.rdb.ZRevRange(ctx, key, offset, offset+limit-1).Result()
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return []Entry{}, nil
	}

	raws, err := s.rdb.HMGet(ctx, participantsKey(key), addrs...).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(addrs))
	for i, addr := range addrs {
		e := Entry{Address: addr}
		if raw, ok := raws[i].(string); ok {
			if err := json.Unmarshal([]byte(raw), &e); err != nil {
				return nil, fmt.Errorf("decode entry %s: %w", addr, err)
			}
		}
		e.Rank = offset + int64(i) + 1
		entries = append(entries, e)
	}
	return entries, nil
}

// Participant returns the ranked entry for address, or nil when absent.
func (s *Store) Participant(ctx context.Context, key, address string) (*Entry, error) {
	if s.rdb == nil {
		return nil, ErrUnavailable
	}

	rank, err := s.rdb.ZRevRank(ctx, key, address).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	e := Entry{Address: address}
	raw, err := s.rdb.HGet(ctx, participantsKey(key), address).Result()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode entry %s: %w", address, err)
		}
	}
	e.Rank = rank + 1
	return &e, nil
}

// Count returns the number of participants at key.
func (s *Store) Count(ctx context.Context, key string) (int64, error) {
	if s.rdb == nil {
		return 0, ErrUnavailable
	}
	return s.rdb.ZCard(ctx, key).Result()
}

// UpdatedAt returns when key was last replaced; zero if never.
func (s *Store) UpdatedAt(ctx context.Context, key string) (time.Time, error) {
	if s.rdb == nil {
		return time.Time{}, ErrUnavailable
	}
	raw, err := s.rdb.Get(ctx, updatedAtKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, raw)
}
