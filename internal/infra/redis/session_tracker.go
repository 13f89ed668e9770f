package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionTracker keeps liveness markers in one sorted set per user,
// scored by expiry in unix milliseconds, so every instance sees the same view.
type SessionTracker struct {
	client *redis.Client
	ttl    time.Duration
	clock  func() time.Time
}

func NewSessionTracker(client *redis.Client, ttl time.Duration) *SessionTracker {
	return &SessionTracker{client: client, ttl: ttl, clock: time.Now}
}

func (s *SessionTracker) MarkLive(ctx context.Context, userID, sessionID int64) error {
	expiresAt := s.clock().Add(s.ttl)
	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, s.key(userID), redis.Z{
		Score:  float64(expiresAt.UnixMilli()),
		Member: strconv.FormatInt(sessionID, 10),
	})
	// the whole set goes away once its newest marker would have expired
	pipe.ExpireAt(ctx, s.key(userID), expiresAt)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mark session %d live: %w", sessionID, err)
	}
	return nil
}

func (s *SessionTracker) Clear(ctx context.Context, userID, sessionID int64) error {
	if err := s.client.ZRem(ctx, s.key(userID), strconv.FormatInt(sessionID, 10)).Err(); err != nil {
		return fmt.Errorf("clear session %d: %w", sessionID, err)
	}
	return nil
}

// Live prunes expired markers and returns the remaining session ids in order.
func (s *SessionTracker) Live(ctx context.Context, userID int64) ([]int64, error) {
	now := strconv.FormatInt(s.clock().UnixMilli(), 10)
	key := s.key(userID)
	if err := s.client.ZRemRangeByScore(ctx, key, "-inf", now).Err(); err != nil {
		return nil, fmt.Errorf("prune live sessions: %w", err)
	}
	members, err := s.client.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list live sessions: %w", err)
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *SessionTracker) key(userID int64) string {
	return "quiz:live:" + strconv.FormatInt(userID, 10)
}
