package memory

import (
	"context"
	"sort"
	"sync"
	"time"
)

// SessionTracker is an in-memory implementation of app.SessionTracker.
// Markers expire ttl after their last refresh.
type SessionTracker struct {
	ttl   time.Duration
	clock func() time.Time

	mu   sync.Mutex
	live map[int64]map[int64]time.Time // user id -> session id -> expiry
}

func NewSessionTracker(ttl time.Duration) *SessionTracker {
	return &SessionTracker{
		ttl:   ttl,
		clock: time.Now,
		live:  make(map[int64]map[int64]time.Time),
	}
}

func (s *SessionTracker) MarkLive(_ context.Context, userID, sessionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessions, ok := s.live[userID]
	if !ok {
		sessions = make(map[int64]time.Time)
		s.live[userID] = sessions
	}
	sessions[sessionID] = s.clock().Add(s.ttl)
	return nil
}

func (s *SessionTracker) Clear(_ context.Context, userID, sessionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessions, ok := s.live[userID]
	if !ok {
		return nil
	}
	delete(sessions, sessionID)
	if len(sessions) == 0 {
		delete(s.live, userID)
	}
	return nil
}

// Live returns the unexpired sessions of userID in id order, pruning expired markers.
func (s *SessionTracker) Live(_ context.Context, userID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	ids := []int64{}
	for id, expiresAt := range s.live[userID] {
		if !expiresAt.After(now) {
			delete(s.live[userID], id)
			continue
		}
		ids = append(ids, id)
	}
	if len(s.live[userID]) == 0 {
		delete(s.live, userID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
