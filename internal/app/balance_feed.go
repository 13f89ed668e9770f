package app

import (
	"sync"

	"quiz-play-service/internal/domain"
)

// BalanceFeed fans committed balance changes out to per-user subscribers.
// A nil feed drops every update.
type BalanceFeed struct {
	mu          sync.Mutex
	subscribers map[int64]map[chan domain.Balance]struct{}
}

func NewBalanceFeed() *BalanceFeed {
	return &BalanceFeed{subscribers: make(map[int64]map[chan domain.Balance]struct{})}
}

// Subscribe returns a channel receiving the balances of userID.
// The caller must invoke the returned cancel function to avoid leaks.
func (f *BalanceFeed) Subscribe(userID int64) (<-chan domain.Balance, func()) {
	ch := make(chan domain.Balance, 8)

	f.mu.Lock()
	subs, ok := f.subscribers[userID]
	if !ok {
		subs = make(map[chan domain.Balance]struct{})
		f.subscribers[userID] = subs
	}
	subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		subs := f.subscribers[userID]
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(f.subscribers, userID)
		}
	}
	return ch, cancel
}

// Publish delivers b to every subscriber of b.UserID without blocking.
func (f *BalanceFeed) Publish(b domain.Balance) {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers[b.UserID] {
		select {
		case ch <- b:
		default:
			// slow reader: replace the oldest pending balance with the newest
			select {
			case <-ch:
			default:
			}
			ch <- b
		}
	}
}

// Subscribers reports how many channels listen for userID.
func (f *BalanceFeed) Subscribers(userID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers[userID])
}
