package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"quiz-play-service/internal/app"
	"quiz-play-service/internal/domain"
)

// Store is an in-process implementation of app.UnitOfWork.
//
// Committed state is immutable. A transaction reads a snapshot, applies its
// writes to a private copy and records them; commit replays the recorded
// writes on top of the latest committed state under a lock. A write whose
// precondition no longer holds (account version, unique keys, active slot)
// fails the commit and nothing is published.
type Store struct {
	mu        sync.Mutex
	committed atomic.Pointer[state]
	seq       sequences
}

type sequences struct {
	users, questions, options, sessions, attempts atomic.Int64
	cosmetics, advantages, inventory, purchases   atomic.Int64
	tokens                                        atomic.Int64
}

func NewStore() *Store {
	s := &Store{}
	s.committed.Store(newState())
	return s
}

// Do runs fn inside one transaction.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, r app.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := &tx{store: s, base: s.committed.Load()}
	if err := fn(ctx, t); err != nil {
		return err
	}
	if len(t.ops) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(t.ops)
}

func (s *Store) commit(ops []op) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.committed.Load().clone()
	for _, apply := range ops {
		if err := apply(next); err != nil {
			return err
		}
	}
	s.committed.Store(next)
	return nil
}

// op is a recorded write. It must check its preconditions before mutating.
type op func(st *state) error

type tx struct {
	store *Store
	base  *state
	view  *state
	ops   []op
}

func (t *tx) read() *state {
	if t.view != nil {
		return t.view
	}
	return t.base
}

func (t *tx) write(apply op) error {
	if t.view == nil {
		t.view = t.base.clone()
	}
	if err := apply(t.view); err != nil {
		return err
	}
	t.ops = append(t.ops, apply)
	return nil
}

func (t *tx) Users() app.UserRepository             { return userRepo{t} }
func (t *tx) Points() app.PointsRepository          { return pointsRepo{t} }
func (t *tx) Questions() app.QuestionRepository     { return questionRepo{t} }
func (t *tx) Sessions() app.SessionRepository       { return sessionRepo{t} }
func (t *tx) Attempts() app.AttemptRepository       { return attemptRepo{t} }
func (t *tx) Cosmetics() app.CosmeticRepository     { return cosmeticRepo{t} }
func (t *tx) Advantages() app.AdvantageRepository   { return advantageRepo{t} }
func (t *tx) Inventory() app.InventoryRepository    { return inventoryRepo{t} }
func (t *tx) Purchases() app.PurchaseRepository     { return purchaseRepo{t} }
func (t *tx) ResetTokens() app.ResetTokenRepository { return tokenRepo{t} }

type state struct {
	users      map[int64]domain.User
	points     map[int64]domain.PointsAccount
	questions  map[int64]domain.Question
	options    map[int64]int64 // option id -> question id
	sessions   map[int64]domain.GameSession
	attempts   map[int64]domain.Attempt
	cosmetics  map[int64]domain.Cosmetic
	advantages map[int64]domain.Advantage
	inventory  map[int64]domain.InventoryItem
	purchases  map[int64]domain.AdvantagePurchase
	tokens     map[int64]domain.PasswordResetToken
}

func newState() *state {
	return &state{
		users:      make(map[int64]domain.User),
		points:     make(map[int64]domain.PointsAccount),
		questions:  make(map[int64]domain.Question),
		options:    make(map[int64]int64),
		sessions:   make(map[int64]domain.GameSession),
		attempts:   make(map[int64]domain.Attempt),
		cosmetics:  make(map[int64]domain.Cosmetic),
		advantages: make(map[int64]domain.Advantage),
		inventory:  make(map[int64]domain.InventoryItem),
		purchases:  make(map[int64]domain.AdvantagePurchase),
		tokens:     make(map[int64]domain.PasswordResetToken),
	}
}

// clone copies every table. Stored values are never mutated in place, so a
// shallow copy of each map is enough.
func (s *state) clone() *state {
	return &state{
		users:      cloneMap(s.users),
		points:     cloneMap(s.points),
		questions:  cloneMap(s.questions),
		options:    cloneMap(s.options),
		sessions:   cloneMap(s.sessions),
		attempts:   cloneMap(s.attempts),
		cosmetics:  cloneMap(s.cosmetics),
		advantages: cloneMap(s.advantages),
		inventory:  cloneMap(s.inventory),
		purchases:  cloneMap(s.purchases),
		tokens:     cloneMap(s.tokens),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
