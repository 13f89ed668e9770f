package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"quiz-play-service/internal/app"
	"quiz-play-service/internal/domain"
)

// Store implements app.UnitOfWork on a pgx pool. Each Do call runs in one
// read committed transaction; version checks live in the statements.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, r app.Repositories) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, repos{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return translate(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// querier is the part of pgx.Tx the repositories use.
type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type repos struct {
	q querier
}

func (r repos) Users() app.UserRepository             { return userRepo(r) }
func (r repos) Points() app.PointsRepository          { return pointsRepo(r) }
func (r repos) Questions() app.QuestionRepository     { return questionRepo(r) }
func (r repos) Sessions() app.SessionRepository       { return sessionRepo(r) }
func (r repos) Attempts() app.AttemptRepository       { return attemptRepo(r) }
func (r repos) Cosmetics() app.CosmeticRepository     { return cosmeticRepo(r) }
func (r repos) Advantages() app.AdvantageRepository   { return advantageRepo(r) }
func (r repos) Inventory() app.InventoryRepository    { return inventoryRepo(r) }
func (r repos) Purchases() app.PurchaseRepository     { return purchaseRepo(r) }
func (r repos) ResetTokens() app.ResetTokenRepository { return tokenRepo(r) }

// constraint names from the schema migration
var constraintErrors = map[string]error{
	"users_username_key":                    domain.ErrUsernameTaken,
	"users_email_key":                       domain.ErrEmailTaken,
	"cosmetics_inventory_active_slot_key":   domain.ErrSlotTaken,
	"points_accounts_non_negative":          domain.ErrInsufficientPoints,
	"points_accounts_user_id_fkey":          domain.ErrUserNotFound,
	"game_sessions_user_id_fkey":            domain.ErrUserNotFound,
	"cosmetics_inventory_user_id_fkey":      domain.ErrUserNotFound,
	"cosmetics_inventory_cosmetic_id_fkey":  domain.ErrCosmeticNotFound,
	"advantage_purchases_user_id_fkey":      domain.ErrUserNotFound,
	"advantage_purchases_advantage_id_fkey": domain.ErrAdvantageNotFound,
	"password_reset_tokens_user_id_fkey":    domain.ErrUserNotFound,
	"attempts_session_id_fkey":              domain.ErrSessionNotFound,
}

// translate maps constraint violations onto domain errors and leaves other errors as they are.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	if mapped, ok := constraintErrors[pgErr.ConstraintName]; ok {
		return mapped
	}
	switch pgErr.Code {
	case "40001", "40P01":
		// serialization failure or deadlock: let the caller replay
		return fmt.Errorf("%s: %w", strings.ToLower(pgErr.Message), domain.ErrVersionMismatch)
	}
	return err
}

// notFound converts pgx.ErrNoRows into the given domain error.
func notFound(err error, target error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return target
	}
	return translate(err)
}
