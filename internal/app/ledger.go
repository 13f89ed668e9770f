package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"quiz-play-service/internal/domain"
)

// Ledger owns every mutation of a points account. Writes are version-checked;
// a conflicting writer replays its whole unit of work through transact.
type Ledger struct {
	uow    UnitOfWork
	feed   *BalanceFeed
	now    func() time.Time
	logger *slog.Logger
	retry  RetryPolicy
}

// NewLedger builds a ledger. feed may be nil.
func NewLedger(uow UnitOfWork, feed *BalanceFeed, opts ...Option) *Ledger {
	o := buildOptions(opts)
	return &Ledger{uow: uow, feed: feed, now: o.now, logger: o.logger, retry: o.retry}
}

// Balance returns the current balance of a user.
func (l *Ledger) Balance(ctx context.Context, userID int64) (int64, error) {
	var total int64
	err := l.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		acct, err := r.Points().Get(ctx, userID)
		if err != nil {
			return err
		}
		total = acct.TotalPoints
		return nil
	})
	return total, err
}

// Credit adds amount to the balance and returns the new balance.
func (l *Ledger) Credit(ctx context.Context, userID, amount int64) (int64, error) {
	var acct domain.PointsAccount
	err := l.transact(ctx, func(ctx context.Context, r Repositories) error {
		var err error
		acct, err = l.credit(ctx, r, userID, amount)
		return err
	})
	if err != nil {
		return 0, err
	}
	l.publish(acct)
	return acct.TotalPoints, nil
}

// Debit removes amount from the balance and returns the new balance.
func (l *Ledger) Debit(ctx context.Context, userID, amount int64) (int64, error) {
	var acct domain.PointsAccount
	err := l.transact(ctx, func(ctx context.Context, r Repositories) error {
		var err error
		acct, err = l.debit(ctx, r, userID, amount)
		return err
	})
	if err != nil {
		return 0, err
	}
	l.publish(acct)
	return acct.TotalPoints, nil
}

func (l *Ledger) credit(ctx context.Context, r Repositories, userID, amount int64) (domain.PointsAccount, error) {
	if amount < 0 {
		return domain.PointsAccount{}, domain.ErrNegativeAmount
	}
	return l.apply(ctx, r, userID, amount)
}

func (l *Ledger) debit(ctx context.Context, r Repositories, userID, amount int64) (domain.PointsAccount, error) {
	if amount < 0 {
		return domain.PointsAccount{}, domain.ErrNegativeAmount
	}
	return l.apply(ctx, r, userID, -amount)
}

func (l *Ledger) apply(ctx context.Context, r Repositories, userID, delta int64) (domain.PointsAccount, error) {
	acct, err := r.Points().Get(ctx, userID)
	if err != nil {
		return domain.PointsAccount{}, err
	}
	next := acct.TotalPoints + delta
	if next < 0 {
		return domain.PointsAccount{}, domain.ErrInsufficientPoints
	}
	return r.Points().CompareAndSwap(ctx, acct, next)
}

// transact runs fn as one unit of work and replays it while it fails with a
// retryable conflict, up to the retry policy's attempt budget.
func (l *Ledger) transact(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error {
	return replay(ctx, l.uow, l.retry, l.logger, fn)
}

func replay(ctx context.Context, uow UnitOfWork, retry RetryPolicy, logger *slog.Logger, fn func(ctx context.Context, r Repositories) error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = retry.InitialInterval
	eb.MaxInterval = retry.MaxInterval
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retry.MaxAttempts-1)), ctx)

	op := func() error {
		err := uow.Do(ctx, fn)
		if err == nil || retryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		logger.Debug("retrying after conflict", "error", err, "wait", wait)
	}
	return backoff.RetryNotify(op, policy, notify)
}

func retryable(err error) bool {
	return errors.Is(err, domain.ErrVersionMismatch) ||
		errors.Is(err, domain.ErrSlotTaken) ||
		errors.Is(err, domain.ErrSessionChanged)
}

func (l *Ledger) publish(acct domain.PointsAccount) {
	l.feed.Publish(domain.Balance{UserID: acct.UserID, TotalPoints: acct.TotalPoints, UpdatedAt: l.now()})
}
