package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"quiz-play-service/internal/domain"
)

// SessionManager opens and closes game sessions.
type SessionManager struct {
	uow     UnitOfWork
	tracker SessionTracker
	now     func() time.Time
	logger  *slog.Logger
	retry   RetryPolicy
}

// NewSessionManager builds a manager. tracker may be nil.
func NewSessionManager(uow UnitOfWork, tracker SessionTracker, opts ...Option) *SessionManager {
	o := buildOptions(opts)
	return &SessionManager{uow: uow, tracker: tracker, now: o.now, logger: o.logger, retry: o.retry}
}

// Start opens an ACTIVE session for userID with zero points earned.
func (m *SessionManager) Start(ctx context.Context, userID int64, difficulty, gameType string) (domain.GameSession, error) {
	if strings.TrimSpace(difficulty) == "" {
		return domain.GameSession{}, domain.ErrMissingField
	}
	session := domain.GameSession{
		UserID:     userID,
		Difficulty: difficulty,
		GameType:   gameType,
		Status:     domain.SessionActive,
		StartedAt:  m.now(),
	}
	err := m.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		if _, err := r.Users().FindByID(ctx, userID); err != nil {
			return err
		}
		return r.Sessions().Create(ctx, &session)
	})
	if err != nil {
		return domain.GameSession{}, err
	}
	m.markLive(ctx, userID, session.ID)
	m.logger.Info("game session started", "session_id", session.ID, "user_id", userID, "difficulty", difficulty)
	return session, nil
}

// Finish stamps the completion time. Finishing a finished session returns it unchanged.
func (m *SessionManager) Finish(ctx context.Context, userID, sessionID int64) (domain.GameSession, error) {
	var session domain.GameSession
	err := replay(ctx, m.uow, m.retry, m.logger, func(ctx context.Context, r Repositories) error {
		current, err := r.Sessions().FindByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if current.UserID != userID {
			return domain.ErrNotOwner
		}
		session, err = r.Sessions().Finish(ctx, sessionID, m.now())
		return err
	})
	if err != nil {
		return domain.GameSession{}, err
	}
	if m.tracker != nil {
		if err := m.tracker.Clear(ctx, userID, sessionID); err != nil {
			m.logger.Warn("session tracker clear failed", "session_id", sessionID, "error", err)
		}
	}
	m.logger.Info("game session finished", "session_id", sessionID, "points_earned", session.PointsEarned)
	return session, nil
}

// Get returns a session owned by userID.
func (m *SessionManager) Get(ctx context.Context, userID, sessionID int64) (domain.GameSession, error) {
	var session domain.GameSession
	err := m.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		var err error
		session, err = r.Sessions().FindByID(ctx, sessionID)
		return err
	})
	if err != nil {
		return domain.GameSession{}, err
	}
	if session.UserID != userID {
		return domain.GameSession{}, domain.ErrNotOwner
	}
	return session, nil
}

// Live lists the ids of sessions of userID that are started, not finished
// and recently active according to the tracker.
func (m *SessionManager) Live(ctx context.Context, userID int64) ([]int64, error) {
	if m.tracker == nil {
		return []int64{}, nil
	}
	return m.tracker.Live(ctx, userID)
}

// markLive refreshes the liveness marker; failures only get logged.
func (m *SessionManager) markLive(ctx context.Context, userID, sessionID int64) {
	if m.tracker == nil {
		return
	}
	if err := m.tracker.MarkLive(ctx, userID, sessionID); err != nil {
		m.logger.Warn("session tracker update failed", "session_id", sessionID, "error", err)
	}
}
