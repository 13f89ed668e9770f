package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"quiz-play-service/internal/domain"
)

const sessionColumns = `id, user_id, difficulty, game_type, status, started_at, finished_at,
	points_earned, last_question_id, last_answer_correct`

type sessionRepo struct{ q querier }

func (r sessionRepo) Create(ctx context.Context, s *domain.GameSession) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO game_sessions (user_id, difficulty, game_type, status, started_at, finished_at,
			points_earned, last_question_id, last_answer_correct)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		s.UserID, s.Difficulty, s.GameType, string(s.Status), s.StartedAt, s.FinishedAt,
		s.PointsEarned, s.LastQuestionID, s.LastAnswerCorrect,
	).Scan(&s.ID)
	if err != nil {
		return translate(fmt.Errorf("insert session: %w", err))
	}
	return nil
}

func (r sessionRepo) FindByID(ctx context.Context, id int64) (domain.GameSession, error) {
	s, err := scanSession(r.q.QueryRow(ctx, `SELECT `+sessionColumns+` FROM game_sessions WHERE id = $1`, id))
	if err != nil {
		return domain.GameSession{}, notFound(err, domain.ErrSessionNotFound)
	}
	return s, nil
}

// RecordAnswer adds to the stored total instead of writing a value read
// earlier; the status guard makes a concurrent Finish win.
func (r sessionRepo) RecordAnswer(ctx context.Context, sessionID, questionID int64, correct bool, points int64) (domain.GameSession, error) {
	s, err := scanSession(r.q.QueryRow(ctx, `
		UPDATE game_sessions
		SET points_earned = points_earned + $2, last_question_id = $3, last_answer_correct = $4
		WHERE id = $1 AND status = 'ACTIVE'
		RETURNING `+sessionColumns,
		sessionID, points, questionID, correct,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.GameSession{}, r.inactive(ctx, sessionID)
	}
	if err != nil {
		return domain.GameSession{}, translate(fmt.Errorf("record answer: %w", err))
	}
	return s, nil
}

func (r sessionRepo) Finish(ctx context.Context, sessionID int64, at time.Time) (domain.GameSession, error) {
	s, err := scanSession(r.q.QueryRow(ctx, `
		UPDATE game_sessions
		SET status = 'FINISHED', finished_at = $2
		WHERE id = $1 AND status = 'ACTIVE'
		RETURNING `+sessionColumns,
		sessionID, at,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return r.FindByID(ctx, sessionID)
	}
	if err != nil {
		return domain.GameSession{}, translate(fmt.Errorf("finish session: %w", err))
	}
	return s, nil
}

// inactive explains why a status-guarded update touched no row.
func (r sessionRepo) inactive(ctx context.Context, sessionID int64) error {
	if _, err := r.FindByID(ctx, sessionID); err != nil {
		return err
	}
	return domain.ErrSessionFinished
}

func (r sessionRepo) ListByUser(ctx context.Context, userID int64) ([]domain.GameSession, error) {
	rows, err := r.q.Query(ctx, `SELECT `+sessionColumns+` FROM game_sessions WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()
	var out []domain.GameSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSession(row pgx.Row) (domain.GameSession, error) {
	var (
		s      domain.GameSession
		status string
	)
	err := row.Scan(&s.ID, &s.UserID, &s.Difficulty, &s.GameType, &status, &s.StartedAt, &s.FinishedAt,
		&s.PointsEarned, &s.LastQuestionID, &s.LastAnswerCorrect)
	s.Status = domain.SessionStatus(status)
	return s, err
}

const attemptColumns = `a.id, a.session_id, a.question_id, a.selected_option_id, a.correct,
	a.points_gained, a.response_time_ms, a.advantage_used, a.created_at`

type attemptRepo struct{ q querier }

func (r attemptRepo) Create(ctx context.Context, a *domain.Attempt) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO attempts (session_id, question_id, selected_option_id, correct, points_gained,
			response_time_ms, advantage_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		a.SessionID, a.QuestionID, a.SelectedOptionID, a.Correct, a.PointsGained,
		a.ResponseTimeMs, a.AdvantageUsed, a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		return translate(fmt.Errorf("insert attempt: %w", err))
	}
	return nil
}

func (r attemptRepo) ListBySession(ctx context.Context, sessionID int64) ([]domain.Attempt, error) {
	return r.list(ctx, `SELECT `+attemptColumns+` FROM attempts a WHERE a.session_id = $1 ORDER BY a.id`, sessionID)
}

func (r attemptRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Attempt, error) {
	return r.list(ctx, `
		SELECT `+attemptColumns+`
		FROM attempts a
		JOIN game_sessions s ON s.id = a.session_id
		WHERE s.user_id = $1
		ORDER BY a.created_at DESC, a.id DESC`, userID)
}

func (r attemptRepo) list(ctx context.Context, sql string, arg int64) ([]domain.Attempt, error) {
	rows, err := r.q.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()
	var out []domain.Attempt
	for rows.Next() {
		var a domain.Attempt
		if err := rows.Scan(&a.ID, &a.SessionID, &a.QuestionID, &a.SelectedOptionID, &a.Correct,
			&a.PointsGained, &a.ResponseTimeMs, &a.AdvantageUsed, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
