package memory

import (
	"context"
	"sort"
	"time"

	"quiz-play-service/internal/domain"
)

type sessionRepo struct{ t *tx }

func (r sessionRepo) Create(_ context.Context, s *domain.GameSession) error {
	s.ID = r.t.store.seq.sessions.Add(1)
	stored := copySession(*s)
	return r.t.write(func(st *state) error {
		if _, ok := st.users[stored.UserID]; !ok {
			return domain.ErrUserNotFound
		}
		st.sessions[stored.ID] = stored
		return nil
	})
}

func (r sessionRepo) FindByID(_ context.Context, id int64) (domain.GameSession, error) {
	s, ok := r.t.read().sessions[id]
	if !ok {
		return domain.GameSession{}, domain.ErrSessionNotFound
	}
	return copySession(s), nil
}

// RecordAnswer re-checks the status and adds points against the latest
// committed row, so a concurrent Finish or answer is never overwritten.
func (r sessionRepo) RecordAnswer(_ context.Context, sessionID, questionID int64, correct bool, points int64) (domain.GameSession, error) {
	err := r.t.write(func(st *state) error {
		s, ok := st.sessions[sessionID]
		if !ok {
			return domain.ErrSessionNotFound
		}
		if s.Status == domain.SessionFinished {
			return domain.ErrSessionFinished
		}
		s = copySession(s)
		s.PointsEarned += points
		s.LastQuestionID = &questionID
		s.LastAnswerCorrect = &correct
		st.sessions[sessionID] = s
		return nil
	})
	if err != nil {
		return domain.GameSession{}, err
	}
	return copySession(r.t.read().sessions[sessionID]), nil
}

func (r sessionRepo) Finish(_ context.Context, sessionID int64, at time.Time) (domain.GameSession, error) {
	s, ok := r.t.read().sessions[sessionID]
	if !ok {
		return domain.GameSession{}, domain.ErrSessionNotFound
	}
	if s.Status == domain.SessionFinished {
		return copySession(s), nil
	}
	err := r.t.write(func(st *state) error {
		s, ok := st.sessions[sessionID]
		if !ok {
			return domain.ErrSessionNotFound
		}
		if s.Status == domain.SessionFinished {
			// finished after this transaction read it; replay to return that row
			return domain.ErrSessionChanged
		}
		s = copySession(s)
		s.Status = domain.SessionFinished
		s.FinishedAt = &at
		st.sessions[sessionID] = s
		return nil
	})
	if err != nil {
		return domain.GameSession{}, err
	}
	return copySession(r.t.read().sessions[sessionID]), nil
}

func (r sessionRepo) ListByUser(_ context.Context, userID int64) ([]domain.GameSession, error) {
	var out []domain.GameSession
	for _, s := range r.t.read().sessions {
		if s.UserID == userID {
			out = append(out, copySession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// copySession detaches the pointer fields from the caller.
func copySession(s domain.GameSession) domain.GameSession {
	if s.FinishedAt != nil {
		v := *s.FinishedAt
		s.FinishedAt = &v
	}
	if s.LastQuestionID != nil {
		v := *s.LastQuestionID
		s.LastQuestionID = &v
	}
	if s.LastAnswerCorrect != nil {
		v := *s.LastAnswerCorrect
		s.LastAnswerCorrect = &v
	}
	return s
}

type attemptRepo struct{ t *tx }

func (r attemptRepo) Create(_ context.Context, a *domain.Attempt) error {
	a.ID = r.t.store.seq.attempts.Add(1)
	stored := *a
	return r.t.write(func(st *state) error {
		if _, ok := st.sessions[stored.SessionID]; !ok {
			return domain.ErrSessionNotFound
		}
		st.attempts[stored.ID] = stored
		return nil
	})
}

func (r attemptRepo) ListBySession(_ context.Context, sessionID int64) ([]domain.Attempt, error) {
	var out []domain.Attempt
	for _, a := range r.t.read().attempts {
		if a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r attemptRepo) ListByUser(_ context.Context, userID int64) ([]domain.Attempt, error) {
	st := r.t.read()
	var out []domain.Attempt
	for _, a := range st.attempts {
		if st.sessions[a.SessionID].UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}
