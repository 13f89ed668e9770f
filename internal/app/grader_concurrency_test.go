package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"quiz-play-service/internal/app"
	"quiz-play-service/internal/domain"
)

// heldUoW parks the first transaction after fn has run and before it commits,
// so another writer can commit in between.
type heldUoW struct {
	inner   app.UnitOfWork
	reached chan struct{}
	release chan struct{}
	once    sync.Once
}

func newHeldUoW(inner app.UnitOfWork) *heldUoW {
	return &heldUoW{inner: inner, reached: make(chan struct{}), release: make(chan struct{})}
}

func (u *heldUoW) Do(ctx context.Context, fn func(ctx context.Context, r app.Repositories) error) error {
	return u.inner.Do(ctx, func(ctx context.Context, r app.Repositories) error {
		if err := fn(ctx, r); err != nil {
			return err
		}
		u.once.Do(func() {
			close(u.reached)
			<-u.release
		})
		return nil
	})
}

// gradeHeld starts a grade through held and waits until its transaction is parked.
func gradeHeld(t *testing.T, h *harness, held *heldUoW, userID int64, sub domain.Submission) <-chan error {
	t.Helper()
	grader := app.NewGrader(app.NewLedger(held, h.feed), nil)
	done := make(chan error, 1)
	go func() {
		_, err := grader.GradeAnswer(context.Background(), userID, sub)
		done <- err
	}()
	<-held.reached
	return done
}

func TestGradeCannotReopenFinishedSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := h.user(t, "ana", 0)
	q := h.abcQuestion(t, "easy", 20)
	session, _ := h.sessions.Start(ctx, userID, "easy", "classic")

	held := newHeldUoW(h.store)
	done := gradeHeld(t, h, held, userID, domain.Submission{
		SessionID:  session.ID,
		QuestionID: q.ID,
		OptionID:   q.Options[1].ID,
	})

	finished, err := h.sessions.Finish(ctx, userID, session.ID)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	close(held.release)
	if err := <-done; !errors.Is(err, domain.ErrSessionFinished) {
		t.Fatalf("expected session finished, got %v", err)
	}

	got, _ := h.sessions.Get(ctx, userID, session.ID)
	if got.Status != domain.SessionFinished || got.FinishedAt == nil || !got.FinishedAt.Equal(*finished.FinishedAt) {
		t.Fatalf("finished session was rewritten: %+v", got)
	}
	if got.PointsEarned != 0 {
		t.Fatalf("expected no points after finish, got %d", got.PointsEarned)
	}
	if b := h.balance(t, userID); b != 0 {
		t.Fatalf("rolled back grade still credited %d", b)
	}
}

func TestConcurrentGradesKeepSessionTotal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := h.user(t, "ana", 0)
	q := h.abcQuestion(t, "easy", 20)
	session, _ := h.sessions.Start(ctx, userID, "easy", "classic")

	held := newHeldUoW(h.store)
	done := gradeHeld(t, h, held, userID, domain.Submission{
		SessionID:  session.ID,
		QuestionID: q.ID,
		OptionID:   q.Options[0].ID,
	})

	if _, err := h.grader.GradeAnswer(ctx, userID, domain.Submission{
		SessionID:  session.ID,
		QuestionID: q.ID,
		OptionID:   q.Options[1].ID,
	}); err != nil {
		t.Fatalf("correct grade: %v", err)
	}
	close(held.release)
	if err := <-done; err != nil {
		t.Fatalf("wrong grade: %v", err)
	}

	got, _ := h.sessions.Get(ctx, userID, session.ID)
	balance := h.balance(t, userID)
	if balance != 20 || got.PointsEarned != 20 {
		t.Fatalf("balance and session total diverged: balance=%d session=%d", balance, got.PointsEarned)
	}
	if got.LastAnswerCorrect == nil || *got.LastAnswerCorrect {
		t.Fatalf("expected last committed answer to be the wrong one, got %+v", got.LastAnswerCorrect)
	}
}

func TestConcurrentFinishKeepsFirstTimestamp(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := h.user(t, "ana", 0)
	session, _ := h.sessions.Start(ctx, userID, "easy", "classic")

	held := newHeldUoW(h.store)
	manager := app.NewSessionManager(held, nil)
	done := make(chan domain.GameSession, 1)
	go func() {
		s, err := manager.Finish(context.Background(), userID, session.ID)
		if err != nil {
			t.Errorf("held finish: %v", err)
		}
		done <- s
	}()
	<-held.reached

	first, err := h.sessions.Finish(ctx, userID, session.ID)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	close(held.release)
	second := <-done
	if second.FinishedAt == nil || !second.FinishedAt.Equal(*first.FinishedAt) {
		t.Fatalf("expected the first completion time %v, got %v", first.FinishedAt, second.FinishedAt)
	}
}
