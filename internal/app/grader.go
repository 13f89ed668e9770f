package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"quiz-play-service/internal/domain"
)

// Grader scores submitted answers. Logging the attempt, crediting the ledger
// and updating the session happen in one unit of work.
type Grader struct {
	ledger  *Ledger
	tracker SessionTracker
	now     func() time.Time
	logger  *slog.Logger
}

// NewGrader builds a grader. tracker may be nil.
func NewGrader(ledger *Ledger, tracker SessionTracker, opts ...Option) *Grader {
	o := buildOptions(opts)
	return &Grader{ledger: ledger, tracker: tracker, now: o.now, logger: o.logger}
}

// GradeAnswer validates the selected option against the question, logs the
// attempt and credits the session owner on a correct answer.
func (g *Grader) GradeAnswer(ctx context.Context, userID int64, sub domain.Submission) (domain.GradeResult, error) {
	var (
		result domain.GradeResult
		acct   domain.PointsAccount
		paid   bool
	)
	err := g.ledger.transact(ctx, func(ctx context.Context, r Repositories) error {
		result, acct, paid = domain.GradeResult{}, domain.PointsAccount{}, false

		session, err := r.Sessions().FindByID(ctx, sub.SessionID)
		if err != nil {
			return err
		}
		if session.UserID != userID {
			return domain.ErrNotOwner
		}
		if session.Status == domain.SessionFinished {
			return domain.ErrSessionFinished
		}

		option, err := r.Questions().FindOption(ctx, sub.OptionID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrInvalidOption
			}
			return err
		}
		if option.QuestionID != sub.QuestionID {
			return domain.ErrOptionMismatch
		}
		question, err := r.Questions().FindByID(ctx, sub.QuestionID)
		if err != nil {
			return err
		}

		advantageUsed := sub.AdvantageUsed
		if sub.PurchaseID != nil {
			if err := g.consumeAdvantage(ctx, r, userID, *sub.PurchaseID); err != nil {
				return err
			}
			advantageUsed = true
		}

		correct := option.Correct
		var points int64
		if correct {
			points = question.PointsAwarded
		}
		attempt := domain.Attempt{
			SessionID:        session.ID,
			QuestionID:       question.ID,
			SelectedOptionID: option.ID,
			Correct:          correct,
			PointsGained:     points,
			ResponseTimeMs:   sub.ResponseTimeMs,
			AdvantageUsed:    advantageUsed,
			CreatedAt:        g.now(),
		}
		if err := r.Attempts().Create(ctx, &attempt); err != nil {
			return err
		}

		if points > 0 {
			acct, err = g.ledger.credit(ctx, r, session.UserID, points)
			if err != nil {
				return err
			}
			paid = true
		} else {
			acct, err = r.Points().Get(ctx, session.UserID)
			if err != nil {
				return err
			}
		}

		session, err = r.Sessions().RecordAnswer(ctx, session.ID, question.ID, correct, points)
		if err != nil {
			return err
		}

		result = domain.GradeResult{
			Attempt:         attempt,
			CorrectOptionID: correctOptionID(question),
			SessionPoints:   session.PointsEarned,
			Balance:         acct.TotalPoints,
		}
		return nil
	})
	if err != nil {
		return domain.GradeResult{}, err
	}
	if paid {
		g.ledger.publish(acct)
	}
	if g.tracker != nil {
		if err := g.tracker.MarkLive(ctx, userID, sub.SessionID); err != nil {
			g.logger.Warn("session tracker update failed", "session_id", sub.SessionID, "error", err)
		}
	}
	g.logger.Info("answer graded",
		"session_id", sub.SessionID,
		"question_id", sub.QuestionID,
		"correct", result.Attempt.Correct,
		"points", result.Attempt.PointsGained,
	)
	return result, nil
}

func (g *Grader) consumeAdvantage(ctx context.Context, r Repositories, userID, purchaseID int64) error {
	purchase, err := r.Purchases().FindByID(ctx, purchaseID)
	if err != nil {
		return err
	}
	if purchase.UserID != userID {
		return domain.ErrNotOwner
	}
	if purchase.Used {
		return domain.ErrAdvantageAlreadyUsed
	}
	usedAt := g.now()
	purchase.Used = true
	purchase.UsedAt = &usedAt
	return r.Purchases().Update(ctx, purchase)
}

func correctOptionID(q domain.Question) int64 {
	for _, opt := range q.Options {
		if opt.Correct {
			return opt.ID
		}
	}
	return 0
}
