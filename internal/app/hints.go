package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"quiz-play-service/internal/domain"
)

// DefaultHintCost is the price of one hint in points.
const DefaultHintCost = 50

// HintGenerator sells clues about a question's correct option.
type HintGenerator struct {
	ledger *Ledger
	cost   int64
	pick   func(n int) int
	logger *slog.Logger
}

// NewHintGenerator builds a generator charging cost points per hint.
func NewHintGenerator(ledger *Ledger, cost int64, opts ...Option) *HintGenerator {
	o := buildOptions(opts)
	if cost <= 0 {
		cost = DefaultHintCost
	}
	return &HintGenerator{ledger: ledger, cost: cost, pick: o.pick, logger: o.logger}
}

// Cost returns the configured hint price.
func (h *HintGenerator) Cost() int64 { return h.cost }

// PurchaseHint debits the hint cost and derives a hint from the correct option.
// A missing question rolls the debit back.
func (h *HintGenerator) PurchaseHint(ctx context.Context, userID, questionID int64) (domain.Hint, error) {
	var (
		hint domain.Hint
		acct domain.PointsAccount
	)
	err := h.ledger.transact(ctx, func(ctx context.Context, r Repositories) error {
		var err error
		acct, err = h.ledger.debit(ctx, r, userID, h.cost)
		if err != nil {
			return err
		}
		question, err := r.Questions().FindByID(ctx, questionID)
		if err != nil {
			return err
		}
		text, err := h.render(question)
		if err != nil {
			return err
		}
		hint = domain.Hint{QuestionID: questionID, Text: text, Balance: acct.TotalPoints}
		return nil
	})
	if err != nil {
		return domain.Hint{}, err
	}
	h.ledger.publish(acct)
	h.logger.Info("hint purchased", "user_id", userID, "question_id", questionID, "cost", h.cost)
	return hint, nil
}

func (h *HintGenerator) render(q domain.Question) (string, error) {
	position := -1
	for i, opt := range q.Options {
		if opt.Correct {
			position = i
			break
		}
	}
	if position < 0 {
		return "", fmt.Errorf("question %d: %w", q.ID, domain.ErrOptionNotFound)
	}
	answer := strings.ToLower(strings.TrimSpace(q.Options[position].Text))

	switch h.pick(3) {
	case 0:
		return fmt.Sprintf("The answer has %d letters.", utf8.RuneCountInString(answer)), nil
	case 1:
		first, _ := utf8.DecodeRuneInString(answer)
		return fmt.Sprintf("It starts with the letter '%c'.", unicode.ToUpper(first)), nil
	default:
		return fmt.Sprintf("It is the %s option.", ordinal(position)), nil
	}
}

func ordinal(i int) string {
	switch i {
	case 0:
		return "first"
	case 1:
		return "second"
	case 2:
		return "third"
	default:
		return fmt.Sprintf("number %d", i+1)
	}
}
