package app_test

import (
	"context"
	"errors"
	"testing"

	"quiz-play-service/internal/app"
	"quiz-play-service/internal/domain"
)

func TestPurchaseHintTemplates(t *testing.T) {
	cases := []struct {
		pick int
		want string
	}{
		{0, "The answer has 5 letters."},
		{1, "It starts with the letter 'B'."},
		{2, "It is the second option."},
	}
	for _, tc := range cases {
		h := newHarness(t)
		ctx := context.Background()
		userID := h.user(t, "ana", 120)
		q := h.abcQuestion(t, "easy", 10)
		pick := tc.pick
		gen := app.NewHintGenerator(h.ledger, 50, app.WithPicker(func(int) int { return pick }))

		hint, err := gen.PurchaseHint(ctx, userID, q.ID)
		if err != nil {
			t.Fatalf("pick %d: %v", pick, err)
		}
		if hint.Text != tc.want {
			t.Fatalf("pick %d: got %q, want %q", pick, hint.Text, tc.want)
		}
		if hint.Balance != 70 || h.balance(t, userID) != 70 {
			t.Fatalf("pick %d: expected balance 70, got %d", pick, hint.Balance)
		}
	}
}

func TestPurchaseHintFailuresKeepBalance(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := h.user(t, "ana", 60)
	q := h.abcQuestion(t, "easy", 10)

	if _, err := h.hints.PurchaseHint(ctx, userID, 4242); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}
	if b := h.balance(t, userID); b != 60 {
		t.Fatalf("missing question must refund the debit, got %d", b)
	}

	if _, err := h.hints.PurchaseHint(ctx, userID, q.ID); err != nil {
		t.Fatalf("hint: %v", err)
	}
	if _, err := h.hints.PurchaseHint(ctx, userID, q.ID); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if b := h.balance(t, userID); b != 10 {
		t.Fatalf("expected balance 10, got %d", b)
	}
}
