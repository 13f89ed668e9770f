package app_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"quiz-play-service/internal/app"
	"quiz-play-service/internal/domain"
	"quiz-play-service/internal/infra/memory"
)

func TestQuestionRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created := h.abcQuestion(t, "easy", 20)

	got, err := h.bank.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Options) != 3 {
		t.Fatalf("expected 3 options, got %d", len(got.Options))
	}
	correct := 0
	for i, opt := range got.Options {
		if opt.Text != created.Options[i].Text || opt.QuestionID != created.ID {
			t.Fatalf("option %d mismatch: %+v", i, opt)
		}
		if opt.Correct {
			correct++
		}
	}
	if correct != 1 || !got.Options[1].Correct {
		t.Fatalf("expected only Bravo correct, got %+v", got.Options)
	}
}

func TestQuestionValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	base := domain.Question{Text: "?", Difficulty: "easy", PointsAwarded: 5}

	none := base
	none.Options = []domain.ResponseOption{{Text: "a"}, {Text: "b"}}
	if _, err := h.bank.Create(ctx, none); !errors.Is(err, domain.ErrNoCorrectOption) {
		t.Fatalf("expected no correct option, got %v", err)
	}

	two := base
	two.Options = []domain.ResponseOption{{Text: "a", Correct: true}, {Text: "b", Correct: true}}
	if _, err := h.bank.Create(ctx, two); !errors.Is(err, domain.ErrNoCorrectOption) {
		t.Fatalf("expected rejection of two correct options, got %v", err)
	}

	negative := base
	negative.PointsAwarded = -1
	negative.Options = []domain.ResponseOption{{Text: "a", Correct: true}}
	if _, err := h.bank.Create(ctx, negative); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestQuestionUpdateReplacesOptionSet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	q := h.abcQuestion(t, "easy", 20)

	updated, err := h.bank.Update(ctx, q.ID, domain.Question{
		Text:          "Pick yes",
		Difficulty:    "medium",
		PointsAwarded: 40,
		Options:       []domain.ResponseOption{{Text: "yes", Correct: true}, {Text: "no"}},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := h.bank.Get(ctx, q.ID)
	if got.Difficulty != "medium" || len(got.Options) != 2 || got.Options[0].ID != updated.Options[0].ID {
		t.Fatalf("unexpected updated question %+v", got)
	}
	if easy, _ := h.bank.ByDifficulty(ctx, "easy"); len(easy) != 0 {
		t.Fatalf("expected question moved out of easy, got %d", len(easy))
	}

	if err := h.bank.Delete(ctx, q.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := h.bank.Get(ctx, q.ID); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestRandomBatchProperties(t *testing.T) {
	store := memory.NewStore()
	rnd := rand.New(rand.NewSource(7))
	bank := app.NewQuestionBank(store, nil, 4, app.WithPicker(rnd.Intn))
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		level := "easy"
		if i%3 == 0 {
			level = "hard"
		}
		_, err := bank.Create(ctx, domain.Question{
			Text:       fmt.Sprintf("q%d", i),
			Difficulty: level,
			Options:    []domain.ResponseOption{{Text: "x", Correct: true}},
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	for _, count := range []int{1, 3, 4, 10} {
		batch, err := bank.RandomBatch(ctx, "easy", count)
		if err != nil {
			t.Fatalf("batch: %v", err)
		}
		want := count
		if want > 4 {
			want = 4
		}
		if len(batch) != want {
			t.Fatalf("count %d: expected %d questions, got %d", count, want, len(batch))
		}
		seen := map[int64]bool{}
		for _, q := range batch {
			if q.Difficulty != "easy" || seen[q.ID] {
				t.Fatalf("count %d: bad batch %+v", count, batch)
			}
			seen[q.ID] = true
		}
	}

	batch, _ := bank.RandomBatch(ctx, "easy", 0)
	if len(batch) != 4 {
		t.Fatalf("expected default batch size 4, got %d", len(batch))
	}
	if batch, _ := bank.RandomBatch(ctx, "unknown", 5); len(batch) != 0 {
		t.Fatalf("expected empty batch, got %d", len(batch))
	}
}

func TestGameQuestionsHideCorrectness(t *testing.T) {
	h := newHarness(t)
	h.abcQuestion(t, "easy", 20)

	views, err := h.bank.GameQuestions(context.Background(), "easy", 5)
	if err != nil {
		t.Fatalf("game questions: %v", err)
	}
	if len(views) != 1 || len(views[0].Options) != 3 {
		t.Fatalf("unexpected views %+v", views)
	}
}

func TestBankInvalidatesPoolOnWrites(t *testing.T) {
	store := memory.NewStore()
	pool := memory.NewQuestionPool(app.NewStoredQuestions(store), time.Hour)
	bank := app.NewQuestionBank(store, pool, 10)
	ctx := context.Background()

	if qs, _ := bank.ByDifficulty(ctx, "easy"); len(qs) != 0 {
		t.Fatalf("expected empty level, got %d", len(qs))
	}
	_, err := bank.Create(ctx, domain.Question{
		Text:       "new",
		Difficulty: "easy",
		Options:    []domain.ResponseOption{{Text: "x", Correct: true}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if qs, _ := bank.ByDifficulty(ctx, "easy"); len(qs) != 1 {
		t.Fatalf("expected pool reload after create, got %d", len(qs))
	}
}
