package app_test

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"quiz-play-service/internal/app"
	"quiz-play-service/internal/auth"
	"quiz-play-service/internal/domain"
	"quiz-play-service/internal/infra/memory"
)

type harness struct {
	store    *memory.Store
	feed     *app.BalanceFeed
	tracker  *memory.SessionTracker
	ledger   *app.Ledger
	bank     *app.QuestionBank
	sessions *app.SessionManager
	grader   *app.Grader
	shop     *app.StoreService
	hints    *app.HintGenerator
	accounts *app.Accounts
	mailer   *recordingMailer
	google   *fakeIdentities
	now      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:   memory.NewStore(),
		feed:    app.NewBalanceFeed(),
		tracker: memory.NewSessionTracker(time.Minute),
		mailer:  &recordingMailer{},
		google:  &fakeIdentities{tokens: map[string]domain.ExternalIdentity{}},
		now:     time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC),
	}
	opts := []app.Option{
		app.WithClock(func() time.Time { return h.now }),
		app.WithPicker(func(int) int { return 0 }),
		app.WithRetryPolicy(app.RetryPolicy{MaxAttempts: 10, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}),
	}
	h.ledger = app.NewLedger(h.store, h.feed, opts...)
	h.bank = app.NewQuestionBank(h.store, nil, 0, opts...)
	h.sessions = app.NewSessionManager(h.store, h.tracker, opts...)
	h.grader = app.NewGrader(h.ledger, h.tracker, opts...)
	h.shop = app.NewStoreService(h.store, h.ledger, opts...)
	h.hints = app.NewHintGenerator(h.ledger, 0, opts...)
	h.accounts = app.NewAccounts(
		h.store,
		auth.NewBcryptHasher(bcrypt.MinCost),
		auth.NewTokenService("test-secret", time.Hour),
		h.mailer,
		app.AccountsConfig{AdminCode: "let-me-in"},
		append(opts, app.WithIdentityVerifier(h.google))...,
	)
	return h
}

// user registers a player holding balance points.
func (h *harness) user(t *testing.T, name string, balance int64) int64 {
	t.Helper()
	ctx := context.Background()
	u, err := h.accounts.Register(ctx, domain.Registration{
		Username: name,
		Email:    name + "@example.com",
		Password: "password",
	})
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	if balance > 0 {
		if _, err := h.ledger.Credit(ctx, u.ID, balance); err != nil {
			t.Fatalf("seed balance: %v", err)
		}
	}
	return u.ID
}

func (h *harness) balance(t *testing.T, userID int64) int64 {
	t.Helper()
	b, err := h.ledger.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return b
}

// abcQuestion creates a question with options A (wrong), B (correct), C (wrong).
func (h *harness) abcQuestion(t *testing.T, level string, points int64) domain.Question {
	t.Helper()
	q, err := h.bank.Create(context.Background(), domain.Question{
		Text:          "Which letter is correct?",
		Difficulty:    level,
		Category:      "letters",
		PointsAwarded: points,
		Options: []domain.ResponseOption{
			{Text: "Alpha"},
			{Text: "Bravo", Correct: true},
			{Text: "Charlie"},
		},
	})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	return q
}

type recordingMailer struct {
	registrations []string
	resets        map[string]string
	fail          error
}

func (m *recordingMailer) SendRegistrationEmail(_ context.Context, address, _ string) error {
	m.registrations = append(m.registrations, address)
	return m.fail
}

func (m *recordingMailer) SendPasswordResetEmail(_ context.Context, address, token string) error {
	if m.resets == nil {
		m.resets = make(map[string]string)
	}
	m.resets[address] = token
	return m.fail
}

// fakeIdentities accepts only the tokens it was given.
type fakeIdentities struct {
	tokens map[string]domain.ExternalIdentity
}

func (f *fakeIdentities) VerifyIDToken(_ context.Context, token string) (domain.ExternalIdentity, error) {
	id, ok := f.tokens[token]
	if !ok {
		return domain.ExternalIdentity{}, domain.ErrIdentityRejected
	}
	return id, nil
}
