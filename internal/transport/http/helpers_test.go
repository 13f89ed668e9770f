package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"quiz-play-service/internal/app"
	"quiz-play-service/internal/auth"
	"quiz-play-service/internal/domain"
	"quiz-play-service/internal/infra/memory"
)

const testAdminCode = "let-me-in"

type testServer struct {
	*httptest.Server
	svc Services
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	tracker := memory.NewSessionTracker(time.Minute)
	feed := app.NewBalanceFeed()
	tokens := auth.NewTokenService("test-secret", time.Hour)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	opts := []app.Option{
		app.WithLogger(logger),
		app.WithRetryPolicy(app.RetryPolicy{MaxAttempts: 10, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}),
	}
	ledger := app.NewLedger(store, feed, opts...)
	svc := Services{
		Accounts: app.NewAccounts(store, auth.NewBcryptHasher(bcrypt.MinCost), tokens, memoryMailer{},
			app.AccountsConfig{AdminCode: testAdminCode}, append(opts, app.WithIdentityVerifier(staticIdentities{}))...),
		Ledger:    ledger,
		Feed:      feed,
		Sessions:  app.NewSessionManager(store, tracker, opts...),
		Grader:    app.NewGrader(ledger, tracker, opts...),
		Questions: app.NewQuestionBank(store, nil, 0, opts...),
		Store:     app.NewStoreService(store, ledger, opts...),
		Hints:     app.NewHintGenerator(ledger, 0, opts...),
		Tokens:    tokens,
	}
	srv := httptest.NewServer(NewRouter(svc, RouterConfig{Logger: logger}))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, svc: svc}
}

// call sends a JSON request and decodes the JSON answer into out when non-nil.
func (s *testServer) call(t *testing.T, method, path, token string, body, out interface{}) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type loginResponse struct {
	User struct {
		ID   int64  `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
	Token string `json:"token"`
}

// signup registers and logs in a user, returning its id and bearer token.
func (s *testServer) signup(t *testing.T, name, adminCode string) (int64, string) {
	t.Helper()
	status := s.call(t, http.MethodPost, "/api/users/register", "", map[string]string{
		"username":  name,
		"email":     name + "@example.com",
		"password":  "password",
		"adminCode": adminCode,
	}, nil)
	if status != http.StatusCreated {
		t.Fatalf("register %s: status %d", name, status)
	}
	var login loginResponse
	status = s.call(t, http.MethodPost, "/api/users/login", "", map[string]string{
		"username": name,
		"password": "password",
	}, &login)
	if status != http.StatusOK || login.Token == "" {
		t.Fatalf("login %s: status %d", name, status)
	}
	return login.User.ID, login.Token
}

type questionResponse struct {
	ID            int64 `json:"id"`
	PointsAwarded int64 `json:"pointsAwarded"`
	Options       []struct {
		ID      int64 `json:"id"`
		Correct bool  `json:"correct"`
	} `json:"options"`
}

func (s *testServer) createQuestion(t *testing.T, adminToken string, points int64) questionResponse {
	t.Helper()
	var q questionResponse
	status := s.call(t, http.MethodPost, "/api/questions", adminToken, map[string]interface{}{
		"text":          "Which letter is correct?",
		"difficulty":    "easy",
		"pointsAwarded": points,
		"options": []map[string]interface{}{
			{"text": "Alpha"},
			{"text": "Bravo", "correct": true},
		},
	}, &q)
	if status != http.StatusCreated {
		t.Fatalf("create question: status %d", status)
	}
	return q
}

type memoryMailer struct{}

func (memoryMailer) SendRegistrationEmail(_ context.Context, _, _ string) error { return nil }
func (memoryMailer) SendPasswordResetEmail(_ context.Context, _, _ string) error { return nil }

// staticIdentities accepts "google-<name>" as an ID token for <name>@example.com.
type staticIdentities struct{}

func (staticIdentities) VerifyIDToken(_ context.Context, token string) (domain.ExternalIdentity, error) {
	name, ok := strings.CutPrefix(token, "google-")
	if !ok || name == "" {
		return domain.ExternalIdentity{}, domain.ErrIdentityRejected
	}
	return domain.ExternalIdentity{Email: name + "@example.com", Name: name}, nil
}
