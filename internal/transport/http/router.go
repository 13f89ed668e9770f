package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"quiz-play-service/internal/app"
	"quiz-play-service/internal/auth"
	"quiz-play-service/internal/domain"
)

// Services bundles the use cases exposed over HTTP.
type Services struct {
	Accounts  *app.Accounts
	Ledger    *app.Ledger
	Feed      *app.BalanceFeed
	Sessions  *app.SessionManager
	Grader    *app.Grader
	Questions *app.QuestionBank
	Store     *app.StoreService
	Hints     *app.HintGenerator
	Tokens    *auth.TokenService
}

// RouterConfig holds the boundary settings.
type RouterConfig struct {
	AllowedOrigins []string
	Logger         *slog.Logger
}

type api struct {
	svc    Services
	logger *slog.Logger
}

// NewRouter wires every route behind its access policy: public, authenticated or admin.
func NewRouter(svc Services, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	a := &api{svc: svc, logger: logger}
	ws := NewWSHandler(svc, origins, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(corsOptions(origins)))

	// the websocket carries its bearer token in the query string, so it stays
	// out of the access log
	r.Get("/ws", ws.ServeWS)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Logger)

		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Route("/api", a.routes)
	})
	return r
}

// corsOptions only allows credentials for an explicit origin list.
func corsOptions(origins []string) cors.Options {
	wildcard := false
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	}
}

// routes is the /api table: public, authenticated, then admin only.
func (a *api) routes(r chi.Router) {
	r.Post("/users/register", a.register)
	r.Post("/users/login", a.login)
	r.Post("/users/login/google", a.loginWithGoogle)
	r.Post("/users/forgot-password", a.forgotPassword)
	r.Post("/users/reset-password", a.resetPassword)

	r.Group(func(r chi.Router) {
		r.Use(a.authenticate)

		r.Get("/users/me/points", a.myPoints)
		r.Post("/users/me/hints", a.purchaseHint)
		r.Get("/users/{userId}/profile", a.profile)
		r.Put("/users/{userId}/profile", a.updateProfile)

		r.Post("/game/sessions", a.startSession)
		r.Get("/game/sessions/live", a.liveSessions)
		r.Get("/game/sessions/{sessionId}", a.getSession)
		r.Post("/game/sessions/{sessionId}/answers", a.submitAnswer)
		r.Post("/game/sessions/{sessionId}/finish", a.finishSession)
		r.Get("/questions/game", a.gameQuestions)

		r.Get("/store/cosmetics", a.listCosmetics)
		r.Get("/store/advantages", a.listAdvantages)
		r.Get("/store/inventory", a.inventory)
		r.Get("/store/purchases", a.purchases)
		r.Post("/store/cosmetics/{id}/buy", a.buyCosmetic)
		r.Post("/store/advantages/{id}/buy", a.buyAdvantage)
		r.Post("/store/purchases/{id}/use", a.useAdvantage)
		r.Put("/store/inventory/{id}/activate", a.activateCosmetic)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAdmin)

			r.Get("/questions", a.listQuestions)
			r.Post("/questions", a.createQuestion)
			r.Get("/questions/{id}", a.getQuestion)
			r.Put("/questions/{id}", a.updateQuestion)
			r.Delete("/questions/{id}", a.deleteQuestion)

			r.Get("/admin/users", a.listUsers)
			r.Put("/admin/users/{id}", a.updateUser)
			r.Delete("/admin/users/{id}", a.deleteUser)

			r.Get("/admin/cosmetics", a.listCosmetics)
			r.Post("/admin/cosmetics", a.createCosmetic)
			r.Put("/admin/cosmetics/{id}", a.updateCosmetic)
			r.Delete("/admin/cosmetics/{id}", a.deleteCosmetic)

			r.Get("/admin/advantages", a.listAdvantages)
			r.Post("/admin/advantages", a.createAdvantage)
			r.Put("/admin/advantages/{id}", a.updateAdvantage)
			r.Delete("/admin/advantages/{id}", a.deleteAdvantage)
		})
	})
}

// authenticate turns a bearer token into a principal on the request context.
func (a *api) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, r, a.logger, domain.ErrUnauthenticated)
			return
		}
		p, err := a.svc.Tokens.Parse(token)
		if err != nil {
			writeError(w, r, a.logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
	})
}

func (a *api) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := principal(r); !p.IsAdmin() {
			writeError(w, r, a.logger, domain.ErrPermissionDenied)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// principal is only called behind authenticate.
func principal(r *http.Request) auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}
