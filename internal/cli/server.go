package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"quiz-play-service/internal/app"
	"quiz-play-service/internal/auth"
	"quiz-play-service/internal/config"
	"quiz-play-service/internal/domain"
	"quiz-play-service/internal/infra/mail"
	"quiz-play-service/internal/infra/memory"
	"quiz-play-service/internal/infra/postgres"
	redisinfra "quiz-play-service/internal/infra/redis"
	transport "quiz-play-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger()
	slog.SetDefault(logger)

	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret not configured")
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var uow app.UnitOfWork
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		uow = postgres.NewStore(pool)
	} else {
		logger.Warn("postgres url not configured, using in-memory store")
		uow = memory.NewStore()
	}

	questionTTL := config.TTLDuration(cfg.Questions.CacheTTL, 10*time.Minute)
	liveTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	loader := app.NewStoredQuestions(uow)

	var (
		questionPool app.QuestionPool
		tracker      app.SessionTracker
	)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		questionPool = redisinfra.NewQuestionPool(client, loader, questionTTL)
		tracker = redisinfra.NewSessionTracker(client, liveTTL)
	} else {
		questionPool = memory.NewQuestionPool(loader, questionTTL)
		tracker = memory.NewSessionTracker(liveTTL)
	}

	var mailer app.Mailer = mail.NewLogSender(logger)
	if cfg.Mail.Host != "" {
		mailer = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
			ResetURL: cfg.Mail.ResetURL,
		})
	}

	retry := app.DefaultRetryPolicy
	if cfg.Game.ConflictRetries > 0 {
		retry.MaxAttempts = cfg.Game.ConflictRetries
	}
	retry.InitialInterval = config.TTLDuration(cfg.Game.RetryInterval, retry.InitialInterval)
	opts := []app.Option{app.WithLogger(logger), app.WithRetryPolicy(retry)}

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, auth.DefaultTokenTTL))
	feed := app.NewBalanceFeed()
	ledger := app.NewLedger(uow, feed, opts...)
	accountOpts := opts
	if cfg.Auth.GoogleClientID != "" {
		accountOpts = append(accountOpts[:len(accountOpts):len(accountOpts)], app.WithIdentityVerifier(auth.NewGoogleVerifier(cfg.Auth.GoogleClientID)))
	}
	svc := transport.Services{
		Accounts: app.NewAccounts(uow, auth.NewBcryptHasher(bcrypt.DefaultCost), tokens, mailer, app.AccountsConfig{
			AdminCode: cfg.Auth.AdminCode,
			ResetTTL:  config.TTLDuration(cfg.Auth.ResetTTL, app.DefaultResetTTL),
		}, accountOpts...),
		Ledger:    ledger,
		Feed:      feed,
		Sessions:  app.NewSessionManager(uow, tracker, opts...),
		Grader:    app.NewGrader(ledger, tracker, opts...),
		Questions: app.NewQuestionBank(uow, questionPool, cfg.Questions.BatchSize, opts...),
		Store:     app.NewStoreService(uow, ledger, opts...),
		Hints:     app.NewHintGenerator(ledger, cfg.Game.HintCost, opts...),
		Tokens:    tokens,
	}

	if cfg.Admin.Username != "" && cfg.Admin.Password != "" {
		admin, created, err := svc.Accounts.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		if created {
			logger.Info("admin account created", "user_id", admin.ID, "username", admin.Username)
		}
	}
	if cfg.Postgres.URL == "" {
		if err := seedSampleQuestions(ctx, svc.Questions); err != nil {
			return fmt.Errorf("seed questions: %w", err)
		}
	}

	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: transport.NewRouter(svc, transport.RouterConfig{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Logger:         logger,
		}),
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting quiz service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// seedSampleQuestions gives the in-memory backend something to play with.
func seedSampleQuestions(ctx context.Context, bank *app.QuestionBank) error {
	for _, q := range sampleQuestions() {
		if _, err := bank.Create(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			Text:          "What is 2 + 2?",
			Difficulty:    "easy",
			Category:      "math",
			PointsAwarded: 10,
			Options: []domain.ResponseOption{
				{Text: "3"},
				{Text: "4", Correct: true},
				{Text: "5"},
			},
		},
		{
			Text:          "Which planet is known as the red planet?",
			Difficulty:    "easy",
			Category:      "science",
			PointsAwarded: 10,
			Options: []domain.ResponseOption{
				{Text: "Venus"},
				{Text: "Mars", Correct: true},
				{Text: "Jupiter"},
			},
		},
		{
			Text:          "In which year did the Berlin Wall fall?",
			Difficulty:    "medium",
			Category:      "history",
			PointsAwarded: 20,
			Options: []domain.ResponseOption{
				{Text: "1987"},
				{Text: "1989", Correct: true},
				{Text: "1991"},
			},
		},
	}
}
