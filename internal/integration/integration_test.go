package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"golang.org/x/crypto/bcrypt"
	"quiz-play-service/internal/app"
	"quiz-play-service/internal/auth"
	"quiz-play-service/internal/domain"
	"quiz-play-service/internal/infra/postgres"
	pgmigrations "quiz-play-service/internal/infra/postgres/migrations"
	infraredis "quiz-play-service/internal/infra/redis"
)

type stack struct {
	uow      *postgres.Store
	ledger   *app.Ledger
	bank     *app.QuestionBank
	sessions *app.SessionManager
	grader   *app.Grader
	shop     *app.StoreService
	hints    *app.HintGenerator
	accounts *app.Accounts
}

func TestPlayFlowOnPostgresAndRedis(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, ctx)

	user, err := s.accounts.Register(ctx, domain.Registration{Username: "ana", Email: "ana@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := s.accounts.Register(ctx, domain.Registration{Username: "ANA2", Email: "ANA@example.com", Password: "pw"}); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected case-insensitive email conflict, got %v", err)
	}

	q, err := s.bank.Create(ctx, domain.Question{
		Text:          "What is 2 + 2?",
		Difficulty:    "easy",
		PointsAwarded: 60,
		Options: []domain.ResponseOption{
			{Text: "3"},
			{Text: "4", Correct: true},
			{Text: "5"},
		},
	})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	views, err := s.bank.GameQuestions(ctx, "easy", 5)
	if err != nil || len(views) != 1 || len(views[0].Options) != 3 {
		t.Fatalf("game questions: %v %+v", err, views)
	}

	session, err := s.sessions.Start(ctx, user.ID, "easy", "classic")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	live, err := s.sessions.Live(ctx, user.ID)
	if err != nil || len(live) != 1 || live[0] != session.ID {
		t.Fatalf("expected live session in redis, got %v %v", live, err)
	}

	res, err := s.grader.GradeAnswer(ctx, user.ID, domain.Submission{
		SessionID:  session.ID,
		QuestionID: q.ID,
		OptionID:   q.Options[1].ID,
	})
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if !res.Attempt.Correct || res.Balance != 60 || res.SessionPoints != 60 {
		t.Fatalf("unexpected grade result %+v", res)
	}

	hint, err := s.hints.PurchaseHint(ctx, user.ID, q.ID)
	if err != nil {
		t.Fatalf("hint: %v", err)
	}
	if hint.Balance != 10 {
		t.Fatalf("expected 10 points after hint, got %d", hint.Balance)
	}
	if _, err := s.hints.PurchaseHint(ctx, user.ID, q.ID); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	if _, err := s.sessions.Finish(ctx, user.ID, session.ID); err != nil {
		t.Fatalf("finish: %v", err)
	}
	profile, err := s.accounts.Profile(ctx, user.ID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.TotalPoints != 10 || profile.QuestionsAnswered != 1 || profile.CorrectAnswers != 1 {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if len(profile.History) != 1 || profile.History[0].QuestionText != q.Text {
		t.Fatalf("unexpected history %+v", profile.History)
	}
}

func TestConcurrentPurchasesOnPostgres(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, ctx)

	user, err := s.accounts.Register(ctx, domain.Registration{Username: "bob", Email: "bob@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := s.ledger.Credit(ctx, user.ID, 100); err != nil {
		t.Fatalf("credit: %v", err)
	}
	adv, err := s.shop.CreateAdvantage(ctx, domain.Advantage{Name: "Double points", Cost: 30})
	if err != nil {
		t.Fatalf("create advantage: %v", err)
	}

	const buyers = 8
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		bought int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.shop.BuyAdvantage(ctx, user.ID, adv.ID)
			switch {
			case err == nil:
				mu.Lock()
				bought++
				mu.Unlock()
			case errors.Is(err, domain.ErrInsufficientFunds), errors.Is(err, domain.ErrConflict):
			default:
				t.Errorf("buy: %v", err)
			}
		}()
	}
	wg.Wait()

	balance, err := s.ledger.Balance(ctx, user.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bought > 3 || balance != 100-int64(bought)*30 {
		t.Fatalf("points not conserved: bought=%d balance=%d", bought, balance)
	}
	purchases, err := s.shop.Purchases(ctx, user.ID, false)
	if err != nil || len(purchases) != bought {
		t.Fatalf("expected %d purchase records, got %d (%v)", bought, len(purchases), err)
	}
}

func TestCatalogConstraintsOnPostgres(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, ctx)

	user, err := s.accounts.Register(ctx, domain.Registration{Username: "cy", Email: "cy@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := s.ledger.Credit(ctx, user.ID, 100); err != nil {
		t.Fatalf("credit: %v", err)
	}
	gold, _ := s.shop.CreateCosmetic(ctx, domain.Cosmetic{Name: "Gold", Type: "frame", Cost: 10})
	silver, _ := s.shop.CreateCosmetic(ctx, domain.Cosmetic{Name: "Silver", Type: "frame", Cost: 10})
	first, err := s.shop.BuyCosmetic(ctx, user.ID, gold.ID)
	if err != nil {
		t.Fatalf("buy gold: %v", err)
	}
	second, err := s.shop.BuyCosmetic(ctx, user.ID, silver.ID)
	if err != nil {
		t.Fatalf("buy silver: %v", err)
	}
	if _, err := s.shop.ActivateCosmetic(ctx, user.ID, first.ID); err != nil {
		t.Fatalf("activate gold: %v", err)
	}
	if _, err := s.shop.ActivateCosmetic(ctx, user.ID, second.ID); err != nil {
		t.Fatalf("activate silver: %v", err)
	}
	items, err := s.shop.Inventory(ctx, user.ID)
	if err != nil {
		t.Fatalf("inventory: %v", err)
	}
	active := 0
	for _, it := range items {
		if it.Active {
			active++
			if it.ID != second.ID {
				t.Fatalf("expected silver active, got %+v", it)
			}
		}
	}
	if active != 1 {
		t.Fatalf("expected one active frame, got %d", active)
	}

	adv, _ := s.shop.CreateAdvantage(ctx, domain.Advantage{Name: "Skip", Cost: 5})
	p, err := s.shop.BuyAdvantage(ctx, user.ID, adv.ID)
	if err != nil {
		t.Fatalf("buy advantage: %v", err)
	}
	q, _ := s.bank.Create(ctx, domain.Question{
		Text: "Pick B", Difficulty: "easy", PointsAwarded: 1,
		Options: []domain.ResponseOption{{Text: "A"}, {Text: "B", Correct: true}},
	})
	session, _ := s.sessions.Start(ctx, user.ID, "easy", "")
	sub := domain.Submission{SessionID: session.ID, QuestionID: q.ID, OptionID: q.Options[0].ID, AdvantageUsed: true, PurchaseID: &p.ID}
	if _, err := s.grader.GradeAnswer(ctx, user.ID, sub); err != nil {
		t.Fatalf("grade with advantage: %v", err)
	}
	if _, err := s.grader.GradeAnswer(ctx, user.ID, sub); !errors.Is(err, domain.ErrAdvantageAlreadyUsed) {
		t.Fatalf("expected reuse to be rejected, got %v", err)
	}

	if err := s.accounts.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, err := s.ledger.Balance(ctx, user.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected account gone with its user, got %v", err)
	}
}

func TestSessionWritesRespectConcurrentCommitsOnPostgres(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, ctx)

	user, err := s.accounts.Register(ctx, domain.Registration{Username: "ana", Email: "ana@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	q, err := s.bank.Create(ctx, domain.Question{
		Text:          "Capital of Peru?",
		Difficulty:    "easy",
		PointsAwarded: 25,
		Options:       []domain.ResponseOption{{Text: "Lima", Correct: true}, {Text: "Quito"}},
	})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}

	// a correct answer commits between another transaction's read and its write
	session, _ := s.sessions.Start(ctx, user.ID, "easy", "classic")
	err = s.uow.Do(ctx, func(ctx context.Context, r app.Repositories) error {
		if _, err := r.Sessions().FindByID(ctx, session.ID); err != nil {
			return err
		}
		if _, err := s.grader.GradeAnswer(ctx, user.ID, domain.Submission{
			SessionID: session.ID, QuestionID: q.ID, OptionID: q.Options[0].ID,
		}); err != nil {
			return fmt.Errorf("concurrent grade: %w", err)
		}
		_, err := r.Sessions().RecordAnswer(ctx, session.ID, q.ID, false, 0)
		return err
	})
	if err != nil {
		t.Fatalf("record answer: %v", err)
	}
	got, _ := s.sessions.Get(ctx, user.ID, session.ID)
	if got.PointsEarned != 25 {
		t.Fatalf("session total overwritten: want 25, got %d", got.PointsEarned)
	}

	// a finish commits between another transaction's read and its write
	err = s.uow.Do(ctx, func(ctx context.Context, r app.Repositories) error {
		if _, err := r.Sessions().FindByID(ctx, session.ID); err != nil {
			return err
		}
		if _, err := s.sessions.Finish(ctx, user.ID, session.ID); err != nil {
			return fmt.Errorf("concurrent finish: %w", err)
		}
		_, err := r.Sessions().RecordAnswer(ctx, session.ID, q.ID, true, 25)
		return err
	})
	if !errors.Is(err, domain.ErrSessionFinished) {
		t.Fatalf("expected session finished, got %v", err)
	}
	got, _ = s.sessions.Get(ctx, user.ID, session.ID)
	if got.Status != domain.SessionFinished || got.FinishedAt == nil || got.PointsEarned != 25 {
		t.Fatalf("finished session was rewritten: %+v", got)
	}
}

func newStack(t *testing.T, ctx context.Context) *stack {
	t.Helper()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	t.Cleanup(pgCleanup)
	redisURL, redisCleanup := startRedis(t, ctx)
	t.Cleanup(redisCleanup)

	migrateSchema(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	t.Cleanup(pool.Close)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	t.Cleanup(func() { _ = redisClient.Close() })

	uow := postgres.NewStore(pool)
	tracker := infraredis.NewSessionTracker(redisClient, 5*time.Minute)
	questionPool := infraredis.NewQuestionPool(redisClient, app.NewStoredQuestions(uow), 5*time.Minute)
	opts := []app.Option{
		app.WithRetryPolicy(app.RetryPolicy{MaxAttempts: 20, InitialInterval: 2 * time.Millisecond, MaxInterval: 20 * time.Millisecond}),
	}
	ledger := app.NewLedger(uow, app.NewBalanceFeed(), opts...)
	return &stack{
		uow:      uow,
		ledger:   ledger,
		bank:     app.NewQuestionBank(uow, questionPool, 0, opts...),
		sessions: app.NewSessionManager(uow, tracker, opts...),
		grader:   app.NewGrader(ledger, tracker, opts...),
		shop:     app.NewStoreService(uow, ledger, opts...),
		hints:    app.NewHintGenerator(ledger, 0, opts...),
		accounts: app.NewAccounts(uow, auth.NewBcryptHasher(bcrypt.MinCost), auth.NewTokenService("it-secret", time.Hour), nil, app.AccountsConfig{}, opts...),
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateSchema(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
