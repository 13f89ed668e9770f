package app

import (
	"context"
	"time"

	"quiz-play-service/internal/domain"
)

// UnitOfWork runs fn inside one transaction. Any error returned by fn rolls
// back every write made through the given Repositories.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error
}

// Repositories groups the per-entity stores bound to one transaction.
type Repositories interface {
	Users() UserRepository
	Points() PointsRepository
	Questions() QuestionRepository
	Sessions() SessionRepository
	Attempts() AttemptRepository
	Cosmetics() CosmeticRepository
	Advantages() AdvantageRepository
	Inventory() InventoryRepository
	Purchases() PurchaseRepository
	ResetTokens() ResetTokenRepository
}

// UserRepository stores users. Delete also removes every dependent record.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	FindByID(ctx context.Context, id int64) (domain.User, error)
	FindByUsername(ctx context.Context, username string) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Update(ctx context.Context, u domain.User) error
	Delete(ctx context.Context, id int64) error
}

// PointsRepository stores points accounts with optimistic versioning.
type PointsRepository interface {
	Create(ctx context.Context, userID int64) error
	Get(ctx context.Context, userID int64) (domain.PointsAccount, error)
	// CompareAndSwap stores newTotal only if the stored version still equals
	// acct.Version and returns the account with its bumped version.
	CompareAndSwap(ctx context.Context, acct domain.PointsAccount, newTotal int64) (domain.PointsAccount, error)
}

// QuestionRepository stores questions together with their options.
type QuestionRepository interface {
	// Create assigns ids to the question and its options.
	Create(ctx context.Context, q *domain.Question) error
	// Update replaces the question fields and its whole option set.
	Update(ctx context.Context, q *domain.Question) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (domain.Question, error)
	FindByDifficulty(ctx context.Context, level string) ([]domain.Question, error)
	List(ctx context.Context) ([]domain.Question, error)
	FindOption(ctx context.Context, optionID int64) (domain.ResponseOption, error)
}

// SessionRepository never rewrites a whole session row. RecordAnswer adds to
// the running total only while the stored session is ACTIVE and fails with
// domain.ErrSessionFinished otherwise. Finish moves an ACTIVE session to
// FINISHED and returns an already finished session unchanged.
type SessionRepository interface {
	Create(ctx context.Context, s *domain.GameSession) error
	FindByID(ctx context.Context, id int64) (domain.GameSession, error)
	RecordAnswer(ctx context.Context, sessionID, questionID int64, correct bool, points int64) (domain.GameSession, error)
	Finish(ctx context.Context, sessionID int64, at time.Time) (domain.GameSession, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.GameSession, error)
}

// AttemptRepository is append-only.
type AttemptRepository interface {
	Create(ctx context.Context, a *domain.Attempt) error
	ListBySession(ctx context.Context, sessionID int64) ([]domain.Attempt, error)
	// ListByUser returns the attempts of every session of the user, newest first.
	ListByUser(ctx context.Context, userID int64) ([]domain.Attempt, error)
}

type CosmeticRepository interface {
	Create(ctx context.Context, c *domain.Cosmetic) error
	FindByID(ctx context.Context, id int64) (domain.Cosmetic, error)
	List(ctx context.Context) ([]domain.Cosmetic, error)
	Update(ctx context.Context, c domain.Cosmetic) error
	Delete(ctx context.Context, id int64) error
}

type AdvantageRepository interface {
	Create(ctx context.Context, a *domain.Advantage) error
	FindByID(ctx context.Context, id int64) (domain.Advantage, error)
	List(ctx context.Context) ([]domain.Advantage, error)
	Update(ctx context.Context, a domain.Advantage) error
	Delete(ctx context.Context, id int64) error
}

// InventoryRepository stores owned cosmetics. Update reports domain.ErrSlotTaken
// when it would leave two active items in one (user, slot).
type InventoryRepository interface {
	Create(ctx context.Context, item *domain.InventoryItem) error
	FindByID(ctx context.Context, id int64) (domain.InventoryItem, error)
	FindActive(ctx context.Context, userID int64, slot string) (domain.InventoryItem, bool, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.InventoryItem, error)
	Update(ctx context.Context, item domain.InventoryItem) error
}

// PurchaseRepository stores advantage purchases. Update rejects any change to a
// purchase already stored as used with domain.ErrAdvantageAlreadyUsed.
type PurchaseRepository interface {
	Create(ctx context.Context, p *domain.AdvantagePurchase) error
	FindByID(ctx context.Context, id int64) (domain.AdvantagePurchase, error)
	ListByUser(ctx context.Context, userID int64, unusedOnly bool) ([]domain.AdvantagePurchase, error)
	Update(ctx context.Context, p domain.AdvantagePurchase) error
}

// ResetTokenRepository reports unknown tokens as domain.ErrResetTokenInvalid.
type ResetTokenRepository interface {
	Create(ctx context.Context, t *domain.PasswordResetToken) error
	FindByToken(ctx context.Context, token string) (domain.PasswordResetToken, error)
	Delete(ctx context.Context, id int64) error
	DeleteByUser(ctx context.Context, userID int64) error
}

// QuestionPool serves the questions of a difficulty level, usually from a cache.
type QuestionPool interface {
	Questions(ctx context.Context, level string) ([]domain.Question, error)
	Invalidate(ctx context.Context, level string) error
}

// SessionTracker keeps best-effort liveness markers for active sessions.
type SessionTracker interface {
	MarkLive(ctx context.Context, userID, sessionID int64) error
	Clear(ctx context.Context, userID, sessionID int64) error
	Live(ctx context.Context, userID int64) ([]int64, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePassword(hash, password string) error
}

// TokenIssuer signs bearer tokens carrying the user id and role.
type TokenIssuer interface {
	Issue(userID int64, role domain.Role) (string, time.Time, error)
}

// IdentityVerifier checks an identity provider token and returns its verified subject.
type IdentityVerifier interface {
	VerifyIDToken(ctx context.Context, token string) (domain.ExternalIdentity, error)
}

// Mailer delivers account emails. Failures never roll back the caller.
type Mailer interface {
	SendRegistrationEmail(ctx context.Context, address, username string) error
	SendPasswordResetEmail(ctx context.Context, address, token string) error
}
