package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"quiz-play-service/internal/domain"
)

const (
	// DefaultResetTTL is how long a password reset token stays valid.
	DefaultResetTTL = time.Hour
	// HistoryLimit caps the number of history entries in a profile.
	HistoryLimit = 50
)

// AccountsConfig holds the settings of the account service.
type AccountsConfig struct {
	AdminCode string
	ResetTTL  time.Duration
}

// Accounts manages registration, authentication, password recovery and profiles.
type Accounts struct {
	uow      UnitOfWork
	hasher   PasswordHasher
	tokens   TokenIssuer
	mailer   Mailer
	identity IdentityVerifier
	cfg      AccountsConfig
	now      func() time.Time
	logger   *slog.Logger
}

// NewAccounts builds the service. mailer may be nil.
func NewAccounts(uow UnitOfWork, hasher PasswordHasher, tokens TokenIssuer, mailer Mailer, cfg AccountsConfig, opts ...Option) *Accounts {
	o := buildOptions(opts)
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = DefaultResetTTL
	}
	return &Accounts{
		uow:      uow,
		hasher:   hasher,
		tokens:   tokens,
		mailer:   mailer,
		identity: o.identity,
		cfg:      cfg,
		now:      o.now,
		logger:   o.logger,
	}
}

// Register creates a user and its zero balance account together.
func (a *Accounts) Register(ctx context.Context, reg domain.Registration) (domain.User, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	if reg.Username == "" || reg.Email == "" || reg.Password == "" {
		return domain.User{}, domain.ErrMissingField
	}
	hash, err := a.hasher.HashPassword(reg.Password)
	if err != nil {
		return domain.User{}, err
	}
	role := domain.RoleUser
	if a.cfg.AdminCode != "" && reg.AdminCode == a.cfg.AdminCode {
		role = domain.RoleAdmin
	}
	user := domain.User{
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: hash,
		DisplayName:  reg.DisplayName,
		Role:         role,
		Level:        domain.DefaultLevel,
		RegisteredAt: a.now(),
	}
	err = a.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		if err := r.Users().Create(ctx, &user); err != nil {
			return err
		}
		return r.Points().Create(ctx, user.ID)
	})
	if err != nil {
		return domain.User{}, err
	}
	a.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	if a.mailer != nil {
		if err := a.mailer.SendRegistrationEmail(ctx, user.Email, user.Username); err != nil {
			a.logger.Error("registration email failed", "user_id", user.ID, "error", err)
		}
	}
	return user, nil
}

// Login authenticates by username or email and issues a bearer token.
func (a *Accounts) Login(ctx context.Context, usernameOrEmail, password string) (domain.LoginResult, error) {
	var user domain.User
	err := a.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		var err error
		user, err = r.Users().FindByUsername(ctx, usernameOrEmail)
		if errors.Is(err, domain.ErrNotFound) {
			user, err = r.Users().FindByEmail(ctx, usernameOrEmail)
		}
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		return domain.LoginResult{}, domain.ErrBadCredentials
	}
	if err != nil {
		return domain.LoginResult{}, err
	}
	if err := a.hasher.ComparePassword(user.PasswordHash, password); err != nil {
		return domain.LoginResult{}, domain.ErrBadCredentials
	}
	token, _, err := a.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return domain.LoginResult{}, err
	}
	return domain.LoginResult{User: user, Token: token}, nil
}

// LoginWithGoogle signs in the owner of a verified identity token. An unknown
// email gets a new player account with a zero balance and an unusable password.
func (a *Accounts) LoginWithGoogle(ctx context.Context, idToken string) (domain.LoginResult, error) {
	if a.identity == nil {
		return domain.LoginResult{}, domain.ErrIdentityDisabled
	}
	if strings.TrimSpace(idToken) == "" {
		return domain.LoginResult{}, domain.ErrMissingField
	}
	identity, err := a.identity.VerifyIDToken(ctx, idToken)
	if err != nil {
		return domain.LoginResult{}, err
	}
	if identity.Email == "" {
		return domain.LoginResult{}, domain.ErrIdentityRejected
	}
	// hashed up front so the transaction never waits on bcrypt
	hash, err := a.hasher.HashPassword(uuid.NewString())
	if err != nil {
		return domain.LoginResult{}, err
	}

	var (
		user    domain.User
		created bool
	)
	err = a.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		var err error
		created = false
		user, err = r.Users().FindByEmail(ctx, identity.Email)
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		username, err := a.freeUsername(ctx, r, identity.Email)
		if err != nil {
			return err
		}
		displayName := identity.Name
		if displayName == "" {
			displayName = username
		}
		user = domain.User{
			Username:     username,
			Email:        identity.Email,
			PasswordHash: hash,
			DisplayName:  displayName,
			Role:         domain.RoleUser,
			Level:        domain.DefaultLevel,
			RegisteredAt: a.now(),
		}
		if err := r.Users().Create(ctx, &user); err != nil {
			return err
		}
		created = true
		return r.Points().Create(ctx, user.ID)
	})
	if err != nil {
		return domain.LoginResult{}, err
	}
	if created {
		a.logger.Info("user registered", "user_id", user.ID, "role", user.Role, "provider", "google")
	}
	token, _, err := a.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return domain.LoginResult{}, err
	}
	return domain.LoginResult{User: user, Token: token}, nil
}

// freeUsername derives a username from the local part of email, suffixed when taken.
func (a *Accounts) freeUsername(ctx context.Context, r Repositories, email string) (string, error) {
	base, _, _ := strings.Cut(email, "@")
	candidate := base
	for i := 0; i < 5; i++ {
		_, err := r.Users().FindByUsername(ctx, candidate)
		if errors.Is(err, domain.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = base + "-" + uuid.NewString()[:8]
	}
	return "", domain.ErrUsernameTaken
}

// ForgotPassword replaces any outstanding reset token of the user with a new
// one and mails it after commit.
func (a *Accounts) ForgotPassword(ctx context.Context, email string) error {
	var (
		user  domain.User
		token domain.PasswordResetToken
	)
	err := a.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		var err error
		user, err = r.Users().FindByEmail(ctx, strings.TrimSpace(email))
		if err != nil {
			return err
		}
		if err := r.ResetTokens().DeleteByUser(ctx, user.ID); err != nil {
			return err
		}
		token = domain.PasswordResetToken{
			UserID:    user.ID,
			Token:     uuid.NewString(),
			ExpiresAt: a.now().Add(a.cfg.ResetTTL),
		}
		return r.ResetTokens().Create(ctx, &token)
	})
	if err != nil {
		return err
	}
	if a.mailer != nil {
		if err := a.mailer.SendPasswordResetEmail(ctx, user.Email, token.Token); err != nil {
			a.logger.Error("password reset email failed", "user_id", user.ID, "error", err)
		}
	}
	return nil
}

// ResetPassword consumes a reset token and stores the new password hash.
func (a *Accounts) ResetPassword(ctx context.Context, tokenString, newPassword string) error {
	if newPassword == "" {
		return domain.ErrMissingField
	}
	hash, err := a.hasher.HashPassword(newPassword)
	if err != nil {
		return err
	}
	expired := false
	err = a.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		token, err := r.ResetTokens().FindByToken(ctx, tokenString)
		if err != nil {
			return err
		}
		if token.ExpiresAt.Before(a.now()) {
			// expired tokens are removed; the commit keeps the deletion
			expired = true
			return r.ResetTokens().Delete(ctx, token.ID)
		}
		user, err := r.Users().FindByID(ctx, token.UserID)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
		if err := r.Users().Update(ctx, user); err != nil {
			return err
		}
		return r.ResetTokens().Delete(ctx, token.ID)
	})
	if err != nil {
		return err
	}
	if expired {
		return domain.ErrResetTokenExpired
	}
	return nil
}

// Profile assembles the user, balance and answer statistics.
func (a *Accounts) Profile(ctx context.Context, userID int64) (domain.Profile, error) {
	var profile domain.Profile
	err := a.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		user, err := r.Users().FindByID(ctx, userID)
		if err != nil {
			return err
		}
		acct, err := r.Points().Get(ctx, userID)
		if err != nil {
			return err
		}
		attempts, err := r.Attempts().ListByUser(ctx, userID)
		if err != nil {
			return err
		}

		texts := make(map[int64]string)
		history := make([]domain.HistoryEntry, 0, min(len(attempts), HistoryLimit))
		correct := 0
		for i, at := range attempts {
			if at.Correct {
				correct++
			}
			if i >= HistoryLimit {
				continue
			}
			text, ok := texts[at.QuestionID]
			if !ok {
				q, err := r.Questions().FindByID(ctx, at.QuestionID)
				switch {
				case err == nil:
					text = q.Text
				case !errors.Is(err, domain.ErrNotFound):
					return err
				}
				texts[at.QuestionID] = text
			}
			history = append(history, domain.HistoryEntry{
				SessionID:    at.SessionID,
				QuestionText: text,
				Correct:      at.Correct,
				PointsEarned: at.PointsGained,
				AnsweredAt:   at.CreatedAt,
			})
		}

		profile = domain.Profile{
			User:              user,
			TotalPoints:       acct.TotalPoints,
			QuestionsAnswered: len(attempts),
			CorrectAnswers:    correct,
			History:           history,
		}
		if len(attempts) > 0 {
			profile.CorrectPercentage = float64(correct) / float64(len(attempts)) * 100
		}
		return nil
	})
	return profile, err
}

// UpdateProfile changes the display name and/or email. Nil fields are left as is.
func (a *Accounts) UpdateProfile(ctx context.Context, userID int64, displayName, email *string) (domain.User, error) {
	var user domain.User
	err := a.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		var err error
		user, err = r.Users().FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if displayName != nil {
			user.DisplayName = *displayName
		}
		if email != nil {
			if strings.TrimSpace(*email) == "" {
				return domain.ErrMissingField
			}
			user.Email = strings.TrimSpace(*email)
		}
		return r.Users().Update(ctx, user)
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (a *Accounts) ListUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := a.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		var err error
		users, err = r.Users().List(ctx)
		return err
	})
	return users, err
}

// UpdateUser lets an admin change role and level. Nil fields are left as is.
func (a *Accounts) UpdateUser(ctx context.Context, userID int64, role *domain.Role, level *string) (domain.User, error) {
	if role != nil && *role != domain.RoleUser && *role != domain.RoleAdmin {
		return domain.User{}, domain.ErrInvalidRole
	}
	var user domain.User
	err := a.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		var err error
		user, err = r.Users().FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if role != nil {
			user.Role = *role
		}
		if level != nil {
			user.Level = *level
		}
		return r.Users().Update(ctx, user)
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// DeleteUser removes a user with every dependent record.
func (a *Accounts) DeleteUser(ctx context.Context, userID int64) error {
	err := a.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		return r.Users().Delete(ctx, userID)
	})
	if err != nil {
		return err
	}
	a.logger.Info("user deleted", "user_id", userID)
	return nil
}

// EnsureAdmin registers an administrator unless the username already exists.
func (a *Accounts) EnsureAdmin(ctx context.Context, username, email, password string) (domain.User, bool, error) {
	var existing domain.User
	err := a.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		var err error
		existing, err = r.Users().FindByUsername(ctx, username)
		return err
	})
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, false, err
	}

	hash, err := a.hasher.HashPassword(password)
	if err != nil {
		return domain.User{}, false, err
	}
	user := domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		DisplayName:  username,
		Role:         domain.RoleAdmin,
		Level:        domain.DefaultLevel,
		RegisteredAt: a.now(),
	}
	err = a.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		if err := r.Users().Create(ctx, &user); err != nil {
			return err
		}
		return r.Points().Create(ctx, user.ID)
	})
	if err != nil {
		return domain.User{}, false, err
	}
	a.logger.Info("admin account created", "user_id", user.ID, "username", username)
	return user, true, nil
}
