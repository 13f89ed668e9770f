package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every specific error below wraps exactly one of them so the
// boundary can classify failures with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrConflict          = errors.New("conflict")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenInvalid      = errors.New("token invalid")
	ErrUnauthenticated   = errors.New("unauthenticated")
)

var (
	// ErrUserNotFound is returned when a user id, username or email is unknown.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	// ErrAccountNotFound is returned when a user has no points account.
	ErrAccountNotFound = fmt.Errorf("points account %w", ErrNotFound)
	// ErrSessionNotFound is returned when a game session does not exist.
	ErrSessionNotFound = fmt.Errorf("game session %w", ErrNotFound)
	// ErrQuestionNotFound indicates a question id is unknown.
	ErrQuestionNotFound = fmt.Errorf("question %w", ErrNotFound)
	// ErrOptionNotFound indicates a response option id is unknown.
	ErrOptionNotFound = fmt.Errorf("response option %w", ErrNotFound)
	ErrCosmeticNotFound  = fmt.Errorf("cosmetic %w", ErrNotFound)
	ErrAdvantageNotFound = fmt.Errorf("advantage %w", ErrNotFound)
	ErrInventoryNotFound = fmt.Errorf("inventory item %w", ErrNotFound)
	ErrPurchaseNotFound  = fmt.Errorf("advantage purchase %w", ErrNotFound)

	// ErrInvalidOption is returned when a submitted option does not exist.
	ErrInvalidOption = fmt.Errorf("%w: selected option does not exist", ErrInvalidArgument)
	// ErrOptionMismatch is returned when the option belongs to another question.
	ErrOptionMismatch = fmt.Errorf("%w: selected option does not belong to the question", ErrInvalidArgument)
	// ErrNoCorrectOption rejects questions without exactly one correct option.
	ErrNoCorrectOption = fmt.Errorf("%w: question must have exactly one correct option", ErrInvalidArgument)
	ErrSessionFinished = fmt.Errorf("%w: game session already finished", ErrInvalidArgument)
	ErrNegativeAmount  = fmt.Errorf("%w: amount must not be negative", ErrInvalidArgument)
	ErrMissingField    = fmt.Errorf("%w: required field missing", ErrInvalidArgument)
	ErrInvalidRole     = fmt.Errorf("%w: unknown role", ErrInvalidArgument)

	// ErrInsufficientPoints is returned when a debit exceeds the balance.
	ErrInsufficientPoints = fmt.Errorf("not enough points: %w", ErrInsufficientFunds)

	// ErrVersionMismatch reports a concurrent write on a points account.
	ErrVersionMismatch      = fmt.Errorf("points account modified concurrently: %w", ErrConflict)
	// ErrSessionChanged reports a session finished by a concurrent transaction.
	ErrSessionChanged       = fmt.Errorf("game session modified concurrently: %w", ErrConflict)
	ErrUsernameTaken        = fmt.Errorf("username already registered: %w", ErrConflict)
	ErrEmailTaken           = fmt.Errorf("email already registered: %w", ErrConflict)
	ErrAdvantageAlreadyUsed = fmt.Errorf("advantage already used: %w", ErrConflict)
	ErrSlotTaken            = fmt.Errorf("another cosmetic is active in this slot: %w", ErrConflict)

	ErrNotOwner = fmt.Errorf("%w: resource belongs to another user", ErrPermissionDenied)

	ErrResetTokenExpired = fmt.Errorf("password reset %w", ErrTokenExpired)
	ErrResetTokenInvalid = fmt.Errorf("password reset %w", ErrTokenInvalid)

	ErrBadCredentials = fmt.Errorf("invalid username or password: %w", ErrUnauthenticated)

	// ErrIdentityRejected is returned for an external identity token that fails verification.
	ErrIdentityRejected = fmt.Errorf("identity token rejected: %w", ErrUnauthenticated)
	ErrIdentityDisabled = fmt.Errorf("external sign-in is not configured: %w", ErrUnauthenticated)
)
