package domain

import "time"

// Role is the authorization role carried by a user and its bearer token.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// DefaultLevel is the level label assigned at registration.
const DefaultLevel = "Beginner"

// User is a registered player or administrator.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"displayName"`
	Role         Role      `json:"role"`
	Level        string    `json:"level"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// PointsAccount holds a user's balance. Version increases on every write.
type PointsAccount struct {
	UserID      int64 `json:"userId"`
	TotalPoints int64 `json:"totalPoints"`
	Version     int64 `json:"version"`
}

// ResponseOption is one answer choice of a question.
type ResponseOption struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"questionId"`
	Text       string `json:"text"`
	Correct    bool   `json:"correct"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID            int64            `json:"id"`
	Text          string           `json:"text"`
	Difficulty    string           `json:"difficulty"`
	Category      string           `json:"category"`
	MediaURL      string           `json:"mediaUrl,omitempty"`
	PointsAwarded int64            `json:"pointsAwarded"`
	Options       []ResponseOption `json:"options"`
}

// OptionView is an answer choice as shown to a player during play.
type OptionView struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// QuestionView is the play projection of a question; correctness stays server-side.
type QuestionView struct {
	ID            int64        `json:"id"`
	Text          string       `json:"text"`
	Difficulty    string       `json:"difficulty"`
	Category      string       `json:"category"`
	MediaURL      string       `json:"mediaUrl,omitempty"`
	PointsAwarded int64        `json:"pointsAwarded"`
	Options       []OptionView `json:"options"`
}

// SessionStatus is the lifecycle state of a game session.
type SessionStatus string

const (
	SessionActive   SessionStatus = "ACTIVE"
	SessionFinished SessionStatus = "FINISHED"
)

// GameSession tracks one play-through of a user.
type GameSession struct {
	ID                int64         `json:"id"`
	UserID            int64         `json:"userId"`
	Difficulty        string        `json:"difficulty"`
	GameType          string        `json:"gameType"`
	Status            SessionStatus `json:"status"`
	StartedAt         time.Time     `json:"startedAt"`
	FinishedAt        *time.Time    `json:"finishedAt,omitempty"`
	PointsEarned      int64         `json:"pointsEarned"`
	LastQuestionID    *int64        `json:"lastQuestionId,omitempty"`
	LastAnswerCorrect *bool         `json:"lastAnswerCorrect,omitempty"`
}

// Attempt is the write-once log row of a graded answer.
type Attempt struct {
	ID               int64     `json:"id"`
	SessionID        int64     `json:"sessionId"`
	QuestionID       int64     `json:"questionId"`
	SelectedOptionID int64     `json:"selectedOptionId"`
	Correct          bool      `json:"correct"`
	PointsGained     int64     `json:"pointsGained"`
	ResponseTimeMs   int64     `json:"responseTimeMs"`
	AdvantageUsed    bool      `json:"advantageUsed"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Submission models an answer sent by a player.
type Submission struct {
	SessionID      int64
	QuestionID     int64
	OptionID       int64
	ResponseTimeMs int64
	AdvantageUsed  bool
	// PurchaseID optionally names an unused advantage purchase consumed by this answer.
	PurchaseID *int64
}

// GradeResult summarizes the outcome of a graded answer.
type GradeResult struct {
	Attempt         Attempt `json:"attempt"`
	CorrectOptionID int64   `json:"correctOptionId"`
	SessionPoints   int64   `json:"sessionPoints"`
	Balance         int64   `json:"balance"`
}

// Cosmetic is a profile decoration sold in the store. Type names its slot.
type Cosmetic struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Cost        int64  `json:"cost"`
	ResourceURL string `json:"resourceUrl"`
}

// InventoryItem is a cosmetic owned by a user. Slot is the cosmetic type at purchase time.
type InventoryItem struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"userId"`
	CosmeticID int64     `json:"cosmeticId"`
	Slot       string    `json:"slot"`
	Active     bool      `json:"active"`
	AcquiredAt time.Time `json:"acquiredAt"`
}

// Advantage is a gameplay boost sold in the store.
type Advantage struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Cost        int64  `json:"cost"`
	Effect      string `json:"effect"`
}

// AdvantagePurchase records a bought advantage; Used flips once when consumed.
type AdvantagePurchase struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"userId"`
	AdvantageID int64      `json:"advantageId"`
	Used        bool       `json:"used"`
	PurchasedAt time.Time  `json:"purchasedAt"`
	UsedAt      *time.Time `json:"usedAt,omitempty"`
}

// PasswordResetToken is a single-use credential for resetting a password.
type PasswordResetToken struct {
	ID        int64
	UserID    int64
	Token     string
	ExpiresAt time.Time
}

// Hint is a purchased clue about a question's correct option.
type Hint struct {
	QuestionID int64  `json:"questionId"`
	Text       string `json:"hintText"`
	Balance    int64  `json:"newBalance"`
}

// Balance is a point balance snapshot pushed to subscribers.
type Balance struct {
	UserID      int64     `json:"userId"`
	TotalPoints int64     `json:"totalPoints"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Registration carries the input of a new account.
type Registration struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
	AdminCode   string
}

// ExternalIdentity is the verified subject of an identity provider token.
type ExternalIdentity struct {
	Email string
	Name  string
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// HistoryEntry is one answered question in a profile.
type HistoryEntry struct {
	SessionID    int64     `json:"sessionId"`
	QuestionText string    `json:"questionText"`
	Correct      bool      `json:"correct"`
	PointsEarned int64     `json:"pointsEarned"`
	AnsweredAt   time.Time `json:"answeredAt"`
}

// Profile is the consolidated profile view of a user.
type Profile struct {
	User              User           `json:"user"`
	TotalPoints       int64          `json:"totalPoints"`
	QuestionsAnswered int            `json:"totalQuestionsAnswered"`
	CorrectAnswers    int            `json:"correctAnswersCount"`
	CorrectPercentage float64        `json:"correctPercentage"`
	History           []HistoryEntry `json:"gameHistory"`
}
