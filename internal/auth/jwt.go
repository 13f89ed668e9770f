package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"quiz-play-service/internal/domain"
)

const issuer = "quiz-play-service"

// DefaultTokenTTL is the lifetime of a bearer token when none is configured.
const DefaultTokenTTL = 24 * time.Hour

// TokenService signs and verifies HS256 bearer tokens carrying a user id and role.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for the user and its expiry.
func (s *TokenService) Issue(userID int64, role domain.Role) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies a token and returns its principal.
func (s *TokenService) Parse(tokenString string) (Principal, error) {
	var c claims
	_, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return Principal{}, fmt.Errorf("bearer token expired: %w", domain.ErrUnauthenticated)
	}
	if err != nil {
		return Principal{}, fmt.Errorf("bearer token rejected: %w", domain.ErrUnauthenticated)
	}
	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return Principal{}, fmt.Errorf("bearer token subject: %w", domain.ErrUnauthenticated)
	}
	if c.Role != domain.RoleUser && c.Role != domain.RoleAdmin {
		return Principal{}, fmt.Errorf("bearer token role: %w", domain.ErrUnauthenticated)
	}
	return Principal{UserID: userID, Role: c.Role}, nil
}
