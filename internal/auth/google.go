package auth

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"
	"quiz-play-service/internal/domain"
)

// GoogleVerifier validates Google ID tokens issued for one OAuth client.
type GoogleVerifier struct {
	clientID string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID, validate: idtoken.Validate}
}

// VerifyIDToken checks signature, audience and expiry, and requires a verified email.
func (v *GoogleVerifier) VerifyIDToken(ctx context.Context, token string) (domain.ExternalIdentity, error) {
	payload, err := v.validate(ctx, token, v.clientID)
	if err != nil {
		return domain.ExternalIdentity{}, fmt.Errorf("%w: %v", domain.ErrIdentityRejected, err)
	}
	email, _ := payload.Claims["email"].(string)
	verified, _ := payload.Claims["email_verified"].(bool)
	if email == "" || !verified {
		return domain.ExternalIdentity{}, fmt.Errorf("%w: email missing or unverified", domain.ErrIdentityRejected)
	}
	name, _ := payload.Claims["name"].(string)
	return domain.ExternalIdentity{Email: email, Name: name}, nil
}
