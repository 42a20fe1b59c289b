package google

import (
	"context"
	"fmt"

	"github.com/go-auth-api/internal/domain"
	"google.golang.org/api/idtoken"
)

// Verifier verifies Google ID tokens against a specific client ID.
type Verifier struct {
	clientID string
}

func NewVerifier(clientID string) *Verifier {
	return &Verifier{clientID: clientID}
}

// Verify validates the Google ID token and returns the profile it vouches
// for. Returns a domain.ErrBadRequest-wrapped error if the token is
// invalid or expired.
func (v *Verifier) Verify(ctx context.Context, token string) (*domain.SocialProfile, error) {
	p, err := idtoken.Validate(ctx, token, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("invalid google token: %w", domain.ErrBadRequest)
	}
	email, _ := p.Claims["email"].(string)
	name, _ := p.Claims["name"].(string)
	picture, _ := p.Claims["picture"].(string)
	return &domain.SocialProfile{
		Subject:   p.Subject,
		Email:     email,
		Name:      name,
		AvatarURL: picture,
	}, nil
}
