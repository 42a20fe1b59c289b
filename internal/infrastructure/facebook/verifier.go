package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-auth-api/internal/domain"
)

// Verifier exchanges a Facebook access token for the profile it belongs
// to via the Graph API.
type Verifier struct {
	baseURL string
	client  *http.Client
}

func NewVerifier(baseURL string) *Verifier {
	return &Verifier{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type graphMeResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Verify calls /me with the given access token. Returns a
// domain.ErrBadRequest-wrapped error if the token is rejected.
func (v *Verifier) Verify(ctx context.Context, token string) (*domain.SocialProfile, error) {
	endpoint := fmt.Sprintf("%s/me?fields=id,name,email,picture&access_token=%s", v.baseURL, url.QueryEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("facebook graph request failed: %w", domain.ErrBadRequest)
	}
	defer resp.Body.Close()

	var me graphMeResponse
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		return nil, fmt.Errorf("facebook graph response malformed: %w", domain.ErrBadRequest)
	}
	if me.Error != nil || me.ID == "" {
		return nil, fmt.Errorf("invalid facebook token: %w", domain.ErrBadRequest)
	}

	email := me.Email
	if email == "" {
		// Facebook withholds the email for some accounts; fall back to a
		// provider-scoped address so the account still has a stable key.
		email = me.ID + "@facebook.com"
	}
	return &domain.SocialProfile{
		Subject:   me.ID,
		Email:     email,
		Name:      me.Name,
		AvatarURL: me.Picture.Data.URL,
	}, nil
}
