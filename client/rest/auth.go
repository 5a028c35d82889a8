package rest

import (
	"context"
	"net/http"
	"net/url"

	"github.com/vibesocial/backend/domain"
)

// RegisterRequest carries the fields collected by the signup form.
type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Gender    string `json:"gender,omitempty"`
	BirthDate string `json:"birth_date,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// LoginResult is a confirmed login: the issued bearer token plus the
// authenticated profile.
type LoginResult struct {
	Token string
	User  *domain.User
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Register creates an account. The account starts unverified and cannot
// log in until the email is confirmed.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for a bearer token and resolves the profile
// behind it.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	body := map[string]string{"email": email, "password": password}
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", body, &resp); err != nil {
		return nil, err
	}
	user, err := c.Me(ctx, resp.AccessToken)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: resp.AccessToken, User: user}, nil
}

// Me fetches the profile behind the token, always bypassing local caches.
func (c *Client) Me(ctx context.Context, token string) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CompleteOnboarding marks the first-run flow complete for the token's user.
func (c *Client) CompleteOnboarding(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/auth/complete-onboarding", token, nil, nil)
}

// Logout revokes the token's server-side session.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", token, nil, nil)
}

// CheckEmail reports whether an account already exists for the email.
func (c *Client) CheckEmail(ctx context.Context, email string) (bool, error) {
	var resp struct {
		Exists bool `json:"exists"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/check-email?email="+url.QueryEscape(email), "", nil, &resp); err != nil {
		return false, err
	}
	return resp.Exists, nil
}
