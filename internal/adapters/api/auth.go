package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/essencia-app/essencia-cli/internal/domain"
)

type userPayload struct {
	ID             int64  `json:"id"`
	Email          string `json:"email"`
	ProfessionalID int64  `json:"professional_id"`
}

func (u userPayload) toDomain() domain.User {
	return domain.User{ID: u.ID, Email: u.Email, ProfessionalID: u.ProfessionalID}
}

type LoginResult struct {
	Access  string      `json:"access"`
	Refresh string      `json:"refresh"`
	User    userPayload `json:"user"`
}

// Login exchanges credentials for a token pair. It runs without the bearer
// header and without refresh-retry: a 401 here means bad credentials, not an
// expired session.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	payload := map[string]string{"email": email, "password": password}

	var res LoginResult
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login/", payload, &res, true); err != nil {
		return LoginResult{}, err
	}
	if res.Access == "" || res.Refresh == "" {
		return LoginResult{}, errors.New("login response missing token pair")
	}
	return res, nil
}

// Logout asks the backend to revoke the refresh token. Callers treat any
// failure as best-effort; the local session is cleared regardless.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	payload := map[string]string{"refresh_token": refreshToken}
	return c.doJSON(ctx, http.MethodPost, "/auth/logout/", payload, nil, true)
}

// Me fetches the current user's identity. A 404 means the endpoint is absent
// on this backend and is tolerated by the caller.
func (c *Client) Me(ctx context.Context) (domain.User, error) {
	var res userPayload
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me/", nil, &res, false); err != nil {
		return domain.User{}, err
	}
	return res.toDomain(), nil
}

func (c *Client) VerifyEmailToken(ctx context.Context, token string) error {
	payload := map[string]string{"token": token}
	return c.doJSON(ctx, http.MethodPost, "/verify-email-token", payload, nil, true)
}

func (c *Client) ResendVerification(ctx context.Context, email string) error {
	payload := map[string]string{"email": email}
	return c.doJSON(ctx, http.MethodPost, "/resend-verification", payload, nil, true)
}
