// Package auth exchanges an identity-provider credential for the bearer
// token used by uploads.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	v1 "github.com/lia-lab/lia-sync/internal/api/v1"
	"github.com/lia-lab/lia-sync/internal/core/storage"
)

const DefaultLoginPath = "/users/google"

var (
	// ErrNoToken is returned when the server accepts the login but sends no token.
	ErrNoToken = errors.New("login response carried no token")

	// ErrLoginRejected is returned for a non-2xx login response.
	ErrLoginRejected = errors.New("login rejected")
)

// Client performs the login call and persists the resulting token.
type Client struct {
	http *resty.Client
	path string
	kv   storage.KVStore
}

// NewClient creates a login client against baseURL.
func NewClient(baseURL, path string, timeout time.Duration, kv storage.KVStore) *Client {
	if path == "" {
		path = DefaultLoginPath
	}
	rc := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		rc.SetTimeout(timeout)
	}
	return &Client{http: rc, path: path, kv: kv}
}

// Login posts the credential and stores a non-blank token under auth/jwt_token.
func (c *Client) Login(ctx context.Context, email, credential string) (v1.LoginResponse, error) {
	var out v1.LoginResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(v1.LoginRequest{Email: email, Credential: credential}).
		SetResult(&out).
		Post(c.path)
	if err != nil {
		return v1.LoginResponse{}, fmt.Errorf("login request: %w", err)
	}
	if resp.IsError() {
		slog.Warn("[Auth] Login rejected", "status", resp.StatusCode(), "email", email)
		return v1.LoginResponse{}, fmt.Errorf("%w: status %d", ErrLoginRejected, resp.StatusCode())
	}

	token := strings.TrimSpace(out.Data.Token)
	if token == "" {
		return out, ErrNoToken
	}

	if err := c.kv.SetMany(ctx, storage.NamespaceAuth, map[string]string{storage.KeyJWTToken: token}); err != nil {
		return out, fmt.Errorf("store token: %w", err)
	}

	slog.Info("[Auth] Logged in", "user_id", out.Data.User.ID, "email", out.Data.User.Email)
	return out, nil
}
