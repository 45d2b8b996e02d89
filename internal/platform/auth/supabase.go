package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/diagnosis/sai-platform/pkg/config"
)

// ErrRejected means the provider answered but refused the request
// (bad credentials, duplicate account, weak password).
var ErrRejected = errors.New("auth provider rejected request")

type ProviderUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type ProviderSession struct {
	AccessToken string       `json:"access_token"`
	User        ProviderUser `json:"user"`
}

// Provider is an external identity service that owns password checks.
type Provider interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]string) (*ProviderUser, error)
	SignIn(ctx context.Context, email, password string) (*ProviderSession, error)
	SignOut(ctx context.Context, accessToken string) error
}

// SupabaseClient talks to the Supabase GoTrue REST API with the anon key.
type SupabaseClient struct {
	baseURL string
	anonKey string
	client  *http.Client
}

var _ Provider = (*SupabaseClient)(nil)

func NewSupabaseClient(cfg config.SupabaseConfig) *SupabaseClient {
	return &SupabaseClient{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		anonKey: cfg.AnonKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *SupabaseClient) SignUp(ctx context.Context, email, password string, metadata map[string]string) (*ProviderUser, error) {
	body := map[string]any{"email": email, "password": password}
	if len(metadata) > 0 {
		body["data"] = metadata
	}

	// With email confirmation on, GoTrue returns the bare user; otherwise
	// it returns a session wrapping the user.
	var out struct {
		ProviderUser
		User *ProviderUser `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", "", body, &out); err != nil {
		return nil, err
	}
	if out.User != nil && out.User.ID != "" {
		return out.User, nil
	}
	if out.ID == "" {
		return nil, errors.New("supabase signup: response without user")
	}
	return &out.ProviderUser, nil
}

func (c *SupabaseClient) SignIn(ctx context.Context, email, password string) (*ProviderSession, error) {
	var out ProviderSession
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", body, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, errors.New("supabase signin: response without access token")
	}
	return &out, nil
}

func (c *SupabaseClient) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil)
}

func (c *SupabaseClient) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var reader io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("supabase %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: status=%d body=%s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("supabase %s: status=%d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("supabase %s: decode: %w", path, err)
	}
	return nil
}
