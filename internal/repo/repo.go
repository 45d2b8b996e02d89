// Package repo defines the storage contract shared by the memory and
// Postgres stores, and picks which one a process runs on.
package repo

import (
	"context"
	"errors"
	"net/url"

	"github.com/diagnosis/sai-platform/internal/domain"
	"github.com/diagnosis/sai-platform/pkg/config"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

type Store interface {
	CreateUser(ctx context.Context, u *domain.NewUser) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByUsernameOrEmail(ctx context.Context, login string) (*domain.User, error)
	GetUserByVerificationToken(ctx context.Context, token string) (*domain.User, error)
	MarkUserVerified(ctx context.Context, id int64) error

	CreateContactSubmission(ctx context.Context, in *domain.ContactInput) (*domain.ContactSubmission, error)
	ListContactSubmissions(ctx context.Context) ([]domain.ContactSubmission, error)

	CreateNewsletterSubscription(ctx context.Context, email string) (*domain.NewsletterSubscription, error)
	GetNewsletterSubscriptionByEmail(ctx context.Context, email string) (*domain.NewsletterSubscription, error)
	ListNewsletterSubscriptions(ctx context.Context) ([]domain.NewsletterSubscription, error)

	CreateRequest(ctx context.Context, in *domain.RequestInput) (*domain.Request, error)
	ListRequests(ctx context.Context) ([]domain.Request, error)

	Ping(ctx context.Context) error
	Close()
}

type BackendKind string

const (
	BackendMemory   BackendKind = "memory"
	BackendPostgres BackendKind = "postgres"
)

// Backend is the storage decision made once at startup.
type Backend struct {
	Kind BackendKind
	// DSN is set for BackendPostgres only. Credentials from DB_USER and
	// DB_PASSWORD are folded in when the URL carries none.
	DSN    string
	Reason string
}

// SelectBackend returns Postgres when a database URL and credentials are
// both present, and memory otherwise.
func SelectBackend(cfg config.DatabaseConfig) Backend {
	if cfg.URL == "" {
		return Backend{Kind: BackendMemory, Reason: "DATABASE_URL not set"}
	}
	if !cfg.HasCredentials() {
		return Backend{Kind: BackendMemory, Reason: "database credentials not set"}
	}
	return Backend{Kind: BackendPostgres, DSN: dsn(cfg), Reason: "database configured"}
}

func dsn(cfg config.DatabaseConfig) string {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return cfg.URL
	}
	if (u.User == nil || u.User.Username() == "") && cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
		return u.String()
	}
	return cfg.URL
}
