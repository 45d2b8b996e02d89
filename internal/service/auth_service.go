package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/diagnosis/sai-platform/internal/domain"
	"github.com/diagnosis/sai-platform/internal/platform/auth"
	"github.com/diagnosis/sai-platform/internal/platform/mailer"
	"github.com/diagnosis/sai-platform/internal/repo"
	jwtauth "github.com/diagnosis/sai-platform/pkg/auth"
	"github.com/diagnosis/sai-platform/pkg/config"
	"github.com/diagnosis/sai-platform/pkg/events"
	"github.com/diagnosis/sai-platform/pkg/logger"
	"github.com/diagnosis/sai-platform/pkg/metrics"
	"github.com/google/uuid"
)

var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid verification token")
	ErrUserNotFound       = errors.New("user not found")
	ErrProvider           = errors.New("auth provider error")
)

type AuthResult struct {
	User  *domain.User
	Token string
}

type AuthService interface {
	Signup(ctx context.Context, req *domain.SignupRequest) (*AuthResult, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*AuthResult, error)
	Me(ctx context.Context, userID int64) (*domain.User, error)
	Logout(ctx context.Context, claims *jwtauth.Claims) error
	VerifyEmail(ctx context.Context, token string) (*domain.User, error)
}

type authService struct {
	store    repo.Store
	provider auth.Provider
	mail     Mailer
	events   events.Publisher
	metrics  *metrics.Metrics
	config   config.AuthConfig
}

// NewAuthService builds the auth flows. provider may be nil, in which case
// passwords are checked against the local hash.
func NewAuthService(
	store repo.Store,
	provider auth.Provider,
	mail Mailer,
	pub events.Publisher,
	m *metrics.Metrics,
	cfg config.AuthConfig,
) AuthService {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &authService{store: store, provider: provider, mail: mail, events: pub, metrics: m, config: cfg}
}

func (s *authService) Signup(ctx context.Context, req *domain.SignupRequest) (*AuthResult, error) {
	req.Normalize()
	if err := domain.Validate(req); err != nil {
		return nil, err
	}
	ctx, cancel := detach(ctx)
	defer cancel()

	if err := s.checkAvailable(ctx, req.Username, req.Email); err != nil {
		return nil, err
	}

	if s.provider != nil {
		meta := map[string]string{"username": req.Username, "first_name": req.FirstName, "last_name": req.LastName}
		if _, err := s.provider.SignUp(ctx, req.Email, req.Password, meta); err != nil {
			logger.WarnContext(ctx, "provider signup failed", "error", err)
			return nil, fmt.Errorf("%w: %v", ErrProvider, err)
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	verifyToken := uuid.NewString()
	user, err := s.store.CreateUser(ctx, &domain.NewUser{
		Username:          req.Username,
		Email:             req.Email,
		PasswordHash:      hash,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		VerificationToken: &verifyToken,
	})
	if err != nil && s.provider != nil {
		logger.ErrorContext(ctx, "provider account created without local user; reconcile manually",
			"email", req.Email, "username", req.Username, "error", err)
	}
	if errors.Is(err, repo.ErrDuplicate) {
		// Lost a race with a concurrent signup; report which key collided.
		if err := s.checkAvailable(ctx, req.Username, req.Email); err != nil {
			return nil, err
		}
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := jwtauth.NewAccessToken(user.ID, user.Email, user.Username, "", s.config.JWTSecret, s.config.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	link := s.config.AppURL + "/api/auth/verify-email?token=" + url.QueryEscape(verifyToken)
	BestEffort(ctx, s.metrics, "signup.verification_email", func(ctx context.Context) error {
		return sendRendered(ctx, s.mail, []string{user.Email}, func() (mailer.Email, error) {
			return mailer.VerificationEmail(user.FirstName, link)
		})
	})
	BestEffort(ctx, s.metrics, "signup.publish", func(ctx context.Context) error {
		return s.events.Publish(ctx, events.UserSignedUp, events.UserSignedUpEvent{
			UserID: user.ID, Username: user.Username, Email: user.Email, CreatedAt: user.CreatedAt,
		})
	})

	logger.InfoContext(ctx, "user signed up", "user_id", user.ID, "username", user.Username)
	return &AuthResult{User: user, Token: token}, nil
}

func (s *authService) checkAvailable(ctx context.Context, username, email string) error {
	_, err := s.store.GetUserByUsername(ctx, username)
	if err == nil {
		return ErrUsernameTaken
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("failed to check username: %w", err)
	}

	_, err = s.store.GetUserByEmail(ctx, email)
	if err == nil {
		return ErrEmailTaken
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("failed to check email: %w", err)
	}
	return nil
}

// Login accepts a username or an email. Every credential failure maps to
// ErrInvalidCredentials.
func (s *authService) Login(ctx context.Context, req *domain.LoginRequest) (*AuthResult, error) {
	req.Normalize()
	if err := domain.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByUsernameOrEmail(ctx, req.Username)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	var providerSession string
	if s.provider != nil {
		session, err := s.provider.SignIn(ctx, user.Email, req.Password)
		if err != nil {
			if !errors.Is(err, auth.ErrRejected) {
				logger.WarnContext(ctx, "provider signin failed", "error", err)
			}
			return nil, ErrInvalidCredentials
		}
		providerSession = session.AccessToken
	} else {
		ok, err := auth.CheckPassword(req.Password, user.PasswordHash)
		if err != nil {
			logger.WarnContext(ctx, "password check failed", "user_id", user.ID, "error", err)
		}
		if !ok {
			return nil, ErrInvalidCredentials
		}
	}

	token, err := jwtauth.NewAccessToken(user.ID, user.Email, user.Username, providerSession, s.config.JWTSecret, s.config.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func (s *authService) Me(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// Logout revokes the provider session carried in the token, if any. Local
// tokens are stateless and simply discarded by the client.
func (s *authService) Logout(ctx context.Context, claims *jwtauth.Claims) error {
	if s.provider == nil || claims == nil || claims.ProviderSession == "" {
		return nil
	}
	ctx, cancel := detach(ctx)
	defer cancel()
	BestEffort(ctx, s.metrics, "logout.provider", func(ctx context.Context) error {
		return s.provider.SignOut(ctx, claims.ProviderSession)
	})
	return nil
}

func (s *authService) VerifyEmail(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	user, err := s.store.GetUserByVerificationToken(ctx, token)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}
	if err := s.store.MarkUserVerified(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to mark verified: %w", err)
	}
	user.EmailVerified = true
	user.VerificationToken = nil
	logger.InfoContext(ctx, "email verified", "user_id", user.ID)
	return user, nil
}
