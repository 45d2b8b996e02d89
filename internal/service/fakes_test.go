package service

import (
	"context"
	"errors"
	"sync"

	"github.com/diagnosis/sai-platform/internal/domain"
	"github.com/diagnosis/sai-platform/internal/platform/auth"
	"github.com/diagnosis/sai-platform/internal/platform/mailer"
	"github.com/diagnosis/sai-platform/internal/repo/memory"
)

var errBoom = errors.New("boom")

type fakeMailer struct {
	mu   sync.Mutex
	fail bool
	sent []mailer.Message
}

func (f *fakeMailer) Send(ctx context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.fail {
		return errBoom
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) NotifyRecipients() []string { return []string{"sales@saiplatform.com"} }

func (f *fakeMailer) sentTo() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, 0, len(f.sent))
	for _, m := range f.sent {
		out = append(out, m.To)
	}
	return out
}

type fakePublisher struct {
	mu       sync.Mutex
	fail     bool
	subjects []string
}

func (f *fakePublisher) Publish(ctx context.Context, subject string, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.fail {
		return errBoom
	}
	f.subjects = append(f.subjects, subject)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

// brokenStore fails every write and every lookup that is not a user read.
type brokenStore struct {
	*memory.Store
}

func (brokenStore) CreateContactSubmission(context.Context, *domain.ContactInput) (*domain.ContactSubmission, error) {
	return nil, errBoom
}

func (brokenStore) CreateNewsletterSubscription(context.Context, string) (*domain.NewsletterSubscription, error) {
	return nil, errBoom
}

func (brokenStore) GetNewsletterSubscriptionByEmail(context.Context, string) (*domain.NewsletterSubscription, error) {
	return nil, errBoom
}

func (brokenStore) CreateRequest(context.Context, *domain.RequestInput) (*domain.Request, error) {
	return nil, errBoom
}

// ctxStore fails writes on a done context, as the pgx store does.
type ctxStore struct {
	*memory.Store
}

func (s ctxStore) CreateUser(ctx context.Context, u *domain.NewUser) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Store.CreateUser(ctx, u)
}

func (s ctxStore) CreateContactSubmission(ctx context.Context, in *domain.ContactInput) (*domain.ContactSubmission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Store.CreateContactSubmission(ctx, in)
}

func (s ctxStore) CreateNewsletterSubscription(ctx context.Context, email string) (*domain.NewsletterSubscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Store.CreateNewsletterSubscription(ctx, email)
}

func (s ctxStore) CreateRequest(ctx context.Context, in *domain.RequestInput) (*domain.Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Store.CreateRequest(ctx, in)
}

// userWriteFailStore fails every user insert.
type userWriteFailStore struct {
	*memory.Store
}

func (userWriteFailStore) CreateUser(context.Context, *domain.NewUser) (*domain.User, error) {
	return nil, errBoom
}

type fakeProvider struct {
	signUpErr error
	signInErr error
	signedOut []string
	signedUp  []string
}

func (f *fakeProvider) SignUp(_ context.Context, email, _ string, _ map[string]string) (*auth.ProviderUser, error) {
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	f.signedUp = append(f.signedUp, email)
	return &auth.ProviderUser{ID: "p-1", Email: email}, nil
}

func (f *fakeProvider) SignIn(_ context.Context, email, _ string) (*auth.ProviderSession, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return &auth.ProviderSession{AccessToken: "provider-at", User: auth.ProviderUser{ID: "p-1", Email: email}}, nil
}

func (f *fakeProvider) SignOut(_ context.Context, token string) error {
	f.signedOut = append(f.signedOut, token)
	return nil
}
