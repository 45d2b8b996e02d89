// Package memory is the in-process Store used when no database is
// configured. Data is lost on restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/diagnosis/sai-platform/internal/domain"
	"github.com/diagnosis/sai-platform/internal/repo"
)

// requestRow keeps list fields in their encoded text form, the same shape
// the Postgres table stores.
type requestRow struct {
	req          domain.Request
	challenges   string
	requestTypes string
	focusAreas   string
}

type Store struct {
	mu         sync.RWMutex
	nextID     atomic.Int64
	now        func() time.Time
	users      map[int64]domain.User
	contacts   map[int64]domain.ContactSubmission
	newsletter map[int64]domain.NewsletterSubscription
	requests   map[int64]requestRow
}

var _ repo.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:        time.Now,
		users:      make(map[int64]domain.User),
		contacts:   make(map[int64]domain.ContactSubmission),
		newsletter: make(map[int64]domain.NewsletterSubscription),
		requests:   make(map[int64]requestRow),
	}
}

func (s *Store) id() int64 { return s.nextID.Add(1) }

func (s *Store) CreateUser(_ context.Context, nu *domain.NewUser) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == nu.Username || strings.EqualFold(u.Email, nu.Email) {
			return nil, repo.ErrDuplicate
		}
	}
	u := domain.User{
		ID:                s.id(),
		Username:          nu.Username,
		Email:             nu.Email,
		PasswordHash:      nu.PasswordHash,
		FirstName:         nu.FirstName,
		LastName:          nu.LastName,
		VerificationToken: copyStr(nu.VerificationToken),
		CreatedAt:         s.now().UTC(),
	}
	s.users[u.ID] = u
	return cloneUser(u), nil
}

func (s *Store) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) findUser(match func(domain.User) bool) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, repo.ErrNotFound
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	return s.findUser(func(u domain.User) bool { return u.Username == username })
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	return s.findUser(func(u domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *Store) GetUserByUsernameOrEmail(_ context.Context, login string) (*domain.User, error) {
	return s.findUser(func(u domain.User) bool {
		return u.Username == login || strings.EqualFold(u.Email, login)
	})
}

func (s *Store) GetUserByVerificationToken(_ context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, repo.ErrNotFound
	}
	return s.findUser(func(u domain.User) bool {
		return u.VerificationToken != nil && *u.VerificationToken == token
	})
}

func (s *Store) MarkUserVerified(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.EmailVerified = true
	u.VerificationToken = nil
	s.users[id] = u
	return nil
}

func (s *Store) CreateContactSubmission(_ context.Context, in *domain.ContactInput) (*domain.ContactSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := domain.ContactSubmission{
		ID:             s.id(),
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Email:          in.Email,
		Company:        in.Company,
		Phone:          copyStr(in.Phone),
		CompanySize:    copyStr(in.CompanySize),
		Message:        in.Message,
		PrivacyConsent: bool(in.PrivacyConsent),
		SubmittedAt:    s.now().UTC(),
	}
	s.contacts[c.ID] = c
	return &c, nil
}

func (s *Store) ListContactSubmissions(_ context.Context) ([]domain.ContactSubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ContactSubmission, 0, len(s.contacts))
	for _, c := range s.contacts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateNewsletterSubscription(_ context.Context, email string) (*domain.NewsletterSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.newsletter {
		if strings.EqualFold(n.Email, email) {
			return nil, repo.ErrDuplicate
		}
	}
	n := domain.NewsletterSubscription{ID: s.id(), Email: email, SubscribedAt: s.now().UTC()}
	s.newsletter[n.ID] = n
	return &n, nil
}

func (s *Store) GetNewsletterSubscriptionByEmail(_ context.Context, email string) (*domain.NewsletterSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.newsletter {
		if strings.EqualFold(n.Email, email) {
			return &n, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (s *Store) ListNewsletterSubscriptions(_ context.Context) ([]domain.NewsletterSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.NewsletterSubscription, 0, len(s.newsletter))
	for _, n := range s.newsletter {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateRequest(_ context.Context, in *domain.RequestInput) (*domain.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := requestRow{
		req: domain.Request{
			ID:                     s.id(),
			FirstName:              in.FirstName,
			LastName:               in.LastName,
			Email:                  in.Email,
			Phone:                  copyStr(in.Phone),
			Company:                in.Company,
			JobTitle:               copyStr(in.JobTitle),
			Industry:               copyStr(in.Industry),
			CompanySize:            copyStr(in.CompanySize),
			Timeline:               copyStr(in.Timeline),
			Budget:                 copyStr(in.Budget),
			AdditionalRequirements: copyStr(in.AdditionalRequirements),
			PreferredDate:          copyStr(in.PreferredDate),
			SubmittedAt:            s.now().UTC(),
		},
		challenges:   repo.EncodeList(in.Challenges),
		requestTypes: repo.JoinTags(in.RequestTypes),
		focusAreas:   repo.EncodeList(in.FocusAreas),
	}
	s.requests[row.req.ID] = row
	return decodeRequest(row)
}

func (s *Store) ListRequests(_ context.Context) ([]domain.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Request, 0, len(s.requests))
	for _, row := range s.requests {
		r, err := decodeRequest(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() {}

func decodeRequest(row requestRow) (*domain.Request, error) {
	r := row.req
	var err error
	if r.Challenges, err = repo.DecodeList(row.challenges); err != nil {
		return nil, err
	}
	if r.FocusAreas, err = repo.DecodeList(row.focusAreas); err != nil {
		return nil, err
	}
	r.RequestTypes = repo.SplitTags(row.requestTypes)
	return &r, nil
}

func cloneUser(u domain.User) *domain.User {
	u.VerificationToken = copyStr(u.VerificationToken)
	return &u
}

func copyStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
