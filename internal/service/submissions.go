package service

import (
	"context"
	"errors"
	"time"

	"github.com/diagnosis/sai-platform/internal/domain"
	"github.com/diagnosis/sai-platform/internal/platform/mailer"
	"github.com/diagnosis/sai-platform/internal/repo"
	"github.com/diagnosis/sai-platform/pkg/events"
	"github.com/diagnosis/sai-platform/pkg/logger"
	"github.com/diagnosis/sai-platform/pkg/metrics"
)

var ErrAlreadySubscribed = errors.New("email already subscribed")

type SubmissionService interface {
	SubmitContact(ctx context.Context, in *domain.ContactInput) error
	Subscribe(ctx context.Context, in *domain.NewsletterInput) error
	SubmitRequest(ctx context.Context, in *domain.RequestInput) error

	ListContacts(ctx context.Context) ([]domain.ContactSubmission, error)
	ListSubscriptions(ctx context.Context) ([]domain.NewsletterSubscription, error)
	ListRequests(ctx context.Context) ([]domain.Request, error)
}

type submissionService struct {
	store   repo.Store
	mail    Mailer
	events  events.Publisher
	metrics *metrics.Metrics
}

func NewSubmissionService(store repo.Store, mail Mailer, pub events.Publisher, m *metrics.Metrics) SubmissionService {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &submissionService{store: store, mail: mail, events: pub, metrics: m}
}

// SubmitContact only fails on invalid input. Storage, event and email
// failures are logged and swallowed.
func (s *submissionService) SubmitContact(ctx context.Context, in *domain.ContactInput) error {
	in.Normalize()
	if err := domain.Validate(in); err != nil {
		return err
	}
	ctx, cancel := detach(ctx)
	defer cancel()

	var saved *domain.ContactSubmission
	BestEffort(ctx, s.metrics, "contact.persist", func(ctx context.Context) error {
		var err error
		saved, err = s.store.CreateContactSubmission(ctx, in)
		return err
	})

	ev := events.SubmissionEvent{
		Kind:        "contact",
		Email:       in.Email,
		Name:        fullName(in.FirstName, in.LastName),
		Company:     in.Company,
		SubmittedAt: time.Now().UTC(),
	}
	if saved != nil {
		ev.ID, ev.SubmittedAt = saved.ID, saved.SubmittedAt
	}
	BestEffort(ctx, s.metrics, "contact.publish", func(ctx context.Context) error {
		return s.events.Publish(ctx, events.ContactReceived, ev)
	})

	BestEffort(ctx, s.metrics, "contact.notify", func(ctx context.Context) error {
		return sendRendered(ctx, s.mail, s.mail.NotifyRecipients(), func() (mailer.Email, error) {
			return mailer.ContactNotification(in)
		})
	})
	BestEffort(ctx, s.metrics, "contact.confirm", func(ctx context.Context) error {
		return sendRendered(ctx, s.mail, []string{in.Email}, func() (mailer.Email, error) {
			return mailer.ContactConfirmation(in)
		})
	})

	s.metrics.IncSubmission("contact")
	logger.InfoContext(ctx, "contact submission accepted", "email", in.Email, "stored", saved != nil)
	return nil
}

// Subscribe returns ErrAlreadySubscribed when the email is on file, in
// which case nothing is written and no email is sent.
func (s *submissionService) Subscribe(ctx context.Context, in *domain.NewsletterInput) error {
	in.Normalize()
	if err := domain.Validate(in); err != nil {
		return err
	}
	ctx, cancel := detach(ctx)
	defer cancel()

	_, err := s.store.GetNewsletterSubscriptionByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return ErrAlreadySubscribed
	case !errors.Is(err, repo.ErrNotFound):
		logger.WarnContext(ctx, "newsletter lookup failed, treating as new", "error", err)
	}

	var (
		saved *domain.NewsletterSubscription
		dup   bool
	)
	BestEffort(ctx, s.metrics, "newsletter.persist", func(ctx context.Context) error {
		var err error
		saved, err = s.store.CreateNewsletterSubscription(ctx, in.Email)
		if errors.Is(err, repo.ErrDuplicate) {
			dup = true
			return nil
		}
		return err
	})
	if dup {
		return ErrAlreadySubscribed
	}

	ev := events.SubmissionEvent{Kind: "newsletter", Email: in.Email, SubmittedAt: time.Now().UTC()}
	if saved != nil {
		ev.ID, ev.SubmittedAt = saved.ID, saved.SubscribedAt
	}
	BestEffort(ctx, s.metrics, "newsletter.publish", func(ctx context.Context) error {
		return s.events.Publish(ctx, events.NewsletterReceived, ev)
	})

	BestEffort(ctx, s.metrics, "newsletter.welcome", func(ctx context.Context) error {
		return sendRendered(ctx, s.mail, []string{in.Email}, func() (mailer.Email, error) {
			return mailer.NewsletterWelcome(in.Email)
		})
	})

	s.metrics.IncSubmission("newsletter")
	logger.InfoContext(ctx, "newsletter subscription accepted", "email", in.Email, "stored", saved != nil)
	return nil
}

func (s *submissionService) SubmitRequest(ctx context.Context, in *domain.RequestInput) error {
	in.Normalize()
	if err := domain.Validate(in); err != nil {
		return err
	}
	ctx, cancel := detach(ctx)
	defer cancel()

	var saved *domain.Request
	BestEffort(ctx, s.metrics, "request.persist", func(ctx context.Context) error {
		var err error
		saved, err = s.store.CreateRequest(ctx, in)
		return err
	})

	ev := events.SubmissionEvent{
		Kind:         "request",
		Email:        in.Email,
		Name:         fullName(in.FirstName, in.LastName),
		Company:      in.Company,
		RequestTypes: in.RequestTypes,
		SubmittedAt:  time.Now().UTC(),
	}
	if saved != nil {
		ev.ID, ev.SubmittedAt = saved.ID, saved.SubmittedAt
	}
	BestEffort(ctx, s.metrics, "request.publish", func(ctx context.Context) error {
		return s.events.Publish(ctx, events.RequestReceived, ev)
	})

	BestEffort(ctx, s.metrics, "request.notify", func(ctx context.Context) error {
		return sendRendered(ctx, s.mail, s.mail.NotifyRecipients(), func() (mailer.Email, error) {
			return mailer.RequestNotification(in)
		})
	})
	BestEffort(ctx, s.metrics, "request.confirm", func(ctx context.Context) error {
		return sendRendered(ctx, s.mail, []string{in.Email}, func() (mailer.Email, error) {
			return mailer.RequestConfirmation(in)
		})
	})

	s.metrics.IncSubmission("request")
	logger.InfoContext(ctx, "request submission accepted", "email", in.Email, "types", in.RequestTypes, "stored", saved != nil)
	return nil
}

func (s *submissionService) ListContacts(ctx context.Context) ([]domain.ContactSubmission, error) {
	return s.store.ListContactSubmissions(ctx)
}

func (s *submissionService) ListSubscriptions(ctx context.Context) ([]domain.NewsletterSubscription, error) {
	return s.store.ListNewsletterSubscriptions(ctx)
}

func (s *submissionService) ListRequests(ctx context.Context) ([]domain.Request, error) {
	return s.store.ListRequests(ctx)
}

func fullName(first, last string) string {
	if last == "" {
		return first
	}
	return first + " " + last
}
