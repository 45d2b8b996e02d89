package mailer

import (
	"context"
	"errors"
	"time"

	"github.com/diagnosis/sai-platform/pkg/config"
	"github.com/diagnosis/sai-platform/pkg/logger"
	"github.com/diagnosis/sai-platform/pkg/metrics"
	"github.com/sethvargo/go-retry"
)

var errDisabled = errors.New("email transport not configured")

// Service sends mail through one Transport chosen at startup, retrying
// failed sends with exponential backoff.
type Service struct {
	transport   Transport
	notifyTo    []string
	maxAttempts int
	newBackoff  func() retry.Backoff
	metrics     *metrics.Metrics
}

type Option func(*Service)

// WithTransport overrides the transport picked from config.
func WithTransport(t Transport) Option {
	return func(s *Service) { s.transport = t }
}

// WithBackoff replaces the delay schedule between attempts. The returned
// Backoff should not cap retries itself; the attempt limit is applied on top.
func WithBackoff(fn func() retry.Backoff) Option {
	return func(s *Service) { s.newBackoff = fn }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New picks MailerSend when an API key is present, SMTP when a host and
// credentials are present, and otherwise leaves the service disabled.
func New(cfg config.EmailConfig, opts ...Option) *Service {
	base := cfg.RetryBase
	if base <= 0 {
		base = time.Second
	}
	s := &Service{
		notifyTo:    cfg.NotifyTo,
		maxAttempts: cfg.MaxAttempts,
		newBackoff:  func() retry.Backoff { return retry.NewExponential(base) },
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = 3
	}

	switch {
	case cfg.MailerSendKey != "":
		s.transport = NewMailerSendTransport(cfg.MailerSendKey, cfg.FromName, cfg.SMTPFrom)
	case cfg.SMTPHost != "" && cfg.SMTPUser != "" && cfg.SMTPPass != "":
		s.transport = NewSMTPTransport(cfg)
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Enabled() bool { return s.transport != nil }

// TransportName is "none" when disabled.
func (s *Service) TransportName() string {
	if s.transport == nil {
		return "none"
	}
	return s.transport.Name()
}

// NotifyRecipients is the staff distribution list.
func (s *Service) NotifyRecipients() []string {
	return append([]string(nil), s.notifyTo...)
}

// SendEmail reports whether the message was handed to the transport. It
// never returns an error; failures are logged.
func (s *Service) SendEmail(ctx context.Context, to []string, subject, html string) bool {
	return s.Send(ctx, Message{To: to, Subject: subject, HTML: html}) == nil
}

// Send is SendEmail with the failure cause kept, for callers that record it.
func (s *Service) Send(ctx context.Context, msg Message) error {
	if s.transport == nil {
		logger.WarnContext(ctx, "email not sent: transport not configured", "subject", msg.Subject)
		return errDisabled
	}

	attempt := 0
	backoff := retry.WithMaxRetries(uint64(s.maxAttempts-1), s.newBackoff())
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := s.transport.Send(ctx, msg); err != nil {
			s.metrics.IncEmailAttempt(false)
			logger.WarnContext(ctx, "email attempt failed",
				"transport", s.transport.Name(),
				"attempt", attempt,
				"max_attempts", s.maxAttempts,
				"error", err)
			return retry.RetryableError(err)
		}
		s.metrics.IncEmailAttempt(true)
		return nil
	})
	if err != nil {
		logger.ErrorContext(ctx, "email send failed",
			"transport", s.transport.Name(),
			"subject", msg.Subject,
			"attempts", attempt,
			"error", err)
		return err
	}
	logger.InfoContext(ctx, "email sent", "transport", s.transport.Name(), "subject", msg.Subject, "attempts", attempt)
	return nil
}
