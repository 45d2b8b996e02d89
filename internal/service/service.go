// Package service holds the submission pipeline and the auth flows that
// sit between the HTTP handlers and storage, email and events.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/sai-platform/internal/platform/mailer"
	"github.com/diagnosis/sai-platform/pkg/logger"
	"github.com/diagnosis/sai-platform/pkg/metrics"
)

// Mailer is the part of mailer.Service the pipelines use.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
	NotifyRecipients() []string
}

type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeFailed
)

func (o Outcome) String() string {
	if o == OutcomeOK {
		return "ok"
	}
	return "failed"
}

// sideEffectTimeout bounds the work done after a submission is accepted.
const sideEffectTimeout = 45 * time.Second

// detach keeps the request's values but not its cancellation, so a client
// hanging up mid-pipeline does not drop the write or the emails.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
}

// BestEffort runs a side effect whose failure must not change the
// response. Failures and panics are logged under step and counted; the
// outcome is returned for callers that want to record it.
func BestEffort(ctx context.Context, m *metrics.Metrics, step string, fn func(ctx context.Context) error) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "side effect panicked", "step", step, "panic", fmt.Sprint(r))
			m.IncSideEffectFailure(step)
			out = OutcomeFailed
		}
	}()

	if err := fn(ctx); err != nil {
		logger.WarnContext(ctx, "side effect failed", "step", step, "error", err)
		m.IncSideEffectFailure(step)
		return OutcomeFailed
	}
	return OutcomeOK
}

// sendRendered renders an email and sends it. Rendering errors count as
// send failures.
func sendRendered(ctx context.Context, mail Mailer, to []string, render func() (mailer.Email, error)) error {
	email, err := render()
	if err != nil {
		return fmt.Errorf("render email: %w", err)
	}
	return mail.Send(ctx, mailer.Message{To: to, Subject: email.Subject, HTML: email.HTML})
}
