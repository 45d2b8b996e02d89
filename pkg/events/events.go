package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/diagnosis/sai-platform/pkg/logger"
	"github.com/nats-io/nats.go"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url,
		nats.Name("sai-platform-api"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "bytes", len(payload))

	return n.conn.Publish(subject, payload)
}

// Close flushes pending messages before closing the connection.
func (n *NATSEventBus) Close() error {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return err
	}
	return nil
}

// NopPublisher is used when NATS_URL is unset.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (NopPublisher) Close() error                                       { return nil }

const (
	ContactReceived    = "submission.contact.received"
	NewsletterReceived = "submission.newsletter.received"
	RequestReceived    = "submission.request.received"
	UserSignedUp       = "user.signed_up"
)

// SubmissionEvent is the payload for every submission.* subject. ID is zero
// when the store write failed.
type SubmissionEvent struct {
	Kind         string    `json:"kind"`
	ID           int64     `json:"id,omitempty"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	Company      string    `json:"company,omitempty"`
	RequestTypes []string  `json:"request_types,omitempty"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

type UserSignedUpEvent struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
