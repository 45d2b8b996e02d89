package mailer

import "context"

// Message is one outgoing email. Text is optional; HTML is required.
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Transport hands a message to a delivery backend.
type Transport interface {
	Send(ctx context.Context, msg Message) error
	Name() string
}
