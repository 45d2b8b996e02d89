package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

type MailerSendTransport struct {
	client *mailersend.Mailersend
	from   mailersend.From
}

func NewMailerSendTransport(apiKey, fromName, fromEmail string) *MailerSendTransport {
	return &MailerSendTransport{
		client: mailersend.NewMailersend(apiKey),
		from:   mailersend.From{Name: fromName, Email: fromEmail},
	}
}

func (m *MailerSendTransport) Name() string { return "mailersend" }

func (m *MailerSendTransport) Send(ctx context.Context, msg Message) error {
	to := cleanRecipients(msg.To)
	if len(to) == 0 {
		return errors.New("no recipients")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	recipients := make([]mailersend.Recipient, 0, len(to))
	for _, email := range to {
		recipients = append(recipients, mailersend.Recipient{Email: email})
	}

	ms := m.client.Email.NewMessage()
	ms.SetFrom(m.from)
	ms.SetRecipients(recipients)
	ms.SetSubject(msg.Subject)
	ms.SetHTML(msg.HTML)
	if strings.TrimSpace(msg.Text) != "" {
		ms.SetText(msg.Text)
	}

	res, err := m.client.Email.Send(ctx, ms)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("mailersend error: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
