package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/diagnosis/sai-platform/pkg/config"
	"github.com/google/uuid"
)

type SMTPTransport struct {
	Host   string
	Port   int
	From   string
	User   string
	Pass   string
	Secure bool // implicit TLS, usually port 465
}

func NewSMTPTransport(cfg config.EmailConfig) *SMTPTransport {
	return &SMTPTransport{
		Host:   strings.TrimSpace(cfg.SMTPHost),
		Port:   cfg.SMTPPort,
		From:   strings.TrimSpace(cfg.SMTPFrom),
		User:   strings.TrimSpace(cfg.SMTPUser),
		Pass:   strings.TrimSpace(cfg.SMTPPass),
		Secure: cfg.SMTPSecure,
	}
}

func (s *SMTPTransport) Name() string { return "smtp" }

func (s *SMTPTransport) Send(ctx context.Context, msg Message) error {
	to := cleanRecipients(msg.To)
	if len(to) == 0 {
		return errors.New("no recipients")
	}
	body := buildMIME(s.From, to, msg)
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)

	var auth smtp.Auth
	if s.User != "" {
		auth = smtp.PlainAuth("", s.User, s.Pass, s.Host)
	}

	if !s.Secure {
		// SendMail upgrades with STARTTLS when the server offers it.
		return smtp.SendMail(addr, auth, s.From, to, body)
	}

	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: s.Host})
	if err != nil {
		return err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		return err
	}
	defer c.Quit()

	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return err
		}
	}
	if err := c.Mail(s.From); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		return err
	}
	return w.Close()
}

func buildMIME(from string, to []string, msg Message) []byte {
	var buf bytes.Buffer
	boundary := "sai-" + uuid.NewString()
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", stripCRLF(msg.Subject)))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", boundary)

	if strings.TrimSpace(msg.Text) != "" {
		fmt.Fprintf(&buf, "--%s\r\n", boundary)
		fmt.Fprintf(&buf, "Content-Type: text/plain; charset=utf-8\r\n\r\n")
		fmt.Fprintf(&buf, "%s\r\n\r\n", msg.Text)
	}

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	fmt.Fprintf(&buf, "Content-Type: text/html; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&buf, "%s\r\n\r\n", msg.HTML)

	fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	return buf.Bytes()
}

func cleanRecipients(in []string) []string {
	out := make([]string, 0, len(in))
	for _, r := range in {
		if r = strings.TrimSpace(stripCRLF(r)); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func stripCRLF(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}
