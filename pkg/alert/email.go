package alert

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Email sends the HTML rendering of a result over SMTP with STARTTLS.
type Email struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
	to       []string
}

// EmailOpts configures the SMTP notifier.
type EmailOpts struct {
	Host     string
	Port     int // default 587
	Username string
	Password string
	From     string
	FromName string
	To       []string
}

// NewEmail creates an email notifier.
func NewEmail(opts EmailOpts) *Email {
	if opts.Port == 0 {
		opts.Port = 587
	}
	return &Email{
		host:     opts.Host,
		port:     opts.Port,
		username: opts.Username,
		password: opts.Password,
		from:     opts.From,
		fromName: opts.FromName,
		to:       opts.To,
	}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Send(ctx context.Context, n *Notification) error {
	if e.host == "" || e.from == "" || len(e.to) == 0 {
		return fmt.Errorf("smtp host, from and recipients must be configured")
	}

	body := n.HTML
	contentType := "text/html; charset=utf-8"
	if body == "" {
		body = n.Text
		contentType = "text/plain; charset=utf-8"
	}

	from := e.from
	if e.fromName != "" {
		from = fmt.Sprintf("%s <%s>", e.fromName, e.from)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(e.to, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", n.Title)
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: %s\r\n", contentType)
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", e.host, e.port)
	auth := smtp.PlainAuth("", e.username, e.password, e.host)

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, e.from, e.to, []byte(msg.String()))
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send mail: %w", err)
		}
		return nil
	}
}
