// Package mail sends run reports through the configured SMTP relay.
package mail

import (
	"context"
	"fmt"
	"net"
	"strconv"

	gomail "github.com/wneessen/go-mail"

	"github.com/gostonefire/mygrid-scheduler/internal/config"
)

// Sender delivers plaintext mail through an SMTP submission relay.
type Sender struct {
	client *gomail.Client
	from   string
	to     string
}

// New returns a mail sender for the configured relay. The endpoint is
// either a bare host (default submission port 587) or host:port.
func New(cfg config.MailConfig) (*Sender, error) {
	host := cfg.SMTPEndpoint
	port := 587
	if h, p, err := net.SplitHostPort(cfg.SMTPEndpoint); err == nil {
		host = h
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid smtp endpoint port: %w", err)
		}
	}

	client, err := gomail.NewClient(host,
		gomail.WithPort(port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.SMTPUser),
		gomail.WithPassword(cfg.SMTPPassword),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	return &Sender{
		client: client,
		from:   cfg.From,
		to:     cfg.To,
	}, nil
}

// Send delivers a plaintext mail with the given subject and body.
func (s *Sender) Send(ctx context.Context, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(s.to); err != nil {
		return fmt.Errorf("invalid to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	return nil
}
