package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/reelgate/reelgate/pkg/mail"
)

// EmailSender dispatches the transactional emails the auth flows depend on.
type EmailSender interface {
	SendVerificationEmail(ctx context.Context, email, token string) error
	SendPasswordResetEmail(ctx context.Context, email, token string) error
}

// Option customises the SMTP email sender.
type Option func(*SMTPEmailSender)

// WithBaseURL sets the base URL embedded in verification and reset links.
func WithBaseURL(url string) Option {
	return func(s *SMTPEmailSender) {
		s.baseURL = strings.TrimRight(url, "/")
	}
}

// WithTimeout bounds each send call.
func WithTimeout(d time.Duration) Option {
	return func(s *SMTPEmailSender) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// SMTPEmailSender delivers verification and reset emails through a Mailer.
type SMTPEmailSender struct {
	mailer  mail.Mailer
	baseURL string
	timeout time.Duration
}

// NewSMTPEmailSender constructs an email sender over the supplied mailer.
func NewSMTPEmailSender(mailer mail.Mailer, opts ...Option) (*SMTPEmailSender, error) {
	if mailer == nil {
		return nil, errors.New("email sender: mailer is required")
	}

	sender := &SMTPEmailSender{
		mailer:  mailer,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(sender)
	}
	return sender, nil
}

// SendVerificationEmail delivers the account confirmation link.
func (s *SMTPEmailSender) SendVerificationEmail(ctx context.Context, email, token string) error {
	link := s.link("/verify-email", token)
	body := fmt.Sprintf(
		"Welcome!\n\nPlease confirm your email address by visiting the link below:\n%s\n\nThe link expires in 24 hours. If you did not create an account, you can ignore this message.\n",
		link,
	)
	return s.send(ctx, email, "Confirm your account", body)
}

// SendPasswordResetEmail delivers the password recovery link.
func (s *SMTPEmailSender) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	link := s.link("/reset-password", token)
	body := fmt.Sprintf(
		"A password reset was requested for your account.\n\nVisit the link below to choose a new password:\n%s\n\nThe link expires in 1 hour. If you did not request a reset, you can ignore this message.\n",
		link,
	)
	return s.send(ctx, email, "Reset your password", body)
}

func (s *SMTPEmailSender) send(ctx context.Context, email, subject, body string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email sender: recipient is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.mailer.Send(ctx, mail.Message{
		To:      []string{email},
		Subject: subject,
		Body:    body,
	})
}

func (s *SMTPEmailSender) link(path, token string) string {
	if s.baseURL == "" {
		return token
	}
	return fmt.Sprintf("%s%s?token=%s", s.baseURL, path, token)
}
