package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reelgate/reelgate/pkg/mail"
)

type captureMailer struct {
	messages []mail.Message
	err      error
}

func (m *captureMailer) Send(ctx context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

func TestNewSMTPEmailSenderRequiresMailer(t *testing.T) {
	_, err := NewSMTPEmailSender(nil)
	require.Error(t, err)
}

func TestSendVerificationEmailBuildsLink(t *testing.T) {
	mailer := &captureMailer{}
	sender, err := NewSMTPEmailSender(mailer, WithBaseURL("https://auth.example.com/"))
	require.NoError(t, err)

	require.NoError(t, sender.SendVerificationEmail(context.Background(), "user@example.com", "tok-123"))
	require.Len(t, mailer.messages, 1)

	msg := mailer.messages[0]
	require.Equal(t, []string{"user@example.com"}, msg.To)
	require.Equal(t, "Confirm your account", msg.Subject)
	require.Contains(t, msg.Body, "https://auth.example.com/verify-email?token=tok-123")
}

func TestSendPasswordResetEmailBuildsLink(t *testing.T) {
	mailer := &captureMailer{}
	sender, err := NewSMTPEmailSender(mailer, WithBaseURL("https://auth.example.com"))
	require.NoError(t, err)

	require.NoError(t, sender.SendPasswordResetEmail(context.Background(), "user@example.com", "tok-456"))
	require.Len(t, mailer.messages, 1)

	msg := mailer.messages[0]
	require.Equal(t, "Reset your password", msg.Subject)
	require.Contains(t, msg.Body, "https://auth.example.com/reset-password?token=tok-456")
}

func TestSendRequiresRecipient(t *testing.T) {
	sender, err := NewSMTPEmailSender(&captureMailer{})
	require.NoError(t, err)

	err = sender.SendVerificationEmail(context.Background(), "   ", "tok")
	require.Error(t, err)
}

func TestSendPropagatesDisabledSMTP(t *testing.T) {
	sender, err := NewSMTPEmailSender(&captureMailer{err: mail.ErrSMTPDisabled})
	require.NoError(t, err)

	err = sender.SendVerificationEmail(context.Background(), "user@example.com", "tok")
	require.ErrorIs(t, err, mail.ErrSMTPDisabled)
}
