package notify

import (
	"context"
	"fmt"

	"github.com/homegrid/homegrid/internal/verification"
	"github.com/homegrid/homegrid/pkg/mail"
)

// EmailSender delivers verification codes over SMTP.
type EmailSender struct {
	mailer mail.Mailer
}

// NewEmailSender wraps a mailer as a channel sender.
func NewEmailSender(mailer mail.Mailer) *EmailSender {
	return &EmailSender{mailer: mailer}
}

// Send composes and sends the verification email.
func (s *EmailSender) Send(ctx context.Context, d verification.Dispatch) error {
	msg := mail.Message{
		To:      []string{d.Recipient},
		Subject: "Your HomeGrid verification code",
		Body:    emailBody(d),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

func emailBody(d verification.Dispatch) string {
	return fmt.Sprintf(`Hello,

Use this code to verify your HomeGrid account:

    %s

The code expires in %s. If you did not request it, you can ignore this
email; nobody can access your account without the code.

The HomeGrid team
`, d.Code, formatTTL(d.ExpiresAt))
}
