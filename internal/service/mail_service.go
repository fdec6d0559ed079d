package service

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/80bir/marketplace-api/internal/pkg/errors"
)

// MailService validates and relays generic transactional email through the
// configured provider.
type MailService struct {
	emailService EmailService
}

func NewMailService(emailService EmailService) (*MailService, error) {
	if emailService == nil {
		return nil, fmt.Errorf("email service is required")
	}
	return &MailService{emailService: emailService}, nil
}

// Relay sends the message after input validation. At least one recipient, a
// subject and one body (text or html) are required.
func (s *MailService) Relay(ctx context.Context, msg *MailMessage) error {
	if msg == nil {
		return fmt.Errorf("%w: empty message", apperrors.ErrValidation)
	}

	msg.To = cleanAddressList(msg.To)
	msg.Cc = cleanAddressList(msg.Cc)
	msg.Bcc = cleanAddressList(msg.Bcc)
	msg.ReplyTo = strings.TrimSpace(msg.ReplyTo)
	msg.Subject = strings.TrimSpace(msg.Subject)

	if len(msg.To) == 0 {
		return fmt.Errorf("%w: at least one recipient is required", apperrors.ErrValidation)
	}
	if msg.Subject == "" {
		return fmt.Errorf("%w: subject is required", apperrors.ErrValidation)
	}
	if strings.TrimSpace(msg.Text) == "" && strings.TrimSpace(msg.HTML) == "" {
		return fmt.Errorf("%w: either text or html body is required", apperrors.ErrValidation)
	}

	if err := s.emailService.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrEmailDelivery, err)
	}
	return nil
}

func cleanAddressList(addrs []string) []string {
	out := addrs[:0]
	for _, a := range addrs {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}
