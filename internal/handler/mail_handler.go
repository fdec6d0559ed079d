package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/80bir/marketplace-api/internal/pkg/errors"
	"github.com/80bir/marketplace-api/internal/service"
)

// MailHandler relays generic transactional email.
type MailHandler struct {
	mailService *service.MailService
}

func NewMailHandler(mailService *service.MailService) *MailHandler {
	return &MailHandler{mailService: mailService}
}

// AddressList accepts either a single string or an array of strings, which is
// what existing callers of the relay send interchangeably.
type AddressList []string

func (a *AddressList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*a = nil
		} else {
			*a = AddressList{single}
		}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*a = AddressList(list)
	return nil
}

// SendMailRequest is the body of POST /mail/send.
type SendMailRequest struct {
	To      AddressList `json:"to"`
	Cc      AddressList `json:"cc"`
	Bcc     AddressList `json:"bcc"`
	ReplyTo string      `json:"replyTo"`
	Subject string      `json:"subject"`
	Text    string      `json:"text"`
	HTML    string      `json:"html"`
}

// SendMail validates and relays the message through the email provider.
func (h *MailHandler) SendMail(c *gin.Context) {
	var req SendMailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "error_type": "invalid_request"})
		return
	}

	msg := &service.MailMessage{
		To:      req.To,
		Cc:      req.Cc,
		Bcc:     req.Bcc,
		ReplyTo: req.ReplyTo,
		Subject: req.Subject,
		Text:    req.Text,
		HTML:    req.HTML,
	}

	if err := h.mailService.Relay(c.Request.Context(), msg); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required mail fields", "error_type": "invalid_request"})
		case errors.Is(err, service.ErrEmailDelivery):
			log.Printf("[MailHandler] relay failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send mail", "error_type": "email_delivery_failed"})
		default:
			log.Printf("[MailHandler] relay error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "error_type": "internal_error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "status": "sent"})
}
