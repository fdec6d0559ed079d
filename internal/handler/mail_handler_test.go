package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/80bir/marketplace-api/internal/service"
)

func newTestMailHandler(t *testing.T) *MailHandler {
	t.Helper()
	svc, err := service.NewMailService(&fakeEmailSender{})
	require.NoError(t, err)
	return NewMailHandler(svc)
}

func TestAddressList_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want AddressList
	}{
		{name: "single string", in: `"a@x.com"`, want: AddressList{"a@x.com"}},
		{name: "array", in: `["a@x.com","b@x.com"]`, want: AddressList{"a@x.com", "b@x.com"}},
		{name: "empty string", in: `""`, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got AddressList
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			assert.Equal(t, tt.want, got)
		})
	}

	var bad AddressList
	assert.Error(t, json.Unmarshal([]byte(`42`), &bad))
}

func TestSendMail_Validation(t *testing.T) {
	handler := newTestMailHandler(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{name: "missing to", body: map[string]interface{}{"subject": "hi", "text": "body"}},
		{name: "missing subject", body: map[string]interface{}{"to": "a@x.com", "text": "body"}},
		{name: "missing body", body: map[string]interface{}{"to": "a@x.com", "subject": "hi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestGinContext("POST", "/api/mail/send", tt.body)
			handler.SendMail(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "invalid_request", parseJSONResponse(t, w)["error_type"])
		})
	}
}

func TestSendMail_Success(t *testing.T) {
	handler := newTestMailHandler(t)

	c, w := newTestGinContext("POST", "/api/mail/send", map[string]interface{}{
		"to":      []string{"a@x.com"},
		"cc":      "c@x.com",
		"subject": "hi",
		"html":    "<p>body</p>",
		"replyTo": "noreply@80bir.com.tr",
	})
	handler.SendMail(c)

	require.Equal(t, http.StatusOK, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, "sent", resp["status"])
}
