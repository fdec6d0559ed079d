package handler

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/80bir/marketplace-api/internal/domain/entity"
	apperrors "github.com/80bir/marketplace-api/internal/pkg/errors"
	"github.com/80bir/marketplace-api/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestGinContext builds a *gin.Context with an optional JSON body.
func newTestGinContext(method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()

	var req *http.Request
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		req, _ = http.NewRequest(method, path, bytes.NewReader(bodyBytes))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c, w
}

// parseJSONResponse decodes the recorded JSON body.
func parseJSONResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err, "Response body should be valid JSON: %s", w.Body.String())
	return resp
}

// ============================================================================
// In-memory fakes backing real services
// ============================================================================

type fakeOTPRepo struct {
	latest      *entity.LoginOTP
	invalidated int
}

func (f *fakeOTPRepo) Create(otp *entity.LoginOTP) error {
	otp.ID = 1
	f.latest = otp
	return nil
}

func (f *fakeOTPRepo) GetLatestByEmail(email string) (*entity.LoginOTP, error) {
	if f.latest == nil || f.latest.Email != email {
		return nil, apperrors.ErrNotFound
	}
	cp := *f.latest
	return &cp, nil
}

func (f *fakeOTPRepo) IncrementAttempts(id uint) error {
	if f.latest != nil && f.latest.ID == id {
		f.latest.AttemptCount++
	}
	return nil
}

func (f *fakeOTPRepo) Consume(id uint) error {
	if f.latest == nil || f.latest.ID != id {
		return apperrors.ErrNotFound
	}
	if f.latest.ConsumedAt != nil {
		return apperrors.ErrConflict
	}
	now := time.Now()
	f.latest.ConsumedAt = &now
	return nil
}

func (f *fakeOTPRepo) InvalidatePending(email string) (int64, error) {
	if f.latest != nil && f.latest.Email == email && f.latest.ConsumedAt == nil {
		f.invalidated++
		now := time.Now()
		f.latest.ConsumedAt = &now
		return 1, nil
	}
	return 0, nil
}

type fakeTrustRepo struct {
	records map[string]*entity.TrustedIP
}

func newFakeTrustRepo() *fakeTrustRepo {
	return &fakeTrustRepo{records: make(map[string]*entity.TrustedIP)}
}

func (f *fakeTrustRepo) GetByEmailAndHash(email, ipHash string) (*entity.TrustedIP, error) {
	rec, ok := f.records[email+"|"+ipHash]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return rec, nil
}

func (f *fakeTrustRepo) Upsert(email, ipHash string) error {
	now := time.Now()
	f.records[email+"|"+ipHash] = &entity.TrustedIP{Email: email, IPHash: ipHash, FirstSeenAt: now, LastSeenAt: now}
	return nil
}

type fakeEmailSender struct {
	lastCode string
}

func (f *fakeEmailSender) SendLoginCode(ctx context.Context, toEmail, code, idempotencyKey string) error {
	f.lastCode = code
	return nil
}

func (f *fakeEmailSender) Send(ctx context.Context, msg *service.MailMessage) error {
	return nil
}

const testPepper = "handler-test-pepper"

func newTestAuthHandler(t *testing.T, otpRepo *fakeOTPRepo, trustRepo *fakeTrustRepo, sender *fakeEmailSender) *AuthHandler {
	t.Helper()

	otpService, err := service.NewOTPService(otpRepo, sender, 5*time.Minute, 30*time.Second, 5, testPepper)
	require.NoError(t, err)
	trustService, err := service.NewTrustService(trustRepo, 90*24*time.Hour, testPepper)
	require.NoError(t, err)
	tokenService, err := service.NewTokenService("handler-test-secret", 5*time.Minute)
	require.NoError(t, err)

	return NewAuthHandler(otpService, trustService, tokenService)
}

// digest format must match the service's storage scheme
func testCodeHash(code, salt string) string {
	sum := sha256.Sum256([]byte(testPepper + ":" + salt + ":" + code))
	return hex.EncodeToString(sum[:])
}

func seedOTPRecord(repo *fakeOTPRepo, email, code string) {
	salt := "feedfacefeedfacefeedfacefeedface"
	now := time.Now()
	repo.latest = &entity.LoginOTP{
		ID:          1,
		Email:       email,
		CodeHash:    testCodeHash(code, salt),
		CodeSalt:    salt,
		ExpiresAt:   now.Add(5 * time.Minute),
		MaxAttempts: 5,
		LastSentAt:  now,
		CreatedAt:   now,
	}
}

// ============================================================================
// Validation
// ============================================================================

func TestStartOTP_ValidationErrors(t *testing.T) {
	handler := &AuthHandler{} // services untouched on bind failure

	tests := []struct {
		name string
		body interface{}
	}{
		{name: "empty body", body: nil},
		{name: "missing email", body: map[string]string{}},
		{name: "invalid email format", body: map[string]string{"email": "not-an-email"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestGinContext("POST", "/api/otp/start", tt.body)
			handler.StartOTP(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := parseJSONResponse(t, w)
			assert.Equal(t, "invalid_request", resp["error_type"])
		})
	}
}

func TestVerifyOTP_ValidationErrors(t *testing.T) {
	handler := &AuthHandler{}

	tests := []struct {
		name string
		body interface{}
	}{
		{name: "empty body", body: nil},
		{name: "missing code", body: map[string]string{"email": "a@x.com"}},
		{name: "missing email", body: map[string]string{"code": "123456"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestGinContext("POST", "/api/otp/verify", tt.body)
			handler.VerifyOTP(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

// ============================================================================
// Flow
// ============================================================================

func TestStartOTP_IssuesAndThrottles(t *testing.T) {
	otpRepo := &fakeOTPRepo{}
	sender := &fakeEmailSender{}
	handler := newTestAuthHandler(t, otpRepo, newFakeTrustRepo(), sender)

	c, w := newTestGinContext("POST", "/api/otp/start", map[string]string{"email": "a@x.com"})
	handler.StartOTP(c)

	require.Equal(t, http.StatusOK, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, float64(300), resp["expires_in_sec"])
	assert.Len(t, sender.lastCode, 6)

	// Second request inside the 30s window is throttled.
	c, w = newTestGinContext("POST", "/api/otp/start", map[string]string{"email": "a@x.com"})
	handler.StartOTP(c)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	resp = parseJSONResponse(t, w)
	assert.Equal(t, "rate_limited", resp["error_type"])
}

func TestVerifyOTP_FullFlow(t *testing.T) {
	otpRepo := &fakeOTPRepo{}
	trustRepo := newFakeTrustRepo()
	handler := newTestAuthHandler(t, otpRepo, trustRepo, &fakeEmailSender{})

	seedOTPRecord(otpRepo, "a@x.com", "123456")

	// Wrong code first.
	c, w := newTestGinContext("POST", "/api/otp/verify", map[string]string{"email": "a@x.com", "code": "000000"})
	c.Request.RemoteAddr = "203.0.113.7:51000"
	handler.VerifyOTP(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_code", parseJSONResponse(t, w)["error_type"])

	// Right code succeeds and returns a proof token.
	c, w = newTestGinContext("POST", "/api/otp/verify", map[string]string{"email": "a@x.com", "code": "123456"})
	c.Request.RemoteAddr = "203.0.113.7:51000"
	handler.VerifyOTP(c)

	require.Equal(t, http.StatusOK, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, true, resp["ok"])
	assert.NotEmpty(t, resp["verification_token"])
	assert.Equal(t, true, resp["trusted_ip_recorded"])
	require.NotNil(t, otpRepo.latest.ConsumedAt)

	// Replaying the same code is rejected.
	c, w = newTestGinContext("POST", "/api/otp/verify", map[string]string{"email": "a@x.com", "code": "123456"})
	c.Request.RemoteAddr = "203.0.113.7:51000"
	handler.VerifyOTP(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "code_consumed", parseJSONResponse(t, w)["error_type"])
}

func TestTrustCheck_AfterVerify(t *testing.T) {
	otpRepo := &fakeOTPRepo{}
	trustRepo := newFakeTrustRepo()
	handler := newTestAuthHandler(t, otpRepo, trustRepo, &fakeEmailSender{})

	seedOTPRecord(otpRepo, "a@x.com", "123456")

	c, w := newTestGinContext("POST", "/api/otp/verify", map[string]string{"email": "a@x.com", "code": "123456"})
	c.Request.RemoteAddr = "203.0.113.7:51000"
	handler.VerifyOTP(c)
	require.Equal(t, http.StatusOK, w.Code)

	// Same IP is now trusted.
	c, w = newTestGinContext("GET", "/api/auth/trust-check?email=a@x.com", nil)
	c.Request.RemoteAddr = "203.0.113.7:51000"
	handler.TrustCheck(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, parseJSONResponse(t, w)["trusted"])

	// A different IP is not.
	c, w = newTestGinContext("GET", "/api/auth/trust-check?email=a@x.com", nil)
	c.Request.RemoteAddr = "198.51.100.9:40000"
	handler.TrustCheck(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, parseJSONResponse(t, w)["trusted"])
}

func TestTrustCheck_MissingEmail(t *testing.T) {
	handler := &AuthHandler{}

	c, w := newTestGinContext("GET", "/api/auth/trust-check", nil)
	handler.TrustCheck(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ============================================================================
// Client IP derivation
// ============================================================================

func TestClientIPFromRequest_HeaderOrder(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		cfIP       string
		remoteAddr string
		want       string
	}{
		{
			name:       "forwarded-for wins",
			xff:        "203.0.113.7, 10.0.0.1",
			cfIP:       "198.51.100.9",
			remoteAddr: "10.0.0.2:443",
			want:       "203.0.113.7",
		},
		{
			name:       "cdn header as fallback",
			cfIP:       "198.51.100.9",
			remoteAddr: "10.0.0.2:443",
			want:       "198.51.100.9",
		},
		{
			name:       "socket address as last resort",
			remoteAddr: "10.0.0.2:443",
			want:       "10.0.0.2",
		},
		{
			name: "nothing resolvable",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestGinContext("GET", "/api/auth/trust-check", nil)
			if tt.xff != "" {
				c.Request.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.cfIP != "" {
				c.Request.Header.Set("CF-Connecting-IP", tt.cfIP)
			}
			c.Request.RemoteAddr = tt.remoteAddr

			assert.Equal(t, tt.want, clientIPFromRequest(c))
		})
	}
}
