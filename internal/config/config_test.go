package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_HOST", "localhost")
	t.Setenv("DATABASE_USER", "app")
	t.Setenv("DATABASE_DBNAME", "marketplace")
	t.Setenv("OTP_PEPPER", "pepper-value")
	t.Setenv("TOKEN_SECRET", "token-secret")
}

func TestLoad_DefaultsApplied(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 300, cfg.OTP.CodeTTLSec)
	assert.Equal(t, 30, cfg.OTP.ResendCooldownSec)
	assert.Equal(t, 5, cfg.OTP.MaxAttempts)
	assert.Equal(t, 90, cfg.Trust.WindowDays)
	assert.Equal(t, 300, cfg.Token.ExpirySec)
	assert.False(t, cfg.Email.Enabled)
}

func TestLoad_MissingPepperFails(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("OTP_PEPPER", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OTP_PEPPER")
}

func TestLoad_MissingDatabaseFails(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATABASE_HOST", "")

	_, err := Load("")
	require.Error(t, err)
}

func TestLoad_EmailEnabledRequiresProvider(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("EMAIL_ENABLED", "true")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESEND_API_KEY")

	t.Setenv("RESEND_API_KEY", "re_123")
	_, err = Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EMAIL_FROM")

	t.Setenv("EMAIL_FROM", "80bir <no-reply@80bir.com.tr>")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Email.Enabled)
}

func TestPostgresConnectionString(t *testing.T) {
	d := DatabaseConfig{
		Host: "db", Port: "5432", User: "app",
		Password: "pw", DBName: "marketplace", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=db port=5432 user=app password=pw dbname=marketplace sslmode=disable",
		d.PostgresConnectionString(),
	)
}
