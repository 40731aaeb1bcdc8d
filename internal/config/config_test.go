package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load("testdata/missing.env")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "farm_billing", cfg.MongoDB.DBName)
	assert.Equal(t, 20*time.Second, cfg.Billing.DeliveryTimeout)
	assert.Equal(t, 4, cfg.Billing.BatchConcurrency)
	assert.Equal(t, 2*time.Minute, cfg.Billing.LockTTL)
	assert.Equal(t, time.UTC, cfg.Billing.Location())
	assert.False(t, cfg.Mail.Enabled())
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Sheets.Enabled())
	assert.False(t, cfg.WhatsApp.Enabled())
}

func TestLoad_RequiresMongoAndSecret(t *testing.T) {
	t.Setenv("MONGODB_URI", "")
	t.Setenv("JWT_SECRET", "x")
	_, err := Load("testdata/missing.env")
	assert.ErrorContains(t, err, "MONGODB_URI")

	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "")
	_, err = Load("testdata/missing.env")
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoad_RejectsBadBillingSettings(t *testing.T) {
	cases := map[string]struct {
		key, value, want string
	}{
		"unparsable timeout":     {"BILLING_DELIVERY_TIMEOUT", "soon", "BILLING_DELIVERY_TIMEOUT"},
		"timeout beyond tx life": {"BILLING_DELIVERY_TIMEOUT", "90s", "BILLING_DELIVERY_TIMEOUT"},
		"zero concurrency":       {"BILLING_BATCH_CONCURRENCY", "0", "BILLING_BATCH_CONCURRENCY"},
		"lock shorter than send": {"BILLING_LOCK_TTL", "5s", "BILLING_LOCK_TTL"},
		"unknown timezone":       {"BILLING_TIMEZONE", "Mars/Olympus", "BILLING_TIMEZONE"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tc.key, tc.value)
			_, err := Load("testdata/missing.env")
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestLoad_SheetsNeedsBothSettings(t *testing.T) {
	setRequired(t)
	t.Setenv("GOOGLE_SHEETS_CREDENTIALS_PATH", "/etc/creds.json")
	t.Setenv("GOOGLE_SHEET_LEDGER_ID", "")
	_, err := Load("testdata/missing.env")
	assert.ErrorContains(t, err, "GOOGLE_SHEET_LEDGER_ID")
}

func TestLoad_OptionalIntegrations(t *testing.T) {
	setRequired(t)
	t.Setenv("MAIL_API_BASE_URL", "https://mail.example.test")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("BILLING_TIMEZONE", "Africa/Conakry")

	cfg, err := Load("testdata/missing.env")
	require.NoError(t, err)
	assert.True(t, cfg.Mail.Enabled())
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "Africa/Conakry", cfg.Billing.Location().String())
}
