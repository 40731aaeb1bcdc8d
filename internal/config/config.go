package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	MongoDB  MongoDBConfig
	Auth     AuthConfig
	Billing  BillingConfig
	Mail     MailConfig
	Redis    RedisConfig
	Sheets   SheetsConfig
	WhatsApp WhatsAppConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// AuthConfig holds the session token settings.
type AuthConfig struct {
	JWTSecret string
}

// BillingConfig tunes the monthly billing engine.
type BillingConfig struct {
	Timezone         string
	DeliveryTimeout  time.Duration
	BatchConcurrency int
	LockTTL          time.Duration
	// CronSchedule triggers the batch run from inside the process; empty disables it.
	CronSchedule string
}

// MailConfig configures the transactional mail API. An empty BaseURL means
// emails are only logged.
type MailConfig struct {
	BaseURL     string
	APIKey      string
	FromAddress string
}

// Enabled reports whether a mail API is configured.
func (m MailConfig) Enabled() bool {
	return m.BaseURL != ""
}

// RedisConfig configures the distributed lock backend. An empty Addr falls
// back to MongoDB leases.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether Redis is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// SheetsConfig points at the accounting spreadsheet that mirrors new invoices.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether the ledger mirror is configured.
func (s SheetsConfig) Enabled() bool {
	return s.CredentialsPath != "" && s.SpreadsheetID != ""
}

// WhatsAppConfig contains credentials for batch notifications through the
// Meta WhatsApp Cloud API.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
	APIVersion    string
	ManagerID     string
}

// Enabled reports whether notifications can be sent.
func (w WhatsAppConfig) Enabled() bool {
	return w.AccessToken != "" && w.PhoneNumberID != "" && w.ManagerID != ""
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	deliveryTimeout, err := getenvDuration("BILLING_DELIVERY_TIMEOUT", 20*time.Second)
	if err != nil {
		return nil, err
	}
	lockTTL, err := getenvDuration("BILLING_LOCK_TTL", 2*time.Minute)
	if err != nil {
		return nil, err
	}
	concurrency, err := getenvInt("BILLING_BATCH_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}
	redisDB, err := getenvInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "farm_billing"),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
		},
		Billing: BillingConfig{
			Timezone:         getenvWithDefault("BILLING_TIMEZONE", "UTC"),
			DeliveryTimeout:  deliveryTimeout,
			BatchConcurrency: concurrency,
			LockTTL:          lockTTL,
			CronSchedule:     os.Getenv("BILLING_CRON_SCHEDULE"),
		},
		Mail: MailConfig{
			BaseURL:     os.Getenv("MAIL_API_BASE_URL"),
			APIKey:      os.Getenv("MAIL_API_KEY"),
			FromAddress: getenvWithDefault("MAIL_FROM_ADDRESS", "billing@animalfarm.local"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_LEDGER_ID"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			ManagerID:     os.Getenv("WHATSAPP_MANAGER_ID"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch {
	case c.MongoDB.URI == "":
		return errors.New("MONGODB_URI must be provided")
	case c.MongoDB.DBName == "":
		return errors.New("MONGODB_DB_NAME must not be empty")
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET must be provided")
	}

	if _, err := time.LoadLocation(c.Billing.Timezone); err != nil {
		return fmt.Errorf("BILLING_TIMEZONE is invalid: %w", err)
	}

	// Delivery runs inside a MongoDB transaction, which aborts after 60s.
	if c.Billing.DeliveryTimeout <= 0 || c.Billing.DeliveryTimeout >= time.Minute {
		return errors.New("BILLING_DELIVERY_TIMEOUT must be between 0 and 60s")
	}

	if c.Billing.BatchConcurrency < 1 {
		return errors.New("BILLING_BATCH_CONCURRENCY must be at least 1")
	}

	if c.Billing.LockTTL <= c.Billing.DeliveryTimeout {
		return errors.New("BILLING_LOCK_TTL must exceed BILLING_DELIVERY_TIMEOUT")
	}

	if c.Mail.Enabled() && c.Mail.FromAddress == "" {
		return errors.New("MAIL_FROM_ADDRESS must be provided when MAIL_API_BASE_URL is set")
	}

	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_LEDGER_ID must be provided together")
	}

	return nil
}

// Location returns the billing timezone. Validate has already checked it.
func (c BillingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration such as 20s: %w", key, err)
	}
	return d, nil
}
