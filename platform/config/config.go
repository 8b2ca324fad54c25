// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// RedisConfig provides redis settings for the job queue and session store.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketCaseDocuments() string
	IsMinIOEnabled() bool
}

// WhatsAppConfig provides settings for the gowa WhatsApp gateway.
type WhatsAppConfig interface {
	GetWhatsAppURL() string
	GetWhatsAppKey() string
	GetWhatsAppDeviceID() string
	GetWhatsAppWebhookSecret() string
}

// ExtractionConfig provides settings for the document extraction model.
type ExtractionConfig interface {
	GetGeminiAPIKey() string
	GetExtractionModel() string
	IsExtractionEnabled() bool
}

// InsurerMailConfig provides SMTP settings for insurer claim dispatch.
type InsurerMailConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetMailFromName() string
	GetMailFromAddress() string
	GetClaimsCCAddress() string
	GetFallbackClaimsAddress() string
	IsInsurerMailEnabled() bool
}

// BotConfig provides conversation flow settings.
type BotConfig interface {
	GetDamagePhotoThreshold() int
	GetSignBaseURL() string
	GetSessionTTL() time.Duration
	GetInsurerEventSecret() string
}

// SchedulerConfig combines what the extraction worker process needs.
type SchedulerConfig interface {
	RedisConfig
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                   string
	HTTPAddr              string
	DatabaseURL           string
	RedisURL              string
	RedisTLSInsecure      bool
	AsynqQueueName        string
	AsynqConcurrency      int
	CORSAllowAll          bool
	CORSOrigins           []string
	MinIOEndpoint         string
	MinIOAccessKey        string
	MinIOSecretKey        string
	MinIOUseSSL           bool
	MinIOMaxFileSize      int64
	MinioBucketCaseDocs   string
	WhatsAppURL           string
	WhatsAppKey           string
	WhatsAppDeviceID      string
	WhatsAppWebhookSecret string
	GeminiAPIKey          string
	ExtractionModel       string
	SMTPHost              string
	SMTPPort              int
	SMTPUsername          string
	SMTPPassword          string
	MailFromName          string
	MailFromAddress       string
	ClaimsCCAddress       string
	FallbackClaimsAddress string
	DamagePhotoThreshold  int
	SignBaseURL           string
	SessionTTL            time.Duration
	InsurerEventSecret    string
}

// Load reads configuration from the environment, with .env as a fallback for
// local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisURL:              getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisTLSInsecure:      getEnvBool("REDIS_TLS_INSECURE", false),
		AsynqQueueName:        getEnv("ASYNQ_QUEUE", "extraction"),
		AsynqConcurrency:      getEnvInt("ASYNQ_CONCURRENCY", 10),
		CORSAllowAll:          getEnvBool("CORS_ALLOW_ALL", false),
		CORSOrigins:           splitCSV(os.Getenv("CORS_ORIGINS")),
		MinIOEndpoint:         os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey:        os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey:        os.Getenv("MINIO_SECRET_KEY"),
		MinIOUseSSL:           getEnvBool("MINIO_USE_SSL", false),
		MinIOMaxFileSize:      getEnvInt64("MINIO_MAX_FILE_SIZE", 100*1024*1024),
		MinioBucketCaseDocs:   getEnv("MINIO_BUCKET_CASE_DOCUMENTS", "case-documents"),
		WhatsAppURL:           os.Getenv("WHATSAPP_URL"),
		WhatsAppKey:           os.Getenv("WHATSAPP_KEY"),
		WhatsAppDeviceID:      os.Getenv("WHATSAPP_DEVICE_ID"),
		WhatsAppWebhookSecret: os.Getenv("WHATSAPP_WEBHOOK_SECRET"),
		GeminiAPIKey:          os.Getenv("GEMINI_API_KEY"),
		ExtractionModel:       getEnv("EXTRACTION_MODEL", "gemini-2.0-flash"),
		SMTPHost:              os.Getenv("SMTP_HOST"),
		SMTPPort:              getEnvInt("SMTP_PORT", 587),
		SMTPUsername:          os.Getenv("SMTP_USERNAME"),
		SMTPPassword:          os.Getenv("SMTP_PASSWORD"),
		MailFromName:          getEnv("MAIL_FROM_NAME", "Auto Daune"),
		MailFromAddress:       getEnv("MAIL_FROM_ADDRESS", "no-reply@autodaune.ro"),
		ClaimsCCAddress:       getEnv("CLAIMS_CC_ADDRESS", "office@autodaune.ro"),
		FallbackClaimsAddress: getEnv("CLAIMS_FALLBACK_ADDRESS", "office@autodaune.ro"),
		DamagePhotoThreshold:  getEnvInt("BOT_DAMAGE_PHOTO_THRESHOLD", 4),
		SignBaseURL:           getEnv("SIGN_BASE_URL", "http://localhost:8080"),
		SessionTTL:            getEnvDuration("CHAT_SESSION_TTL", 24*time.Hour),
		InsurerEventSecret:    os.Getenv("INSURER_EVENT_SECRET"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

// =============================================================================
// Interface implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string  { return c.DatabaseURL }
func (c *Config) GetRedisURL() string     { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetHTTPAddr() string     { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool   { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

func (c *Config) GetMinIOEndpoint() string          { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string         { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string         { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool              { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64        { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketCaseDocuments() string { return c.MinioBucketCaseDocs }
func (c *Config) IsMinIOEnabled() bool {
	return c.MinIOEndpoint != "" && c.MinIOAccessKey != "" && c.MinIOSecretKey != ""
}

func (c *Config) GetWhatsAppURL() string           { return c.WhatsAppURL }
func (c *Config) GetWhatsAppKey() string           { return c.WhatsAppKey }
func (c *Config) GetWhatsAppDeviceID() string      { return c.WhatsAppDeviceID }
func (c *Config) GetWhatsAppWebhookSecret() string { return c.WhatsAppWebhookSecret }

func (c *Config) GetGeminiAPIKey() string    { return c.GeminiAPIKey }
func (c *Config) GetExtractionModel() string { return c.ExtractionModel }
func (c *Config) IsExtractionEnabled() bool  { return c.GeminiAPIKey != "" }

func (c *Config) GetSMTPHost() string              { return c.SMTPHost }
func (c *Config) GetSMTPPort() int                 { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string          { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string          { return c.SMTPPassword }
func (c *Config) GetMailFromName() string          { return c.MailFromName }
func (c *Config) GetMailFromAddress() string       { return c.MailFromAddress }
func (c *Config) GetClaimsCCAddress() string       { return c.ClaimsCCAddress }
func (c *Config) GetFallbackClaimsAddress() string { return c.FallbackClaimsAddress }
func (c *Config) IsInsurerMailEnabled() bool       { return c.SMTPHost != "" }

func (c *Config) GetDamagePhotoThreshold() int  { return c.DamagePhotoThreshold }
func (c *Config) GetSignBaseURL() string        { return c.SignBaseURL }
func (c *Config) GetSessionTTL() time.Duration  { return c.SessionTTL }
func (c *Config) GetInsurerEventSecret() string { return c.InsurerEventSecret }

// =============================================================================
// Helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitCSV(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
