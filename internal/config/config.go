package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // container images often ship without zoneinfo

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode      string // Set via flag, not env
	LogLevel     string
	MockServices  bool
	LogEmailsPath string // file that receives a copy of every email

	// Storage
	StoreDriver string
	DatabaseURL string
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret       string
	JwtTTL          time.Duration
	CaptchaTokenTTL time.Duration

	// Server
	ApiPort        string
	ServiceApiPort string
	AllowedOrigins []string

	// Cloudflare
	CloudflareTurnstileSecretKey string
	CloudflareSiteVerifyURL      string

	// Email
	SmtpHost           string
	SmtpPort           int
	SmtpUsername       string
	SmtpPassword       string
	SmtpFromAddress    string
	EmailTemplatesPath string

	// Events
	KafkaBrokers []string
	KafkaTopic   string

	// Marketplace
	AppName            string
	PageSize           int
	CacheTTL           time.Duration
	WhatsAppServiceURL string
	WhatsAppPhone      string
	SiteURL            string
	Timezone           *time.Location
	FreightRetention   time.Duration
	CleanupSchedule    string
	CatalogPath        string

	// Rate Limiting Defaults
	RateLimitSoftBucketSize int
	RateLimitSoftRefillRate int // tokens per second
	RateLimitHardBucketSize int
	RateLimitHardRefillRate int // tokens per second
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		RunMode: runMode, // Set from flag
	}

	var err error

	// Helper function to get env var or default
	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	// Helper function to get required env var
	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists || value == "" {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	getSeconds := func(key, defaultValue string) (time.Duration, error) {
		n, err := strconv.ParseInt(getEnv(key, defaultValue), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return time.Duration(n) * time.Second, nil
	}

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.MockServices = getEnv("MOCK_SERVICES", "") == "true"
	cfg.LogEmailsPath = getEnv("LOG_EMAILS", "")

	cfg.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres))
	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if cfg.DatabaseURL, err = getRequiredEnv("DATABASE_URL"); err != nil {
			return nil, err
		}
	case StoreDriverMongo:
		if cfg.MongoURI, err = getRequiredEnv("MONGO_URI"); err != nil {
			return nil, err
		}
		cfg.MongoDbName = getEnv("MONGO_DB_NAME", "fretes")
	case StoreDriverMemory:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER: %q", cfg.StoreDriver)
	}

	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.AllowedOrigins = splitList(getEnv("ALLOWED_ORIGINS", "*"))
	cfg.CloudflareTurnstileSecretKey = getEnv("CLOUDFLARE_TURNSTILE_SECRET_KEY", "")
	cfg.CloudflareSiteVerifyURL = getEnv("CLOUDFLARE_SITEVERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify")
	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "nao-responda@fretes.example.com")
	cfg.EmailTemplatesPath = getEnv("EMAIL_TEMPLATES_PATH", "")
	cfg.KafkaBrokers = splitList(getEnv("KAFKA_BROKERS", ""))
	cfg.KafkaTopic = getEnv("KAFKA_TOPIC", "freight-events")
	cfg.AppName = getEnv("APP_NAME", "Fretes")
	cfg.WhatsAppServiceURL = getEnv("WHATSAPP_SERVICE_URL", "https://wa.me/")
	cfg.WhatsAppPhone = getEnv("WHATSAPP_PHONE", "5538997353264")
	cfg.SiteURL = getEnv("SITE_URL", "http://localhost:5173")
	cfg.CleanupSchedule = getEnv("CLEANUP_SCHEDULE", "@daily")
	cfg.CatalogPath = getEnv("CATALOG_PATH", "")

	cfg.Timezone, err = time.LoadLocation(getEnv("TIMEZONE", "America/Sao_Paulo"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	// Load numeric and time duration values with defaults and parsing
	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	if cfg.JwtTTL, err = getSeconds("JWT_TTL_SECONDS", "3600"); err != nil {
		return nil, err
	}
	if cfg.CaptchaTokenTTL, err = getSeconds("CAPTCHA_TOKEN_TTL", "1200"); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getSeconds("CACHE_TTL_SECONDS", "60"); err != nil {
		return nil, err
	}

	cfg.SmtpPort, err = strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	cfg.PageSize, err = strconv.Atoi(getEnv("PAGE_SIZE", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAGE_SIZE: %w", err)
	}

	retentionDays, err := strconv.Atoi(getEnv("FREIGHT_RETENTION_DAYS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid FREIGHT_RETENTION_DAYS: %w", err)
	}
	if retentionDays <= 0 {
		return nil, fmt.Errorf("invalid FREIGHT_RETENTION_DAYS: must be positive, got %d", retentionDays)
	}
	cfg.FreightRetention = time.Duration(retentionDays) * 24 * time.Hour

	// Rate Limiting
	cfg.RateLimitSoftBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_SOFT_BUCKET_SIZE", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_SOFT_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitSoftRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_SOFT_REFILL_RATE", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_SOFT_REFILL_RATE: %w", err)
	}
	cfg.RateLimitHardBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_HARD_BUCKET_SIZE", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_HARD_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitHardRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_HARD_REFILL_RATE", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_HARD_REFILL_RATE: %w", err)
	}

	return cfg, nil
}
