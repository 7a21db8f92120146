package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port string

	// durable key/value storage: redis | dynamodb | memory
	StorageBackend string
	RedisURL       string
	DynamoTable    string
	IdempotencyTTL time.Duration

	// product store: postgres | mongo
	ProductStore     string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	MongoURI         string
	MongoDatabase    string

	ImageBucket    string
	ImagePublicURL string

	AdminPassword   string
	AdminEmail      string
	DefaultCurrency string

	// RequireCustomerAuth puts checkout behind a signed-in shopper.
	RequireCustomerAuth bool
	SessionIdleTTL      time.Duration
	SessionSweepEvery   time.Duration
	RateLimitRPS        float64
	RateLimitBurst      int

	JWTSecret      string
	AccessTokenTTL time.Duration

	// payment provider: stripe | paystack
	PaymentProvider   string
	StripeSecretKey   string
	PaystackSecretKey string
	PaystackBaseURL   string
	MomoDelay         time.Duration

	// mail relay: form | smtp | sns | sqs | log
	MailRelay      string
	FormRelayURL   string
	SMTPHost       string
	SMTPPort       string
	SMTPUser       string
	SMTPPass       string
	MailSNSTopic   string
	MailSQSQueue   string
	StoreName      string
	AllowedOrigins []string

	KafkaBrokers []string
	KafkaTopic   string

	CloudWatchEnabled bool
	UseSecrets        bool
	SecretsNamespace  string
}

// Load reads the configuration from the environment, after loading a .env file if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:  getEnv("APP_ENV", "development"),
		Port: getEnv("PORT", "8080"),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", "redis")),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379"),
		DynamoTable:    getEnv("DYNAMODB_TABLE", "storefront-state"),
		IdempotencyTTL: getDuration("IDEMPOTENCY_TTL", 24*time.Hour),

		ProductStore:     strings.ToLower(getEnv("PRODUCT_STORE", "postgres")),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       getEnv("POSTGRES_DB", "storefront"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		MongoURI:         getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:    getEnv("MONGO_DATABASE", "storefront"),

		ImageBucket:    getEnv("IMAGE_BUCKET", "product-images"),
		ImagePublicURL: os.Getenv("IMAGE_PUBLIC_URL"),

		AdminPassword:   getEnv("ADMIN_PASSWORD", "admin123"),
		AdminEmail:      getEnv("ADMIN_EMAIL", "admin@example.com"),
		DefaultCurrency: strings.ToUpper(getEnv("DEFAULT_CURRENCY", "GHS")),

		RequireCustomerAuth: os.Getenv("REQUIRE_CUSTOMER_AUTH") == "true",
		SessionIdleTTL:      getDuration("SESSION_IDLE_TTL", 30*time.Minute),
		SessionSweepEvery:   getDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
		RateLimitRPS:        getFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:      getInt("RATE_LIMIT_BURST", 30),

		JWTSecret:      os.Getenv("JWT_SECRET"),
		AccessTokenTTL: getDuration("ACCESS_TOKEN_TTL", 24*time.Hour),

		PaymentProvider:   strings.ToLower(getEnv("PAYMENT_PROVIDER", "paystack")),
		StripeSecretKey:   os.Getenv("STRIPE_API_KEY"),
		PaystackSecretKey: os.Getenv("PAYSTACK_SECRET_KEY"),
		PaystackBaseURL:   getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		MomoDelay:         getDuration("MOMO_DELAY", 2*time.Second),

		MailRelay:    strings.ToLower(getEnv("MAIL_RELAY", "form")),
		FormRelayURL: getEnv("FORM_RELAY_URL", "https://formsubmit.co/ajax"),
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPass:     os.Getenv("SMTP_PASS"),
		MailSNSTopic: os.Getenv("MAIL_SNS_TOPIC_ARN"),
		MailSQSQueue: os.Getenv("MAIL_SQS_QUEUE_URL"),
		StoreName:    getEnv("STORE_NAME", "Yvette Luxe"),

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),

		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "order.placed"),

		CloudWatchEnabled: os.Getenv("CLOUDWATCH_ENABLED") == "true",
		UseSecrets:        os.Getenv("AWS_USE_SECRETS") == "true",
		SecretsNamespace:  getEnv("SECRETS_NAMESPACE", "storefront"),
	}

	if cfg.JWTSecret == "" {
		if cfg.Env == "production" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "dev-secret-change-me"
	}

	return cfg, nil
}

// SecretGetter reads storefront secrets by key (AWS Secrets Manager in production).
type SecretGetter interface {
	Secret(ctx context.Context, key string) (string, error)
	SecretFields(ctx context.Context, key string) (map[string]string, error)
}

// ApplySecrets overrides credentials with values from the secret store. Missing secrets keep
// the environment values.
func (c *Config) ApplySecrets(ctx context.Context, sm SecretGetter) {
	overrides := []struct {
		key string
		dst *string
	}{
		{"STRIPE_API_KEY", &c.StripeSecretKey},
		{"PAYSTACK_SECRET_KEY", &c.PaystackSecretKey},
		{"JWT_SECRET", &c.JWTSecret},
		{"ADMIN_PASSWORD", &c.AdminPassword},
	}
	for _, o := range overrides {
		if v, err := sm.Secret(ctx, o.key); err == nil && v != "" {
			*o.dst = v
		}
	}

	bundles := map[string]map[string]*string{
		"DB_CREDENTIALS": {
			"POSTGRES_USER":     &c.PostgresUser,
			"POSTGRES_PASSWORD": &c.PostgresPassword,
			"POSTGRES_HOST":     &c.PostgresHost,
			"POSTGRES_DB":       &c.PostgresDB,
		},
		"SMTP_CREDENTIALS": {
			"SMTP_USER": &c.SMTPUser,
			"SMTP_PASS": &c.SMTPPass,
		},
	}
	for key, targets := range bundles {
		fields, err := sm.SecretFields(ctx, key)
		if err != nil {
			continue
		}
		for field, dst := range targets {
			if v := fields[field]; v != "" {
				*dst = v
			}
		}
	}
}

// PostgresDSN builds the DSN for gorm's postgres driver.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort, c.PostgresSSLMode)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getDuration accepts Go durations ("2s") or a plain number of milliseconds.
func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && v > 0 {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), "/")); p != "" {
			out = append(out, p)
		}
	}
	return out
}
