package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Stripe   StripeConfig
	Email    EmailConfig
	Storage  StorageConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	URL string
}

type JWTConfig struct {
	Secret string
}

// StripeConfig is passed explicitly into the billing processor and the
// subscription controller; there is no package-level Stripe state.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string

	PricePremium      string
	PriceSuperPremium string

	// CommissionRate is the partner commission as a fraction of the amount
	// paid on each referred invoice.
	CommissionRate float64

	SuccessURL string
	CancelURL  string
}

type EmailConfig struct {
	ResendAPIKey string
}

type StorageConfig struct {
	Bucket string
	Region string
}

func Load() *Config {
	godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "reeflog-dev-secret"),
		},
		Stripe: StripeConfig{
			SecretKey:         getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret:     getEnv("STRIPE_WEBHOOK_SECRET", ""),
			PricePremium:      getEnv("STRIPE_PRICE_PREMIUM", ""),
			PriceSuperPremium: getEnv("STRIPE_PRICE_SUPER_PREMIUM", ""),
			CommissionRate:    getEnvFloat("AFFILIATE_COMMISSION_RATE", 0.05),
			SuccessURL:        getEnv("CHECKOUT_SUCCESS_URL", "https://reeflog.app/subscriptions/payment-success"),
			CancelURL:         getEnv("CHECKOUT_CANCEL_URL", "https://reeflog.app/subscriptions/payment-cancelled"),
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
		},
		Storage: StorageConfig{
			Bucket: getEnv("S3_BUCKET", "reeflog-photos"),
			Region: getEnv("S3_REGION", "eu-central-1"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
