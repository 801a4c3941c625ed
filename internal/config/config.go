// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Payment     PaymentConfig
	JWT         JWTConfig
	AWS         AWSConfig
	Admin       AdminConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
	PublicURL    string // base URL the payment provider calls back on
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type PaymentConfig struct {
	ShopID           string
	SecretKey        string
	APIURL           string
	WebhookSecret    string
	Currency         string
	OrderTTLHours    int // payment window for a pending order
	IntentTimeoutSec int
	StatusTimeoutSec int
	TestMode         bool
}

type JWTConfig struct {
	SecretKey      string
	AccessTokenTTL int // in hours
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	PresignTTLMin   int
}

type AdminConfig struct {
	Password string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
			PublicURL:    getEnv("SERVER_PUBLIC_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "kitshop"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
		},
		Payment: PaymentConfig{
			ShopID:           getEnv("BEPAID_SHOP_ID", ""),
			SecretKey:        getEnv("BEPAID_SECRET_KEY", ""),
			APIURL:           getEnv("BEPAID_API_URL", "https://api.bepaid.by"),
			WebhookSecret:    getEnv("BEPAID_WEBHOOK_SECRET", ""),
			Currency:         getEnv("PAYMENT_CURRENCY", "BYN"),
			OrderTTLHours:    getEnvAsInt("ORDER_TTL_HOURS", 24),
			IntentTimeoutSec: getEnvAsInt("PAYMENT_INTENT_TIMEOUT", 10),
			StatusTimeoutSec: getEnvAsInt("PAYMENT_STATUS_TIMEOUT", 5),
			TestMode:         getEnvAsBool("BEPAID_TEST_MODE", true),
		},
		JWT: JWTConfig{
			SecretKey:      getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenTTL: getEnvAsInt("JWT_ACCESS_TTL", 24), // 24 hours
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "eu-central-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", "kitshop-content"),
			PresignTTLMin:   getEnvAsInt("AWS_PRESIGN_TTL", 60),
		},
		Admin: AdminConfig{
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.Environment == "production" {
		if c.JWT.SecretKey == "your-secret-key-change-in-production" {
			return fmt.Errorf("JWT secret key must be changed in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database password is required in production")
		}
		if c.Payment.ShopID == "" || c.Payment.SecretKey == "" {
			return fmt.Errorf("bePaid credentials are required in production")
		}
		if c.Admin.Password == "" {
			return fmt.Errorf("admin password is required in production")
		}
	}

	if c.Payment.OrderTTLHours < 1 {
		return fmt.Errorf("order TTL must be at least one hour")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
