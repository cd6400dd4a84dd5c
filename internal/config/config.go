package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Booking  BookingConfig
	VNPay    VNPayConfig
	MoMo     MoMoConfig
	Kafka    KafkaConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret             string
	RefreshSecret      string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// BookingConfig holds checkout and cancellation policy knobs
type BookingConfig struct {
	HoldTTL             time.Duration // how long a seat hold survives without payment
	SweepSchedule       string        // cron spec for the expiry sweep
	GatewayTimeout      time.Duration // outbound gateway HTTP timeout
	FullRefundHours     int           // >= this many hours before departure: full refund
	PartialRefundHours  int           // >= this many hours: percentage refund
	PartialRefundRate   int           // percent refunded in the partial window
	FullRefundFee       int64         // VND processing fee in the full-refund window
	PartialRefundFee    int64         // VND processing fee in the partial window
}

// VNPayConfig holds VNPay gateway credentials
type VNPayConfig struct {
	Enabled    bool
	TmnCode    string
	HashSecret string // SECRET - never expose to client
	PayURL     string
	ReturnURL  string
}

// MoMoConfig holds MoMo gateway credentials
type MoMoConfig struct {
	Enabled     bool
	PartnerCode string
	AccessKey   string
	SecretKey   string // SECRET - never expose to client
	Endpoint    string
	ReturnURL   string
	IPNURL      string
}

// KafkaConfig holds the booking event stream configuration.
// Publishing is disabled when no brokers are configured.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", ""),
			RefreshSecret:      getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenExpiry:  time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
			RefreshTokenExpiry: time.Duration(getEnvAsInt("JWT_REFRESH_TOKEN_EXPIRY", 604800)) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Booking: BookingConfig{
			HoldTTL:            time.Duration(getEnvAsInt("BOOKING_HOLD_TTL_MINUTES", 30)) * time.Minute,
			SweepSchedule:      getEnv("BOOKING_SWEEP_SCHEDULE", "0 */5 * * * *"), // every 5 minutes
			GatewayTimeout:     time.Duration(getEnvAsInt("GATEWAY_TIMEOUT_SECONDS", 30)) * time.Second,
			FullRefundHours:    getEnvAsInt("CANCEL_FULL_REFUND_HOURS", 72),
			PartialRefundHours: getEnvAsInt("CANCEL_PARTIAL_REFUND_HOURS", 24),
			PartialRefundRate:  getEnvAsInt("CANCEL_PARTIAL_REFUND_RATE", 80),
			FullRefundFee:      int64(getEnvAsInt("CANCEL_FULL_REFUND_FEE", 100000)),
			PartialRefundFee:   int64(getEnvAsInt("CANCEL_PARTIAL_REFUND_FEE", 50000)),
		},
		VNPay: VNPayConfig{
			Enabled:    getEnvAsBool("VNPAY_ENABLED", true),
			TmnCode:    getEnv("VNPAY_TMN_CODE", ""),
			HashSecret: getEnv("VNPAY_HASH_SECRET", ""),
			PayURL:     getEnv("VNPAY_PAY_URL", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"),
			ReturnURL:  getEnv("VNPAY_RETURN_URL", ""),
		},
		MoMo: MoMoConfig{
			Enabled:     getEnvAsBool("MOMO_ENABLED", true),
			PartnerCode: getEnv("MOMO_PARTNER_CODE", ""),
			AccessKey:   getEnv("MOMO_ACCESS_KEY", ""),
			SecretKey:   getEnv("MOMO_SECRET_KEY", ""),
			Endpoint:    getEnv("MOMO_ENDPOINT", "https://test-payment.momo.vn/v2/gateway/api/create"),
			ReturnURL:   getEnv("MOMO_RETURN_URL", ""),
			IPNURL:      getEnv("MOMO_IPN_URL", ""),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsSlice("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_BOOKING_TOPIC", "booking-events"),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.JWT.RefreshSecret == "" {
		return fmt.Errorf("JWT_REFRESH_SECRET is required")
	}

	// Gateway credentials are only required outside development
	if c.Server.Environment == "production" {
		if c.VNPay.Enabled {
			if c.VNPay.TmnCode == "" || c.VNPay.HashSecret == "" || c.VNPay.ReturnURL == "" {
				return fmt.Errorf("VNPAY_TMN_CODE, VNPAY_HASH_SECRET and VNPAY_RETURN_URL are required when VNPay is enabled in production")
			}
		}
		if c.MoMo.Enabled {
			if c.MoMo.PartnerCode == "" || c.MoMo.AccessKey == "" || c.MoMo.SecretKey == "" || c.MoMo.ReturnURL == "" {
				return fmt.Errorf("MOMO_PARTNER_CODE, MOMO_ACCESS_KEY, MOMO_SECRET_KEY and MOMO_RETURN_URL are required when MoMo is enabled in production")
			}
		}
	}

	if c.Booking.HoldTTL <= 0 {
		return fmt.Errorf("BOOKING_HOLD_TTL_MINUTES must be positive")
	}

	if c.Booking.PartialRefundRate < 0 || c.Booking.PartialRefundRate > 100 {
		return fmt.Errorf("CANCEL_PARTIAL_REFUND_RATE must be between 0 and 100")
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
