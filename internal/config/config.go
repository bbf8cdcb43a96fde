package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"golang.org/x/text/currency"
)

// Config holds every setting the application reads at startup.
type Config struct {
	AppPort string

	DatabaseDriver string
	DatabaseDSN    string

	JWTSecret string
	JWTTTL    time.Duration

	AdminEmail    string
	AdminPassword string

	Paystack PaystackConfig
	Payment  PaymentConfig

	RateLimitMax    int
	RateLimitWindow time.Duration

	RedisAddr     string
	RedisPassword string
	ReferenceTTL  time.Duration
	CartTTL       time.Duration

	RabbitMQURL      string
	OrderEventsQueue string

	SMTP SMTPConfig
}

// PaystackConfig holds gateway connection settings.
type PaystackConfig struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// PaymentConfig holds the limits applied to every payment attempt.
type PaymentConfig struct {
	Currency    currency.Unit
	CallbackURL string
	SuccessURL  string
	FailureURL  string
	MaxTotal    decimal.Decimal
	MinMinor    int64
	MaxMinor    int64
	MaxItems    int
}

// SMTPConfig holds outbound mail settings. An empty Host disables sending.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("DATABASE_DSN", "host=127.0.0.1 user=postgres password=postgres dbname=herbstore port=5432 sslmode=disable")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("PAYSTACK_BASE_URL", "https://api.paystack.co")
	v.SetDefault("PAYSTACK_TIMEOUT", "10s")
	v.SetDefault("PAYMENT_CURRENCY", "NGN")
	v.SetDefault("PAYMENT_CALLBACK_URL", "http://localhost:8080/api/v1/payments/callback")
	v.SetDefault("CHECKOUT_SUCCESS_URL", "http://localhost:3000/checkout/success")
	v.SetDefault("CHECKOUT_FAILURE_URL", "http://localhost:3000/checkout/failure")
	v.SetDefault("PAYMENT_MAX_TOTAL", "10000000")
	v.SetDefault("PAYMENT_MIN_MINOR", 100)
	v.SetDefault("PAYMENT_MAX_MINOR", 1000000000)
	v.SetDefault("PAYMENT_MAX_ITEMS", 50)
	v.SetDefault("RATE_LIMIT_MAX", 5)
	v.SetDefault("RATE_LIMIT_WINDOW", "1m")
	v.SetDefault("REFERENCE_TTL", "24h")
	v.SetDefault("CART_TTL", "72h")
	v.SetDefault("ORDER_EVENTS_QUEUE", "order_queue")
	v.SetDefault("SMTP_PORT", 587)
}

// Load reads the configuration from v. Callers are expected to have run
// SetDefaults and AutomaticEnv on v.
func Load(v *viper.Viper) (*Config, error) {
	secret := v.GetString("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	unit, err := currency.ParseISO(v.GetString("PAYMENT_CURRENCY"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYMENT_CURRENCY %q: %w", v.GetString("PAYMENT_CURRENCY"), err)
	}

	maxTotal, err := decimal.NewFromString(v.GetString("PAYMENT_MAX_TOTAL"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYMENT_MAX_TOTAL: %w", err)
	}

	cfg := &Config{
		AppPort:        v.GetString("APP_PORT"),
		DatabaseDriver: v.GetString("DATABASE_DRIVER"),
		DatabaseDSN:    v.GetString("DATABASE_DSN"),
		JWTSecret:      secret,
		JWTTTL:         v.GetDuration("JWT_TTL"),
		AdminEmail:     v.GetString("ADMIN_EMAIL"),
		AdminPassword:  v.GetString("ADMIN_PASSWORD"),
		Paystack: PaystackConfig{
			BaseURL:   v.GetString("PAYSTACK_BASE_URL"),
			SecretKey: v.GetString("PAYSTACK_SECRET_KEY"),
			Timeout:   v.GetDuration("PAYSTACK_TIMEOUT"),
		},
		Payment: PaymentConfig{
			Currency:    unit,
			CallbackURL: v.GetString("PAYMENT_CALLBACK_URL"),
			SuccessURL:  v.GetString("CHECKOUT_SUCCESS_URL"),
			FailureURL:  v.GetString("CHECKOUT_FAILURE_URL"),
			MaxTotal:    maxTotal,
			MinMinor:    v.GetInt64("PAYMENT_MIN_MINOR"),
			MaxMinor:    v.GetInt64("PAYMENT_MAX_MINOR"),
			MaxItems:    v.GetInt("PAYMENT_MAX_ITEMS"),
		},
		RateLimitMax:     v.GetInt("RATE_LIMIT_MAX"),
		RateLimitWindow:  v.GetDuration("RATE_LIMIT_WINDOW"),
		RedisAddr:        v.GetString("REDIS_ADDR"),
		RedisPassword:    v.GetString("REDIS_PASSWORD"),
		ReferenceTTL:     v.GetDuration("REFERENCE_TTL"),
		CartTTL:          v.GetDuration("CART_TTL"),
		RabbitMQURL:      v.GetString("RABBITMQ_URL"),
		OrderEventsQueue: v.GetString("ORDER_EVENTS_QUEUE"),
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
		},
	}

	if cfg.Payment.MinMinor <= 0 || cfg.Payment.MaxMinor < cfg.Payment.MinMinor {
		return nil, fmt.Errorf("invalid payment bounds: min %d, max %d", cfg.Payment.MinMinor, cfg.Payment.MaxMinor)
	}

	return cfg, nil
}
