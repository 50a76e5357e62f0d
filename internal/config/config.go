package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is loaded once at startup from the environment. Pricing knobs
// (shipping, tax, certification fee) live here rather than in code so
// deployments can adjust them without a rebuild.
type Config struct {
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeAPIBase       string
	GatewayTimeout      time.Duration

	ShippingFeeCents      int64
	TaxRateBps            int64
	CertificationFeeCents int64

	FrontendURL             string
	ShopRedirectPath        string
	DistributorRedirectPath string

	JWTSecret string
}

func Load() *Config {
	gatewayTimeoutSec, _ := strconv.Atoi(getEnvOrDefault("GATEWAY_TIMEOUT_SECONDS", "15"))
	shippingFee, _ := strconv.ParseInt(getEnvOrDefault("SHIPPING_FEE_CENTS", "1500"), 10, 64)
	taxRate, _ := strconv.ParseInt(getEnvOrDefault("TAX_RATE_BPS", "800"), 10, 64)
	certFee, _ := strconv.ParseInt(getEnvOrDefault("CERTIFICATION_FEE_CENTS", "2500"), 10, 64)

	return &Config{
		Port: getEnvOrDefault("PORT", "8001"),

		DBHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DBPort:     getEnvOrDefault("DB_PORT", "5432"),
		DBUser:     getEnvOrDefault("DB_USER", "postgres"),
		DBPassword: getEnvOrDefault("DB_PASSWORD", "postgres"),
		DBName:     getEnvOrDefault("DB_NAME", "skygloss_db"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripeAPIBase:       os.Getenv("STRIPE_API_BASE"),
		GatewayTimeout:      time.Duration(gatewayTimeoutSec) * time.Second,

		ShippingFeeCents:      shippingFee,
		TaxRateBps:            taxRate,
		CertificationFeeCents: certFee,

		FrontendURL:             getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
		ShopRedirectPath:        getEnvOrDefault("SHOP_REDIRECT_PATH", "/dashboard/shop"),
		DistributorRedirectPath: getEnvOrDefault("DISTRIBUTOR_REDIRECT_PATH", "/dashboard/distributor"),

		JWTSecret: getEnvOrDefault("JWT_SECRET", "dev-secret-change-me"),
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
