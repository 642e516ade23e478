package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	BackendAPIURL  string        `mapstructure:"BACKEND_API_URL"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	KafkaBrokers   string        `mapstructure:"KAFKA_BROKERS"`
	JaegerEndpoint string        `mapstructure:"JAEGER_ENDPOINT"`
	PaymentMode    string        `mapstructure:"PAYMENT_MODE"` // hosted | simulated
	ReturnURL      string        `mapstructure:"PAYMENT_RETURN_URL"`
	FeeAmount      string        `mapstructure:"NOMINATION_FEE_AMOUNT"`
	FeeCurrency    string        `mapstructure:"NOMINATION_FEE_CURRENCY"`
	CountryCode    string        `mapstructure:"DEFAULT_COUNTRY_CODE"`
	BillingCountry string        `mapstructure:"DEFAULT_BILLING_COUNTRY"`
	DraftTTL       time.Duration `mapstructure:"DRAFT_TTL"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
}

func Load() (*Config, error) {
	viper.SetDefault("PORT", "8082")
	viper.SetDefault("BACKEND_API_URL", "http://localhost:5001")
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("PAYMENT_MODE", "hosted")
	viper.SetDefault("PAYMENT_RETURN_URL", "http://localhost:8082/api/payments/return")
	viper.SetDefault("NOMINATION_FEE_AMOUNT", "500.00")
	viper.SetDefault("NOMINATION_FEE_CURRENCY", "AED")
	viper.SetDefault("DEFAULT_COUNTRY_CODE", "+971")
	viper.SetDefault("DEFAULT_BILLING_COUNTRY", "AE")
	viper.SetDefault("DRAFT_TTL", 24*time.Hour)
	viper.SetDefault("REQUEST_TIMEOUT", 15*time.Second)
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Simulated reports whether the fallback payment path is enabled. It must
// never be true in production deployments.
func (c *Config) Simulated() bool {
	return c.PaymentMode == "simulated"
}
