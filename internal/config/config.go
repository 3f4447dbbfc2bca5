/**
 * @description
 * This file handles the configuration management for the uplink-service.
 * It uses the 'viper' library to load configuration from environment variables,
 * providing a centralized and consistent way to manage application settings.
 */
package config

import (
	"github.com/spf13/viper"

	"github.com/myscrollr/uplink-service/internal/domain"
)

// Config holds all configuration for the application.
type Config struct {
	ServerPort  string `mapstructure:"SERVER_PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	FrontendURL string `mapstructure:"FRONTEND_URL"`

	// Identity provider (Logto-compatible OIDC).
	LogtoEndpoint     string `mapstructure:"LOGTO_ENDPOINT"`
	LogtoJWKSURL      string `mapstructure:"LOGTO_JWKS_URL"`
	LogtoIssuer       string `mapstructure:"LOGTO_ISSUER"`
	LogtoAudience     string `mapstructure:"LOGTO_AUDIENCE"`
	LogtoM2MAppID     string `mapstructure:"LOGTO_M2M_APP_ID"`
	LogtoM2MAppSecret string `mapstructure:"LOGTO_M2M_APP_SECRET"`
	LogtoM2MResource  string `mapstructure:"LOGTO_M2M_RESOURCE"`
	LogtoUplinkRoleID string `mapstructure:"LOGTO_UPLINK_ROLE_ID"`

	// Upstream collaborator APIs.
	BillingAPIURL string `mapstructure:"BILLING_API_URL"`
	StreamsAPIURL string `mapstructure:"STREAMS_API_URL"`

	// Event bus.
	RabbitMQURL    string `mapstructure:"RABBITMQ_URL"`
	EventsExchange string `mapstructure:"EVENTS_EXCHANGE"`

	// Reconciliation sweep for checkout sessions stuck in pending.
	CheckoutSweepSchedule  string `mapstructure:"CHECKOUT_SWEEP_SCHEDULE"`
	CheckoutSweepMaxAgeMin int    `mapstructure:"CHECKOUT_SWEEP_MAX_AGE_MIN"`

	// Payment provider price IDs per plan. Empty entries disable that plan's
	// checkout in this deployment.
	PriceProMonthly         string `mapstructure:"STRIPE_PRICE_PRO_MONTHLY"`
	PriceProQuarterly       string `mapstructure:"STRIPE_PRICE_PRO_QUARTERLY"`
	PriceProAnnual          string `mapstructure:"STRIPE_PRICE_PRO_ANNUAL"`
	PriceProLifetime        string `mapstructure:"STRIPE_PRICE_PRO_LIFETIME"`
	PriceUnlimitedMonthly   string `mapstructure:"STRIPE_PRICE_UNLIMITED_MONTHLY"`
	PriceUnlimitedQuarterly string `mapstructure:"STRIPE_PRICE_UNLIMITED_QUARTERLY"`
	PriceUnlimitedAnnual    string `mapstructure:"STRIPE_PRICE_UNLIMITED_ANNUAL"`
	PriceUnlimitedLifetime  string `mapstructure:"STRIPE_PRICE_UNLIMITED_LIFETIME"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (config Config, err error) {
	viper.SetDefault("SERVER_PORT", "8086")
	viper.SetDefault("FRONTEND_URL", "https://myscrollr.com")
	viper.SetDefault("LOGTO_M2M_RESOURCE", "https://default.logto.app/api")
	viper.SetDefault("EVENTS_EXCHANGE", "uplink_events")
	viper.SetDefault("CHECKOUT_SWEEP_SCHEDULE", "*/15 * * * *")
	viper.SetDefault("CHECKOUT_SWEEP_MAX_AGE_MIN", 30)
	viper.AutomaticEnv()

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	for _, key := range []string{
		"SERVER_PORT", "DATABASE_URL", "FRONTEND_URL",
		"LOGTO_ENDPOINT", "LOGTO_JWKS_URL", "LOGTO_ISSUER", "LOGTO_AUDIENCE",
		"LOGTO_M2M_APP_ID", "LOGTO_M2M_APP_SECRET", "LOGTO_M2M_RESOURCE", "LOGTO_UPLINK_ROLE_ID",
		"BILLING_API_URL", "STREAMS_API_URL",
		"RABBITMQ_URL", "EVENTS_EXCHANGE",
		"CHECKOUT_SWEEP_SCHEDULE", "CHECKOUT_SWEEP_MAX_AGE_MIN",
		"STRIPE_PRICE_PRO_MONTHLY", "STRIPE_PRICE_PRO_QUARTERLY",
		"STRIPE_PRICE_PRO_ANNUAL", "STRIPE_PRICE_PRO_LIFETIME",
		"STRIPE_PRICE_UNLIMITED_MONTHLY", "STRIPE_PRICE_UNLIMITED_QUARTERLY",
		"STRIPE_PRICE_UNLIMITED_ANNUAL", "STRIPE_PRICE_UNLIMITED_LIFETIME",
	} {
		_ = viper.BindEnv(key)
	}

	err = viper.Unmarshal(&config)
	return
}

// PriceIDs arranges the configured provider price IDs by tier and period for
// the catalog's price table.
func (c Config) PriceIDs() map[domain.Tier]map[domain.Period]string {
	return map[domain.Tier]map[domain.Period]string{
		domain.TierPro: {
			domain.PeriodMonthly:   c.PriceProMonthly,
			domain.PeriodQuarterly: c.PriceProQuarterly,
			domain.PeriodAnnual:    c.PriceProAnnual,
			domain.PeriodLifetime:  c.PriceProLifetime,
		},
		domain.TierUnlimited: {
			domain.PeriodMonthly:   c.PriceUnlimitedMonthly,
			domain.PeriodQuarterly: c.PriceUnlimitedQuarterly,
			domain.PeriodAnnual:    c.PriceUnlimitedAnnual,
			domain.PeriodLifetime:  c.PriceUnlimitedLifetime,
		},
	}
}
