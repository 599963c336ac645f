package config

import (
	"strings"

	"github.com/caarlos0/env/v9"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	DBDriver   string `env:"DB_DRIVER" envDefault:"mysql"`
	DBUser     string `env:"DB_USER,required"`
	DBPassword string `env:"DB_PASSWORD,required"`
	DBHost     string `env:"DB_HOST,required"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName     string `env:"DB_NAME,required"`
	DBPort     string `env:"DB_PORT"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"require"`

	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`

	FirebaseProjectID       string   `env:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsJSON string   `env:"FIREBASE_CREDENTIALS_JSON"`
	AdminUIDs               []string `env:"ADMIN_UIDS" envSeparator:","`

	StripeSecretKey     string `env:"STRIPE_SECRET_KEY,required"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET,required"`
	Currency            string `env:"STRIPE_CURRENCY" envDefault:"aud"`
	ConnectCountry      string `env:"STRIPE_CONNECT_COUNTRY" envDefault:"AU"`

	AppURL      string `env:"APP_URL" envDefault:"http://localhost:3000"`
	FrontendURL string `env:"FRONTEND_ORIGIN"`

	RedisAddr           string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	AutoPayoutOnRelease bool   `env:"AUTO_PAYOUT_ON_RELEASE" envDefault:"false"`
	EscrowSweepSpec     string `env:"ESCROW_SWEEP_SPEC" envDefault:"@every 15m"`
	OfferSweepSpec      string `env:"OFFER_SWEEP_SPEC" envDefault:"@every 1h"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`

	NodeID int64 `env:"NODE_ID" envDefault:"1"`

	RateLimitPerSecond float64 `env:"RATE_LIMIT_RPS" envDefault:"10"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	if cfg.DBPort == "" {
		cfg.DBPort = defaultPort(cfg.DBDriver)
	}
	cfg.Currency = strings.ToLower(cfg.Currency)
	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")
	return &cfg, nil
}

// IsAdmin reports whether uid was granted admin through ADMIN_UIDS.
func (c *Config) IsAdmin(uid string) bool {
	for _, a := range c.AdminUIDs {
		if strings.TrimSpace(a) == uid && uid != "" {
			return true
		}
	}
	return false
}

func defaultPort(driver string) string {
	if driver == "postgres" {
		return "5432"
	}
	return "3306"
}
