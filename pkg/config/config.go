package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Stripe       StripeConfig
	Offers       OffersConfig
	Idempotency  IdempotencyConfig
	Conversions  ConversionsConfig
	OpenAI       OpenAIConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Idempotency.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env             string        `envconfig:"QUIZFUNNEL_APP_ENV" required:"true"`
	Port            string        `envconfig:"QUIZFUNNEL_APP_PORT" required:"true"`
	LogLevel        string        `envconfig:"QUIZFUNNEL_LOG_LEVEL" default:"info"`
	LogWarnStack    bool          `envconfig:"QUIZFUNNEL_LOG_WARN_STACK" default:"false"`
	ShutdownTimeout time.Duration `envconfig:"QUIZFUNNEL_SHUTDOWN_TIMEOUT" default:"15s"`
	CORSOrigins     []string      `envconfig:"QUIZFUNNEL_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"QUIZFUNNEL_DB_DSN"`
	Driver string `envconfig:"QUIZFUNNEL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"QUIZFUNNEL_DB_HOST"`
	LegacyPort     int    `envconfig:"QUIZFUNNEL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"QUIZFUNNEL_DB_USER"`
	LegacyPassword string `envconfig:"QUIZFUNNEL_DB_PASSWORD"`
	LegacyName     string `envconfig:"QUIZFUNNEL_DB_NAME"`
	LegacySSLMode  string `envconfig:"QUIZFUNNEL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"QUIZFUNNEL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"QUIZFUNNEL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"QUIZFUNNEL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"QUIZFUNNEL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"QUIZFUNNEL_REDIS_URL"`
	Address      string        `envconfig:"QUIZFUNNEL_REDIS_ADDR"`
	Password     string        `envconfig:"QUIZFUNNEL_REDIS_PASSWORD"`
	DB           int           `envconfig:"QUIZFUNNEL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"QUIZFUNNEL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"QUIZFUNNEL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"QUIZFUNNEL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"QUIZFUNNEL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"QUIZFUNNEL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type StripeConfig struct {
	APIKey         string `envconfig:"QUIZFUNNEL_STRIPE_API_KEY" required:"true"`
	PublishableKey string `envconfig:"QUIZFUNNEL_STRIPE_PUBLISHABLE_KEY" required:"true"`
	WebhookSecret  string `envconfig:"QUIZFUNNEL_STRIPE_WEBHOOK_SECRET" required:"true"`
	Env            string `envconfig:"QUIZFUNNEL_STRIPE_ENV" default:"test"`
	Currency       string `envconfig:"QUIZFUNNEL_STRIPE_CURRENCY" default:"usd"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// NormalizedCurrency returns the lower-cased ISO currency code.
func (s StripeConfig) NormalizedCurrency() string {
	cur := strings.TrimSpace(strings.ToLower(s.Currency))
	if cur == "" {
		return "usd"
	}
	return cur
}

// OffersConfig carries the recurring price ids for every plan/offer pair.
type OffersConfig struct {
	ShortRegularPriceID        string `envconfig:"QUIZFUNNEL_PRICE_SHORT_REGULAR" required:"true"`
	ShortExitDiscountPriceID   string `envconfig:"QUIZFUNNEL_PRICE_SHORT_EXIT_DISCOUNT" required:"true"`
	ShortFinalDiscountPriceID  string `envconfig:"QUIZFUNNEL_PRICE_SHORT_FINAL_DISCOUNT" required:"true"`
	MediumRegularPriceID       string `envconfig:"QUIZFUNNEL_PRICE_MEDIUM_REGULAR" required:"true"`
	MediumExitDiscountPriceID  string `envconfig:"QUIZFUNNEL_PRICE_MEDIUM_EXIT_DISCOUNT" required:"true"`
	MediumFinalDiscountPriceID string `envconfig:"QUIZFUNNEL_PRICE_MEDIUM_FINAL_DISCOUNT" required:"true"`
	LongRegularPriceID         string `envconfig:"QUIZFUNNEL_PRICE_LONG_REGULAR" required:"true"`
	LongExitDiscountPriceID    string `envconfig:"QUIZFUNNEL_PRICE_LONG_EXIT_DISCOUNT" required:"true"`
	LongFinalDiscountPriceID   string `envconfig:"QUIZFUNNEL_PRICE_LONG_FINAL_DISCOUNT" required:"true"`

	MinQuizDepth int `envconfig:"QUIZFUNNEL_EXIT_INTENT_MIN_DEPTH" default:"5"`
}

// IdempotencyConfig selects the claim store. Verification and provisioning
// claims never expire; only the event-id replay guard is bounded.
type IdempotencyConfig struct {
	Backend         string        `envconfig:"QUIZFUNNEL_IDEMPOTENCY_BACKEND" default:"redis"`
	WebhookEventTTL time.Duration `envconfig:"QUIZFUNNEL_WEBHOOK_EVENT_TTL" default:"72h"`
}

func (i IdempotencyConfig) validate() error {
	switch i.NormalizedBackend() {
	case IdempotencyBackendMemory, IdempotencyBackendRedis, IdempotencyBackendPostgres:
		return nil
	default:
		return fmt.Errorf("%s must be one of %s, %s, %s", EnvIdempotencyBackend,
			IdempotencyBackendMemory, IdempotencyBackendRedis, IdempotencyBackendPostgres)
	}
}

// NormalizedBackend lower-cases the configured backend name.
func (i IdempotencyConfig) NormalizedBackend() string {
	return strings.TrimSpace(strings.ToLower(i.Backend))
}

type ConversionsConfig struct {
	PixelID       string        `envconfig:"QUIZFUNNEL_FB_PIXEL_ID"`
	AccessToken   string        `envconfig:"QUIZFUNNEL_FB_ACCESS_TOKEN"`
	APIVersion    string        `envconfig:"QUIZFUNNEL_FB_API_VERSION" default:"v19.0"`
	BaseURL       string        `envconfig:"QUIZFUNNEL_FB_BASE_URL" default:"https://graph.facebook.com"`
	TestEventCode string        `envconfig:"QUIZFUNNEL_FB_TEST_EVENT_CODE"`
	Timeout       time.Duration `envconfig:"QUIZFUNNEL_FB_TIMEOUT" default:"5s"`
}

// Enabled reports whether the attribution relay has credentials.
func (c ConversionsConfig) Enabled() bool {
	return strings.TrimSpace(c.PixelID) != "" && strings.TrimSpace(c.AccessToken) != ""
}

type OpenAIConfig struct {
	APIKey  string        `envconfig:"QUIZFUNNEL_OPENAI_API_KEY"`
	Model   string        `envconfig:"QUIZFUNNEL_OPENAI_MODEL" default:"gpt-4o-mini"`
	BaseURL string        `envconfig:"QUIZFUNNEL_OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	Timeout time.Duration `envconfig:"QUIZFUNNEL_OPENAI_TIMEOUT" default:"45s"`
}

type RateLimitConfig struct {
	Window          time.Duration `envconfig:"QUIZFUNNEL_RATE_LIMIT_WINDOW" default:"1m"`
	PaymentIPLimit  int           `envconfig:"QUIZFUNNEL_RATE_LIMIT_PAYMENT_IP" default:"30"`
	PaymentEmail    int           `envconfig:"QUIZFUNNEL_RATE_LIMIT_PAYMENT_EMAIL" default:"10"`
	LeadIPLimit     int           `envconfig:"QUIZFUNNEL_RATE_LIMIT_LEAD_IP" default:"20"`
	ConversionRPS   float64       `envconfig:"QUIZFUNNEL_RATE_LIMIT_CONVERSION_RPS" default:"5"`
	ConversionBurst int           `envconfig:"QUIZFUNNEL_RATE_LIMIT_CONVERSION_BURST" default:"30"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"QUIZFUNNEL_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
