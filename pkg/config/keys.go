package config

// EnvPrefix is handed to envconfig; every field carries an explicit key so the
// prefix only matters for fields without one.
const EnvPrefix = "QUIZFUNNEL"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	IdempotencyBackendMemory   = "memory"
	IdempotencyBackendRedis    = "redis"
	IdempotencyBackendPostgres = "postgres"
)

const (
	EnvAppEnv             = "QUIZFUNNEL_APP_ENV"
	EnvPort               = "QUIZFUNNEL_APP_PORT"
	EnvDBDSN              = "QUIZFUNNEL_DB_DSN"
	EnvDBHost             = "QUIZFUNNEL_DB_HOST"
	EnvDBUser             = "QUIZFUNNEL_DB_USER"
	EnvDBName             = "QUIZFUNNEL_DB_NAME"
	EnvRedisURL           = "QUIZFUNNEL_REDIS_URL"
	EnvStripeAPIKey       = "QUIZFUNNEL_STRIPE_API_KEY"
	EnvStripePublishable  = "QUIZFUNNEL_STRIPE_PUBLISHABLE_KEY"
	EnvStripeWebhook      = "QUIZFUNNEL_STRIPE_WEBHOOK_SECRET"
	EnvIdempotencyBackend = "QUIZFUNNEL_IDEMPOTENCY_BACKEND"

	EnvPriceShortRegular   = "QUIZFUNNEL_PRICE_SHORT_REGULAR"
	EnvPriceShortExit      = "QUIZFUNNEL_PRICE_SHORT_EXIT_DISCOUNT"
	EnvPriceShortFinal     = "QUIZFUNNEL_PRICE_SHORT_FINAL_DISCOUNT"
	EnvPriceMediumRegular  = "QUIZFUNNEL_PRICE_MEDIUM_REGULAR"
	EnvPriceMediumExit     = "QUIZFUNNEL_PRICE_MEDIUM_EXIT_DISCOUNT"
	EnvPriceMediumFinal    = "QUIZFUNNEL_PRICE_MEDIUM_FINAL_DISCOUNT"
	EnvPriceLongRegular    = "QUIZFUNNEL_PRICE_LONG_REGULAR"
	EnvPriceLongExit       = "QUIZFUNNEL_PRICE_LONG_EXIT_DISCOUNT"
	EnvPriceLongFinal      = "QUIZFUNNEL_PRICE_LONG_FINAL_DISCOUNT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
