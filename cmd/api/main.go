package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/quizfunnel-backend/api/routes"
	"github.com/angelmondragon/quizfunnel-backend/internal/conversions"
	"github.com/angelmondragon/quizfunnel-backend/internal/leads"
	"github.com/angelmondragon/quizfunnel-backend/internal/offers"
	"github.com/angelmondragon/quizfunnel-backend/internal/payments"
	"github.com/angelmondragon/quizfunnel-backend/internal/plans"
	stripewebhook "github.com/angelmondragon/quizfunnel-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/quizfunnel-backend/pkg/config"
	"github.com/angelmondragon/quizfunnel-backend/pkg/db"
	"github.com/angelmondragon/quizfunnel-backend/pkg/env"
	"github.com/angelmondragon/quizfunnel-backend/pkg/idempotency"
	"github.com/angelmondragon/quizfunnel-backend/pkg/instance"
	"github.com/angelmondragon/quizfunnel-backend/pkg/logger"
	"github.com/angelmondragon/quizfunnel-backend/pkg/metrics"
	"github.com/angelmondragon/quizfunnel-backend/pkg/migrate"
	"github.com/angelmondragon/quizfunnel-backend/pkg/openai"
	"github.com/angelmondragon/quizfunnel-backend/pkg/redis"
	"github.com/angelmondragon/quizfunnel-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRun(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, redisClient.Close()) }()
	} else {
		logg.Warn(ctx, "redis not configured; rate limiting and request idempotency disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	funnelMetrics := metrics.NewFunnelMetrics(registry)

	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return err
	}
	gateway, err := stripe.NewGateway(stripeClient)
	if err != nil {
		return err
	}

	catalog, err := offers.NewCatalog(offers.PriceRefsFromConfig(cfg.Offers))
	if err != nil {
		return err
	}
	sequencer := offers.NewSequencer(cfg.Offers.MinQuizDepth)

	backends := idempotency.Backends{DB: dbClient.DB()}
	if redisClient != nil {
		backends.Redis = redisClient
	}
	if cfg.Idempotency.NormalizedBackend() == config.IdempotencyBackendMemory {
		logg.Warn(ctx, "in-memory idempotency records do not survive restarts or span instances")
	}
	verifiedSet, err := idempotency.Open(cfg.Idempotency.Backend, idempotency.ScopePaymentVerification, idempotency.NoExpiry, backends)
	if err != nil {
		return err
	}
	provisionedSet, err := idempotency.Open(cfg.Idempotency.Backend, idempotency.ScopeWebhookSubscription, idempotency.NoExpiry, backends)
	if err != nil {
		return err
	}
	eventSet, err := idempotency.Open(cfg.Idempotency.Backend, idempotency.ScopeStripeEvent, cfg.Idempotency.WebhookEventTTL, backends)
	if err != nil {
		return err
	}

	relay := conversions.NewRelay(cfg.Conversions,
		conversions.WithMetrics(funnelMetrics),
		conversions.WithLogger(logg),
	)
	if !relay.Enabled() {
		logg.Warn(ctx, "conversion relay disabled; pixel credentials not configured")
	}

	issuer, err := payments.NewIssuer(payments.IssuerParams{
		Catalog:  catalog,
		Gateway:  gateway,
		Currency: stripeClient.Currency(),
		Metrics:  funnelMetrics,
		Logger:   logg,
	})
	if err != nil {
		return err
	}
	verifier, err := payments.NewVerifier(payments.VerifierParams{
		Gateway:  gateway,
		Verified: verifiedSet,
		Metrics:  funnelMetrics,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Gateway:     gateway,
		Catalog:     catalog,
		Processed:   provisionedSet,
		Conversions: relay,
		Metrics:     funnelMetrics,
		Logger:      logg,
	})
	if err != nil {
		return err
	}
	webhookGuard, err := stripewebhook.NewEventGuard(eventSet)
	if err != nil {
		return err
	}

	leadService, err := leads.NewService(leads.NewRepository(dbClient.DB()), logg)
	if err != nil {
		return err
	}

	var completer plans.Completer
	if cfg.OpenAI.APIKey != "" {
		aiClient, err := openai.NewClient(cfg.OpenAI.APIKey,
			openai.WithBaseURL(cfg.OpenAI.BaseURL),
			openai.WithModel(cfg.OpenAI.Model),
			openai.WithTimeout(cfg.OpenAI.Timeout),
		)
		if err != nil {
			return err
		}
		completer = aiClient
	} else {
		logg.Warn(ctx, "openai api key not configured; plan generation disabled")
	}
	generator := plans.NewGenerator(completer, leadService, logg)

	handler := routes.NewRouter(cfg, logg, routes.Dependencies{
		DB:            dbClient,
		Redis:         redisClient,
		Registry:      registry,
		Metrics:       funnelMetrics,
		Stripe:        stripeClient,
		Catalog:       catalog,
		Sequencer:     sequencer,
		Issuer:        issuer,
		Verifier:      verifier,
		WebhookSvc:    webhookService,
		WebhookGuard:  webhookGuard,
		Conversions:   relay,
		Leads:         leadService,
		PlanGenerator: generator,
	})

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx = logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"instance":   instance.ID(),
		"stripe_env": stripeClient.Environment(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
