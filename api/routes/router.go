package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/quizfunnel-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/quizfunnel-backend/api/controllers/webhooks"
	"github.com/angelmondragon/quizfunnel-backend/api/middleware"
	"github.com/angelmondragon/quizfunnel-backend/internal/conversions"
	"github.com/angelmondragon/quizfunnel-backend/internal/leads"
	"github.com/angelmondragon/quizfunnel-backend/internal/offers"
	"github.com/angelmondragon/quizfunnel-backend/internal/payments"
	"github.com/angelmondragon/quizfunnel-backend/internal/plans"
	stripewebhook "github.com/angelmondragon/quizfunnel-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/quizfunnel-backend/pkg/config"
	"github.com/angelmondragon/quizfunnel-backend/pkg/db"
	"github.com/angelmondragon/quizfunnel-backend/pkg/logger"
	"github.com/angelmondragon/quizfunnel-backend/pkg/metrics"
	"github.com/angelmondragon/quizfunnel-backend/pkg/redis"
	"github.com/angelmondragon/quizfunnel-backend/pkg/stripe"
)

// Dependencies carries everything the HTTP surface is wired to. Nil services
// surface as 500s on their routes rather than panics.
type Dependencies struct {
	DB    db.Pinger
	Redis *redis.Client

	Registry *prometheus.Registry
	Metrics  *metrics.FunnelMetrics

	Stripe        *stripe.Client
	Catalog       *offers.Catalog
	Sequencer     *offers.Sequencer
	Issuer        *payments.Issuer
	Verifier      *payments.Verifier
	WebhookSvc    *stripewebhook.Service
	WebhookGuard  *stripewebhook.EventGuard
	Conversions   *conversions.Relay
	Leads         leads.Service
	PlanGenerator *plans.Generator
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.Metrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	// Interface-typed params must see a literal nil when redis is absent.
	var (
		limiter redis.RateLimiter
		store   redis.IdempotencyStore
		redisP  controllers.Pinger
	)
	if deps.Redis != nil {
		limiter, store, redisP = deps.Redis, deps.Redis, deps.Redis
	}
	var dbP controllers.Pinger
	if deps.DB != nil {
		dbP = deps.DB
	}

	paymentPolicy := middleware.NewRateLimitPolicy(
		"payment",
		cfg.RateLimit.Window,
		cfg.RateLimit.PaymentIPLimit,
		cfg.RateLimit.PaymentEmail,
	)
	leadPolicy := middleware.NewRateLimitPolicy(
		"leads",
		cfg.RateLimit.Window,
		cfg.RateLimit.LeadIPLimit,
		0,
	)
	throttle := middleware.NewThrottle(cfg.RateLimit.ConversionRPS, cfg.RateLimit.ConversionBurst)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg,
			controllers.Dependency{Name: "database", Pinger: dbP},
			controllers.Dependency{Name: "redis", Pinger: redisP},
		))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	var (
		paymentConfig   controllers.PaymentConfigSource
		webhookVerifier webhookcontrollers.EventVerifier
	)
	if deps.Stripe != nil {
		paymentConfig, webhookVerifier = deps.Stripe, deps.Stripe
	}

	r.Route("/api/v1", func(r chi.Router) {
		// The signature covers the raw body, so nothing ahead of this handler
		// may consume it.
		r.Post("/payment/webhook", webhookcontrollers.StripeWebhook(
			nilIfNoWebhook(deps.WebhookSvc), webhookVerifier, nilIfNoGuard(deps.WebhookGuard), logg))

		r.Route("/leads", func(r chi.Router) {
			r.With(
				middleware.RateLimit(leadPolicy, limiter, logg),
				middleware.Idempotency(store, logg),
			).Post("/", controllers.LeadCreate(deps.Leads, logg))
			r.Get("/{leadId}", controllers.LeadGet(deps.Leads, logg))
		})

		r.With(middleware.RateLimit(leadPolicy, limiter, logg)).
			Post("/ai/generate-plan", controllers.GeneratePlan(nilIfNoGenerator(deps.PlanGenerator), logg))

		r.Route("/offers", func(r chi.Router) {
			r.Get("/", controllers.OffersList(deps.Catalog, logg))
			r.Post("/exit-intent", controllers.OffersExitIntent(deps.Sequencer, deps.Catalog, logg))
		})

		r.Route("/payment", func(r chi.Router) {
			r.Get("/config", controllers.PaymentConfig(paymentConfig, logg))
			r.With(
				middleware.RateLimit(paymentPolicy, limiter, logg),
				middleware.Idempotency(store, logg),
			).Post("/create-intent", controllers.PaymentCreateIntent(nilIfNoIssuer(deps.Issuer), logg))
			r.With(middleware.RateLimit(paymentPolicy, limiter, logg)).
				Post("/verify", controllers.PaymentVerify(nilIfNoVerifier(deps.Verifier), logg))
		})

		r.With(throttle.Middleware(controllers.ConversionThrottled())).
			Post("/events/conversion", controllers.ConversionEvent(nilIfNoRelay(deps.Conversions), logg))
	})

	return r
}

// A nil pointer must reach the controllers as a nil interface.

func nilIfNoWebhook(s *stripewebhook.Service) webhookcontrollers.StripeWebhookService {
	if s == nil {
		return nil
	}
	return s
}

func nilIfNoGuard(g *stripewebhook.EventGuard) webhookcontrollers.WebhookGuard {
	if g == nil {
		return nil
	}
	return g
}

func nilIfNoGenerator(g *plans.Generator) controllers.PlanGenerator {
	if g == nil {
		return nil
	}
	return g
}

func nilIfNoIssuer(i *payments.Issuer) controllers.IntentIssuer {
	if i == nil {
		return nil
	}
	return i
}

func nilIfNoVerifier(v *payments.Verifier) controllers.PaymentVerifier {
	if v == nil {
		return nil
	}
	return v
}

func nilIfNoRelay(r *conversions.Relay) controllers.ConversionSender {
	if r == nil {
		return nil
	}
	return r
}
