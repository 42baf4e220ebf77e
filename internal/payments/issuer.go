package payments

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/quizfunnel-backend/internal/offers"
	"github.com/angelmondragon/quizfunnel-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quizfunnel-backend/pkg/errors"
	"github.com/angelmondragon/quizfunnel-backend/pkg/logger"
	"github.com/angelmondragon/quizfunnel-backend/pkg/metrics"
	"github.com/stripe/stripe-go/v84"
)

// IntentCreator creates processor payment intents.
type IntentCreator interface {
	CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error)
}

type IssuerParams struct {
	Catalog  *offers.Catalog
	Gateway  IntentCreator
	Currency string
	Metrics  *metrics.FunnelMetrics
	Logger   *logger.Logger
}

// Issuer creates one-time charge intents for a catalog offer. It keeps no
// local state; each call is an independent checkout attempt.
type Issuer struct {
	catalog  *offers.Catalog
	gateway  IntentCreator
	currency string
	metrics  *metrics.FunnelMetrics
	logg     *logger.Logger
}

func NewIssuer(params IssuerParams) (*Issuer, error) {
	if params.Catalog == nil {
		return nil, errors.New("offer catalog required")
	}
	if params.Gateway == nil {
		return nil, errors.New("payment gateway required")
	}
	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "usd"
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Issuer{
		catalog:  params.Catalog,
		gateway:  params.Gateway,
		currency: currency,
		metrics:  params.Metrics,
		logg:     logg,
	}, nil
}

type CreateIntentInput struct {
	PlanTier       string
	OfferTier      string
	Email          string
	Name           string
	IdempotencyKey string
}

type CreateIntentResult struct {
	ClientSecret string `json:"clientSecret"`
}

func (i *Issuer) CreateIntent(ctx context.Context, in CreateIntentInput) (*CreateIntentResult, error) {
	plan, err := enums.ParsePlanTier(strings.TrimSpace(in.PlanTier))
	if err != nil {
		i.metrics.IncIntent(in.PlanTier, in.OfferTier, metrics.OutcomeRejected)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid plan").
			WithDetails(map[string]string{"planTier": "must be one of short, medium, long"})
	}
	tier, err := enums.ParseOfferTier(strings.TrimSpace(in.OfferTier))
	if err != nil {
		i.metrics.IncIntent(in.PlanTier, in.OfferTier, metrics.OutcomeRejected)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid plan").
			WithDetails(map[string]string{"offerTier": "must be one of regular, exit_discount, final_discount"})
	}

	offer, err := i.catalog.Lookup(plan, tier)
	if err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(offer.Amount),
		Currency: stripe.String(i.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata(MetaPlanTier, string(offer.PlanTier))
	params.AddMetadata(MetaOfferTier, string(offer.OfferTier))
	params.AddMetadata(MetaRecurringPriceRef, offer.RecurringPriceRef)
	params.AddMetadata(MetaEmail, strings.TrimSpace(in.Email))
	if name := strings.TrimSpace(in.Name); name != "" {
		params.AddMetadata(MetaName, name)
	}
	if key := strings.TrimSpace(in.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}

	intent, err := i.gateway.CreatePaymentIntent(ctx, params)
	if err != nil {
		i.metrics.IncIntent(string(plan), string(tier), metrics.OutcomeFailure)
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "create payment intent")
	}
	if intent == nil || intent.ClientSecret == "" {
		i.metrics.IncIntent(string(plan), string(tier), metrics.OutcomeFailure)
		return nil, pkgerrors.New(pkgerrors.CodeUpstream, "payment intent missing client secret")
	}

	i.metrics.IncIntent(string(plan), string(tier), metrics.OutcomeSuccess)
	i.logg.Info(i.logg.WithFields(i.logg.WithIntentID(ctx, intent.ID), map[string]any{
		"plan_tier":  plan,
		"offer_tier": tier,
		"amount":     offer.Amount,
	}), "payment intent created")

	return &CreateIntentResult{ClientSecret: intent.ClientSecret}, nil
}
