package stripewebhook

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/angelmondragon/quizfunnel-backend/internal/conversions"
	"github.com/angelmondragon/quizfunnel-backend/internal/offers"
	"github.com/angelmondragon/quizfunnel-backend/internal/payments"
	"github.com/angelmondragon/quizfunnel-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quizfunnel-backend/pkg/errors"
	"github.com/angelmondragon/quizfunnel-backend/pkg/idempotency"
	"github.com/angelmondragon/quizfunnel-backend/pkg/logger"
	"github.com/angelmondragon/quizfunnel-backend/pkg/metrics"
	pkgstripe "github.com/angelmondragon/quizfunnel-backend/pkg/stripe"
	"github.com/stripe/stripe-go/v84"
)

const contentTypeRenewal = "subscription_renewal"

// Provisioner is the subset of the processor gateway used to turn a paid
// intent into a subscription.
type Provisioner interface {
	FindSubscriptionByIntent(ctx context.Context, intentID string) (*stripe.Subscription, error)
	FindCustomerByEmail(ctx context.Context, email string) (*stripe.Customer, error)
	CreateCustomer(ctx context.Context, email, name string) (*stripe.Customer, error)
	AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) error
	SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	CreateSubscription(ctx context.Context, params *stripe.SubscriptionCreateParams) (*stripe.Subscription, error)
}

type ConversionSender interface {
	Send(ctx context.Context, event conversions.Event) conversions.Result
}

type ServiceParams struct {
	Gateway Provisioner
	Catalog *offers.Catalog
	// Processed holds intent ids whose subscription already exists.
	Processed   idempotency.Set
	Conversions ConversionSender
	Metrics     *metrics.FunnelMetrics
	Logger      *logger.Logger
}

type Service struct {
	gateway     Provisioner
	catalog     *offers.Catalog
	processed   idempotency.Set
	conversions ConversionSender
	metrics     *metrics.FunnelMetrics
	logg        *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe gateway required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "offer catalog required")
	}
	if params.Processed == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "processed intent set required")
	}
	if params.Conversions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "conversion relay required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		gateway:     params.Gateway,
		catalog:     params.Catalog,
		processed:   params.Processed,
		conversions: params.Conversions,
		metrics:     params.Metrics,
		logg:        logg,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	eventType := string(event.Type)

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			s.metrics.IncWebhookEvent(eventType, metrics.OutcomeFailure)
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
		}
		outcome, err := s.provisionSubscription(ctx, &intent)
		if err != nil {
			s.metrics.IncWebhookEvent(eventType, metrics.OutcomeFailure)
			return err
		}
		s.metrics.IncWebhookEvent(eventType, outcome)
		return nil
	case stripe.EventTypeInvoicePaid:
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			s.metrics.IncWebhookEvent(eventType, metrics.OutcomeFailure)
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode invoice event")
		}
		s.metrics.IncWebhookEvent(eventType, s.reportRenewal(ctx, &invoice))
		return nil
	case stripe.EventTypePaymentIntentPaymentFailed,
		stripe.EventTypeInvoicePaymentFailed:
		s.logg.Warn(s.logg.WithField(ctx, "object_id", event.GetObjectValue("id")), "payment failed")
		s.metrics.IncWebhookEvent(eventType, metrics.OutcomeSuccess)
		return nil
	case stripe.EventTypeCustomerSubscriptionDeleted:
		s.logg.Info(s.logg.WithField(ctx, "subscription_id", event.GetObjectValue("id")), "subscription cancelled")
		s.metrics.IncWebhookEvent(eventType, metrics.OutcomeSuccess)
		return nil
	default:
		s.logg.Info(ctx, "unhandled stripe event acknowledged")
		s.metrics.IncWebhookEvent(eventType, metrics.OutcomeIgnored)
		return nil
	}
}

// provisionSubscription creates the recurring subscription for a paid funnel
// intent exactly once. The processed claim is taken before any processor call
// and released if provisioning fails, so concurrent redeliveries cannot both
// provision and a failed attempt stays retryable.
func (s *Service) provisionSubscription(ctx context.Context, intent *stripe.PaymentIntent) (string, error) {
	if intent.ID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	ctx = s.logg.WithIntentID(ctx, intent.ID)

	meta := payments.ParseIntentMetadata(intent.Metadata)
	if !meta.HasPurchase() {
		s.logg.Info(ctx, "payment intent carries no funnel purchase; skipping provisioning")
		return metrics.OutcomeIgnored, nil
	}
	plan, err := enums.ParsePlanTier(string(meta.PlanTier))
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "plan_tier", meta.PlanTier), "payment intent carries unknown plan; skipping provisioning")
		return metrics.OutcomeIgnored, nil
	}

	claimed, err := s.processed.Claim(ctx, intent.ID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim payment intent")
	}
	if !claimed {
		s.logg.Info(ctx, "subscription already provisioned for payment intent")
		return metrics.OutcomeDuplicate, nil
	}

	sub, err := s.createSubscription(ctx, intent, plan, meta)
	if err != nil {
		if releaseErr := s.processed.Release(ctx, intent.ID); releaseErr != nil {
			s.logg.Error(ctx, "failed to release payment intent claim", releaseErr)
		}
		return "", err
	}
	if sub == nil {
		return metrics.OutcomeDuplicate, nil
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"subscription_id": sub.ID,
		"plan_tier":       plan,
	}), "subscription provisioned")

	amount := intent.AmountReceived
	if amount <= 0 {
		amount = intent.Amount
	}
	s.conversions.Send(ctx, conversions.Event{
		Name: conversions.EventPurchase,
		Identity: conversions.Identity{
			Email:      meta.Email,
			FirstName:  firstName(meta.Name),
			ExternalID: customerID(sub),
		},
		Amount: &conversions.AmountData{
			Value:       amount,
			Currency:    string(intent.Currency),
			ContentName: string(plan),
			ContentType: "subscription",
		},
		DedupKey: intent.ID,
		Source:   conversions.SourceWebhook,
	})
	return metrics.OutcomeSuccess, nil
}

// createSubscription returns a nil subscription when the processor already
// has one for this intent.
func (s *Service) createSubscription(ctx context.Context, intent *stripe.PaymentIntent, plan enums.PlanTier, meta payments.IntentMetadata) (*stripe.Subscription, error) {
	existing, err := s.gateway.FindSubscriptionByIntent(ctx, intent.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "search subscriptions")
	}
	if existing != nil {
		s.logg.Info(s.logg.WithField(ctx, "subscription_id", existing.ID), "subscription found for payment intent; recording as processed")
		return nil, nil
	}

	priceRef, err := s.recurringPrice(ctx, plan, meta)
	if err != nil {
		return nil, err
	}
	trialDays, err := s.catalog.TrialDays(plan)
	if err != nil {
		return nil, err
	}

	customer, err := s.resolveCustomer(ctx, meta)
	if err != nil {
		return nil, err
	}

	params := &stripe.SubscriptionCreateParams{
		Customer:        stripe.String(customer.ID),
		Items:           []*stripe.SubscriptionCreateItemParams{{Price: stripe.String(priceRef)}},
		TrialPeriodDays: stripe.Int64(int64(trialDays)),
	}
	if pm := paymentMethodID(intent); pm != "" {
		if err := s.gateway.AttachPaymentMethod(ctx, pm, customer.ID); err != nil {
			if !pkgstripe.IsAlreadyAttached(err) {
				s.logg.Error(ctx, "failed to attach payment method", err)
			}
		}
		if err := s.gateway.SetDefaultPaymentMethod(ctx, customer.ID, pm); err != nil {
			s.logg.Error(ctx, "failed to set default payment method", err)
		}
		params.DefaultPaymentMethod = stripe.String(pm)
	} else {
		s.logg.Warn(ctx, "payment intent has no payment method; subscription will need one before the trial ends")
	}
	params.AddMetadata(pkgstripe.MetadataIntentID, intent.ID)
	params.AddMetadata(payments.MetaPlanTier, string(plan))
	if meta.OfferTier != "" {
		params.AddMetadata(payments.MetaOfferTier, string(meta.OfferTier))
	}
	params.SetIdempotencyKey("subscription-" + intent.ID)

	sub, err := s.gateway.CreateSubscription(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "create subscription")
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUpstream, "subscription missing from processor response")
	}
	return sub, nil
}

// recurringPrice prefers the price recorded on the intent when it still maps
// back to the same plan; otherwise the catalog decides.
func (s *Service) recurringPrice(ctx context.Context, plan enums.PlanTier, meta payments.IntentMetadata) (string, error) {
	if meta.RecurringPriceRef != "" {
		if resolved, _, ok := s.catalog.ResolvePriceRef(meta.RecurringPriceRef); ok && resolved == plan {
			return meta.RecurringPriceRef, nil
		}
		s.logg.Warn(s.logg.WithField(ctx, "price_ref", meta.RecurringPriceRef), "intent price ref not in catalog; using catalog price")
	}
	tier := enums.OfferTierRegular
	if parsed, err := enums.ParseOfferTier(string(meta.OfferTier)); err == nil {
		tier = parsed
	}
	return s.catalog.PriceRef(plan, tier)
}

// resolveCustomer reuses the first customer found for the email as the payer
// entered it; processor email lookups are case-sensitive.
func (s *Service) resolveCustomer(ctx context.Context, meta payments.IntentMetadata) (*stripe.Customer, error) {
	email := meta.Email
	customer, err := s.gateway.FindCustomerByEmail(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "lookup customer")
	}
	if customer != nil {
		return customer, nil
	}
	customer, err = s.gateway.CreateCustomer(ctx, email, meta.Name)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "create customer")
	}
	if customer == nil || customer.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUpstream, "customer missing from processor response")
	}
	return customer, nil
}

// reportRenewal fires a purchase event for recurring invoices only; the first
// invoice of a subscription is covered by the intent path.
func (s *Service) reportRenewal(ctx context.Context, invoice *stripe.Invoice) string {
	if invoice.BillingReason != stripe.InvoiceBillingReasonSubscriptionCycle {
		return metrics.OutcomeIgnored
	}
	ctx = s.logg.WithField(ctx, "invoice_id", invoice.ID)
	if invoice.AmountPaid <= 0 {
		s.logg.Info(ctx, "renewal invoice without charge; no conversion reported")
		return metrics.OutcomeIgnored
	}
	s.conversions.Send(ctx, conversions.Event{
		Name: conversions.EventPurchase,
		Identity: conversions.Identity{
			Email:      invoice.CustomerEmail,
			ExternalID: invoiceCustomerID(invoice),
		},
		Amount: &conversions.AmountData{
			Value:       invoice.AmountPaid,
			Currency:    string(invoice.Currency),
			ContentType: contentTypeRenewal,
		},
		DedupKey: invoice.ID,
		Source:   conversions.SourceWebhook,
	})
	s.logg.Info(ctx, "subscription renewal reported")
	return metrics.OutcomeSuccess
}

func paymentMethodID(intent *stripe.PaymentIntent) string {
	if intent.PaymentMethod == nil {
		return ""
	}
	return intent.PaymentMethod.ID
}

func customerID(sub *stripe.Subscription) string {
	if sub.Customer == nil {
		return ""
	}
	return sub.Customer.ID
}

func invoiceCustomerID(invoice *stripe.Invoice) string {
	if invoice.Customer == nil {
		return ""
	}
	return invoice.Customer.ID
}

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
