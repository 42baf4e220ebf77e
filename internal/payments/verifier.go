package payments

import (
	"context"
	"errors"
	"regexp"
	"strings"

	pkgerrors "github.com/angelmondragon/quizfunnel-backend/pkg/errors"
	"github.com/angelmondragon/quizfunnel-backend/pkg/idempotency"
	"github.com/angelmondragon/quizfunnel-backend/pkg/logger"
	"github.com/angelmondragon/quizfunnel-backend/pkg/metrics"
	"github.com/stripe/stripe-go/v84"
)

var intentIDPattern = regexp.MustCompile(`^pi_[A-Za-z0-9]+$`)

// IntentReader fetches processor payment intents.
type IntentReader interface {
	GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
}

type VerifierParams struct {
	Gateway  IntentReader
	Verified idempotency.Set
	Metrics  *metrics.FunnelMetrics
	Logger   *logger.Logger
}

// Verifier confirms a client-claimed payment. A succeeded intent is reported
// as verified to exactly one caller; later callers see AlreadyProcessed.
type Verifier struct {
	gateway  IntentReader
	verified idempotency.Set
	metrics  *metrics.FunnelMetrics
	logg     *logger.Logger
}

func NewVerifier(params VerifierParams) (*Verifier, error) {
	if params.Gateway == nil {
		return nil, errors.New("payment gateway required")
	}
	if params.Verified == nil {
		return nil, errors.New("verification record required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Verifier{
		gateway:  params.Gateway,
		verified: params.Verified,
		metrics:  params.Metrics,
		logg:     logg,
	}, nil
}

type VerifyResult struct {
	Verified         bool   `json:"verified"`
	AlreadyProcessed bool   `json:"alreadyProcessed,omitempty"`
	Amount           *int64 `json:"amount,omitempty"`
	Currency         string `json:"currency,omitempty"`
	PlanTier         string `json:"planTier,omitempty"`
	Status           string `json:"status,omitempty"`
}

// ValidIntentID reports whether id follows the processor's intent id format.
func ValidIntentID(id string) bool {
	return intentIDPattern.MatchString(id)
}

func (v *Verifier) Verify(ctx context.Context, intentID, claimedEmail string) (*VerifyResult, error) {
	intentID = strings.TrimSpace(intentID)
	if !ValidIntentID(intentID) {
		v.metrics.IncVerification(metrics.OutcomeRejected)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment intent id").
			WithDetails(map[string]string{"intentId": "must look like pi_..."})
	}
	ctx = v.logg.WithIntentID(ctx, intentID)

	seen, err := v.verified.Contains(ctx, intentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check verification record")
	}
	if seen {
		v.metrics.IncVerification(metrics.OutcomeAlreadyProcessed)
		return &VerifyResult{AlreadyProcessed: true}, nil
	}

	intent, err := v.gateway.GetPaymentIntent(ctx, intentID)
	if err != nil {
		v.metrics.IncVerification(metrics.OutcomeFailure)
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "fetch payment intent")
	}
	if intent == nil {
		v.metrics.IncVerification(metrics.OutcomeFailure)
		return nil, pkgerrors.New(pkgerrors.CodeUpstream, "payment intent not returned")
	}

	meta := ParseIntentMetadata(intent.Metadata)
	switch {
	case meta.Email == "":
		v.logg.Warn(ctx, "payment intent has no email metadata; verifying without identity check")
	case NormalizeEmail(meta.Email) != NormalizeEmail(claimedEmail):
		v.metrics.IncVerification(metrics.OutcomeRejected)
		v.logg.Warn(ctx, "payment verification identity mismatch")
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "access denied")
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		v.metrics.IncVerification(metrics.OutcomeNotSucceeded)
		return &VerifyResult{Status: string(intent.Status)}, nil
	}

	won, err := v.verified.Claim(ctx, intentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record verification")
	}
	if !won {
		v.metrics.IncVerification(metrics.OutcomeAlreadyProcessed)
		return &VerifyResult{AlreadyProcessed: true}, nil
	}

	amount := intent.Amount
	v.metrics.IncVerification(metrics.OutcomeSuccess)
	v.logg.Info(ctx, "payment verified")
	return &VerifyResult{
		Verified: true,
		Amount:   &amount,
		Currency: string(intent.Currency),
		PlanTier: string(meta.PlanTier),
	}, nil
}
