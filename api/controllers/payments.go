package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/quizfunnel-backend/api/middleware"
	"github.com/angelmondragon/quizfunnel-backend/api/responses"
	"github.com/angelmondragon/quizfunnel-backend/api/validators"
	"github.com/angelmondragon/quizfunnel-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/quizfunnel-backend/pkg/errors"
	"github.com/angelmondragon/quizfunnel-backend/pkg/logger"
)

type PaymentConfigSource interface {
	PublishableKey() string
	Currency() string
}

type IntentIssuer interface {
	CreateIntent(ctx context.Context, in payments.CreateIntentInput) (*payments.CreateIntentResult, error)
}

type PaymentVerifier interface {
	Verify(ctx context.Context, intentID, email string) (*payments.VerifyResult, error)
}

type paymentConfigResponse struct {
	PublishableKey string `json:"publishableKey"`
	Currency       string `json:"currency"`
}

type createIntentRequest struct {
	PlanTier  string `json:"planTier" validate:"required"`
	OfferTier string `json:"offerTier" validate:"required"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Name      string `json:"name" validate:"max=200"`
}

type verifyPaymentRequest struct {
	IntentID string `json:"intentId" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=254"`
}

func PaymentConfig(src PaymentConfigSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if src == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment configuration unavailable"))
			return
		}
		responses.WriteSuccess(w, paymentConfigResponse{
			PublishableKey: src.PublishableKey(),
			Currency:       src.Currency(),
		})
	}
}

// PaymentCreateIntent issues a payment intent for the chosen offer. The
// request's Idempotency-Key, when present, is forwarded to the processor.
func PaymentCreateIntent(issuer IntentIssuer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if issuer == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment issuer unavailable"))
			return
		}

		var payload createIntentRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := issuer.CreateIntent(r.Context(), payments.CreateIntentInput{
			PlanTier:       strings.ToLower(strings.TrimSpace(payload.PlanTier)),
			OfferTier:      strings.ToLower(strings.TrimSpace(payload.OfferTier)),
			Email:          payload.Email,
			Name:           validators.SanitizeString(payload.Name, 200),
			IdempotencyKey: r.Header.Get(middleware.IdempotencyKeyHeader),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func PaymentVerify(verifier PaymentVerifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if verifier == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment verifier unavailable"))
			return
		}

		var payload verifyPaymentRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := verifier.Verify(r.Context(), strings.TrimSpace(payload.IntentID), payload.Email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
