package webhooks

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/angelmondragon/quizfunnel-backend/api/responses"
	pkgerrors "github.com/angelmondragon/quizfunnel-backend/pkg/errors"
	"github.com/angelmondragon/quizfunnel-backend/pkg/logger"
	"github.com/stripe/stripe-go/v84"
)

const signatureHeader = "Stripe-Signature"

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type WebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type EventVerifier interface {
	ConstructEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

type ackResponse struct {
	Received bool `json:"received"`
}

// StripeWebhook verifies and dispatches processor events. It must be mounted
// ahead of any middleware that reads the request body, because the signature
// covers the exact bytes on the wire.
func StripeWebhook(svc StripeWebhookService, verifier EventVerifier, guard WebhookGuard, logg *logger.Logger) http.HandlerFunc {
	if logg == nil {
		logg = logger.Nop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil || verifier == nil || guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook handler not configured"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read webhook body"))
			return
		}
		if len(payload) == 0 {
			err := pkgerrors.New(pkgerrors.CodeInternal, "webhook body is empty; raw body must reach the webhook handler unparsed")
			logg.Error(ctx, "stripe webhook received without raw body", err)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		sigHeader := strings.TrimSpace(r.Header.Get(signatureHeader))
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSignature, "stripe signature missing"))
			return
		}

		event, err := verifier.ConstructEvent(payload, sigHeader)
		if err != nil {
			logg.Warn(logg.WithField(ctx, "reason", err.Error()), "stripe webhook signature rejected")
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeSignature, err, "invalid stripe signature"))
			return
		}
		ctx = logg.WithEvent(ctx, event.ID, string(event.Type))

		alreadyProcessed, err := guard.CheckAndMark(ctx, event.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check event replay"))
			return
		}
		if alreadyProcessed {
			logg.Info(ctx, "stripe event already handled")
			responses.WriteSuccess(w, ackResponse{Received: true})
			return
		}

		if err := svc.HandleEvent(ctx, &event); err != nil {
			if delErr := guard.Delete(ctx, event.ID); delErr != nil {
				logg.Error(ctx, "failed to release stripe event", delErr)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		logg.Info(ctx, "stripe event processed")
		responses.WriteSuccess(w, ackResponse{Received: true})
	}
}
