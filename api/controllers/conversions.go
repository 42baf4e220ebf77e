package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/angelmondragon/quizfunnel-backend/api/middleware"
	"github.com/angelmondragon/quizfunnel-backend/api/validators"
	"github.com/angelmondragon/quizfunnel-backend/internal/conversions"
	"github.com/angelmondragon/quizfunnel-backend/pkg/logger"
)

type ConversionSender interface {
	Send(ctx context.Context, event conversions.Event) conversions.Result
}

type conversionRequest struct {
	EventName      string                  `json:"eventName" validate:"required,max=64"`
	EventSourceURL string                  `json:"eventSourceUrl" validate:"omitempty,url,max=2048"`
	Identity       conversions.Identity    `json:"identity"`
	AmountData     *conversions.AmountData `json:"amountData,omitempty"`
	DedupKey       string                  `json:"dedupKey" validate:"max=255"`
}

// ConversionEvent relays a client-side conversion. It always answers 200 with
// {success, error?}. A Purchase sent here is the browser's own unverified
// claim; it is tagged as client-sourced and collapses with the webhook's
// verified Purchase only through the shared dedupKey at the attribution API.
func ConversionEvent(relay ConversionSender, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if relay == nil {
			writeConversionResult(w, conversions.Result{Error: "conversion relay unavailable"})
			return
		}

		var payload conversionRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			if logg != nil {
				logg.Warn(logg.WithField(r.Context(), "reason", err.Error()), "conversion event rejected")
			}
			writeConversionResult(w, conversions.Result{Error: "invalid conversion event"})
			return
		}

		identity := payload.Identity
		if identity.ClientIP == "" {
			identity.ClientIP = middleware.ClientIP(r)
		}
		if identity.UserAgent == "" {
			identity.UserAgent = r.UserAgent()
		}

		writeConversionResult(w, relay.Send(r.Context(), conversions.Event{
			Name:      strings.TrimSpace(payload.EventName),
			SourceURL: payload.EventSourceURL,
			Identity:  identity,
			Amount:    payload.AmountData,
			DedupKey:  payload.DedupKey,
			Source:    conversions.SourceClient,
		}))
	}
}

// ConversionThrottled answers throttled conversion requests without relaying.
func ConversionThrottled() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeConversionResult(w, conversions.Result{Error: "rate limited"})
	}
}

// writeConversionResult writes the bare result instead of the data envelope;
// the browser pixel bridge reads success at the top level.
func writeConversionResult(w http.ResponseWriter, result conversions.Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(result)
}
