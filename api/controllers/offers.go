package controllers

import (
	"net/http"

	"github.com/angelmondragon/quizfunnel-backend/api/responses"
	"github.com/angelmondragon/quizfunnel-backend/api/validators"
	"github.com/angelmondragon/quizfunnel-backend/internal/offers"
	"github.com/angelmondragon/quizfunnel-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quizfunnel-backend/pkg/errors"
	"github.com/angelmondragon/quizfunnel-backend/pkg/logger"
)

type offerView struct {
	offers.Offer
	DisplayAmount string `json:"displayAmount"`
}

type offersResponse struct {
	OfferTier enums.OfferTier `json:"offerTier"`
	Offers    []offerView     `json:"offers"`
}

type exitIntentRequest struct {
	CurrentTier string `json:"currentTier" validate:"required"`
	QuizDepth   int    `json:"quizDepth" validate:"min=0"`
	Signal      string `json:"signal" validate:"required"`
}

type exitIntentResponse struct {
	offers.Transition
	Offers []offerView `json:"offers"`
}

// OffersList returns every plan at the requested offer tier.
func OffersList(catalog *offers.Catalog, logg *logger.Logger) http.HandlerFunc {
	allowed := make([]string, 0, len(enums.OfferTiers()))
	for _, tier := range enums.OfferTiers() {
		allowed = append(allowed, string(tier))
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if catalog == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "offer catalog unavailable"))
			return
		}
		raw, err := validators.ParseQueryEnum(r, "tier", string(enums.OfferTierRegular), allowed)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tier := enums.OfferTier(raw)
		views, err := offerViews(catalog, tier)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, offersResponse{OfferTier: tier, Offers: views})
	}
}

// OffersExitIntent advances the visitor's offer tier on an exit signal.
func OffersExitIntent(seq *offers.Sequencer, catalog *offers.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if seq == nil || catalog == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "offer sequencer unavailable"))
			return
		}

		var payload exitIntentRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		current, err := enums.ParseOfferTier(payload.CurrentTier)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown offer tier").
				WithDetails(map[string]string{"currentTier": payload.CurrentTier}))
			return
		}
		signal, err := enums.ParseExitSignal(payload.Signal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown exit signal").
				WithDetails(map[string]string{"signal": payload.Signal}))
			return
		}

		transition, err := seq.Next(current, payload.QuizDepth, signal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		views, err := offerViews(catalog, transition.OfferTier)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, exitIntentResponse{Transition: transition, Offers: views})
	}
}

func offerViews(catalog *offers.Catalog, tier enums.OfferTier) ([]offerView, error) {
	list, err := catalog.Offers(tier)
	if err != nil {
		return nil, err
	}
	views := make([]offerView, 0, len(list))
	for _, offer := range list {
		views = append(views, offerView{Offer: offer, DisplayAmount: offer.DisplayAmount()})
	}
	return views, nil
}
