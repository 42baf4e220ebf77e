package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/quizfunnel-backend/api/responses"
	"github.com/angelmondragon/quizfunnel-backend/api/validators"
	"github.com/angelmondragon/quizfunnel-backend/internal/leads"
	pkgerrors "github.com/angelmondragon/quizfunnel-backend/pkg/errors"
	"github.com/angelmondragon/quizfunnel-backend/pkg/logger"
)

type LeadService interface {
	Create(ctx context.Context, in leads.CreateInput) (*leads.Lead, error)
	Get(ctx context.Context, id uuid.UUID) (*leads.Lead, error)
}

type createLeadRequest struct {
	Email    string          `json:"email" validate:"required,email,max=254"`
	Name     string          `json:"name" validate:"max=200"`
	QuizData json.RawMessage `json:"quizData" validate:"required"`
}

func LeadCreate(svc LeadService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lead service unavailable"))
			return
		}

		var payload createLeadRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lead, err := svc.Create(r.Context(), leads.CreateInput{
			Email:    payload.Email,
			Name:     validators.SanitizeString(payload.Name, 200),
			QuizData: payload.QuizData,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, lead)
	}
}

func LeadGet(svc LeadService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lead service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "leadId"))
		if err != nil {
			// An unparseable id can never match a lead.
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "lead not found"))
			return
		}

		lead, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, lead)
	}
}
