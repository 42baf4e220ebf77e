package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/quizfunnel-backend/api/responses"
	"github.com/angelmondragon/quizfunnel-backend/api/validators"
	"github.com/angelmondragon/quizfunnel-backend/internal/plans"
	pkgerrors "github.com/angelmondragon/quizfunnel-backend/pkg/errors"
	"github.com/angelmondragon/quizfunnel-backend/pkg/logger"
)

type PlanGenerator interface {
	Generate(ctx context.Context, in plans.GenerateInput) (*plans.Plan, error)
}

type generatePlanRequest struct {
	Name    string          `json:"name" validate:"max=200"`
	Answers json.RawMessage `json:"answers" validate:"required"`
	LeadID  *uuid.UUID      `json:"leadId,omitempty"`
}

func GeneratePlan(gen PlanGenerator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gen == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan generator unavailable"))
			return
		}

		var payload generatePlanRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if payload.LeadID != nil && logg != nil {
			ctx = logg.WithLeadID(ctx, payload.LeadID.String())
		}
		plan, err := gen.Generate(ctx, plans.GenerateInput{
			Name:    validators.SanitizeString(payload.Name, 200),
			Answers: payload.Answers,
			LeadID:  payload.LeadID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, plan)
	}
}
