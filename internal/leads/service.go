package leads

import (
	"context"
	"encoding/json"
	"net/mail"
	"strings"
	"time"

	"github.com/angelmondragon/quizfunnel-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/quizfunnel-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/quizfunnel-backend/pkg/errors"
	"github.com/angelmondragon/quizfunnel-backend/pkg/logger"
	"github.com/google/uuid"
)

// Lead is the public shape of a stored lead.
type Lead struct {
	ID        uuid.UUID       `json:"id"`
	Email     string          `json:"email"`
	Name      *string         `json:"name,omitempty"`
	QuizData  json.RawMessage `json:"quizData"`
	PlanData  json.RawMessage `json:"planData,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type CreateInput struct {
	Email    string
	Name     string
	QuizData json.RawMessage
}

type Service interface {
	Create(ctx context.Context, in CreateInput) (*Lead, error)
	Get(ctx context.Context, id uuid.UUID) (*Lead, error)
	AttachPlan(ctx context.Context, id uuid.UUID, plan json.RawMessage) error
}

type service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "lead repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, in CreateInput) (*Lead, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid lead").
			WithDetails(map[string]string{"email": "must be a valid email address"})
	}
	quiz := dbtypes.JSONDocument(in.QuizData)
	if quiz.IsEmpty() || !json.Valid(in.QuizData) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid lead").
			WithDetails(map[string]string{"quizData": "must be valid json"})
	}

	lead := &models.Lead{Email: email, QuizData: quiz}
	if name := strings.TrimSpace(in.Name); name != "" {
		lead.Name = &name
	}
	if err := s.repo.Create(ctx, lead); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create lead")
	}
	s.logg.Info(s.logg.WithLeadID(ctx, lead.ID.String()), "lead created")
	return toDTO(lead), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Lead, error) {
	lead, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lead")
	}
	if lead == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "lead not found")
	}
	return toDTO(lead), nil
}

func (s *service) AttachPlan(ctx context.Context, id uuid.UUID, plan json.RawMessage) error {
	if len(plan) == 0 || !json.Valid(plan) {
		return pkgerrors.New(pkgerrors.CodeValidation, "plan must be valid json")
	}
	updated, err := s.repo.UpdatePlan(ctx, id, dbtypes.JSONDocument(plan))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store plan")
	}
	if !updated {
		return pkgerrors.New(pkgerrors.CodeNotFound, "lead not found")
	}
	s.logg.Info(s.logg.WithLeadID(ctx, id.String()), "plan attached to lead")
	return nil
}

func toDTO(lead *models.Lead) *Lead {
	out := &Lead{
		ID:        lead.ID,
		Email:     lead.Email,
		Name:      lead.Name,
		QuizData:  json.RawMessage(lead.QuizData),
		CreatedAt: lead.CreatedAt,
		UpdatedAt: lead.UpdatedAt,
	}
	if !lead.PlanData.IsEmpty() {
		out.PlanData = json.RawMessage(lead.PlanData)
	}
	return out
}
