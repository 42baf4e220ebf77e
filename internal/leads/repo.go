package leads

import (
	"context"
	"errors"

	"github.com/angelmondragon/quizfunnel-backend/internal/repo"
	"github.com/angelmondragon/quizfunnel-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/quizfunnel-backend/pkg/db/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists leads.
type Repository interface {
	Create(ctx context.Context, lead *models.Lead) error
	// FindByID returns nil, nil when the lead does not exist.
	FindByID(ctx context.Context, id uuid.UUID) (*models.Lead, error)
	// UpdatePlan reports whether a lead row was updated.
	UpdatePlan(ctx context.Context, id uuid.UUID, plan dbtypes.JSONDocument) (bool, error)
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) Create(ctx context.Context, lead *models.Lead) error {
	return r.DB(ctx).Create(lead).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	var lead models.Lead
	if err := r.DB(ctx).First(&lead, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lead, nil
}

func (r *repository) UpdatePlan(ctx context.Context, id uuid.UUID, plan dbtypes.JSONDocument) (bool, error) {
	res := r.DB(ctx).Model(&models.Lead{}).Where("id = ?", id).Update("plan_data", plan)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
