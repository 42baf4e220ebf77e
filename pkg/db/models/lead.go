package models

import (
	"time"

	dbtypes "github.com/angelmondragon/quizfunnel-backend/pkg/db/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Lead is a visitor who finished the quiz and left an email.
type Lead struct {
	ID        uuid.UUID            `gorm:"type:uuid;primaryKey"`
	Email     string               `gorm:"type:text;not null;index"`
	Name      *string              `gorm:"column:name"`
	QuizData  dbtypes.JSONDocument `gorm:"column:quiz_data;type:jsonb;not null"`
	PlanData  dbtypes.JSONDocument `gorm:"column:plan_data;type:jsonb"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (Lead) TableName() string { return "leads" }

// BeforeCreate assigns the primary key client-side so sqlite and postgres
// behave the same.
func (l *Lead) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
