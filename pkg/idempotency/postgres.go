package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgdb "github.com/angelmondragon/quizfunnel-backend/pkg/db"
	"github.com/angelmondragon/quizfunnel-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresSet stores claims in the processed_intents table. The unique
// (scope, intent_id) index makes Claim atomic across instances. Rows written
// with a zero ttl carry a NULL expires_at and are never purged.
type PostgresSet struct {
	db    *gorm.DB
	scope string
	ttl   time.Duration
	now   func() time.Time
}

func NewPostgresSet(db *gorm.DB, scope string, ttl time.Duration) (*PostgresSet, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	scope, err := normalizeScope(scope)
	if err != nil {
		return nil, err
	}
	return &PostgresSet{
		db:    db,
		scope: scope,
		ttl:   ttl,
		now:   func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *PostgresSet) Contains(ctx context.Context, id string) (bool, error) {
	id, err := normalizeID(id)
	if err != nil {
		return false, err
	}
	var count int64
	err = s.db.WithContext(ctx).
		Model(&models.ProcessedIntent{}).
		Where("scope = ? AND intent_id = ? AND (expires_at IS NULL OR expires_at > ?)", s.scope, id, s.now()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("query processed intent: %w", err)
	}
	return count > 0, nil
}

func (s *PostgresSet) Claim(ctx context.Context, id string) (bool, error) {
	id, err := normalizeID(id)
	if err != nil {
		return false, err
	}
	now := s.now()

	// An expired claim must not block a fresh one.
	if err := s.db.WithContext(ctx).
		Where("scope = ? AND intent_id = ? AND expires_at IS NOT NULL AND expires_at <= ?", s.scope, id, now).
		Delete(&models.ProcessedIntent{}).Error; err != nil {
		return false, fmt.Errorf("purge expired processed intent: %w", err)
	}

	row := models.ProcessedIntent{
		Scope:    s.scope,
		IntentID: id,
	}
	if s.ttl > 0 {
		expiresAt := now.Add(s.ttl)
		row.ExpiresAt = &expiresAt
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		// A concurrent purge-and-insert can still surface as a violation.
		if pkgdb.IsUniqueViolation(res.Error, "") {
			return false, nil
		}
		return false, fmt.Errorf("insert processed intent: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *PostgresSet) Release(ctx context.Context, id string) error {
	id, err := normalizeID(id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).
		Where("scope = ? AND intent_id = ?", s.scope, id).
		Delete(&models.ProcessedIntent{}).Error; err != nil {
		return fmt.Errorf("delete processed intent: %w", err)
	}
	return nil
}
