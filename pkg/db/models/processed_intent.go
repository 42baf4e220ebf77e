package models

import "time"

// ProcessedIntent records that a payment intent was handled for a scope.
type ProcessedIntent struct {
	ID        int64      `gorm:"primaryKey;autoIncrement"`
	Scope     string     `gorm:"column:scope;not null;uniqueIndex:idx_processed_intents_scope_intent"`
	IntentID  string     `gorm:"column:intent_id;not null;uniqueIndex:idx_processed_intents_scope_intent"`
	ExpiresAt *time.Time `gorm:"column:expires_at;index"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (ProcessedIntent) TableName() string { return "processed_intents" }
