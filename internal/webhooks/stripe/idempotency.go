package stripewebhook

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/quizfunnel-backend/pkg/idempotency"
)

// EventGuard drops redelivered events by id before they reach the service.
// A claim is released when handling fails so the processor's retry is
// processed again.
type EventGuard struct {
	seen idempotency.Set
}

func NewEventGuard(seen idempotency.Set) (*EventGuard, error) {
	if seen == nil {
		return nil, errors.New("event set is required")
	}
	return &EventGuard{seen: seen}, nil
}

// CheckAndMark reports whether eventID was already seen, marking it otherwise.
func (g *EventGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	claimed, err := g.seen.Claim(ctx, eventID)
	if err != nil {
		return false, fmt.Errorf("claim event id: %w", err)
	}
	return !claimed, nil
}

func (g *EventGuard) Delete(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	return g.seen.Release(ctx, eventID)
}
