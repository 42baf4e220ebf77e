// Package idempotency provides atomic add-if-absent sets keyed by payment
// intent id. A Set is scoped (e.g. payment_verification, webhook_subscription)
// so the same intent can be tracked independently by different gates.
package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"
)

const (
	ScopePaymentVerification = "payment_verification"
	ScopeWebhookSubscription = "webhook_subscription"
	ScopeStripeEvent         = "stripe_event"
)

// NoExpiry keeps claims until they are released. Verification and provisioning
// records are opened with it; only the event-id guard expires.
const NoExpiry time.Duration = 0

var (
	errScopeRequired = errors.New("idempotency scope is required")
	errIDRequired    = errors.New("idempotency id is required")
)

// Set is a concurrency-safe membership set.
//
// Claim must be atomic: when several callers race on the same id exactly one
// of them observes true.
type Set interface {
	Contains(ctx context.Context, id string) (bool, error)
	Claim(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}

func normalizeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errIDRequired
	}
	return id, nil
}

func normalizeScope(scope string) (string, error) {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return "", errScopeRequired
	}
	return scope, nil
}
