package payments

import (
	"strings"

	"github.com/angelmondragon/quizfunnel-backend/pkg/enums"
)

// Payment intent metadata keys. The webhook path reads them back to provision
// the subscription, so they must stay stable.
const (
	MetaPlanTier          = "plan_tier"
	MetaOfferTier         = "offer_tier"
	MetaRecurringPriceRef = "recurring_price_ref"
	MetaEmail             = "email"
	MetaName              = "name"
)

// IntentMetadata is the funnel purchase encoded on a payment intent.
type IntentMetadata struct {
	PlanTier          enums.PlanTier
	OfferTier         enums.OfferTier
	RecurringPriceRef string
	Email             string
	Name              string
}

// ParseIntentMetadata decodes metadata written by the issuer. Unknown tiers
// are returned as-is; callers validate them against the catalog.
func ParseIntentMetadata(meta map[string]string) IntentMetadata {
	return IntentMetadata{
		PlanTier:          enums.PlanTier(strings.TrimSpace(meta[MetaPlanTier])),
		OfferTier:         enums.OfferTier(strings.TrimSpace(meta[MetaOfferTier])),
		RecurringPriceRef: strings.TrimSpace(meta[MetaRecurringPriceRef]),
		Email:             strings.TrimSpace(meta[MetaEmail]),
		Name:              strings.TrimSpace(meta[MetaName]),
	}
}

// HasPurchase reports whether the metadata carries enough to provision a
// subscription.
func (m IntentMetadata) HasPurchase() bool {
	return m.PlanTier != "" && m.Email != ""
}

// NormalizeEmail trims and lower-cases an email for comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
