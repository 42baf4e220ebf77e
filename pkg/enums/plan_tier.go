package enums

import "fmt"

// PlanTier identifies the duration tier of the single funnel product.
type PlanTier string

const (
	PlanTierShort  PlanTier = "short"
	PlanTierMedium PlanTier = "medium"
	PlanTierLong   PlanTier = "long"
)

var validPlanTiers = []PlanTier{
	PlanTierShort,
	PlanTierMedium,
	PlanTierLong,
}

// PlanTiers returns every plan tier in catalog order.
func PlanTiers() []PlanTier {
	out := make([]PlanTier, len(validPlanTiers))
	copy(out, validPlanTiers)
	return out
}

// String implements fmt.Stringer.
func (p PlanTier) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PlanTier.
func (p PlanTier) IsValid() bool {
	return p.Index() >= 0
}

// Index returns the position of the tier in catalog order, or -1.
func (p PlanTier) Index() int {
	for i, candidate := range validPlanTiers {
		if candidate == p {
			return i
		}
	}
	return -1
}

// ParsePlanTier converts raw input into a PlanTier.
func ParsePlanTier(value string) (PlanTier, error) {
	for _, candidate := range validPlanTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plan tier %q", value)
}
