package enums

import "fmt"

// OfferTier is the discount step shown to a visitor. Tiers escalate
// regular -> exit_discount -> final_discount and never move back.
type OfferTier string

const (
	OfferTierRegular       OfferTier = "regular"
	OfferTierExitDiscount  OfferTier = "exit_discount"
	OfferTierFinalDiscount OfferTier = "final_discount"
)

var validOfferTiers = []OfferTier{
	OfferTierRegular,
	OfferTierExitDiscount,
	OfferTierFinalDiscount,
}

// OfferTiers returns every offer tier in escalation order.
func OfferTiers() []OfferTier {
	out := make([]OfferTier, len(validOfferTiers))
	copy(out, validOfferTiers)
	return out
}

// String implements fmt.Stringer.
func (o OfferTier) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OfferTier.
func (o OfferTier) IsValid() bool {
	return o.Index() >= 0
}

// Index returns the escalation step of the tier, or -1.
func (o OfferTier) Index() int {
	for i, candidate := range validOfferTiers {
		if candidate == o {
			return i
		}
	}
	return -1
}

// Next returns the following tier and false when o is already the deepest.
func (o OfferTier) Next() (OfferTier, bool) {
	idx := o.Index()
	if idx < 0 || idx+1 >= len(validOfferTiers) {
		return o, false
	}
	return validOfferTiers[idx+1], true
}

// ParseOfferTier converts raw input into an OfferTier.
func ParseOfferTier(value string) (OfferTier, error) {
	for _, candidate := range validOfferTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid offer tier %q", value)
}
