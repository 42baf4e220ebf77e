package offers

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/quizfunnel-backend/pkg/config"
	"github.com/angelmondragon/quizfunnel-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quizfunnel-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	planCount = 3
	tierCount = 3
)

// Offer is one purchasable (plan, tier) combination.
type Offer struct {
	PlanTier          enums.PlanTier  `json:"planTier"`
	OfferTier         enums.OfferTier `json:"offerTier"`
	Amount            int64           `json:"amount"`
	RecurringPriceRef string          `json:"recurringPriceRef"`
	TrialDays         int             `json:"trialDays"`
}

// DisplayAmount renders the minor-unit amount as a major-unit decimal string.
func (o Offer) DisplayAmount() string {
	return decimal.NewFromInt(o.Amount).Shift(-2).StringFixed(2)
}

// PriceRefs holds the recurring processor price id for every plan and tier,
// indexed by PlanTier.Index() and OfferTier.Index().
type PriceRefs [planCount][tierCount]string

// PriceRefsFromConfig maps the configured price ids onto the catalog grid.
func PriceRefsFromConfig(cfg config.OffersConfig) PriceRefs {
	return PriceRefs{
		{cfg.ShortRegularPriceID, cfg.ShortExitDiscountPriceID, cfg.ShortFinalDiscountPriceID},
		{cfg.MediumRegularPriceID, cfg.MediumExitDiscountPriceID, cfg.MediumFinalDiscountPriceID},
		{cfg.LongRegularPriceID, cfg.LongExitDiscountPriceID, cfg.LongFinalDiscountPriceID},
	}
}

type planTerms struct {
	amounts   [tierCount]int64
	trialDays int
}

// Initial charge per plan in minor units, by tier; trial length equals the
// plan's nominal duration.
var defaultTerms = [planCount]planTerms{
	{amounts: [tierCount]int64{999, 699, 499}, trialDays: 7},
	{amounts: [tierCount]int64{1999, 1499, 999}, trialDays: 28},
	{amounts: [tierCount]int64{3999, 2999, 1999}, trialDays: 84},
}

type tierKey struct {
	plan enums.PlanTier
	tier enums.OfferTier
}

// Catalog is the immutable plan/offer table.
type Catalog struct {
	offers  [planCount][tierCount]Offer
	byPrice map[string]tierKey
}

// NewCatalog builds the catalog and fails when a price id is missing or shared
// between two offers, or when a plan's amounts do not strictly decrease as the
// tier escalates.
func NewCatalog(refs PriceRefs) (*Catalog, error) {
	return newCatalog(defaultTerms, refs)
}

func newCatalog(terms [planCount]planTerms, refs PriceRefs) (*Catalog, error) {
	plans := enums.PlanTiers()
	tiers := enums.OfferTiers()
	if len(plans) != planCount || len(tiers) != tierCount {
		return nil, fmt.Errorf("catalog grid is %dx%d, enums define %dx%d", planCount, tierCount, len(plans), len(tiers))
	}

	c := &Catalog{byPrice: make(map[string]tierKey, planCount*tierCount)}
	for pi, plan := range plans {
		for ti, tier := range tiers {
			ref := strings.TrimSpace(refs[pi][ti])
			if ref == "" {
				return nil, fmt.Errorf("missing recurring price id for %s/%s", plan, tier)
			}
			if prev, dup := c.byPrice[ref]; dup {
				return nil, fmt.Errorf("price id %q used by both %s/%s and %s/%s", ref, prev.plan, prev.tier, plan, tier)
			}
			amount := terms[pi].amounts[ti]
			if amount <= 0 {
				return nil, fmt.Errorf("amount for %s/%s must be positive", plan, tier)
			}
			if ti > 0 && amount >= terms[pi].amounts[ti-1] {
				return nil, fmt.Errorf("amount for %s/%s must be lower than %s", plan, tier, tiers[ti-1])
			}
			c.byPrice[ref] = tierKey{plan: plan, tier: tier}
			c.offers[pi][ti] = Offer{
				PlanTier:          plan,
				OfferTier:         tier,
				Amount:            amount,
				RecurringPriceRef: ref,
				TrialDays:         terms[pi].trialDays,
			}
		}
	}
	return c, nil
}

// Lookup returns the offer for plan and tier.
func (c *Catalog) Lookup(plan enums.PlanTier, tier enums.OfferTier) (Offer, error) {
	pi := plan.Index()
	if pi < 0 {
		return Offer{}, unknownPlan(plan)
	}
	ti := tier.Index()
	if ti < 0 {
		return Offer{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown offer tier").
			WithDetails(map[string]string{"offerTier": string(tier)})
	}
	return c.offers[pi][ti], nil
}

// PriceRef returns the recurring price id for plan and tier.
func (c *Catalog) PriceRef(plan enums.PlanTier, tier enums.OfferTier) (string, error) {
	offer, err := c.Lookup(plan, tier)
	if err != nil {
		return "", err
	}
	return offer.RecurringPriceRef, nil
}

// TrialDays returns the trial length granted with plan.
func (c *Catalog) TrialDays(plan enums.PlanTier) (int, error) {
	pi := plan.Index()
	if pi < 0 {
		return 0, unknownPlan(plan)
	}
	return c.offers[pi][0].TrialDays, nil
}

// ResolvePriceRef maps a recurring price id back to its plan and tier.
func (c *Catalog) ResolvePriceRef(ref string) (enums.PlanTier, enums.OfferTier, bool) {
	key, ok := c.byPrice[strings.TrimSpace(ref)]
	return key.plan, key.tier, ok
}

// Offers lists every plan's offer for tier, in plan order.
func (c *Catalog) Offers(tier enums.OfferTier) ([]Offer, error) {
	ti := tier.Index()
	if ti < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown offer tier").
			WithDetails(map[string]string{"offerTier": string(tier)})
	}
	out := make([]Offer, 0, planCount)
	for pi := range c.offers {
		out = append(out, c.offers[pi][ti])
	}
	return out, nil
}

func unknownPlan(plan enums.PlanTier) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "unknown plan").
		WithDetails(map[string]string{"planTier": string(plan)})
}
