package entitlements

import (
	"strings"

	"github.com/shotmakerhq/shotmaker/internal/pkg/env"
)

type Plan string

const (
	PlanFree    Plan = "free"
	PlanStarter Plan = "starter"
	PlanPro     Plan = "pro"
)

// PlanDefinition describes one subscription tier and its entitlements.
// PriceRef is the external payment-provider price identifier; it is empty
// for the free plan, which is never purchased.
type PlanDefinition struct {
	ID             Plan
	Name           string
	MonthlyCredits int
	StorageLimit   int64
	PriceRef       string
}

// CreditPackDefinition describes a one-time credit purchase.
type CreditPackDefinition struct {
	ID       string
	Credits  int
	PriceRef string
}

// Catalog is a static, side-effect-free lookup table from external price
// references to internal entitlements. Absence is represented as a nil
// return, not an error.
type Catalog struct {
	plans []PlanDefinition
	packs []CreditPackDefinition
}

// NewCatalog builds a catalog from explicit definitions.
func NewCatalog(plans []PlanDefinition, packs []CreditPackDefinition) *Catalog {
	return &Catalog{plans: plans, packs: packs}
}

// FromEnv builds the production catalog. Price references come from the
// environment so the same build can point at test and live Stripe prices.
func FromEnv() *Catalog {
	return NewCatalog(
		[]PlanDefinition{
			{ID: PlanFree, Name: "Free", MonthlyCredits: 50, StorageLimit: 524_288_000},
			{ID: PlanStarter, Name: "Starter", MonthlyCredits: 200, StorageLimit: 5_368_709_120, PriceRef: env.GetEnv("STRIPE_PRICE_STARTER", "")},
			{ID: PlanPro, Name: "Pro", MonthlyCredits: 600, StorageLimit: 21_474_836_480, PriceRef: env.GetEnv("STRIPE_PRICE_PRO", "")},
		},
		[]CreditPackDefinition{
			{ID: "credits-500", Credits: 500, PriceRef: env.GetEnv("STRIPE_PRICE_CREDITS_500", "")},
			{ID: "credits-1500", Credits: 1500, PriceRef: env.GetEnv("STRIPE_PRICE_CREDITS_1500", "")},
			{ID: "credits-3500", Credits: 3500, PriceRef: env.GetEnv("STRIPE_PRICE_CREDITS_3500", "")},
		},
	)
}

// GetPlan returns the plan definition for an internal plan id, or nil.
func (c *Catalog) GetPlan(id Plan) *PlanDefinition {
	for i := range c.plans {
		if c.plans[i].ID == id {
			return &c.plans[i]
		}
	}
	return nil
}

// ResolvePlanByPriceRef maps an external price reference to a plan, or nil.
// Unconfigured (empty) price refs never match.
func (c *Catalog) ResolvePlanByPriceRef(priceRef string) *PlanDefinition {
	ref := strings.TrimSpace(priceRef)
	if ref == "" {
		return nil
	}
	for i := range c.plans {
		if c.plans[i].PriceRef != "" && c.plans[i].PriceRef == ref {
			return &c.plans[i]
		}
	}
	return nil
}

// ResolvePackByPriceRef maps an external price reference to a credit pack, or nil.
func (c *Catalog) ResolvePackByPriceRef(priceRef string) *CreditPackDefinition {
	ref := strings.TrimSpace(priceRef)
	if ref == "" {
		return nil
	}
	for i := range c.packs {
		if c.packs[i].PriceRef != "" && c.packs[i].PriceRef == ref {
			return &c.packs[i]
		}
	}
	return nil
}

// Plans returns all plan definitions in display order.
func (c *Catalog) Plans() []PlanDefinition {
	return c.plans
}

// Packs returns all credit pack definitions in display order.
func (c *Catalog) Packs() []CreditPackDefinition {
	return c.packs
}

// NormalizePlan folds arbitrary input to a known plan id, defaulting to free.
func NormalizePlan(plan string) Plan {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(PlanStarter):
		return PlanStarter
	case string(PlanPro):
		return PlanPro
	default:
		return PlanFree
	}
}
