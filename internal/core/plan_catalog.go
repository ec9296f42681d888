package core

import (
	"mealplan-backend-go/configs"
	"mealplan-backend-go/internal/config"
	"mealplan-backend-go/internal/models"
)

// DefaultPlans is the built-in catalog in display order.
func DefaultPlans() []models.Plan {
	return []models.Plan{
		{
			Interval:    models.IntervalWeek,
			Name:        "Weekly Plan",
			Amount:      99.99,
			Currency:    "INR",
			Description: "Great if you want to try the service before committing longer.",
			Features:    []string{"Unlimited AI meal plans", "AI nutrition insights", "Cancel anytime"},
		},
		{
			Interval:    models.IntervalMonth,
			Name:        "Monthly Plan",
			Amount:      399.99,
			Currency:    "INR",
			IsPopular:   true,
			Description: "Perfect for ongoing, month to month meal planning and features.",
			Features:    []string{"Unlimited AI meal plans", "Priority AI support", "Cancel anytime"},
		},
		{
			Interval:    models.IntervalYear,
			Name:        "Yearly Plan",
			Amount:      2399.99,
			Currency:    "INR",
			Description: "Great for consistent and long term usage, planning and features.",
			Features:    []string{"Unlimited AI meal plans", "All premium features", "Cancel anytime"},
		},
	}
}

// PlanCatalog is the read-only mapping from plan interval to display metadata and
// provider price identifier.
type PlanCatalog struct {
	plans    []models.Plan
	priceIDs map[models.PlanInterval]string
}

// NewPlanCatalog builds a catalog. An empty price id leaves that interval unpurchasable.
func NewPlanCatalog(plans []models.Plan, priceIDs map[models.PlanInterval]string) *PlanCatalog {
	c := &PlanCatalog{
		plans:    make([]models.Plan, len(plans)),
		priceIDs: make(map[models.PlanInterval]string, len(priceIDs)),
	}
	copy(c.plans, plans)
	for interval, id := range priceIDs {
		if id != "" {
			c.priceIDs[interval] = id
		}
	}
	return c
}

// NewPlanCatalogFromConfig builds the catalog from STRIPE_PRICE_* and, when PLANS_FILE is
// set, the display metadata in that file.
func NewPlanCatalogFromConfig(cfg *config.Config) (*PlanCatalog, error) {
	plans := DefaultPlans()
	if cfg.PlansFile != "" {
		pf, err := configs.LoadPlanFile(cfg.PlansFile)
		if err != nil {
			return nil, err
		}
		if len(pf.Plans) > 0 {
			plans = pf.Plans
		}
	}
	return NewPlanCatalog(plans, map[models.PlanInterval]string{
		models.IntervalWeek:  cfg.StripePriceWeekly,
		models.IntervalMonth: cfg.StripePriceMonthly,
		models.IntervalYear:  cfg.StripePriceYearly,
	}), nil
}

// ListPlans returns the plans in display order.
func (c *PlanCatalog) ListPlans() []models.Plan {
	out := make([]models.Plan, len(c.plans))
	copy(out, c.plans)
	return out
}

// Plan returns the display entry for interval.
func (c *PlanCatalog) Plan(interval models.PlanInterval) (models.Plan, bool) {
	for _, p := range c.plans {
		if p.Interval == interval {
			return p, true
		}
	}
	return models.Plan{}, false
}

// PriceIDFor returns the provider price for interval. Absent means the caller sent an
// unknown or unpurchasable plan.
func (c *PlanCatalog) PriceIDFor(interval models.PlanInterval) (string, bool) {
	if _, ok := c.Plan(interval); !ok {
		return "", false
	}
	id, ok := c.priceIDs[interval]
	return id, ok
}

// IntervalForPriceID is the reverse lookup of PriceIDFor.
func (c *PlanCatalog) IntervalForPriceID(priceID string) (models.PlanInterval, bool) {
	for interval, id := range c.priceIDs {
		if id == priceID {
			return interval, true
		}
	}
	return "", false
}

// resolve parses a raw plan identifier from a request or event and returns its price.
func (c *PlanCatalog) resolve(raw string) (models.PlanInterval, string, error) {
	interval := models.PlanInterval(raw)
	if !interval.Valid() {
		return "", "", ErrUnknownPlan
	}
	priceID, ok := c.PriceIDFor(interval)
	if !ok {
		return "", "", ErrUnknownPlan
	}
	return interval, priceID, nil
}
