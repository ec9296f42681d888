package models

// PlanInterval is the billing period a user subscribes to.
type PlanInterval string

const (
	IntervalWeek  PlanInterval = "week"
	IntervalMonth PlanInterval = "month"
	IntervalYear  PlanInterval = "year"
)

// Valid reports whether the interval is one of week, month or year.
func (i PlanInterval) Valid() bool {
	switch i {
	case IntervalWeek, IntervalMonth, IntervalYear:
		return true
	}
	return false
}

func (i PlanInterval) String() string { return string(i) }

// Plan is a display entry in the plan catalog.
type Plan struct {
	Interval    PlanInterval `json:"interval" yaml:"interval"`
	Name        string       `json:"name" yaml:"name"`
	Amount      float64      `json:"amount" yaml:"amount"`
	Currency    string       `json:"currency" yaml:"currency"`
	IsPopular   bool         `json:"isPopular,omitempty" yaml:"isPopular"`
	Description string       `json:"description" yaml:"description"`
	Features    []string     `json:"features" yaml:"features"`
}
