package models

// DailyMealPlan holds the meals suggested for one day.
type DailyMealPlan struct {
	Breakfast string `json:"Breakfast,omitempty"`
	Lunch     string `json:"Lunch,omitempty"`
	Dinner    string `json:"Dinner,omitempty"`
	Snacks    string `json:"Snacks,omitempty"`
}

// MealPlan maps a day label (e.g. "Monday") to its meals.
type MealPlan map[string]DailyMealPlan
