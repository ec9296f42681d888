package models

// CheckoutRequest is the body of POST /api/checkout.
type CheckoutRequest struct {
	PlanType string `json:"planType"`
	UserID   string `json:"userId"`
	Email    string `json:"email"`
}

// ChangePlanRequest is the body of POST /api/profile/change-plan.
type ChangePlanRequest struct {
	NewPlan string `json:"newPlan"`
}

// MealPlanRequest is the body of POST /api/generate-mealplan.
type MealPlanRequest struct {
	DietType  string `json:"dietType"`
	Calories  int    `json:"calories"`
	Allergies string `json:"allergies,omitempty"`
	Cuisine   string `json:"cuisine,omitempty"`
	Snacks    bool   `json:"snacks"`
	Days      int    `json:"days"`
}
