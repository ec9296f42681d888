package api

import "mealplan-backend-go/internal/models"

// ErrorResponse is a generic structure for returning errors via API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse is a generic structure for simple success messages.
type SuccessResponse struct {
	Message string `json:"message"`
}

// CreateProfileResponse is returned by POST /api/create-profile.
type CreateProfileResponse struct {
	Message string          `json:"message"`
	Profile *models.Profile `json:"profile,omitempty"`
}

type CheckSubscriptionResponse struct {
	SubscriptionActive bool `json:"subscriptionActive"`
}

type SubscriptionTierView struct {
	SubscriptionTier *models.PlanInterval `json:"subscriptionTier"`
}

// SubscriptionStatusResponse is returned by GET /api/profile/subscription-status.
type SubscriptionStatusResponse struct {
	Subscription SubscriptionTierView `json:"subscription"`
}

type CheckoutResponse struct {
	URL string `json:"url"`
}

// ChangePlanResponse carries the profile after a plan change.
type ChangePlanResponse struct {
	Subscription *models.Profile `json:"subscription"`
}

type SubscriptionActiveView struct {
	SubscriptionActive bool `json:"subscriptionActive"`
}

// UnsubscribeResponse confirms the subscription is no longer active.
type UnsubscribeResponse struct {
	Subscription SubscriptionActiveView `json:"subscription"`
}

type PlansResponse struct {
	Plans []models.Plan `json:"plans"`
}

type MealPlanResponse struct {
	MealPlan models.MealPlan `json:"mealPlan"`
}

// WebhookAck is the body Stripe receives for an accepted delivery.
type WebhookAck struct {
	Received bool `json:"received"`
}
