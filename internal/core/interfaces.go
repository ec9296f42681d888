package core

import (
	"context"
	"time"

	"mealplan-backend-go/internal/models"
)

// ProfileService defines the profile queries and the idempotent create.
type ProfileService interface {
	// EnsureProfile creates the profile if none exists. The bool reports whether it was created.
	EnsureProfile(ctx context.Context, userID, email string) (*models.Profile, bool, error)
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	// SubscriptionActive answers the public status query. Unknown users are inactive.
	SubscriptionActive(ctx context.Context, userID string) (bool, error)
}

// ReconciliationService applies billing facts and user actions to the profile state machine.
type ReconciliationService interface {
	StartCheckout(ctx context.Context, req models.CheckoutRequest) (string, error)
	ChangePlan(ctx context.Context, userID, newPlan string) (*models.Profile, error)
	Unsubscribe(ctx context.Context, userID string) (*models.Profile, error)

	CheckoutCompleted(ctx context.Context, event *BillingEvent) (Outcome, error)
	PaymentFailed(ctx context.Context, event *BillingEvent) (Outcome, error)
	SubscriptionDeleted(ctx context.Context, event *BillingEvent) (Outcome, error)
}

// WebhookService verifies inbound provider notifications and routes them to one handler.
type WebhookService interface {
	Handle(ctx context.Context, payload []byte, signature string) (*WebhookResult, error)
}

// MealPlanService produces a meal plan from user preferences.
type MealPlanService interface {
	Generate(ctx context.Context, req models.MealPlanRequest) (models.MealPlan, error)
}

// BillingGateway is the narrow surface of the payment provider this system uses.
type BillingGateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (string, error)
	RetrieveSubscription(ctx context.Context, subscriptionID string) (*SubscriptionSnapshot, error)
	UpdateSubscription(ctx context.Context, subscriptionID string, update SubscriptionUpdate) (*SubscriptionSnapshot, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
	// VerifyEvent authenticates a raw webhook body and decodes the event it carries.
	VerifyEvent(payload []byte, signature string) (*BillingEvent, error)
}

// StatusCache holds the public subscription flag per user.
type StatusCache interface {
	GetStatus(ctx context.Context, userID string) (active bool, found bool, err error)
	// SetStatus stores the flag produced by a committed write.
	SetStatus(ctx context.Context, userID string, active bool) error
	// FillStatus stores a flag read after a miss, unless a writer stored one first.
	FillStatus(ctx context.Context, userID string, active bool) (stored bool, err error)
}

// ChangePublisher announces committed billing state changes to other services.
type ChangePublisher interface {
	PublishProfileChange(ctx context.Context, change ProfileBillingChanged) error
}

// Notifier sends user-facing messages.
type Notifier interface {
	SendPaymentFailed(ctx context.Context, email string, tier *models.PlanInterval) error
}

// ProfileBillingChanged is the message published after every committed profile write.
type ProfileBillingChanged struct {
	UserID               string               `json:"userId"`
	State                models.BillingState  `json:"state"`
	SubscriptionTier     *models.PlanInterval `json:"subscriptionTier"`
	StripeSubscriptionID *string              `json:"stripeSubscriptionId"`
	SubscriptionActive   bool                 `json:"subscriptionActive"`
	Cause                string               `json:"cause"`
	OccurredAt           time.Time            `json:"occurredAt"`
}
