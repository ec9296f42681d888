package core

import (
	"context"
	"errors"
	"fmt"

	"mealplan-backend-go/internal/db"
	"mealplan-backend-go/internal/models"
)

// ErrorKind is the closed set of failure classes the request handlers know how to answer.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindClientInput
	KindNotFound
	KindAuth
	KindSignatureInvalid
	KindTransientProvider
	KindProviderRejected
	KindCorrelation
	KindGenerationFormat
)

func (k ErrorKind) String() string {
	switch k {
	case KindClientInput:
		return "client_input"
	case KindNotFound:
		return "not_found"
	case KindAuth:
		return "auth"
	case KindSignatureInvalid:
		return "signature_invalid"
	case KindTransientProvider:
		return "transient_provider"
	case KindProviderRejected:
		return "provider_rejected"
	case KindCorrelation:
		return "correlation"
	case KindGenerationFormat:
		return "generation_format"
	default:
		return "internal"
	}
}

// Client input errors.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnknownPlan    = errors.New("unknown plan")
	ErrNoSubscription = errors.New("profile has no subscription")
	ErrEmailMissing   = errors.New("email address unavailable")
	ErrInvalidEvent   = errors.New("billing event is missing required data")
)

var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrUnauthenticated    = errors.New("caller identity could not be resolved")
	ErrSubscriptionNeeded = errors.New("an active subscription is required")
)

// Billing provider errors.
var (
	ErrWebhookSignature    = errors.New("stripe webhook signature verification failed")
	ErrProviderUnavailable = errors.New("billing provider unavailable")
	ErrProviderRejected    = errors.New("billing provider rejected the request")
	// ErrSubscriptionShape is returned when a retrieved subscription has no item to reprice.
	ErrSubscriptionShape = errors.New("subscription has no items")
)

var (
	// ErrCorrelation is returned when a verified billing event names a profile or
	// subscription this system does not hold.
	ErrCorrelation = errors.New("billing event does not match any profile")
	// ErrMealPlanFormat is returned when the generator output is not a meal plan.
	ErrMealPlanFormat  = errors.New("meal plan generator returned an unreadable plan")
	ErrMealPlanBackend = errors.New("meal plan generator unavailable")
)

var kindTable = []struct {
	target error
	kind   ErrorKind
}{
	{ErrWebhookSignature, KindSignatureInvalid},
	{ErrInvalidInput, KindClientInput},
	{ErrUnknownPlan, KindClientInput},
	{ErrNoSubscription, KindClientInput},
	{ErrEmailMissing, KindClientInput},
	{ErrInvalidEvent, KindClientInput},
	{ErrProfileNotFound, KindNotFound},
	{db.ErrNotFound, KindNotFound},
	{ErrUnauthenticated, KindAuth},
	{ErrSubscriptionNeeded, KindAuth},
	{ErrProviderUnavailable, KindTransientProvider},
	{ErrMealPlanBackend, KindTransientProvider},
	{ErrProviderRejected, KindProviderRejected},
	{ErrSubscriptionShape, KindProviderRejected},
	{ErrCorrelation, KindCorrelation},
	{ErrMealPlanFormat, KindGenerationFormat},
	// Timeouts from stores and providers that carry no sentinel of their own.
	{db.ErrUnavailable, KindTransientProvider},
	{context.DeadlineExceeded, KindTransientProvider},
	{context.Canceled, KindTransientProvider},
}

// KindOf classifies err. Unrecognised errors are KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindInternal
	}
	for _, entry := range kindTable {
		if errors.Is(err, entry.target) {
			return entry.kind
		}
	}
	return KindInternal
}

// IsStale reports whether err is a rejected out-of-order write.
func IsStale(err error) bool {
	return errors.Is(err, models.ErrStaleUpdate)
}

// IsReleased reports whether err is a write rejected because it names a released subscription.
func IsReleased(err error) bool {
	return errors.Is(err, models.ErrReleasedSubscription)
}

func storeError(op, userID string, err error) error {
	return fmt.Errorf("profile store %s for user '%s': %w", op, userID, err)
}
