package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"mealplan-backend-go/internal/db"
	"mealplan-backend-go/internal/metrics"
	"mealplan-backend-go/internal/models"
)

// Outcome is how a billing fact was disposed of.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	// OutcomeStale means a newer fact was already applied and this one was skipped.
	OutcomeStale Outcome = "stale"
	// OutcomeReleased means the event concerns a subscription this system already cancelled.
	OutcomeReleased Outcome = "released"
	// OutcomeIgnored means the event kind is not one the engine acts on.
	OutcomeIgnored Outcome = "ignored"
)

const defaultNotifyTimeout = 5 * time.Second

// Reconciliation causes, used in logs, metrics and published change messages.
const (
	CauseCheckoutCompleted   = "checkout_completed"
	CausePaymentFailed       = "payment_failed"
	CauseSubscriptionDeleted = "subscription_deleted"
	CausePlanChanged         = "plan_changed"
	CauseUnsubscribed        = "unsubscribed"
)

// ReconcileOption configures optional collaborators of the reconciliation service.
type ReconcileOption func(*reconciliationService)

// WithStatusCache refreshes cached public status after each write.
func WithStatusCache(c StatusCache) ReconcileOption {
	return func(s *reconciliationService) { s.cache = c }
}

// WithChangePublisher announces each committed write.
func WithChangePublisher(p ChangePublisher) ReconcileOption {
	return func(s *reconciliationService) { s.publisher = p }
}

// WithNotifier emails the user when a renewal payment fails.
func WithNotifier(n Notifier) ReconcileOption {
	return func(s *reconciliationService) { s.notifier = n }
}

// WithNotifyTimeout bounds each payment-failed notice.
func WithNotifyTimeout(d time.Duration) ReconcileOption {
	return func(s *reconciliationService) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

// reconciliationService implements ReconciliationService.
type reconciliationService struct {
	repo      db.ProfileRepository
	gateway   BillingGateway
	catalog   *PlanCatalog
	baseURL   string
	logger    *zap.Logger
	cache     StatusCache
	publisher ChangePublisher
	notifier  Notifier

	// notifyTimeout bounds the payment-failed notice sent inside the webhook request.
	notifyTimeout time.Duration
}

// NewReconciliationService creates the engine that owns every Profile billing write.
func NewReconciliationService(repo db.ProfileRepository, gateway BillingGateway, catalog *PlanCatalog, baseURL string, logger *zap.Logger, opts ...ReconcileOption) ReconciliationService {
	s := &reconciliationService{
		repo:    repo,
		gateway: gateway,
		catalog: catalog,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,

		notifyTimeout: defaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartCheckout validates the plan and opens a hosted checkout. No profile is written;
// the completion webhook carries the metadata back.
func (s *reconciliationService) StartCheckout(ctx context.Context, req models.CheckoutRequest) (string, error) {
	if req.PlanType == "" || req.UserID == "" || req.Email == "" {
		return "", fmt.Errorf("%w: planType, userId and email are required", ErrInvalidInput)
	}
	interval, priceID, err := s.catalog.resolve(req.PlanType)
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, req.PlanType)
	}

	url, err := s.gateway.CreateCheckoutSession(ctx, CheckoutSessionRequest{
		PriceID:       priceID,
		CustomerEmail: req.Email,
		SuccessURL:    s.baseURL + "/?SESSION_ID={CHECKOUT_SESSION_ID}",
		CancelURL:     s.baseURL + "/subscribe",
		UserID:        req.UserID,
		PlanInterval:  interval,
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("Checkout session created", zap.String("userID", req.UserID), zap.String("plan", interval.String()))
	return url, nil
}

// ChangePlan reprices the user's subscription with proration and marks it to end at the
// close of the current period.
func (s *reconciliationService) ChangePlan(ctx context.Context, userID, newPlan string) (*models.Profile, error) {
	interval, priceID, err := s.catalog.resolve(newPlan)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, newPlan)
	}
	profile, err := s.subscribedProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	subID := *profile.StripeSubscriptionID

	snap, err := s.gateway.RetrieveSubscription(ctx, subID)
	if err != nil {
		return nil, err
	}
	if snap.Ended() {
		return nil, fmt.Errorf("%w: subscription %s is %s", ErrNoSubscription, subID, snap.Status)
	}
	if snap.ItemID == "" {
		return nil, fmt.Errorf("%w: subscription %s", ErrSubscriptionShape, subID)
	}
	updated, err := s.gateway.UpdateSubscription(ctx, subID, SubscriptionUpdate{
		ItemID:            snap.ItemID,
		NewPriceID:        priceID,
		CancelAtPeriodEnd: true,
		Prorate:           true,
	})
	if err != nil {
		return nil, err
	}
	if updated.ID != "" {
		subID = updated.ID
	}
	if updated.PriceID != "" && updated.PriceID != priceID {
		return nil, fmt.Errorf("%w: subscription %s still priced %s after change to %s", ErrSubscriptionShape, subID, updated.PriceID, priceID)
	}
	from, _ := s.catalog.IntervalForPriceID(snap.PriceID)
	s.logger.Info("Subscription repriced",
		zap.String("userID", userID), zap.String("subscriptionID", subID),
		zap.String("fromPlan", from.String()), zap.String("toPlan", interval.String()),
		zap.Bool("cancelAtPeriodEnd", updated.CancelAtPeriodEnd))

	active := true
	next, err := s.repo.Update(ctx, userID, models.ProfileUpdate{
		SubscriptionTier:     models.SetValue(interval),
		StripeSubscriptionID: models.SetValue(subID),
		SubscriptionActive:   &active,
	})
	if err != nil {
		s.logger.Error("Plan changed at provider but profile write failed",
			zap.String("userID", userID), zap.String("subscriptionID", subID), zap.Error(err))
		s.observe(CausePlanChanged, "failed")
		return nil, storeError("update", userID, err)
	}
	s.afterWrite(ctx, next, CausePlanChanged)
	return next, nil
}

// Unsubscribe cancels the subscription immediately and returns the profile to Unsubscribed.
func (s *reconciliationService) Unsubscribe(ctx context.Context, userID string) (*models.Profile, error) {
	profile, err := s.subscribedProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	subID := *profile.StripeSubscriptionID

	if err := s.gateway.CancelSubscription(ctx, subID); err != nil {
		return nil, err
	}

	inactive := false
	next, err := s.repo.Update(ctx, userID, models.ProfileUpdate{
		SubscriptionTier:       models.SetNull[models.PlanInterval](),
		StripeSubscriptionID:   models.SetNull[string](),
		SubscriptionActive:     &inactive,
		ReleasedSubscriptionID: models.SetValue(subID),
	})
	if err != nil {
		s.logger.Error("Subscription cancelled at provider but profile write failed",
			zap.String("userID", userID), zap.String("subscriptionID", subID), zap.Error(err))
		s.observe(CauseUnsubscribed, "failed")
		return nil, storeError("update", userID, err)
	}
	s.afterWrite(ctx, next, CauseUnsubscribed)
	return next, nil
}

// CheckoutCompleted activates the subscription named in the session metadata.
func (s *reconciliationService) CheckoutCompleted(ctx context.Context, event *BillingEvent) (Outcome, error) {
	userID := event.UserID()
	planType := event.Metadata[MetadataPlanType]
	switch {
	case userID == "":
		return "", fmt.Errorf("%w: no userId in metadata of checkout session %s", ErrInvalidEvent, event.ObjectID)
	case planType == "":
		return "", fmt.Errorf("%w: no planType in metadata of checkout session %s", ErrInvalidEvent, event.ObjectID)
	case event.SubscriptionID == "":
		return "", fmt.Errorf("%w: no subscription on checkout session %s", ErrInvalidEvent, event.ObjectID)
	}
	interval := models.PlanInterval(planType)
	if _, ok := s.catalog.Plan(interval); !ok {
		return "", fmt.Errorf("%w: checkout session %s names unknown plan %q", ErrInvalidEvent, event.ObjectID, planType)
	}

	active := true
	return s.applyEvent(ctx, event, CauseCheckoutCompleted, userID, models.ProfileUpdate{
		SubscriptionTier:     models.SetValue(interval),
		StripeSubscriptionID: models.SetValue(event.SubscriptionID),
		SubscriptionActive:   &active,
		UnlessReleased:       event.SubscriptionID,
	})
}

// PaymentFailed moves the subscriber to PastDue, keeping tier and subscription.
func (s *reconciliationService) PaymentFailed(ctx context.Context, event *BillingEvent) (Outcome, error) {
	if event.SubscriptionID == "" {
		return "", fmt.Errorf("%w: no subscription on invoice %s", ErrInvalidEvent, event.ObjectID)
	}
	profile, err := s.repo.GetBySubscriptionID(ctx, event.SubscriptionID)
	if errors.Is(err, db.ErrNotFound) {
		if outcome, ok := s.releasedOutcome(ctx, event, CausePaymentFailed, &err); ok {
			return outcome, nil
		}
	}
	if err != nil {
		return "", s.correlationError(event, err)
	}

	inactive := false
	outcome, err := s.applyEvent(ctx, event, CausePaymentFailed, profile.UserID, models.ProfileUpdate{
		SubscriptionActive: &inactive,
	})
	if err != nil || outcome != OutcomeApplied {
		return outcome, err
	}
	s.notifyPaymentFailed(ctx, profile)
	return outcome, nil
}

// notifyPaymentFailed sends the dunning notice under its own deadline so a slow mail relay
// cannot hold the webhook acknowledgement.
func (s *reconciliationService) notifyPaymentFailed(ctx context.Context, profile *models.Profile) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()
	if err := s.notifier.SendPaymentFailed(ctx, profile.Email, profile.SubscriptionTier); err != nil {
		s.logger.Warn("Failed to send payment failure notice", zap.String("userID", profile.UserID), zap.Error(err))
	}
}

// SubscriptionDeleted returns the subscriber to Unsubscribed. Deletions of a subscription
// this system cancelled on request are acknowledged without a write.
func (s *reconciliationService) SubscriptionDeleted(ctx context.Context, event *BillingEvent) (Outcome, error) {
	if event.SubscriptionID == "" {
		return "", fmt.Errorf("%w: event %s names no subscription", ErrInvalidEvent, event.ID)
	}
	profile, err := s.repo.GetBySubscriptionID(ctx, event.SubscriptionID)
	if errors.Is(err, db.ErrNotFound) {
		if outcome, ok := s.releasedOutcome(ctx, event, CauseSubscriptionDeleted, &err); ok {
			return outcome, nil
		}
	}
	if err != nil {
		return "", s.correlationError(event, err)
	}

	inactive := false
	return s.applyEvent(ctx, event, CauseSubscriptionDeleted, profile.UserID, models.ProfileUpdate{
		SubscriptionTier:     models.SetNull[models.PlanInterval](),
		StripeSubscriptionID: models.SetNull[string](),
		SubscriptionActive:   &inactive,
	})
}

// applyEvent writes update guarded by the event creation time.
func (s *reconciliationService) applyEvent(ctx context.Context, event *BillingEvent, cause, userID string, update models.ProfileUpdate) (Outcome, error) {
	at := event.CreatedAt
	update.LastEventAt = &at

	next, err := s.repo.Update(ctx, userID, update)
	switch {
	case err == nil:
	case IsReleased(err):
		s.logger.Info("Event for self-cancelled subscription acknowledged",
			zap.String("eventID", event.ID), zap.String("eventType", event.Type),
			zap.String("userID", userID), zap.String("subscriptionID", event.SubscriptionID))
		s.observe(cause, string(OutcomeReleased))
		return OutcomeReleased, nil
	case IsStale(err):
		s.logger.Info("Skipping out-of-order billing event",
			zap.String("eventID", event.ID), zap.String("eventType", event.Type),
			zap.String("userID", userID), zap.Time("eventCreated", at))
		s.observe(cause, string(OutcomeStale))
		return OutcomeStale, nil
	case errors.Is(err, db.ErrNotFound), errors.Is(err, db.ErrAlreadyExists):
		s.observe(cause, "failed")
		return "", s.correlationError(event, err)
	default:
		s.observe(cause, "failed")
		return "", storeError("update", userID, err)
	}

	s.afterWrite(ctx, next, cause)
	return OutcomeApplied, nil
}

// subscribedProfile loads a profile that must exist and hold a subscription.
func (s *reconciliationService) subscribedProfile(ctx context.Context, userID string) (*models.Profile, error) {
	profile, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: user with ID '%s'", ErrProfileNotFound, userID)
		}
		return nil, storeError("read", userID, err)
	}
	if !profile.HasSubscription() {
		return nil, fmt.Errorf("%w: user with ID '%s'", ErrNoSubscription, userID)
	}
	return profile, nil
}

// releasedOutcome acknowledges an event for a subscription some profile released on request.
// When no profile released it either, *err is left as the not-found error, or replaced by the
// lookup failure.
func (s *reconciliationService) releasedOutcome(ctx context.Context, event *BillingEvent, cause string, err *error) (Outcome, bool) {
	released, relErr := s.repo.GetByReleasedSubscriptionID(ctx, event.SubscriptionID)
	if relErr == nil {
		s.logger.Info("Event for self-cancelled subscription acknowledged",
			zap.String("eventID", event.ID), zap.String("eventType", event.Type),
			zap.String("userID", released.UserID), zap.String("subscriptionID", event.SubscriptionID))
		s.observe(cause, string(OutcomeReleased))
		return OutcomeReleased, true
	}
	if !errors.Is(relErr, db.ErrNotFound) {
		*err = relErr
	}
	return "", false
}

func (s *reconciliationService) correlationError(event *BillingEvent, err error) error {
	if errors.Is(err, db.ErrNotFound) || errors.Is(err, db.ErrAlreadyExists) {
		return fmt.Errorf("%w: event %s (%s) subscription '%s': %v", ErrCorrelation, event.ID, event.Type, event.SubscriptionID, err)
	}
	return fmt.Errorf("resolving profile for event %s: %w", event.ID, err)
}

// afterWrite runs the best-effort side effects of a committed write.
func (s *reconciliationService) afterWrite(ctx context.Context, p *models.Profile, cause string) {
	s.observe(cause, string(OutcomeApplied))
	s.logger.Info("Profile billing state updated",
		zap.String("userID", p.UserID), zap.String("cause", cause), zap.String("state", string(p.State())))

	if s.cache != nil {
		if err := s.cache.SetStatus(ctx, p.UserID, p.SubscriptionActive); err != nil {
			s.logger.Warn("Failed to refresh cached subscription status", zap.String("userID", p.UserID), zap.Error(err))
		}
	}
	if s.publisher != nil {
		change := ProfileBillingChanged{
			UserID:               p.UserID,
			State:                p.State(),
			SubscriptionTier:     p.SubscriptionTier,
			StripeSubscriptionID: p.StripeSubscriptionID,
			SubscriptionActive:   p.SubscriptionActive,
			Cause:                cause,
			OccurredAt:           p.UpdatedAt,
		}
		if err := s.publisher.PublishProfileChange(ctx, change); err != nil {
			s.logger.Warn("Failed to publish profile billing change", zap.String("userID", p.UserID), zap.Error(err))
		}
	}
}

func (s *reconciliationService) observe(cause, outcome string) {
	metrics.ReconciliationTotal.WithLabelValues(cause, outcome).Inc()
}
