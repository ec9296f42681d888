package core

import (
	"context"

	"go.uber.org/zap"
)

// WebhookResult describes a processed provider notification.
type WebhookResult struct {
	EventID   string
	EventType string
	Outcome   Outcome
}

// webhookService implements WebhookService.
type webhookService struct {
	gateway    BillingGateway
	reconciler ReconciliationService
	logger     *zap.Logger
}

// NewWebhookService creates a WebhookService.
func NewWebhookService(gateway BillingGateway, reconciler ReconciliationService, logger *zap.Logger) WebhookService {
	return &webhookService{
		gateway:    gateway,
		reconciler: reconciler,
		logger:     logger,
	}
}

// Handle verifies payload against signature and dispatches the event to exactly one
// handler. A non-nil result is returned whenever the signature verified, even on error,
// so callers can label the failure with the event type.
func (s *webhookService) Handle(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := s.gateway.VerifyEvent(payload, signature)
	if err != nil {
		return nil, err
	}
	result := &WebhookResult{EventID: event.ID, EventType: event.Type}
	log := s.logger.With(zap.String("eventID", event.ID), zap.String("eventType", event.Type))

	var outcome Outcome
	switch event.Type {
	case EventCheckoutSessionCompleted:
		outcome, err = s.reconciler.CheckoutCompleted(ctx, event)
	case EventInvoicePaymentFailed:
		outcome, err = s.reconciler.PaymentFailed(ctx, event)
	case EventSubscriptionDeleted:
		outcome, err = s.reconciler.SubscriptionDeleted(ctx, event)
	default:
		log.Debug("Unhandled webhook event type")
		outcome = OutcomeIgnored
	}
	if err != nil {
		log.Error("Failed to process webhook event", zap.String("kind", KindOf(err).String()), zap.Error(err))
		return result, err
	}

	result.Outcome = outcome
	log.Info("Webhook event processed", zap.String("outcome", string(outcome)))
	return result, nil
}
