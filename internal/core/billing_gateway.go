package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"mealplan-backend-go/internal/models"
)

// Provider event kinds the reconciliation engine acts on.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventInvoicePaymentFailed     = "invoice.payment_failed"
	EventSubscriptionDeleted      = "customer.subscription.deleted"
)

// Checkout session metadata keys. metadataLegacyUserID is still read for sessions
// created before the key was renamed.
const (
	MetadataUserID       = "userId"
	MetadataPlanType     = "planType"
	metadataLegacyUserID = "clerkUserId"
)

const (
	prorationCreate = "create_prorations"
	prorationNone   = "none"
)

// CheckoutSessionRequest describes a hosted checkout for one recurring price.
type CheckoutSessionRequest struct {
	PriceID       string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	UserID        string
	PlanInterval  models.PlanInterval
}

// SubscriptionSnapshot is the part of a provider subscription this system reads.
type SubscriptionSnapshot struct {
	ID                string
	Status            string
	ItemID            string
	PriceID           string
	CancelAtPeriodEnd bool
}

// Ended reports whether the provider will never bill the subscription again.
func (s *SubscriptionSnapshot) Ended() bool {
	switch stripe.SubscriptionStatus(s.Status) {
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return true
	}
	return false
}

// SubscriptionUpdate reprices the item of an existing subscription.
type SubscriptionUpdate struct {
	ItemID            string
	NewPriceID        string
	CancelAtPeriodEnd bool
	Prorate           bool
}

// BillingEvent is a verified provider notification reduced to the fields reconciliation needs.
type BillingEvent struct {
	ID        string
	Type      string
	CreatedAt time.Time
	// ObjectID is the id of the session, invoice or subscription the event describes.
	ObjectID       string
	SubscriptionID string
	Metadata       map[string]string
}

// UserID returns the application user id carried in checkout metadata.
func (e *BillingEvent) UserID() string {
	if id := e.Metadata[MetadataUserID]; id != "" {
		return id
	}
	return e.Metadata[metadataLegacyUserID]
}

// stripeGateway implements BillingGateway with a per-instance Stripe client.
type stripeGateway struct {
	sc            *client.API
	webhookSecret string
	timeout       time.Duration
}

// NewStripeGateway creates a BillingGateway. backends may be nil to use Stripe's defaults.
func NewStripeGateway(secretKey, webhookSecret string, timeout time.Duration, backends *stripe.Backends) BillingGateway {
	sc := &client.API{}
	sc.Init(secretKey, backends)
	return &stripeGateway{
		sc:            sc,
		webhookSecret: webhookSecret,
		timeout:       timeout,
	}
}

func (g *stripeGateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func (g *stripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		CustomerEmail: stripe.String(req.CustomerEmail),
		SuccessURL:    stripe.String(req.SuccessURL),
		CancelURL:     stripe.String(req.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata(MetadataUserID, req.UserID)
	params.AddMetadata(MetadataPlanType, req.PlanInterval.String())

	sess, err := g.sc.CheckoutSessions.New(params)
	if err != nil {
		return "", classifyStripeError("create checkout session", err)
	}
	return sess.URL, nil
}

func (g *stripeGateway) RetrieveSubscription(ctx context.Context, subscriptionID string) (*SubscriptionSnapshot, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := g.sc.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, classifyStripeError("retrieve subscription", err)
	}
	return snapshotOf(sub), nil
}

func (g *stripeGateway) UpdateSubscription(ctx context.Context, subscriptionID string, update SubscriptionUpdate) (*SubscriptionSnapshot, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{
				ID:    stripe.String(update.ItemID),
				Price: stripe.String(update.NewPriceID),
			},
		},
		CancelAtPeriodEnd: stripe.Bool(update.CancelAtPeriodEnd),
	}
	if update.Prorate {
		params.ProrationBehavior = stripe.String(prorationCreate)
	} else {
		params.ProrationBehavior = stripe.String(prorationNone)
	}
	params.Context = ctx

	sub, err := g.sc.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return nil, classifyStripeError("update subscription", err)
	}
	return snapshotOf(sub), nil
}

func (g *stripeGateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	if _, err := g.sc.Subscriptions.Cancel(subscriptionID, params); err != nil {
		return classifyStripeError("cancel subscription", err)
	}
	return nil
}

func (g *stripeGateway) VerifyEvent(payload []byte, signature string) (*BillingEvent, error) {
	if signature == "" {
		return nil, fmt.Errorf("%w: missing Stripe-Signature header", ErrWebhookSignature)
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWebhookSignature, err)
	}
	return decodeStripeEvent(event)
}

// decodeStripeEvent extracts the object of the three handled event kinds. Other kinds are
// returned with only their envelope filled in.
func decodeStripeEvent(event stripe.Event) (*BillingEvent, error) {
	be := &BillingEvent{
		ID:        event.ID,
		Type:      string(event.Type),
		CreatedAt: time.Unix(event.Created, 0).UTC(),
	}
	if event.Data == nil {
		return be, nil
	}

	switch be.Type {
	case EventCheckoutSessionCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("%w: decoding checkout session of event %s: %v", ErrInvalidEvent, event.ID, err)
		}
		be.ObjectID = sess.ID
		be.Metadata = sess.Metadata
		if sess.Subscription != nil {
			be.SubscriptionID = sess.Subscription.ID
		}
	case EventInvoicePaymentFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("%w: decoding invoice of event %s: %v", ErrInvalidEvent, event.ID, err)
		}
		be.ObjectID = inv.ID
		if inv.Subscription != nil {
			be.SubscriptionID = inv.Subscription.ID
		}
	case EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("%w: decoding subscription of event %s: %v", ErrInvalidEvent, event.ID, err)
		}
		be.ObjectID = sub.ID
		be.SubscriptionID = sub.ID
		be.Metadata = sub.Metadata
	}
	return be, nil
}

func snapshotOf(sub *stripe.Subscription) *SubscriptionSnapshot {
	snap := &SubscriptionSnapshot{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		snap.ItemID = item.ID
		if item.Price != nil {
			snap.PriceID = item.Price.ID
		}
	}
	return snap
}

// classifyStripeError sorts provider failures into rejected requests and transient outages.
func classifyStripeError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		status := stripeErr.HTTPStatusCode
		if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
			return fmt.Errorf("%w: stripe %s: %s (%s)", ErrProviderRejected, op, stripeErr.Msg, stripeErr.Code)
		}
		return fmt.Errorf("%w: stripe %s: status %d: %s", ErrProviderUnavailable, op, status, stripeErr.Msg)
	}
	return fmt.Errorf("%w: stripe %s: %v", ErrProviderUnavailable, op, err)
}
