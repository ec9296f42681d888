package core

import (
	"context"
	"sync"

	"mealplan-backend-go/internal/models"
)

type fakeGateway struct {
	mu sync.Mutex

	checkoutURL string
	checkoutErr error
	checkouts   []CheckoutSessionRequest

	snapshot    *SubscriptionSnapshot
	retrieveErr error
	retrieved   []string

	updateErr    error
	updates      []SubscriptionUpdate
	updatedPrice string

	cancelErr error
	cancelled []string

	event     *BillingEvent
	verifyErr error
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req CheckoutSessionRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checkouts = append(g.checkouts, req)
	if g.checkoutErr != nil {
		return "", g.checkoutErr
	}
	return g.checkoutURL, nil
}

func (g *fakeGateway) RetrieveSubscription(_ context.Context, subscriptionID string) (*SubscriptionSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.retrieved = append(g.retrieved, subscriptionID)
	if g.retrieveErr != nil {
		return nil, g.retrieveErr
	}
	if g.snapshot != nil {
		snap := *g.snapshot
		return &snap, nil
	}
	return &SubscriptionSnapshot{ID: subscriptionID, Status: "active", ItemID: "si_1", PriceID: "price_week"}, nil
}

func (g *fakeGateway) UpdateSubscription(_ context.Context, subscriptionID string, update SubscriptionUpdate) (*SubscriptionSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.updates = append(g.updates, update)
	if g.updateErr != nil {
		return nil, g.updateErr
	}
	price := update.NewPriceID
	if g.updatedPrice != "" {
		price = g.updatedPrice
	}
	return &SubscriptionSnapshot{ID: subscriptionID, Status: "active", ItemID: update.ItemID, PriceID: price, CancelAtPeriodEnd: update.CancelAtPeriodEnd}, nil
}

func (g *fakeGateway) CancelSubscription(_ context.Context, subscriptionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelled = append(g.cancelled, subscriptionID)
	return g.cancelErr
}

func (g *fakeGateway) VerifyEvent(_ []byte, _ string) (*BillingEvent, error) {
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	return g.event, nil
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.checkouts) + len(g.retrieved) + len(g.updates) + len(g.cancelled)
}

type fakeCache struct {
	mu          sync.Mutex
	status map[string]bool
	writes []string
	getErr error
	gets   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{status: make(map[string]bool)}
}

func (c *fakeCache) GetStatus(_ context.Context, userID string) (bool, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return false, false, c.getErr
	}
	active, ok := c.status[userID]
	return active, ok, nil
}

func (c *fakeCache) SetStatus(_ context.Context, userID string, active bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status[userID] = active
	c.writes = append(c.writes, userID)
	return nil
}

func (c *fakeCache) FillStatus(_ context.Context, userID string, active bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.status[userID]; ok {
		return false, nil
	}
	c.status[userID] = active
	return true, nil
}

func (c *fakeCache) expire(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.status, userID)
}

type fakePublisher struct {
	mu      sync.Mutex
	changes []ProfileBillingChanged
	err     error
}

func (p *fakePublisher) PublishProfileChange(_ context.Context, change ProfileBillingChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
	return p.err
}

type fakeNotifier struct {
	mu     sync.Mutex
	emails []string
	err    error
	// hang makes SendPaymentFailed block until its context is done.
	hang bool
}

func (n *fakeNotifier) SendPaymentFailed(ctx context.Context, email string, _ *models.PlanInterval) error {
	n.mu.Lock()
	n.emails = append(n.emails, email)
	hang, err := n.hang, n.err
	n.mu.Unlock()
	if hang {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}
