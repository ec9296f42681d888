// Package notify adapts the message queue and mailer to the reconciliation engine's
// side-effect interfaces.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"mealplan-backend-go/internal/core"
	"mealplan-backend-go/internal/models"
	"mealplan-backend-go/pkg/mailer"
	"mealplan-backend-go/pkg/messagequeue"
)

// QueuePublisher publishes ProfileBillingChanged messages as JSON to one queue.
type QueuePublisher struct {
	mq    messagequeue.MessageQueue
	queue string
}

// NewQueuePublisher returns a core.ChangePublisher backed by mq.
func NewQueuePublisher(mq messagequeue.MessageQueue, queue string) *QueuePublisher {
	return &QueuePublisher{mq: mq, queue: queue}
}

func (p *QueuePublisher) PublishProfileChange(ctx context.Context, change core.ProfileBillingChanged) error {
	body, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encoding profile change: %w", err)
	}
	return p.mq.Publish(ctx, p.queue, body)
}

// EmailNotifier mails users about billing problems.
type EmailNotifier struct {
	mailer  mailer.Mailer
	catalog *core.PlanCatalog
	baseURL string
}

// NewEmailNotifier returns a core.Notifier backed by m.
func NewEmailNotifier(m mailer.Mailer, catalog *core.PlanCatalog, baseURL string) *EmailNotifier {
	return &EmailNotifier{mailer: m, catalog: catalog, baseURL: baseURL}
}

func (n *EmailNotifier) SendPaymentFailed(ctx context.Context, email string, tier *models.PlanInterval) error {
	planName := "your subscription"
	if tier != nil {
		if plan, ok := n.catalog.Plan(*tier); ok {
			planName = "your " + plan.Name
		}
	}
	body := fmt.Sprintf("<p>We could not collect the latest payment for %s.</p>"+
		"<p>Meal plan generation is paused until the payment succeeds. "+
		"You can update your card or pick another plan at <a href=\"%s/profile\">%s/profile</a>.</p>",
		planName, n.baseURL, n.baseURL)
	return n.mailer.Send(ctx, mailer.Message{
		To:      email,
		Subject: "Payment failed for your meal plan subscription",
		Body:    body,
	})
}
