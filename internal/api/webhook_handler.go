package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mealplan-backend-go/internal/core"
	"mealplan-backend-go/internal/metrics"
)

// maxWebhookBodyBytes caps the Stripe payload read into memory.
const maxWebhookBodyBytes = 1 << 20

// WebhookHandler receives Stripe notifications. The route is public; deliveries
// authenticate with the Stripe-Signature header.
type WebhookHandler struct {
	webhookService core.WebhookService
	logger         *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(ws core.WebhookService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{webhookService: ws, logger: logger}
}

// HandleStripeWebhook handles POST /api/webhook. Any failure answers 400 so Stripe
// redelivers; signature failures are never applied.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	start := time.Now()
	eventType := "unknown" // replaced once the payload parses
	status := http.StatusOK
	defer func() {
		metrics.WebhookRequestsTotal.WithLabelValues(eventType, strconv.Itoa(status)).Inc()
		metrics.WebhookDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
	}()

	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		status = http.StatusBadRequest
		c.JSON(status, ErrorResponse{Error: "Missing Stripe-Signature header"})
		return
	}

	// Signature verification needs the raw bytes, so the body is never bound as JSON.
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		status = http.StatusBadRequest
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, ErrorResponse{Error: "Failed to read webhook payload"})
		return
	}

	result, err := h.webhookService.Handle(c.Request.Context(), payload, signature)
	if result != nil {
		eventType = result.EventType
	}
	if err != nil {
		status = http.StatusBadRequest
		if core.KindOf(err) == core.KindSignatureInvalid {
			h.logger.Warn("Stripe webhook signature verification failed", zap.Error(err))
			c.JSON(status, ErrorResponse{Error: "Webhook signature verification failed"})
			return
		}
		// Stripe retries anything that is not 2xx.
		c.JSON(status, ErrorResponse{Error: "Webhook processing error", Details: err.Error()})
		return
	}

	c.JSON(status, WebhookAck{Received: true})
}
