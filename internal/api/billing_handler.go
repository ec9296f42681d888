package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mealplan-backend-go/internal/core"
	"mealplan-backend-go/internal/middleware"
	"mealplan-backend-go/internal/models"
)

// BillingHandler handles billing-related API endpoints.
type BillingHandler struct {
	reconciler core.ReconciliationService
	catalog    *core.PlanCatalog
	logger     *zap.Logger
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(rs core.ReconciliationService, catalog *core.PlanCatalog, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{reconciler: rs, catalog: catalog, logger: logger}
}

// ListPlans handles GET /api/plans.
func (h *BillingHandler) ListPlans(c *gin.Context) {
	c.JSON(http.StatusOK, PlansResponse{Plans: h.catalog.ListPlans()})
}

// Checkout handles POST /api/checkout and returns the hosted checkout URL.
func (h *BillingHandler) Checkout(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, fmt.Errorf("%w: %v", core.ErrInvalidInput, err))
		return
	}

	url, err := h.reconciler.StartCheckout(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, CheckoutResponse{URL: url})
}

// ChangePlan handles POST /api/profile/change-plan.
func (h *BillingHandler) ChangePlan(c *gin.Context) {
	var req models.ChangePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, fmt.Errorf("%w: %v", core.ErrInvalidInput, err))
		return
	}
	// An empty JSON object binds cleanly.
	if req.NewPlan == "" {
		writeError(c, h.logger, fmt.Errorf("%w: newPlan is required", core.ErrInvalidInput))
		return
	}

	// UserID is set by AuthMiddleware, which guards every /api/profile route.
	profile, err := h.reconciler.ChangePlan(c.Request.Context(), middleware.UserID(c), req.NewPlan)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ChangePlanResponse{Subscription: profile})
}

// Unsubscribe handles POST /api/profile/unsubscribe.
func (h *BillingHandler) Unsubscribe(c *gin.Context) {
	profile, err := h.reconciler.Unsubscribe(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, UnsubscribeResponse{
		Subscription: SubscriptionActiveView{SubscriptionActive: profile.SubscriptionActive},
	})
}
