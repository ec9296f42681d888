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

// MealPlanHandler serves meal plan generation to subscribed users.
type MealPlanHandler struct {
	mealPlanService core.MealPlanService
	profileService  core.ProfileService
	logger          *zap.Logger
}

// NewMealPlanHandler creates a new MealPlanHandler.
func NewMealPlanHandler(ms core.MealPlanService, ps core.ProfileService, logger *zap.Logger) *MealPlanHandler {
	return &MealPlanHandler{mealPlanService: ms, profileService: ps, logger: logger}
}

// Generate handles POST /api/generate-mealplan.
func (h *MealPlanHandler) Generate(c *gin.Context) {
	profile, err := h.profileService.GetProfile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if !profile.SubscriptionActive {
		writeError(c, h.logger, fmt.Errorf("%w: user with ID '%s'", core.ErrSubscriptionNeeded, profile.UserID))
		return
	}

	var req models.MealPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, fmt.Errorf("%w: %v", core.ErrInvalidInput, err))
		return
	}

	plan, err := h.mealPlanService.Generate(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, MealPlanResponse{MealPlan: plan})
}
