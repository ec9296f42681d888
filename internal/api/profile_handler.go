package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mealplan-backend-go/internal/core"
	"mealplan-backend-go/internal/middleware"
)

// ProfileHandler handles profile creation and subscription status queries.
type ProfileHandler struct {
	profileService core.ProfileService
	logger         *zap.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(ps core.ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profileService: ps, logger: logger}
}

// CreateProfile handles POST /api/create-profile. It is called by the client after
// sign-up and is safe to repeat.
func (h *ProfileHandler) CreateProfile(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found"})
		return
	}

	profile, created, err := h.profileService.EnsureProfile(c.Request.Context(), userID, middleware.UserEmail(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if created {
		c.JSON(http.StatusCreated, CreateProfileResponse{Message: "Profile created successfully", Profile: profile})
		return
	}
	c.JSON(http.StatusOK, CreateProfileResponse{Message: "Profile already exists"})
}

// CheckSubscription handles GET /api/check-subscription?userId=.
func (h *ProfileHandler) CheckSubscription(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "userId is required"})
		return
	}

	active, err := h.profileService.SubscriptionActive(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, CheckSubscriptionResponse{SubscriptionActive: active})
}

// SubscriptionStatus handles GET /api/profile/subscription-status.
func (h *ProfileHandler) SubscriptionStatus(c *gin.Context) {
	profile, err := h.profileService.GetProfile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, SubscriptionStatusResponse{
		Subscription: SubscriptionTierView{SubscriptionTier: profile.SubscriptionTier},
	})
}
