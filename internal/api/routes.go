package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mealplan-backend-go/internal/core"
	"mealplan-backend-go/internal/middleware"
)

// Services bundles the core services the routes are built on.
type Services struct {
	Profiles   core.ProfileService
	Reconciler core.ReconciliationService
	Webhooks   core.WebhookService
	MealPlans  core.MealPlanService
	Catalog    *core.PlanCatalog
}

// SetupRoutes configures all the application routes with their handlers and middleware.
// Global middleware (request id, logging, recovery, CORS) is expected to be applied to
// router before this is called.
func SetupRoutes(router *gin.Engine, authMW *middleware.AuthMiddleware, svc Services, logger *zap.Logger) {
	profileHandler := NewProfileHandler(svc.Profiles, logger)
	billingHandler := NewBillingHandler(svc.Reconciler, svc.Catalog, logger)
	webhookHandler := NewWebhookHandler(svc.Webhooks, logger)
	mealPlanHandler := NewMealPlanHandler(svc.MealPlans, svc.Profiles, logger)

	apiGroup := router.Group("/api")
	{
		// Public: Stripe authenticates with the signature header.
		apiGroup.POST("/webhook", webhookHandler.HandleStripeWebhook)
		apiGroup.GET("/plans", billingHandler.ListPlans)
		apiGroup.GET("/check-subscription", profileHandler.CheckSubscription)
		apiGroup.POST("/checkout", billingHandler.Checkout)

		authed := apiGroup.Group("", authMW.VerifyToken())
		{
			authed.POST("/create-profile", profileHandler.CreateProfile)
			authed.POST("/generate-mealplan", mealPlanHandler.Generate)

			profileGroup := authed.Group("/profile")
			{
				profileGroup.GET("/subscription-status", profileHandler.SubscriptionStatus)
				profileGroup.POST("/change-plan", billingHandler.ChangePlan)
				profileGroup.POST("/unsubscribe", billingHandler.Unsubscribe)
			}
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.Info("API routes configured")
}
