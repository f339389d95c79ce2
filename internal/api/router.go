package api

import (
	"github.com/gin-gonic/gin"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/api/cron"
	v1 "github.com/RasParker/XclusiveAfrica-sub000/internal/api/v1"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/rest/middleware"
)

type Handlers struct {
	Health       *v1.HealthHandler
	Subscription *v1.SubscriptionHandler
	Creator      *v1.CreatorHandler
	Webhook      *v1.WebhookHandler
	CronBilling  *cron.BillingHandler
}

func NewRouter(handlers Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.CORSMiddleware)
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	cronGroup := router.Group("/cron")
	registerCronRoutes(cronGroup, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	subscriptions := router.Group("/subscriptions")
	{
		subscriptions.POST("/:id/change-tier", handlers.Subscription.ChangeTier)
		subscriptions.POST("/:id/apply-switch", handlers.Subscription.ApplyTierSwitch)
		subscriptions.POST("/:id/cancel", handlers.Subscription.Cancel)
		subscriptions.POST("/:id/reactivate", handlers.Subscription.Reactivate)
	}

	router.DELETE("/pending-changes/:changeId", handlers.Subscription.CancelPendingChange)

	creators := router.Group("/creators")
	{
		creators.GET("/:id/earnings", handlers.Creator.GetEarnings)
		creators.GET("/:id/payouts", handlers.Creator.ListPayouts)
		creators.PUT("/:id/payout-settings", handlers.Creator.UpsertPayoutSettings)
	}

	router.POST("/webhooks/gateway", handlers.Webhook.HandleGatewayEvent)
}

func registerCronRoutes(router *gin.RouterGroup, handlers Handlers) {
	subscriptions := router.Group("/subscriptions")
	{
		subscriptions.POST("/apply-due-changes", handlers.CronBilling.ApplyDueChanges)
	}

	payouts := router.Group("/payouts")
	{
		payouts.POST("/run", handlers.CronBilling.RunMonthlyPayouts)
		payouts.POST("/retry", handlers.CronBilling.RetryStalePayouts)
	}
}
