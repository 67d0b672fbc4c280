package router

import (
	"github.com/gin-gonic/gin"

	"github.com/plevandm/repairhub-backend/internal/config"
	"github.com/plevandm/repairhub-backend/internal/http/handlers"
	"github.com/plevandm/repairhub-backend/internal/http/middleware"
	"github.com/plevandm/repairhub-backend/internal/models"
	"github.com/plevandm/repairhub-backend/internal/service"
)

// Handlers собирает все хэндлеры приложения.
type Handlers struct {
	Auth         *handlers.AuthHandler
	Order        *handlers.OrderHandler
	Proposal     *handlers.ProposalHandler
	Payment      *handlers.PaymentHandler
	Dispute      *handlers.DisputeHandler
	Notification *handlers.NotificationHandler
	WS           *handlers.WSHandler
	Health       *handlers.HealthHandler
}

// Setup настраивает маршруты приложения.
func Setup(cfg *config.Config, h Handlers, tokens *service.TokenManager) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
	}

	api.GET("/ws", h.WS.Handle)

	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(tokens))
	{
		authed.GET("/auth/me", h.Auth.Me)

		orders := authed.Group("/orders")
		{
			orders.POST("", h.Order.CreateOrder)
			orders.GET("", h.Order.ListOpen)
			orders.GET("/my", h.Order.ListMy)
			orders.GET("/:id", middleware.UUIDValidator("id"), h.Order.GetOrder)
			orders.PATCH("/:id/status", middleware.UUIDValidator("id"), h.Order.UpdateStatus)
			orders.GET("/:id/history", middleware.UUIDValidator("id"), h.Order.History)

			orders.POST("/:id/proposals", middleware.UUIDValidator("id"), h.Proposal.Submit)
			orders.GET("/:id/proposals", middleware.UUIDValidator("id"), h.Proposal.ListForOrder)

			orders.POST("/:id/payment", middleware.UUIDValidator("id"), h.Payment.UpdatePayment)
			orders.POST("/:id/payment/release", middleware.UUIDValidator("id"), h.Payment.Release)
			orders.POST("/:id/payment/refund", middleware.UUIDValidator("id"),
				middleware.RequireRole(models.RoleAdmin), h.Payment.Refund)

			orders.POST("/:id/disputes", middleware.UUIDValidator("id"), h.Dispute.Create)
			orders.POST("/:id/disputes/escalate", middleware.UUIDValidator("id"),
				middleware.RequireRole(models.RoleAdmin), h.Dispute.Escalate)
		}

		proposals := authed.Group("/proposals")
		{
			proposals.GET("/my", h.Proposal.ListMy)
			proposals.GET("/:id", middleware.UUIDValidator("id"), h.Proposal.Get)
			proposals.POST("/:id/accept", middleware.UUIDValidator("id"), h.Proposal.Accept)
			proposals.POST("/:id/reject", middleware.UUIDValidator("id"), h.Proposal.Reject)
			proposals.POST("/:id/cancel", middleware.UUIDValidator("id"), h.Proposal.Cancel)
		}

		disputes := authed.Group("/disputes")
		{
			disputes.GET("/my", h.Dispute.ListMy)
			disputes.GET("/:id", middleware.UUIDValidator("id"), h.Dispute.Get)
			disputes.POST("/:id/resolve", middleware.UUIDValidator("id"),
				middleware.RequireRole(models.RoleAdmin), h.Dispute.Resolve)
			disputes.POST("/:id/evidence", middleware.UUIDValidator("id"), h.Dispute.UploadEvidence)
		}

		payments := authed.Group("/payments")
		{
			payments.GET("/balance", h.Payment.Balance)
			payments.POST("/withdraw", h.Payment.Withdraw)
			payments.GET("/transactions", h.Payment.Transactions)
		}

		notifications := authed.Group("/notifications")
		{
			notifications.GET("", h.Notification.List)
			notifications.GET("/unread-count", h.Notification.CountUnread)
			notifications.POST("/read-all", h.Notification.MarkAllAsRead)
			notifications.POST("/:id/read", middleware.UUIDValidator("id"), h.Notification.MarkAsRead)
		}
	}

	return r
}
