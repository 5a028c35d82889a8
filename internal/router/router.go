package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/vibesocial/backend/api/handler"
)

type Handlers struct {
	Auth         *apiHandler.AuthHandler
	Profile      *apiHandler.ProfileHandler
	Notification *apiHandler.NotificationHandler
	WS           *apiHandler.WSHandler
	Health       *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Auth routes
	r.POST("/auth/register", handlers.Auth.Register)
	r.POST("/auth/login", handlers.Auth.Login)
	r.GET("/auth/check-email", handlers.Auth.CheckEmail)
	r.GET("/auth/me", authMiddleware(handlers.Auth.Me))
	r.POST("/auth/logout", authMiddleware(handlers.Auth.Logout))
	r.POST("/auth/complete-onboarding", authMiddleware(handlers.Auth.CompleteOnboarding))

	// Profile routes
	r.GET("/users/me", authMiddleware(handlers.Profile.GetProfile))
	r.PUT("/users/me", authMiddleware(handlers.Profile.UpdateProfile))

	// Notification routes
	r.GET("/notifications/", authMiddleware(handlers.Notification.List))
	r.GET("/notifications/count", authMiddleware(handlers.Notification.Count))
	r.POST("/notifications/{id}/read", authMiddleware(handlers.Notification.MarkRead))
	r.POST("/notifications/{id}/click", authMiddleware(handlers.Notification.MarkClicked))
	r.POST("/notifications/mark-all-read", authMiddleware(handlers.Notification.MarkAllRead))
	r.DELETE("/notifications/clear-all", authMiddleware(handlers.Notification.ClearAll))
	r.DELETE("/notifications/{id}", authMiddleware(handlers.Notification.Delete))

	// Push subscriptions authenticate inside the handshake, not via the
	// Authorization header.
	r.GET("/ws/{user_id}", handlers.WS.Subscribe)

	return r
}
