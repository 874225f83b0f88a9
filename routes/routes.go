package routes

import (
	"eventura/auth"
	"eventura/catalog"
	"eventura/ledger"
	"eventura/middleware"
	"eventura/pass"
	"eventura/pay"
	"eventura/profile"
	"eventura/ratelim"
	"eventura/session"

	"github.com/julienschmidt/httprouter"
)

func AddAuthRoutes(router *httprouter.Router, h *auth.Handler, rl *ratelim.RateLimiter) {
	router.POST("/api/auth/register", rl.Limit(h.Register))
	router.POST("/api/auth/login", rl.Limit(h.Login))
	router.POST("/api/auth/logout", middleware.Authenticate(h.Logout))
	router.POST("/api/auth/token/refresh", rl.Limit(h.RefreshToken))
	router.POST("/api/auth/request-verification", rl.Limit(h.RequestVerification))
	router.POST("/api/auth/verify-email", rl.Limit(h.VerifyEmail))
}

func AddSessionRoutes(router *httprouter.Router, broker *session.Broker) {
	router.GET("/api/auth/session/stream", middleware.Authenticate(broker.StreamHandler))
}

func AddCatalogRoutes(router *httprouter.Router, h *catalog.Handler, rl *ratelim.RateLimiter) {
	router.GET("/api/events", rl.Limit(h.GetEvents))
	router.GET("/api/events/:eventid", rl.Limit(h.GetEvent))
	router.GET("/api/organizers/:organizerid", rl.Limit(h.GetOrganizer))
	router.POST("/api/organizers/:organizerid/reviews", middleware.Authenticate(h.AddReview))
	router.GET("/api/catalog/live", h.Live.ServeWS)
}

func AddLedgerRoutes(router *httprouter.Router, h *ledger.Handler, rl *ratelim.RateLimiter) {
	verified := middleware.Chain(rl.Limit, middleware.Authenticate, middleware.RequireVerified)

	router.GET("/api/user/favorites", middleware.Authenticate(h.GetFavorites))
	router.POST("/api/user/favorites/:eventid/toggle", middleware.Chain(rl.Limit, middleware.Authenticate)(h.ToggleFavorite))
	router.GET("/api/user/participations", middleware.Authenticate(h.GetParticipations))
	router.PATCH("/api/user/participations/:eventid/status", verified(h.UpdateParticipationStatus))
}

// AddPayRoutes wires the payment flow. Both mutating endpoints sit behind
// authentication, verified email and the idempotency layer.
func AddPayRoutes(router *httprouter.Router, h *pay.Handler, idem *pay.Idempotency, rl *ratelim.RateLimiter) {
	guarded := middleware.Chain(rl.Limit, middleware.Authenticate, middleware.RequireVerified, idem.Wrap)

	router.POST("/api/payments/event/:eventid/intent", guarded(h.CreateIntent))
	router.POST("/api/payments/event/:eventid/confirm", guarded(h.Confirm))
}

func AddProfileRoutes(router *httprouter.Router, h *profile.Handler, rl *ratelim.RateLimiter) {
	router.GET("/api/profile", middleware.Authenticate(h.GetProfile))
	router.PUT("/api/profile", middleware.Chain(rl.Limit, middleware.Authenticate)(h.CompleteProfile))
	router.PATCH("/api/profile", middleware.Chain(rl.Limit, middleware.Authenticate)(h.UpdateProfile))
	router.PUT("/api/profile/preferences", middleware.Chain(rl.Limit, middleware.Authenticate)(h.UpdatePreferences))
	router.POST("/api/profile/avatar", middleware.Chain(rl.Limit, middleware.Authenticate)(h.UploadAvatar))
}

func AddPassRoutes(router *httprouter.Router, h *pass.Handler, rl *ratelim.RateLimiter) {
	verified := middleware.Chain(rl.Limit, middleware.Authenticate, middleware.RequireVerified)

	router.GET("/api/participations/:eventid/pass.png", verified(h.QRPass))
	router.GET("/api/participations/:eventid/pass.pdf", verified(h.PDFPass))
	router.POST("/api/passes/verify", verified(h.VerifyScan))
}
