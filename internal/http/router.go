// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"masar/internal/http/handlers"
	"masar/internal/http/middleware"
	"masar/internal/infra"
	"masar/internal/metrics"
	"masar/internal/modules/assistant"
	"masar/internal/modules/parcel"
	"masar/internal/modules/payment"
	"masar/internal/modules/pricing"
	"masar/internal/modules/profile"
	"masar/internal/types"
)

type RouterDeps struct {
	Verifier  infra.TokenVerifier
	Logger    *zap.Logger
	Limiter   *middleware.IPRateLimiter
	Pricing   *pricing.Service
	Parcels   *parcel.Service
	Payments  *payment.Service
	Profiles  *profile.Service
	Assistant *assistant.Service
	Contact   handlers.ContactNotifier
}

func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	handlers.RegisterValidation()

	r := gin.New()
	r.Use(middleware.Recovery(logger), middleware.Logging(logger), middleware.Metrics())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	pricingHandler := handlers.NewPricingHandler(deps.Pricing)
	parcelHandler := handlers.NewParcelHandler(deps.Parcels)
	paymentHandler := handlers.NewPaymentHandler(deps.Payments)
	profileHandler := handlers.NewProfileHandler(deps.Profiles)
	assistantHandler := handlers.NewAssistantHandler(deps.Assistant)
	contactHandler := handlers.NewContactHandler(deps.Contact)

	public := r.Group("/api")
	if deps.Limiter != nil {
		public.Use(middleware.RateLimit(deps.Limiter))
	}
	public.POST("/quote", pricingHandler.Quote)
	public.GET("/track/:tracking", parcelHandler.Track)
	public.POST("/contact", contactHandler.Submit)

	// Gateway callbacks carry no user token.
	public.GET("/payments/success", paymentHandler.Success)
	public.GET("/payments/cancel", paymentHandler.Cancel)
	public.POST("/payments/webhook", paymentHandler.Webhook)

	api := r.Group("/api", middleware.Auth(deps.Verifier))
	api.POST("/parcels", middleware.RequireRole(types.RoleShipper), parcelHandler.Create)
	api.GET("/parcels", parcelHandler.List)
	api.GET("/parcels/:id", parcelHandler.Get)
	api.PUT("/parcels/:id", parcelHandler.Update)
	api.POST("/parcels/:id/accept", middleware.RequireRole(types.RoleDriver), parcelHandler.Accept)
	api.POST("/parcels/:id/status", parcelHandler.UpdateStatus)
	api.POST("/parcels/:id/cancel", parcelHandler.Cancel)
	api.POST("/parcels/:id/rating", parcelHandler.Rate)
	api.GET("/parcels/:id/rating", parcelHandler.Rating)
	api.POST("/parcels/:id/payment", paymentHandler.Initiate)

	api.GET("/me/profile", profileHandler.Get)
	api.PUT("/me/profile", profileHandler.Update)

	api.POST("/assistant/chat", assistantHandler.Chat)

	admin := api.Group("/admin", middleware.RequireRole(types.RoleAdmin))
	admin.GET("/settings", pricingHandler.GetSettings)
	admin.PUT("/settings", pricingHandler.UpdateSettings)
	admin.GET("/tariffs", pricingHandler.GetTariffs)
	admin.PUT("/tariffs", pricingHandler.ReplaceTariffs)
	admin.GET("/parcels", parcelHandler.List)
	admin.GET("/stats", parcelHandler.Stats)

	return r
}
