// README: Pricing handlers: public quotes and administrator pricing configuration.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"masar/internal/modules/pricing"
	"masar/internal/modules/tariff"
	"masar/internal/types"
)

type PricingHandler struct {
	pricing *pricing.Service
}

func NewPricingHandler(svc *pricing.Service) *PricingHandler {
	return &PricingHandler{pricing: svc}
}

type quoteReq struct {
	Pickup   *types.Point `json:"pickup" binding:"required"`
	Delivery *types.Point `json:"delivery" binding:"required"`
	WeightKg float64      `json:"weight_kg" binding:"gt=0"`
}

// Quote handles POST /api/quote.
func (h *PricingHandler) Quote(c *gin.Context) {
	var req quoteReq
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.pricing.Quote(c.Request.Context(), pricing.QuoteRequest{
		Pickup:   req.Pickup,
		Delivery: req.Delivery,
		WeightKg: req.WeightKg,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, b)
}

// GetSettings handles GET /api/admin/settings.
func (h *PricingHandler) GetSettings(c *gin.Context) {
	st, err := h.pricing.Settings(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, st)
}

type settingsReq struct {
	PlatformFee        *types.Percent `json:"platform_fee_percentage"`
	AcceptingShipments *bool          `json:"accepting_shipments"`
	PaymentsEnabled    *bool          `json:"payments_enabled"`
}

// UpdateSettings handles PUT /api/admin/settings. Absent fields keep their
// current value.
func (h *PricingHandler) UpdateSettings(c *gin.Context) {
	var req settingsReq
	if !bindJSON(c, &req) {
		return
	}
	st, err := h.pricing.UpdateSettings(c.Request.Context(), pricing.UpdateSettingsCommand{
		PlatformFee:        req.PlatformFee,
		AcceptingShipments: req.AcceptingShipments,
		PaymentsEnabled:    req.PaymentsEnabled,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, st)
}

type tariffsReq struct {
	Rules []tariff.Rule `json:"rules" binding:"required"`
}

// GetTariffs handles GET /api/admin/tariffs.
func (h *PricingHandler) GetTariffs(c *gin.Context) {
	rules, err := h.pricing.Tariffs(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if rules == nil {
		rules = []tariff.Rule{}
	}
	writeJSON(c, http.StatusOK, gin.H{"rules": rules})
}

// ReplaceTariffs handles PUT /api/admin/tariffs with the complete table.
func (h *PricingHandler) ReplaceTariffs(c *gin.Context) {
	var req tariffsReq
	if !bindJSON(c, &req) {
		return
	}
	if err := h.pricing.ReplaceTariffs(c.Request.Context(), req.Rules); err != nil {
		writeServiceError(c, err)
		return
	}
	h.GetTariffs(c)
}
