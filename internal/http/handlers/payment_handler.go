// README: Payment handlers: checkout initiation, gateway return pages and the webhook.
package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"masar/internal/http/middleware"
	"masar/internal/modules/parcel"
	"masar/internal/modules/payment"
	"masar/internal/types"
)

// SignatureHeader carries the hex HMAC-SHA256 of the webhook body.
const SignatureHeader = "X-Signature"

const maxWebhookBody = 64 << 10

type PaymentHandler struct {
	payments *payment.Service
}

func NewPaymentHandler(svc *payment.Service) *PaymentHandler {
	return &PaymentHandler{payments: svc}
}

// Initiate handles POST /api/parcels/:id/payment.
func (h *PaymentHandler) Initiate(c *gin.Context) {
	co, err := h.payments.Initiate(c.Request.Context(), middleware.Caller(c), types.ID(c.Param("id")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, co)
}

type settlementResp struct {
	TrackingNumber string               `json:"tracking_number"`
	PaymentStatus  parcel.PaymentStatus `json:"payment_status"`
	Status         parcel.Status        `json:"status"`
}

func settlementOf(p *parcel.Parcel) settlementResp {
	return settlementResp{TrackingNumber: p.TrackingNumber, PaymentStatus: p.PaymentStatus, Status: p.Status}
}

// Success handles GET /api/payments/success. The gateway redirect carries
// either session_id or tracking_number.
func (h *PaymentHandler) Success(c *gin.Context) {
	h.settle(c)
}

// Cancel handles GET /api/payments/cancel. The outcome is still taken from
// the gateway, not from which page the payer landed on.
func (h *PaymentHandler) Cancel(c *gin.Context) {
	h.settle(c)
}

func (h *PaymentHandler) settle(c *gin.Context) {
	p, err := h.payments.Return(c.Request.Context(), c.Query("session_id"), c.Query("tracking_number"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, settlementOf(p))
}

// Webhook handles POST /api/payments/webhook.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		writeError(c, http.StatusBadRequest, "unreadable body")
		return
	}
	p, err := h.payments.Webhook(c.Request.Context(), body, c.GetHeader(SignatureHeader))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, settlementOf(p))
}
