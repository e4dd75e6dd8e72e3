// README: Parcel handlers: creation, listing, lifecycle transitions, ratings and public tracking.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"masar/internal/http/middleware"
	"masar/internal/modules/location"
	"masar/internal/modules/parcel"
	"masar/internal/types"
)

type ParcelHandler struct {
	parcels *parcel.Service
}

func NewParcelHandler(svc *parcel.Service) *ParcelHandler {
	return &ParcelHandler{parcels: svc}
}

type parcelDetailsReq struct {
	Description   string           `json:"description" binding:"required,max=500"`
	WeightKg      float64          `json:"weight_kg" binding:"gt=0"`
	Pickup        location.Address `json:"pickup"`
	Delivery      location.Address `json:"delivery"`
	ReceiverName  string           `json:"receiver_name" binding:"required,max=200"`
	ReceiverPhone string           `json:"receiver_phone" binding:"required,max=32"`
}

func (r parcelDetailsReq) details() parcel.Details {
	return parcel.Details{
		Description:   r.Description,
		WeightKg:      r.WeightKg,
		Pickup:        r.Pickup,
		Delivery:      r.Delivery,
		ReceiverName:  r.ReceiverName,
		ReceiverPhone: r.ReceiverPhone,
	}
}

// Create handles POST /api/parcels.
func (h *ParcelHandler) Create(c *gin.Context) {
	var req parcelDetailsReq
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.parcels.Create(c.Request.Context(), parcel.CreateCommand{
		Actor:   middleware.Caller(c),
		Details: req.details(),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, p)
}

// Update handles PUT /api/parcels/:id.
func (h *ParcelHandler) Update(c *gin.Context) {
	var req parcelDetailsReq
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.parcels.UpdateDetails(c.Request.Context(), parcel.UpdateCommand{
		Actor:    middleware.Caller(c),
		ParcelID: types.ID(c.Param("id")),
		Details:  req.details(),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, p)
}

// Get handles GET /api/parcels/:id.
func (h *ParcelHandler) Get(c *gin.Context) {
	p, err := h.parcels.Get(c.Request.Context(), middleware.Caller(c), types.ID(c.Param("id")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, p)
}

// List handles GET /api/parcels and GET /api/admin/parcels.
func (h *ParcelHandler) List(c *gin.Context) {
	filter, page, ok := listParams(c)
	if !ok {
		return
	}
	items, err := h.parcels.List(c.Request.Context(), middleware.Caller(c), filter, page)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if items == nil {
		items = []*parcel.Parcel{}
	}
	page = page.Normalize()
	writeJSON(c, http.StatusOK, gin.H{"parcels": items, "limit": page.Limit, "offset": page.Offset})
}

func listParams(c *gin.Context) (parcel.ListFilter, parcel.Page, bool) {
	var filter parcel.ListFilter
	fields := types.FieldErrors{}
	if s := c.Query("status"); s != "" {
		st, ok := parcel.ParseStatus(s)
		if !ok {
			fields.Add("status", "is not a known status")
		}
		filter.Status = &st
	}
	page := parcel.Page{}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			fields.Add("limit", "must be a non-negative integer")
		}
		page.Limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			fields.Add("offset", "must be a non-negative integer")
		}
		page.Offset = n
	}
	if len(fields) > 0 {
		writeFieldErrors(c, fields)
		return filter, page, false
	}
	return filter, page, true
}

// Accept handles POST /api/parcels/:id/accept.
func (h *ParcelHandler) Accept(c *gin.Context) {
	p, err := h.parcels.Accept(c.Request.Context(), parcel.AcceptCommand{
		Actor:    middleware.Caller(c),
		ParcelID: types.ID(c.Param("id")),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, p)
}

type statusReq struct {
	Status string `json:"status" binding:"required,oneof=in_transit delivered"`
}

// UpdateStatus handles POST /api/parcels/:id/status.
func (h *ParcelHandler) UpdateStatus(c *gin.Context) {
	var req statusReq
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.parcels.UpdateStatus(c.Request.Context(), parcel.StatusCommand{
		Actor:    middleware.Caller(c),
		ParcelID: types.ID(c.Param("id")),
		To:       parcel.Status(req.Status),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, p)
}

type cancelReq struct {
	Reason string `json:"reason" binding:"max=500"`
}

// Cancel handles POST /api/parcels/:id/cancel. The body is optional.
func (h *ParcelHandler) Cancel(c *gin.Context) {
	var req cancelReq
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	p, err := h.parcels.Cancel(c.Request.Context(), parcel.CancelCommand{
		Actor:    middleware.Caller(c),
		ParcelID: types.ID(c.Param("id")),
		Reason:   req.Reason,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, p)
}

type rateReq struct {
	Score   int    `json:"score" binding:"gte=1,lte=5"`
	Comment string `json:"comment" binding:"max=1000"`
}

// Rate handles POST /api/parcels/:id/rating.
func (h *ParcelHandler) Rate(c *gin.Context) {
	var req rateReq
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.parcels.Rate(c.Request.Context(), parcel.RateCommand{
		Actor:    middleware.Caller(c),
		ParcelID: types.ID(c.Param("id")),
		Score:    req.Score,
		Comment:  req.Comment,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, r)
}

// Rating handles GET /api/parcels/:id/rating.
func (h *ParcelHandler) Rating(c *gin.Context) {
	r, err := h.parcels.Rating(c.Request.Context(), middleware.Caller(c), types.ID(c.Param("id")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

// Track handles the public GET /api/track/:tracking.
func (h *ParcelHandler) Track(c *gin.Context) {
	v, err := h.parcels.Track(c.Request.Context(), c.Param("tracking"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, v)
}

// Stats handles GET /api/admin/stats.
func (h *ParcelHandler) Stats(c *gin.Context) {
	st, err := h.parcels.Stats(c.Request.Context(), middleware.Caller(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, st)
}
