// README: Profile handlers for the caller's own contact details.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"masar/internal/http/middleware"
	"masar/internal/modules/profile"
)

type ProfileHandler struct {
	profiles *profile.Service
}

func NewProfileHandler(svc *profile.Service) *ProfileHandler {
	return &ProfileHandler{profiles: svc}
}

// Get handles GET /api/me/profile.
func (h *ProfileHandler) Get(c *gin.Context) {
	p, err := h.profiles.Get(c.Request.Context(), middleware.Caller(c).ID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, p)
}

type profileReq struct {
	FullName  string `json:"full_name" binding:"required,max=200"`
	Email     string `json:"email" binding:"omitempty,email"`
	Phone     string `json:"phone" binding:"max=32"`
	PushToken string `json:"push_token" binding:"max=4096"`
	CarPlate  string `json:"car_plate" binding:"max=32"`
	Language  string `json:"language" binding:"omitempty,oneof=en ar"`
}

// Update handles PUT /api/me/profile.
func (h *ProfileHandler) Update(c *gin.Context) {
	var req profileReq
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.profiles.Update(c.Request.Context(), profile.UpdateCommand{
		Actor:     middleware.Caller(c),
		FullName:  req.FullName,
		Email:     req.Email,
		Phone:     req.Phone,
		PushToken: req.PushToken,
		CarPlate:  req.CarPlate,
		Language:  req.Language,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, p)
}
