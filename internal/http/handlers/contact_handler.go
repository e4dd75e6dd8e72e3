package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContactNotifier forwards a contact form to the platform administrator.
type ContactNotifier interface {
	ContactForm(ctx context.Context, name, email, message string)
}

type ContactHandler struct {
	notifier ContactNotifier
}

func NewContactHandler(n ContactNotifier) *ContactHandler {
	return &ContactHandler{notifier: n}
}

type contactReq struct {
	Name    string `json:"name" binding:"required,max=200"`
	Email   string `json:"email" binding:"required,email"`
	Message string `json:"message" binding:"required,max=5000"`
}

// Submit handles the public POST /api/contact. Delivery failures are logged
// by the notifier and never reach the caller.
func (h *ContactHandler) Submit(c *gin.Context) {
	var req contactReq
	if !bindJSON(c, &req) {
		return
	}
	h.notifier.ContactForm(c.Request.Context(), req.Name, req.Email, req.Message)
	writeJSON(c, http.StatusAccepted, gin.H{"status": "received"})
}
