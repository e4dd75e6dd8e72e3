package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"masar/internal/http/middleware"
	"masar/internal/modules/assistant"
)

type AssistantHandler struct {
	assistant *assistant.Service
}

func NewAssistantHandler(svc *assistant.Service) *AssistantHandler {
	return &AssistantHandler{assistant: svc}
}

type chatReq struct {
	Message        string `json:"message" binding:"required"`
	TrackingNumber string `json:"tracking_number" binding:"max=32"`
	Language       string `json:"language" binding:"omitempty,oneof=en ar"`
}

// Chat handles POST /api/assistant/chat. Each call consumes one monthly token.
func (h *AssistantHandler) Chat(c *gin.Context) {
	var req chatReq
	if !bindJSON(c, &req) {
		return
	}
	reply, err := h.assistant.Chat(c.Request.Context(), assistant.ChatCommand{
		UID:            middleware.CallerUID(c),
		Message:        req.Message,
		TrackingNumber: req.TrackingNumber,
		Language:       req.Language,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, reply)
}
