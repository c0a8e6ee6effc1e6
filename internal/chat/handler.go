package chat

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"HoldemSync/internal/middleware"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type sendRequest struct {
	Text string `json:"text"`
}

// POST /api/chat/global  body: {text}
func (h *Handler) Global(c *gin.Context) {
	var req sendRequest
	if !bind(c, &req) {
		return
	}
	msg, err := h.svc.SendGlobal(c.Request.Context(), middleware.UserID(c), req.Text)
	respond(c, msg, err)
}

// POST /api/chat/rooms/:roomId  body: {text}
func (h *Handler) Room(c *gin.Context) {
	var req sendRequest
	if !bind(c, &req) {
		return
	}
	msg, err := h.svc.SendRoom(c.Request.Context(), middleware.UserID(c), c.Param("roomId"), req.Text)
	respond(c, msg, err)
}

// POST /api/chat/private/:userId  body: {text}
func (h *Handler) Private(c *gin.Context) {
	var req sendRequest
	if !bind(c, &req) {
		return
	}
	msg, err := h.svc.SendPrivate(c.Request.Context(), middleware.UserID(c), c.Param("userId"), req.Text)
	respond(c, msg, err)
}

func bind(c *gin.Context, req *sendRequest) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation"})
		return false
	}
	return true
}

func respond(c *gin.Context, msg Message, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, msg)
	case IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation"})
	case errors.Is(err, ErrNotMember):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "code": "forbidden"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "code": "internal"})
	}
}
