package presence

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	reg Registry
}

func NewHandler(reg Registry) *Handler {
	return &Handler{reg: reg}
}

// GET /api/presence/online
func (h *Handler) Online(c *gin.Context) {
	users, err := h.reg.OnlineUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
}

// GET /api/presence/rooms/:roomId
func (h *Handler) RoomMembers(c *gin.Context) {
	members, err := h.reg.RoomMembers(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"roomId": c.Param("roomId"), "members": members})
}
