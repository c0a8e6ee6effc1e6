package manager

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"HoldemSync/internal/game/engine"
	"HoldemSync/internal/middleware"
	"HoldemSync/internal/tablestore"
)

type Handler struct {
	m *Manager
}

func NewHandler(m *Manager) *Handler {
	return &Handler{m: m}
}

// Register 挂载 /api/poker 路由，调用方负责鉴权中间件
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/api/poker")
	g.POST("/create", h.Create)
	g.POST("/join", h.Join)
	g.POST("/start", h.Start)
	g.POST("/action", h.Action)
	g.POST("/leave/:tableId", h.Leave)
	g.GET("/tables", h.OpenTables)
	g.GET("/tables/:tableId", h.Table)
}

type JoinRequest struct {
	TableID string `json:"tableId" binding:"required"`
	Secret  string `json:"secret"`
	Stack   int64  `json:"stack"`
}

type StartRequest struct {
	TableID string `json:"tableId" binding:"required"`
}

type ActionRequest struct {
	TableID string `json:"tableId" binding:"required"`
	Action  string `json:"action" binding:"required"`
	Amount  int64  `json:"amount"`
}

// POST /api/poker/create  body: {tableId?, secret?, smallBlind?, bigBlind?, maxPlayers?, minPlayers?, stack?}
func (h *Handler) Create(c *gin.Context) {
	var req CreateTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	t, err := h.m.CreateTable(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// POST /api/poker/join  body: {tableId, secret?, stack?}
func (h *Handler) Join(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	t, err := h.m.JoinTable(c.Request.Context(), middleware.UserID(c), req.TableID, req.Secret, req.Stack)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// POST /api/poker/start  body: {tableId}
func (h *Handler) Start(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	t, err := h.m.StartHand(c.Request.Context(), middleware.UserID(c), req.TableID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// POST /api/poker/action  body: {tableId, action: fold|check|call|raise|bet, amount?}
func (h *Handler) Action(c *gin.Context) {
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	action, err := engine.ParseAction(req.Action, req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	t, err := h.m.Act(c.Request.Context(), middleware.UserID(c), req.TableID, action)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// POST /api/poker/leave/:tableId
func (h *Handler) Leave(c *gin.Context) {
	t, err := h.m.LeaveTable(c.Request.Context(), middleware.UserID(c), c.Param("tableId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// GET /api/poker/tables
func (h *Handler) OpenTables(c *gin.Context) {
	list, err := h.m.OpenTables(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tables": list})
}

// GET /api/poker/tables/:tableId
func (h *Handler) Table(c *gin.Context) {
	t, err := h.m.Table(c.Request.Context(), middleware.UserID(c), c.Param("tableId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation"})
}

// errorStatus 错误类别到 HTTP 状态码和 code
func errorStatus(err error) (int, string) {
	switch {
	case engine.IsValidation(err), errors.Is(err, ErrInvalidOptions):
		return http.StatusBadRequest, "validation"
	case engine.IsLifecycle(err):
		return http.StatusConflict, "lifecycle"
	case errors.Is(err, tablestore.ErrConcurrencyConflict):
		return http.StatusConflict, "concurrency_conflict"
	case errors.Is(err, ErrTableExists):
		return http.StatusConflict, "table_exists"
	case errors.Is(err, ErrTableNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrWrongSecret), errors.Is(err, ErrNotCreator):
		return http.StatusForbidden, "forbidden"
	}
	return http.StatusInternalServerError, "internal"
}

func writeError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}
