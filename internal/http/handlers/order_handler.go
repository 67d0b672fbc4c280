package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/plevandm/repairhub-backend/internal/models"
	"github.com/plevandm/repairhub-backend/internal/repository"
	"github.com/plevandm/repairhub-backend/internal/service"
	"github.com/plevandm/repairhub-backend/internal/validation"
)

// OrderHandler обслуживает операции с заказами.
type OrderHandler struct {
	orders  *service.OrderService
	history *repository.OrderHistoryRepository
}

// NewOrderHandler создаёт новый хэндлер.
func NewOrderHandler(orders *service.OrderService, history *repository.OrderHistoryRepository) *OrderHandler {
	return &OrderHandler{orders: orders, history: history}
}

type createOrderRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description" binding:"required"`
	DeviceType  string   `json:"device_type"`
	Issue       string   `json:"issue"`
	City        string   `json:"city"`
	Urgency     string   `json:"urgency"`
	Budget      *float64 `json:"budget"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// CreateOrder обрабатывает POST /api/orders.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректное тело запроса"})
		return
	}

	if err := validation.ValidateOrderTitle(req.Title); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validation.ValidateOrderDescription(req.Description); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validation.ValidateUrgency(req.Urgency); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Budget != nil {
		if err := validation.ValidatePrice("бюджет", *req.Budget); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), principal, service.CreateOrderInput{
		Title:       req.Title,
		Description: req.Description,
		DeviceType:  req.DeviceType,
		Issue:       req.Issue,
		City:        req.City,
		Urgency:     req.Urgency,
		Budget:      req.Budget,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"order": order})
}

// GetOrder обрабатывает GET /api/orders/:id.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// ListOpen обрабатывает GET /api/orders.
func (h *OrderHandler) ListOpen(c *gin.Context) {
	limit, offset := paginationParams(c)

	orders, err := h.orders.ListOpenOrders(c.Request.Context(), limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// ListMy обрабатывает GET /api/orders/my.
func (h *OrderHandler) ListMy(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	orders, err := h.orders.ListMyOrders(c.Request.Context(), principal)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// UpdateStatus обрабатывает PATCH /api/orders/:id/status.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректное тело запроса"})
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), principal, orderID, models.OrderStatus(req.Status))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// History обрабатывает GET /api/orders/:id/history.
func (h *OrderHandler) History(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		c.Error(err)
		return
	}
	if !principal.IsAdmin() && !order.IsParticipant(principal.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "история доступна только участникам заказа"})
		return
	}

	entries, err := h.history.ListByOrder(c.Request.Context(), orderID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": entries})
}
