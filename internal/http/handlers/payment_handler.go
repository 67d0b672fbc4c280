package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/plevandm/repairhub-backend/internal/service"
)

// PaymentHandler обслуживает денежные операции по заказам.
type PaymentHandler struct {
	escrow *service.EscrowService
}

// NewPaymentHandler создаёт новый хэндлер.
func NewPaymentHandler(escrow *service.EscrowService) *PaymentHandler {
	return &PaymentHandler{escrow: escrow}
}

type updatePaymentRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

type withdrawRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

// UpdatePayment обрабатывает POST /api/orders/:id/payment.
func (h *PaymentHandler) UpdatePayment(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req updatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректное тело запроса"})
		return
	}

	order, err := h.escrow.UpdatePayment(c.Request.Context(), principal, orderID, req.Amount)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// Release обрабатывает POST /api/orders/:id/payment/release.
func (h *PaymentHandler) Release(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.escrow.ReleasePayment(c.Request.Context(), principal, orderID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// Refund обрабатывает POST /api/orders/:id/payment/refund.
func (h *PaymentHandler) Refund(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.escrow.RefundPayment(c.Request.Context(), principal, orderID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// Balance обрабатывает GET /api/payments/balance.
func (h *PaymentHandler) Balance(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	balance, err := h.escrow.GetBalance(c.Request.Context(), principal)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// Withdraw обрабатывает POST /api/payments/withdraw.
func (h *PaymentHandler) Withdraw(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректное тело запроса"})
		return
	}

	tx, err := h.escrow.Withdraw(c.Request.Context(), principal, req.Amount)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": tx})
}

// Transactions обрабатывает GET /api/payments/transactions.
func (h *PaymentHandler) Transactions(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	limit, offset := paginationParams(c)

	transactions, err := h.escrow.ListTransactions(c.Request.Context(), principal, limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}
