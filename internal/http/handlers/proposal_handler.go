package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/plevandm/repairhub-backend/internal/service"
	"github.com/plevandm/repairhub-backend/internal/validation"
)

// ProposalHandler обслуживает отклики мастеров.
type ProposalHandler struct {
	proposals *service.ProposalService
}

// NewProposalHandler создаёт новый хэндлер.
func NewProposalHandler(proposals *service.ProposalService) *ProposalHandler {
	return &ProposalHandler{proposals: proposals}
}

type submitProposalRequest struct {
	Price         float64 `json:"price" binding:"required"`
	Description   string  `json:"description" binding:"required"`
	EstimatedDays *int    `json:"estimated_days"`
}

type cancelProposalRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Submit обрабатывает POST /api/orders/:id/proposals.
func (h *ProposalHandler) Submit(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req submitProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректное тело запроса"})
		return
	}

	if err := validation.ValidatePrice("цена отклика", req.Price); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validation.ValidateProposalMessage(req.Description); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	proposal, err := h.proposals.SubmitProposal(c.Request.Context(), principal, service.SubmitProposalInput{
		OrderID:       orderID,
		Price:         req.Price,
		Description:   req.Description,
		EstimatedDays: req.EstimatedDays,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"proposal": proposal})
}

// Accept обрабатывает POST /api/proposals/:id/accept.
func (h *ProposalHandler) Accept(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	proposalID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.proposals.AcceptProposal(c.Request.Context(), principal, proposalID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// Reject обрабатывает POST /api/proposals/:id/reject.
func (h *ProposalHandler) Reject(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	proposalID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	proposal, err := h.proposals.RejectProposal(c.Request.Context(), principal, proposalID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"proposal": proposal})
}

// Cancel обрабатывает POST /api/proposals/:id/cancel.
func (h *ProposalHandler) Cancel(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	proposalID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req cancelProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "причина отмены обязательна"})
		return
	}
	if err := validation.ValidateCancelReason(req.Reason); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	proposal, err := h.proposals.CancelProposal(c.Request.Context(), principal, proposalID, req.Reason)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"proposal": proposal})
}

// Get обрабатывает GET /api/proposals/:id.
func (h *ProposalHandler) Get(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	proposalID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	proposal, err := h.proposals.GetProposal(c.Request.Context(), principal, proposalID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"proposal": proposal})
}

// ListForOrder обрабатывает GET /api/orders/:id/proposals.
func (h *ProposalHandler) ListForOrder(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	proposals, err := h.proposals.ListOrderProposals(c.Request.Context(), principal, orderID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"proposals": proposals})
}

// ListMy обрабатывает GET /api/proposals/my.
func (h *ProposalHandler) ListMy(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	proposals, err := h.proposals.ListMyProposals(c.Request.Context(), principal)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"proposals": proposals})
}
