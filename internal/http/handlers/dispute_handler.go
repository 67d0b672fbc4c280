package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/plevandm/repairhub-backend/internal/models"
	"github.com/plevandm/repairhub-backend/internal/service"
	"github.com/plevandm/repairhub-backend/internal/storage"
	"github.com/plevandm/repairhub-backend/internal/validation"
)

// DisputeHandler обслуживает споры по заказам.
type DisputeHandler struct {
	escrow   *service.EscrowService
	evidence *storage.EvidenceStorage
}

// NewDisputeHandler создаёт новый хэндлер.
func NewDisputeHandler(escrow *service.EscrowService, evidence *storage.EvidenceStorage) *DisputeHandler {
	return &DisputeHandler{escrow: escrow, evidence: evidence}
}

type createDisputeRequest struct {
	Reason      string `json:"reason" binding:"required"`
	Description string `json:"description"`
}

type resolveDisputeRequest struct {
	Decision    string `json:"decision" binding:"required"`
	Explanation string `json:"explanation" binding:"required"`
}

// Create обрабатывает POST /api/orders/:id/disputes.
func (h *DisputeHandler) Create(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req createDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректное тело запроса"})
		return
	}
	if err := validation.ValidateDisputeReason(req.Reason); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dispute, err := h.escrow.CreateDispute(c.Request.Context(), principal, service.CreateDisputeInput{
		OrderID:     orderID,
		Reason:      req.Reason,
		Description: req.Description,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"dispute": dispute})
}

// Resolve обрабатывает POST /api/disputes/:id/resolve.
func (h *DisputeHandler) Resolve(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	disputeID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req resolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "decision и explanation обязательны"})
		return
	}

	dispute, err := h.escrow.ResolveDispute(c.Request.Context(), principal, disputeID,
		models.DisputeDecision(req.Decision), req.Explanation)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"dispute": dispute})
}

// Escalate обрабатывает POST /api/orders/:id/disputes/escalate.
func (h *DisputeHandler) Escalate(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.escrow.EscalateDispute(c.Request.Context(), principal, orderID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// UploadEvidence обрабатывает POST /api/disputes/:id/evidence.
// Принимает multipart-файл, проверяет, что это изображение, и
// прикрепляет путь к спору.
func (h *DisputeHandler) UploadEvidence(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	disputeID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "файл обязателен"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "не удалось прочитать файл"})
		return
	}
	defer file.Close()

	path, size, err := h.evidence.Save(c.Request.Context(), disputeID, file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.escrow.AttachEvidence(c.Request.Context(), principal, disputeID, path); err != nil {
		_ = h.evidence.Delete(c.Request.Context(), path)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"path": path, "size": size})
}

// Get обрабатывает GET /api/disputes/:id.
func (h *DisputeHandler) Get(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	disputeID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	dispute, err := h.escrow.GetDispute(c.Request.Context(), principal, disputeID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"dispute": dispute})
}

// ListMy обрабатывает GET /api/disputes/my.
func (h *DisputeHandler) ListMy(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	limit, offset := paginationParams(c)

	disputes, err := h.escrow.ListMyDisputes(c.Request.Context(), principal, limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"disputes": disputes})
}
