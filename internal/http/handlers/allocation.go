package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/http/response"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/services"
)

type AllocationHandler struct {
	svc services.AllocationService
}

func NewAllocationHandler(svc services.AllocationService) *AllocationHandler {
	return &AllocationHandler{svc: svc}
}

type runBatchRequest struct {
	BatchID string `json:"batchId"`
}

type dropoutRequest struct {
	AllocationID string `json:"allocationId" binding:"required,uuid"`
	Reason       string `json:"reason" binding:"max=500"`
	InitiatedBy  string `json:"initiatedBy"`
}

type rejectRequest struct {
	Reason      string `json:"reason" binding:"max=500"`
	InitiatedBy string `json:"initiatedBy"`
}

// POST /api/allocations/run
func (h *AllocationHandler) RunBatch(c *gin.Context) {
	var req runBatchRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}
	res, err := h.svc.RunBatchAllocation(c.Request.Context(), strings.TrimSpace(req.BatchID), services.TriggerAPI)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/allocations/batches/:batchId
func (h *AllocationHandler) GetBatch(c *gin.Context) {
	batchID := c.Param("batchId")
	allocs, err := h.svc.GetBatchResults(c.Request.Context(), batchID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"batch_id": batchID, "allocations": allocs})
}

// POST /api/allocations/dropout
func (h *AllocationHandler) Dropout(c *gin.Context) {
	var req dropoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	id, err := uuid.Parse(req.AllocationID)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_allocation_id", err)
		return
	}
	res, err := h.svc.HandleDropout(c.Request.Context(), services.DropoutInput{
		AllocationID: id,
		Reason:       req.Reason,
		InitiatedBy:  req.InitiatedBy,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// POST /api/allocations/:id/accept
func (h *AllocationHandler) Accept(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_allocation_id", err)
		return
	}
	a, err := h.svc.AcceptAllocation(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"allocation": a})
}

// POST /api/allocations/:id/reject
func (h *AllocationHandler) Reject(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_allocation_id", err)
		return
	}
	var req rejectRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}
	res, err := h.svc.RejectAllocation(c.Request.Context(), services.DropoutInput{
		AllocationID: id,
		Reason:       req.Reason,
		InitiatedBy:  req.InitiatedBy,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, res)
}
