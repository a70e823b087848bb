package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/http/response"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/services"
)

type ScoreHandler struct {
	svc services.AllocationService
}

func NewScoreHandler(svc services.AllocationService) *ScoreHandler {
	return &ScoreHandler{svc: svc}
}

type scoreRequest struct {
	CandidateID string `json:"candidateId" binding:"required,uuid"`
	PositionID  string `json:"positionId" binding:"required,uuid"`
}

// POST /api/score
func (h *ScoreHandler) Score(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.svc.CalculateScore(c.Request.Context(), uuid.MustParse(req.CandidateID), uuid.MustParse(req.PositionID))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/ml/status
func (h *ScoreHandler) MLStatus(c *gin.Context) {
	response.RespondOK(c, h.svc.MLStatus(c.Request.Context()))
}
