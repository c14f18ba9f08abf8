package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/kara-dl-go/internal/app"
	"github.com/yourusername/kara-dl-go/internal/domain"
)

// BlacklistHandler handles blacklist criteria HTTP requests
type BlacklistHandler struct {
	service *app.BlacklistService
	logger  *zap.Logger
}

// NewBlacklistHandler creates a new blacklist handler
func NewBlacklistHandler(service *app.BlacklistService, logger *zap.Logger) *BlacklistHandler {
	return &BlacklistHandler{service: service, logger: logger}
}

// AddCriterionRequest represents a request to add a blacklist criterion
type AddCriterionRequest struct {
	Type  *int   `json:"type" binding:"required"`
	Value string `json:"value"`
}

// ListCriteria handles GET /api/v1/blacklist/criteria
func (h *BlacklistHandler) ListCriteria(c *gin.Context) {
	criteria, err := h.service.ListCriteria(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "Failed to list blacklist criteria", err)
		return
	}
	c.JSON(http.StatusOK, criteria)
}

// AddCriterion handles POST /api/v1/blacklist/criteria
func (h *BlacklistHandler) AddCriterion(c *gin.Context) {
	var req AddCriterionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	criterion, err := h.service.AddCriterion(c.Request.Context(), domain.CriterionType(*req.Type), req.Value)
	if err != nil {
		respondError(c, h.logger, "Failed to add blacklist criterion", err)
		return
	}
	c.JSON(http.StatusCreated, criterion)
}

// RemoveCriterion handles DELETE /api/v1/blacklist/criteria/:id
func (h *BlacklistHandler) RemoveCriterion(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid criterion id"})
		return
	}

	if err := h.service.RemoveCriterion(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, "Failed to remove blacklist criterion", err)
		return
	}
	c.Status(http.StatusNoContent)
}
