package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/kara-dl-go/internal/app"
	"github.com/yourusername/kara-dl-go/internal/domain"
)

// DownloadHandler handles download queue HTTP requests
type DownloadHandler struct {
	queueMgr *app.QueueManager
	bulk     *app.BulkDownloader
	logger   *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(queueMgr *app.QueueManager, bulk *app.BulkDownloader, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		queueMgr: queueMgr,
		bulk:     bulk,
		logger:   logger,
	}
}

// DownloadInput is one item of an AddDownloadsRequest
type DownloadInput struct {
	UUID       string `json:"uuid"`
	Name       string `json:"name"`
	KID        string `json:"kid"`
	Size       int64  `json:"size"`
	Repository string `json:"repository"`
}

// AddDownloadsRequest represents a request to enqueue downloads
type AddDownloadsRequest struct {
	Items []DownloadInput `json:"items" binding:"required"`
}

// UpdateStatusRequest represents a request to change a download status
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AddDownloads handles POST /api/v1/downloads
func (h *DownloadHandler) AddDownloads(c *gin.Context) {
	var req AddDownloadsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items := make([]*domain.DownloadItem, 0, len(req.Items))
	for _, in := range req.Items {
		items = append(items, &domain.DownloadItem{
			UUID:       in.UUID,
			Name:       in.Name,
			KID:        in.KID,
			Size:       in.Size,
			Repository: in.Repository,
		})
	}

	if err := h.queueMgr.Enqueue(c.Request.Context(), items); err != nil {
		respondError(c, h.logger, "Failed to add downloads", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"count": len(items), "items": items})
}

// ListDownloads handles GET /api/v1/downloads
func (h *DownloadHandler) ListDownloads(c *gin.Context) {
	downloads, err := h.queueMgr.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "Failed to list downloads", err)
		return
	}
	c.JSON(http.StatusOK, downloads)
}

// ListPending handles GET /api/v1/downloads/pending
func (h *DownloadHandler) ListPending(c *gin.Context) {
	downloads, err := h.queueMgr.ListPending(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "Failed to list pending downloads", err)
		return
	}
	c.JSON(http.StatusOK, downloads)
}

// GetDownload handles GET /api/v1/downloads/:uuid
func (h *DownloadHandler) GetDownload(c *gin.Context) {
	download, err := h.queueMgr.GetOne(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		respondError(c, h.logger, "Failed to get download", err)
		return
	}
	c.JSON(http.StatusOK, download)
}

// GetStats handles GET /api/v1/downloads/stats
func (h *DownloadHandler) GetStats(c *gin.Context) {
	stats, err := h.queueMgr.Stats(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "Failed to get stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// UpdateStatus handles PUT /api/v1/downloads/:uuid/status
func (h *DownloadHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status, err := domain.ParseDownloadStatus(req.Status)
	if err != nil {
		respondError(c, h.logger, "Invalid status", err)
		return
	}

	uuid := c.Param("uuid")
	if err := h.queueMgr.UpdateStatus(c.Request.Context(), uuid, status); err != nil {
		respondError(c, h.logger, "Failed to update download status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uuid": uuid, "status": status})
}

// RetryDownload handles POST /api/v1/downloads/:uuid/retry
func (h *DownloadHandler) RetryDownload(c *gin.Context) {
	download, err := h.queueMgr.Requeue(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		respondError(c, h.logger, "Failed to retry download", err)
		return
	}
	c.JSON(http.StatusOK, download)
}

// DeleteDownload handles DELETE /api/v1/downloads/:uuid
func (h *DownloadHandler) DeleteDownload(c *gin.Context) {
	if err := h.queueMgr.Delete(c.Request.Context(), c.Param("uuid")); err != nil {
		respondError(c, h.logger, "Failed to delete download", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// EmptyDownloads handles DELETE /api/v1/downloads
func (h *DownloadHandler) EmptyDownloads(c *gin.Context) {
	if err := h.queueMgr.EmptyAll(c.Request.Context()); err != nil {
		respondError(c, h.logger, "Failed to empty queue", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Recover handles POST /api/v1/downloads/recovery
func (h *DownloadHandler) Recover(c *gin.Context) {
	if err := h.queueMgr.InitRecovery(c.Request.Context()); err != nil {
		respondError(c, h.logger, "Failed to recover queue", err)
		return
	}

	stats, err := h.queueMgr.Stats(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "Failed to get stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Sync handles POST /api/v1/downloads/sync
func (h *DownloadHandler) Sync(c *gin.Context) {
	if h.bulk == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "bulk downloads not configured"})
		return
	}

	var req app.BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.bulk.Run(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, "Bulk download failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}
