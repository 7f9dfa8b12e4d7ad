package handlers

import (
	"errors"
	"net/http"

	"github.com/finagent/finagent/internal/apperrors"
	portssvc "github.com/finagent/finagent/internal/core/ports/services"
	"github.com/finagent/finagent/internal/middleware"
	"github.com/gin-gonic/gin"
)

// syncHandler exposes manual sync triggers on the admin surface.
type syncHandler struct {
	syncService portssvc.SyncSvcFacade
}

func newSyncHandler(ss portssvc.SyncSvcFacade) *syncHandler {
	return &syncHandler{syncService: ss}
}

func registerSyncRoutes(rg *gin.RouterGroup, syncService portssvc.SyncSvcFacade) {
	h := newSyncHandler(syncService)

	sync := rg.Group("/sync")
	{
		sync.POST("", h.syncAll)
		sync.POST("/:itemID", h.syncItem)
	}
}

func (h *syncHandler) syncAll(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)

	summaries, err := h.syncService.SyncAll(c.Request.Context())
	if err != nil {
		logger.Error("sync all failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sync failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summaries": summaries})
}

func (h *syncHandler) syncItem(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	itemID := c.Param("itemID")

	summary, err := h.syncService.SyncItem(c.Request.Context(), itemID)
	if err != nil {
		logger.Error("item sync failed", "item_id", itemID, "error", err)
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		case errors.Is(err, apperrors.ErrAuthInvalid):
			c.JSON(http.StatusBadGateway, gin.H{"error": "aggregator rejected item credentials"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "sync failed"})
		}
		return
	}
	c.JSON(http.StatusOK, summary)
}
