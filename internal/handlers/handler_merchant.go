package handlers

import (
	"errors"
	"net/http"

	"github.com/finagent/finagent/internal/apperrors"
	portsrepo "github.com/finagent/finagent/internal/core/ports/repositories"
	portssvc "github.com/finagent/finagent/internal/core/ports/services"
	"github.com/finagent/finagent/internal/dto"
	"github.com/finagent/finagent/internal/middleware"
	"github.com/gin-gonic/gin"
)

type merchantHandler struct {
	merchants    portsrepo.MerchantReader
	recategorize portssvc.RecategorizeSvcFacade
}

func newMerchantHandler(merchants portsrepo.MerchantReader, rs portssvc.RecategorizeSvcFacade) *merchantHandler {
	return &merchantHandler{merchants: merchants, recategorize: rs}
}

func registerMerchantRoutes(rg *gin.RouterGroup, merchants portsrepo.MerchantReader, rs portssvc.RecategorizeSvcFacade) {
	h := newMerchantHandler(merchants, rs)

	group := rg.Group("/merchants")
	{
		group.GET("", h.listMerchants)
		group.POST("/:merchantID/recategorize", h.recategorizeMerchant)
	}
}

func (h *merchantHandler) listMerchants(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)

	merchants, err := h.merchants.ListMerchants(c.Request.Context())
	if err != nil {
		logger.Error("merchant list failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list merchants"})
		return
	}
	out := make([]dto.MerchantResponse, 0, len(merchants))
	for _, m := range merchants {
		out = append(out, dto.ToMerchantResponse(m))
	}
	c.JSON(http.StatusOK, gin.H{"merchants": out})
}

func (h *merchantHandler) recategorizeMerchant(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	merchantID := c.Param("merchantID")

	var req dto.RecategorizeMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "categoryKey is required"})
		return
	}

	n, err := h.recategorize.RecategorizeMerchant(c.Request.Context(), merchantID, req.CategoryKey)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidCategory):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category key"})
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "merchant not found"})
		default:
			logger.Error("merchant recategorization failed", "merchant_id", merchantID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "recategorization failed"})
		}
		return
	}
	c.JSON(http.StatusOK, dto.RecategorizeMerchantResponse{RowsAffected: n})
}
