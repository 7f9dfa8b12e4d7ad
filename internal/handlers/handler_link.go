package handlers

import (
	"net/http"

	"github.com/finagent/finagent/internal/core/ports"
	portssvc "github.com/finagent/finagent/internal/core/ports/services"
	"github.com/finagent/finagent/internal/dto"
	"github.com/finagent/finagent/internal/middleware"
	"github.com/gin-gonic/gin"
)

type linkHandler struct {
	linkService portssvc.LinkSvcFacade
}

func newLinkHandler(ls portssvc.LinkSvcFacade) *linkHandler {
	return &linkHandler{linkService: ls}
}

func registerLinkRoutes(rg *gin.RouterGroup, linkService portssvc.LinkSvcFacade) {
	h := newLinkHandler(linkService)

	link := rg.Group("/link")
	{
		link.POST("/token", h.createLinkToken)
		link.POST("/item", h.linkItem)
	}
}

func (h *linkHandler) createLinkToken(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)

	var req dto.CreateLinkTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	resp, err := h.linkService.CreateLinkToken(c.Request.Context(), ports.LinkTokenRequest{
		RedirectURI: req.RedirectURI,
		Products:    req.Products,
		AccessToken: req.AccessToken,
	})
	if err != nil {
		logger.Error("link token creation failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to create link token"})
		return
	}
	c.JSON(http.StatusOK, dto.CreateLinkTokenResponse{LinkToken: resp.LinkToken, Expiration: resp.Expiration})
}

func (h *linkHandler) linkItem(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)

	var req dto.LinkItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	item, err := h.linkService.LinkItem(c.Request.Context(), req.PublicToken, req.InstitutionID, req.InstitutionName)
	if err != nil {
		logger.Error("item link failed", "institution_id", req.InstitutionID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to link item"})
		return
	}
	c.JSON(http.StatusCreated, dto.LinkItemResponse{
		ItemID:          item.ItemID,
		InstitutionID:   item.InstitutionID,
		InstitutionName: item.InstitutionName,
	})
}
