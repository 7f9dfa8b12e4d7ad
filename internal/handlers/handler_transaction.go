package handlers

import (
	"errors"
	"net/http"

	"github.com/finagent/finagent/internal/apperrors"
	"github.com/finagent/finagent/internal/core/domain"
	portsrepo "github.com/finagent/finagent/internal/core/ports/repositories"
	portssvc "github.com/finagent/finagent/internal/core/ports/services"
	"github.com/finagent/finagent/internal/dto"
	"github.com/finagent/finagent/internal/middleware"
	"github.com/gin-gonic/gin"
)

type transactionHandler struct {
	transactions portsrepo.TransactionReader
	tags         portsrepo.TagReader
	recategorize portssvc.RecategorizeSvcFacade
}

func newTransactionHandler(tr portsrepo.TransactionReader, tags portsrepo.TagReader, rs portssvc.RecategorizeSvcFacade) *transactionHandler {
	return &transactionHandler{transactions: tr, tags: tags, recategorize: rs}
}

func registerTransactionRoutes(rg *gin.RouterGroup, tr portsrepo.TransactionReader, tags portsrepo.TagReader, rs portssvc.RecategorizeSvcFacade) {
	h := newTransactionHandler(tr, tags, rs)

	group := rg.Group("/transactions")
	{
		group.GET("/:source/:externalID", h.getTransaction)
		group.POST("/tags", h.tagTransactions)
	}
}

func (h *transactionHandler) getTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	source := domain.Source(c.Param("source"))
	externalID := c.Param("externalID")

	if source != domain.SourceAggregatorBanking && source != domain.SourceAggregatorInvestment {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown source"})
		return
	}

	txn, err := h.transactions.FindTransactionByExternalID(c.Request.Context(), source, externalID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
			return
		}
		logger.Error("transaction lookup failed", "external_id", externalID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	resp := dto.TransactionDetailResponse{Transaction: *txn, Events: []domain.CategoryEvent{}, Tags: []domain.Tag{}}

	derived, err := h.transactions.FindDerivedByTransactionID(c.Request.Context(), txn.TransactionID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		logger.Error("derived lookup failed", "transaction_id", txn.TransactionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	resp.Derived = derived

	if events, err := h.transactions.ListEventsByTransactionID(c.Request.Context(), txn.TransactionID); err == nil {
		resp.Events = events
	}
	if tags, err := h.tags.ListTagsForTransaction(c.Request.Context(), txn.TransactionID); err == nil {
		resp.Tags = tags
	}

	c.JSON(http.StatusOK, resp)
}

func (h *transactionHandler) tagTransactions(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)

	var req dto.TagTransactionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "transactionIds and tagNames are required"})
		return
	}

	n, err := h.recategorize.TagTransactions(c.Request.Context(), req.TransactionIDs, req.TagNames)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "transactionIds and tagNames are required"})
			return
		}
		logger.Error("tagging failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tagging failed"})
		return
	}
	c.JSON(http.StatusOK, dto.TagTransactionsResponse{NewLinks: n})
}
