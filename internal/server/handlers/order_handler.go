package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/oms-labs/lotpilot/internal/domain/models"
	"github.com/oms-labs/lotpilot/internal/repository/mongodb"
	"github.com/oms-labs/lotpilot/internal/service/orders"
)

// DocumentExtractor is the optional document extraction surface. It is nil
// when intake is not configured.
type DocumentExtractor interface {
	ExtractDocument(ctx context.Context, itemID string) (models.SalesOrderDraft, error)
}

// OrderHandler exposes order creation, lot allocation and reservation
// write-back over HTTP.
type OrderHandler struct {
	allocator  orders.Allocator
	orders     *orders.Service
	extraction DocumentExtractor
	reports    mongodb.Repository
	logger     *zap.Logger
}

// NewOrderHandler constructs the HTTP handler adapter. extraction and
// reports may be nil when those subsystems are not configured.
func NewOrderHandler(allocator orders.Allocator, orderSvc *orders.Service, extraction DocumentExtractor, reports mongodb.Repository, logger *zap.Logger) *OrderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderHandler{
		allocator:  allocator,
		orders:     orderSvc,
		extraction: extraction,
		reports:    reports,
		logger:     logger,
	}
}

// CreateOrder submits a sales order draft to Business Central.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var draft models.SalesOrderDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		h.logger.Warn("invalid order draft", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	orderID, orderNo, err := h.orders.CreateFromDraft(c.Request.Context(), draft)
	if err != nil {
		if errors.Is(err, orders.ErrDraftIncomplete) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("order creation failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to create sales order"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"order_id": orderID, "order_no": orderNo})
}

// Allocate runs lot allocation for an order without writing reservations.
func (h *OrderHandler) Allocate(c *gin.Context) {
	orderID := c.Param("id")

	allocation, err := h.allocator.AllocateOrder(c.Request.Context(), orderID)
	if err != nil {
		h.logger.Error("allocation failed", zap.String("order_id", orderID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "allocation failed"})
		return
	}

	c.JSON(http.StatusOK, allocation)
}

type reserveRequest struct {
	OrderNo string `json:"order_no" binding:"required"`
}

// Reserve runs allocation and writes the selections back as reservation
// entries. The allocation report is returned even on a partial reservation
// failure.
func (h *OrderHandler) Reserve(c *gin.Context) {
	orderID := c.Param("id")

	var req reserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid reservation request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_no is required"})
		return
	}

	allocation, err := h.orders.AllocateAndReserve(c.Request.Context(), orderID, req.OrderNo)
	if err != nil {
		h.logger.Error("reservation failed",
			zap.String("order_id", orderID),
			zap.String("order_no", req.OrderNo),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":      "reservation write failed",
			"allocation": allocation,
		})
		return
	}

	c.JSON(http.StatusOK, allocation)
}

// AllocationHistory returns the persisted allocation reports for an order,
// newest first.
func (h *OrderHandler) AllocationHistory(c *gin.Context) {
	if h.reports == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit store not configured"})
		return
	}

	orderID := c.Param("id")
	reports, err := h.reports.AllocationsByOrder(c.Request.Context(), orderID)
	if err != nil {
		h.logger.Error("failed to load allocation history", zap.String("order_id", orderID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to load allocation history"})
		return
	}

	c.JSON(http.StatusOK, reports)
}

type extractRequest struct {
	ItemID string `json:"item_id" binding:"required"`
}

// Extract runs the document extraction pipeline for a single drive item and
// returns the resolved draft for operator review.
func (h *OrderHandler) Extract(c *gin.Context) {
	if h.extraction == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "document intake not configured"})
		return
	}

	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid extract request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "item_id is required"})
		return
	}

	draft, err := h.extraction.ExtractDocument(c.Request.Context(), req.ItemID)
	if err != nil {
		h.logger.Error("extraction failed", zap.String("item_id", req.ItemID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "extraction failed"})
		return
	}

	c.JSON(http.StatusOK, draft)
}
