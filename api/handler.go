package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sales_engine/internal/sales"
)

// salesHandler holds the sales service and implements HTTP handlers for sales operations.
type salesHandler struct {
	salesService *sales.Service
	logger       *zap.Logger
}

// NewSalesHandler creates a new sales handler.
func NewSalesHandler(salesService *sales.Service, logger *zap.Logger) *salesHandler {
	return &salesHandler{
		salesService: salesService,
		logger:       logger,
	}
}

type itemRequest struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
}

type saleRequest struct {
	ID           uuid.UUID     `json:"id"`
	CustomerID   uuid.UUID     `json:"customer_id"`
	CustomerName string        `json:"customer_name"`
	Branch       string        `json:"branch"`
	Items        []itemRequest `json:"items"`
}

func (r saleRequest) toSale() *sales.Sale {
	sale := &sales.Sale{
		ID:           r.ID,
		CustomerID:   r.CustomerID,
		CustomerName: r.CustomerName,
		Branch:       r.Branch,
		Items:        make([]sales.Item, 0, len(r.Items)),
	}
	for _, it := range r.Items {
		sale.Items = append(sale.Items, sales.Item{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Discount:    it.Discount,
		})
	}
	return sale
}

// handleCreateSale handles the POST /sales endpoint.
func (h *salesHandler) handleCreateSale(ctx *gin.Context) {
	var req saleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	sale, err := h.salesService.Add(ctx.Request.Context(), req.toSale())
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, sale)
}

// handleUpdateSale handles PUT /sales/:id. The body carries the full item collection.
func (h *salesHandler) handleUpdateSale(ctx *gin.Context) {
	id, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}
	var req saleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	req.ID = id

	sale, err := h.salesService.Update(ctx.Request.Context(), req.toSale())
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, sale)
}

func (h *salesHandler) handleGetSale(ctx *gin.Context) {
	id, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}
	sale, err := h.salesService.Get(ctx.Request.Context(), id)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, sale)
}

func (h *salesHandler) handleListSales(ctx *gin.Context) {
	all, err := h.salesService.GetAll(ctx.Request.Context())
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"results": all, "metadata": sales.Summarize(all)})
}

func (h *salesHandler) handleCancelSale(ctx *gin.Context) {
	id, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}
	if err := h.salesService.CancelSale(ctx.Request.Context(), id); err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (h *salesHandler) handleCancelItem(ctx *gin.Context) {
	saleID, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}
	itemID, ok := h.pathID(ctx, "itemId")
	if !ok {
		return
	}
	if err := h.salesService.CancelItem(ctx.Request.Context(), saleID, itemID); err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (h *salesHandler) pathID(ctx *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param(name))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

func (h *salesHandler) writeError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, sales.ErrValidation):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "messages": sales.ValidationMessages(err)})
	case errors.Is(err, sales.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, sales.ErrAlreadyExists):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("unexpected sales error", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
