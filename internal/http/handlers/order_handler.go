package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rustaceolibre/marketplace-backend/internal/http/handlers/common"
	"github.com/rustaceolibre/marketplace-backend/internal/models"
	"github.com/rustaceolibre/marketplace-backend/internal/service"
)

// OrderHandler обслуживает жизненный цикл заказа: покупка, отправка,
// подтверждение получения, истребование средств и отмена.
type OrderHandler struct {
	orders *service.OrderService
}

// NewOrderHandler создаёт хэндлер.
func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// Purchase обрабатывает POST /orders.
func (h *OrderHandler) Purchase(c *gin.Context) {
	buyerID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req struct {
		PublicationID    int64 `json:"publication_id" binding:"required"`
		Quantity         int64 `json:"quantity" binding:"required"`
		TransferredValue int64 `json:"transferred_value" binding:"required"`
	}
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	order, err := h.orders.Purchase(c.Request.Context(), buyerID, service.PurchaseInput{
		PublicationID:    req.PublicationID,
		Quantity:         req.Quantity,
		TransferredValue: req.TransferredValue,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// Dispatch обрабатывает POST /orders/:id/dispatch.
func (h *OrderHandler) Dispatch(c *gin.Context) {
	h.transition(c, h.orders.Dispatch)
}

// Receive обрабатывает POST /orders/:id/receive.
func (h *OrderHandler) Receive(c *gin.Context) {
	h.transition(c, h.orders.Receive)
}

// ClaimFunds обрабатывает POST /orders/:id/claim.
func (h *OrderHandler) ClaimFunds(c *gin.Context) {
	h.transition(c, h.orders.ClaimFunds)
}

// Cancel обрабатывает POST /orders/:id/cancel.
func (h *OrderHandler) Cancel(c *gin.Context) {
	callerID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	orderID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	outcome, err := h.orders.Cancel(c.Request.Context(), callerID, orderID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	if !outcome.Finalized {
		c.JSON(http.StatusAccepted, gin.H{
			"message": "запрос на отмену зарегистрирован, ожидается подтверждение второй стороны",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "заказ отменён, средства возвращены покупателю",
		"unilateral": outcome.Unilateral,
	})
}

// GetOrder обрабатывает GET /orders/:id.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	callerID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	orderID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), callerID, common.CurrentUserIsStaff(c), orderID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// ListPurchases обрабатывает GET /orders/purchases.
func (h *OrderHandler) ListPurchases(c *gin.Context) {
	h.list(c, h.orders.ListPurchases)
}

// ListSales обрабатывает GET /orders/sales.
func (h *OrderHandler) ListSales(c *gin.Context) {
	h.list(c, h.orders.ListSales)
}

// transition выполняет переход жизненного цикла вида (caller, orderID) -> order.
func (h *OrderHandler) transition(c *gin.Context, op func(ctx context.Context, callerID uuid.UUID, orderID int64) (*models.Order, error)) {
	callerID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	orderID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	order, err := op(c.Request.Context(), callerID, orderID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// list возвращает заказы вызывающего с фильтрами по статусу и категории.
func (h *OrderHandler) list(c *gin.Context, op func(ctx context.Context, userID uuid.UUID, status, category string) ([]models.Order, error)) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	orders, err := op(c.Request.Context(), userID, c.Query("status"), c.Query("category"))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}
