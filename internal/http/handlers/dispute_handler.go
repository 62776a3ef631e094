package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rustaceolibre/marketplace-backend/internal/http/handlers/common"
	"github.com/rustaceolibre/marketplace-backend/internal/repository"
	"github.com/rustaceolibre/marketplace-backend/internal/service"
)

// DisputeHandler обслуживает диспуты по заказам.
type DisputeHandler struct {
	disputes *service.DisputeService
	users    *repository.UserRepository
}

// NewDisputeHandler создаёт хэндлер.
func NewDisputeHandler(disputes *service.DisputeService, users *repository.UserRepository) *DisputeHandler {
	return &DisputeHandler{disputes: disputes, users: users}
}

// DisputeOrder обрабатывает POST /orders/:id/dispute.
// Покупатель открывает диспут, продавец тем же маршрутом отвечает контраргументом.
func (h *DisputeHandler) DisputeOrder(c *gin.Context) {
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

	var req struct {
		Argument string `json:"argument" binding:"required"`
	}
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.DisputeOrder(c.Request.Context(), callerID, orderID, req.Argument)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dispute)
}

// Resolve обрабатывает POST /disputes/:id/resolve.
func (h *DisputeHandler) Resolve(c *gin.Context) {
	callerID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	disputeID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		Verdict    string `json:"verdict" binding:"required"`
		Resolution string `json:"resolution"`
	}
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	arbiter, err := h.users.GetByID(c.Request.Context(), callerID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	dispute, err := h.disputes.Resolve(c.Request.Context(), arbiter, disputeID, req.Verdict, req.Resolution)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dispute)
}

// GetDispute обрабатывает GET /disputes/:id.
func (h *DisputeHandler) GetDispute(c *gin.Context) {
	callerID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	disputeID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.GetDispute(c.Request.Context(), callerID, common.CurrentUserIsStaff(c), disputeID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dispute)
}

// ListMyDisputes обрабатывает GET /disputes/my.
// По умолчанию отдаёт только неразрешённые диспуты, all=true включает архив.
func (h *DisputeHandler) ListMyDisputes(c *gin.Context) {
	callerID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	openOnly := c.Query("all") != "true"
	disputes, err := h.disputes.ListMine(c.Request.Context(), callerID, openOnly)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"disputes": disputes})
}

// ListOpenDisputes обрабатывает GET /disputes/open.
func (h *DisputeHandler) ListOpenDisputes(c *gin.Context) {
	callerID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	caller, err := h.users.GetByID(c.Request.Context(), callerID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	disputes, err := h.disputes.ListOpen(c.Request.Context(), caller)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"disputes": disputes})
}
