package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rustaceolibre/marketplace-backend/internal/http/handlers/common"
	"github.com/rustaceolibre/marketplace-backend/internal/service"
)

// TreasuryHandler отдаёт историю переводов пользователя.
type TreasuryHandler struct {
	treasury *service.TreasuryService
}

// NewTreasuryHandler создаёт хэндлер.
func NewTreasuryHandler(treasury *service.TreasuryService) *TreasuryHandler {
	return &TreasuryHandler{treasury: treasury}
}

// ListMyTransfers обрабатывает GET /transfers.
func (h *TreasuryHandler) ListMyTransfers(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	transfers, err := h.treasury.ListByRecipient(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transfers": transfers})
}
