package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rustaceolibre/marketplace-backend/internal/http/handlers/common"
	"github.com/rustaceolibre/marketplace-backend/internal/service"
)

// RatingHandler обслуживает взаимные оценки по завершённым заказам.
type RatingHandler struct {
	ratings *service.RatingService
}

// NewRatingHandler создаёт хэндлер.
func NewRatingHandler(ratings *service.RatingService) *RatingHandler {
	return &RatingHandler{ratings: ratings}
}

// RateOrder обрабатывает POST /orders/:id/rating.
func (h *RatingHandler) RateOrder(c *gin.Context) {
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
		Rating int `json:"rating" binding:"required"`
	}
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.ratings.RateOrder(c.Request.Context(), callerID, orderID, req.Rating); err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "оценка сохранена"})
}
