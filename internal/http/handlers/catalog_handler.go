package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rustaceolibre/marketplace-backend/internal/http/handlers/common"
	"github.com/rustaceolibre/marketplace-backend/internal/service"
)

// CatalogHandler обслуживает товары и публикации продавцов.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler создаёт хэндлер.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// RegisterProduct обрабатывает POST /products.
func (h *CatalogHandler) RegisterProduct(c *gin.Context) {
	sellerID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
		Category    string `json:"category" binding:"required"`
		Stock       int64  `json:"stock"`
	}
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	product, err := h.catalog.RegisterProduct(c.Request.Context(), sellerID, service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Stock:       req.Stock,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

// AddStock обрабатывает POST /products/:id/stock.
func (h *CatalogHandler) AddStock(c *gin.Context) {
	sellerID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	productID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		Amount int64 `json:"amount" binding:"required"`
	}
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	product, err := h.catalog.AddStock(c.Request.Context(), sellerID, productID, req.Amount)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// GetProduct обрабатывает GET /products/:id.
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	productID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	product, err := h.catalog.GetProduct(c.Request.Context(), productID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// Publish обрабатывает POST /publications.
func (h *CatalogHandler) Publish(c *gin.Context) {
	sellerID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req struct {
		ProductID int64 `json:"product_id" binding:"required"`
		Quantity  int64 `json:"quantity" binding:"required"`
		UnitPrice int64 `json:"unit_price" binding:"required"`
	}
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	publication, err := h.catalog.Publish(c.Request.Context(), sellerID, service.PublicationInput{
		ProductID:       req.ProductID,
		OfferedQuantity: req.Quantity,
		UnitPrice:       req.UnitPrice,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, publication)
}

// SetOfferedQuantity обрабатывает PUT /publications/:id/quantity.
func (h *CatalogHandler) SetOfferedQuantity(c *gin.Context) {
	sellerID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	publicationID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		Quantity *int64 `json:"quantity" binding:"required"`
	}
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	publication, err := h.catalog.SetOfferedQuantity(c.Request.Context(), sellerID, publicationID, *req.Quantity)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, publication)
}

// GetPublication обрабатывает GET /publications/:id.
func (h *CatalogHandler) GetPublication(c *gin.Context) {
	publicationID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	publication, err := h.catalog.GetPublication(c.Request.Context(), publicationID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, publication)
}

// ListMyPublications обрабатывает GET /publications/my.
func (h *CatalogHandler) ListMyPublications(c *gin.Context) {
	sellerID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	publications, err := h.catalog.ListMyPublications(c.Request.Context(), sellerID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"publications": publications})
}

// Browse обрабатывает GET /publications.
func (h *CatalogHandler) Browse(c *gin.Context) {
	publications, err := h.catalog.Browse(c.Request.Context(), c.Query("category"))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"publications": publications})
}
