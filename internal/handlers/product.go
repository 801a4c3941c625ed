// internal/handlers/product.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/kitshop/backend/internal/services"
	"github.com/kitshop/backend/internal/utils"
)

type ProductHandler struct {
	catalogService *services.CatalogService
}

func NewProductHandler(catalogService *services.CatalogService) *ProductHandler {
	return &ProductHandler{
		catalogService: catalogService,
	}
}

// GET /v1/products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	products, err := h.catalogService.ListActive()
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"products": products,
	})
}

// GET /v1/products/:slug
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.catalogService.GetBySlug(c.Param("slug"))
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			utils.NotFoundResponse(c, "Product")
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, product)
}
