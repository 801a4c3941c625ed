// internal/handlers/admin.go
package handlers

import (
	"crypto/subtle"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/kitshop/backend/internal/config"
	"github.com/kitshop/backend/internal/models"
	"github.com/kitshop/backend/internal/services"
	"github.com/kitshop/backend/internal/utils"
)

type AdminHandler struct {
	adminService   *services.AdminService
	catalogService *services.CatalogService
	config         *config.Config
}

type AdminLoginRequest struct {
	Password string `json:"password" validate:"required"`
}

type SetProductActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

func NewAdminHandler(adminService *services.AdminService, catalogService *services.CatalogService, cfg *config.Config) *AdminHandler {
	return &AdminHandler{
		adminService:   adminService,
		catalogService: catalogService,
		config:         cfg,
	}
}

// POST /v1/admin/login
func (h *AdminHandler) Login(c *gin.Context) {
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if h.config.Admin.Password == "" ||
		subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.config.Admin.Password)) != 1 {
		utils.UnauthorizedResponse(c, "Invalid credentials")
		return
	}

	token, err := utils.GenerateAdminJWT(h.config.JWT.AccessTokenTTL)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"token": token,
	})
}

// GET /v1/admin/orders
func (h *AdminHandler) GetOrders(c *gin.Context) {
	filter := services.AdminOrderFilter{
		PaginationParams: utils.GetPaginationParams(c),
	}

	if status := c.Query("status"); status != "" {
		orderStatus := models.OrderStatus(status)
		filter.Status = &orderStatus
	}

	orders, total, err := h.adminService.GetOrders(filter)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	result := utils.CreatePaginationResult(orders, total, filter.PaginationParams)
	utils.PaginatedResponse(c, result)
}

// GET /v1/admin/stats
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.adminService.GetDashboardStats()
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"stats": stats,
	})
}

// PUT /v1/admin/products/:slug/active
func (h *AdminHandler) SetProductActive(c *gin.Context) {
	var req SetProductActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	product, err := h.catalogService.SetActive(c.Param("slug"), *req.IsActive)
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
