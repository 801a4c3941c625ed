// internal/handlers/delivery.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kitshop/backend/internal/services"
	"github.com/kitshop/backend/internal/utils"
)

type DeliveryHandler struct {
	deliveryService *services.DeliveryService
	userService     *services.UserService
	storageService  *services.StorageService
}

type DeliverRequest struct {
	TelegramID  int64  `json:"telegram_id" validate:"required"`
	ProductSlug string `json:"product_slug" validate:"required,product_slug"`
}

func NewDeliveryHandler(deliveryService *services.DeliveryService, userService *services.UserService, storageService *services.StorageService) *DeliveryHandler {
	return &DeliveryHandler{
		deliveryService: deliveryService,
		userService:     userService,
		storageService:  storageService,
	}
}

// POST /v1/delivery — caller-initiated and safe to repeat; the bot
// retries this on its own schedule when transmission fails.
func (h *DeliveryHandler) Deliver(c *gin.Context) {
	var req DeliverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	user, err := h.userService.GetByTelegramID(req.TelegramID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			utils.NotFoundResponse(c, "User")
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}

	result, err := h.deliveryService.Deliver(user.ID, req.ProductSlug)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrProductNotFound):
			utils.NotFoundResponse(c, "Product")
		case errors.Is(err, services.ErrNotEntitled):
			utils.ErrorResponse(c, http.StatusForbidden, "NOT_ENTITLED",
				"Product has not been purchased", nil)
		case errors.Is(err, services.ErrContentMissing):
			utils.InternalErrorResponse(c, "Content is temporarily unavailable")
		default:
			utils.InternalErrorResponse(c, "")
		}
		return
	}

	contentURL, err := h.storageService.ResolveContent(result.FileID)
	if err != nil {
		utils.InternalErrorResponse(c, "Content is temporarily unavailable")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"file_id":   result.FileID,
		"file_type": result.FileType,
		"url":       contentURL,
	})
}

// GET /v1/users/:telegram_id/products
func (h *DeliveryHandler) GetUserProducts(c *gin.Context) {
	telegramID, err := strconv.ParseInt(c.Param("telegram_id"), 10, 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid telegram id", nil)
		return
	}

	user, err := h.userService.GetByTelegramID(telegramID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			utils.NotFoundResponse(c, "User")
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}

	grants, err := h.deliveryService.Grants(user.ID)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"products": grants,
	})
}
