// internal/handlers/order.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kitshop/backend/internal/services"
	"github.com/kitshop/backend/internal/utils"
)

type OrderHandler struct {
	orderService *services.OrderService
	userService  *services.UserService
}

type CreateOrderRequest struct {
	TelegramID  int64  `json:"telegram_id" validate:"required"`
	ProductSlug string `json:"product_slug" validate:"required,product_slug"`
	Username    string `json:"username,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	Phone       string `json:"phone,omitempty"`
}

type ReconcileRequest struct {
	TransactionID string `json:"transaction_id" validate:"required"`
}

func NewOrderHandler(orderService *services.OrderService, userService *services.UserService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		userService:  userService,
	}
}

// POST /v1/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	user, err := h.userService.Resolve(&services.ResolveUserRequest{
		TelegramID: req.TelegramID,
		Username:   req.Username,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
	})
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), user, req.ProductSlug, req.Email, req.Phone)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrProductNotFound):
			utils.NotFoundResponse(c, "Product")
		case errors.Is(err, services.ErrProductUnavailable):
			utils.ConflictResponse(c, "Product is not available")
		case errors.Is(err, services.ErrAlreadyOwned):
			utils.ConflictResponse(c, "Product already purchased")
		case errors.Is(err, services.ErrPaymentCreation):
			utils.ErrorResponse(c, http.StatusBadGateway, "PAYMENT_ERROR",
				"Payment service is unavailable, please try again later", nil)
		default:
			utils.InternalErrorResponse(c, "")
		}
		return
	}

	utils.CreatedResponse(c, gin.H{
		"order_id":       order.ID,
		"status":         order.Status,
		"amount_kopecks": order.AmountKopecks,
		"currency":       order.Currency,
		"checkout_url":   order.BepaidCheckoutURL,
		"transaction_id": order.BepaidTransactionID,
		"expires_at":     order.ExpiresAt,
	})
}

// POST /v1/payments/reconcile — the explicit poll path ("I paid"
// button in the bot). Shares the reconciliation entry point with the
// webhook ingress.
func (h *OrderHandler) Reconcile(c *gin.Context) {
	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	order, err := h.orderService.Reconcile(c.Request.Context(), req.TransactionID)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.NotFoundResponse(c, "Order")
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"order_id": order.ID,
		"status":   order.Status,
		"paid_at":  order.PaidAt,
	})
}

// GET /v1/users/:telegram_id/orders
func (h *OrderHandler) GetUserOrders(c *gin.Context) {
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

	orders, err := h.orderService.GetUserOrders(user.ID)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"orders": orders,
	})
}
