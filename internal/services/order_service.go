// internal/services/order_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/kitshop/backend/internal/config"
	"github.com/kitshop/backend/internal/gateway"
	"github.com/kitshop/backend/internal/models"
)

// OrderService owns the order state machine. Orders move from pending
// to exactly one of paid, failed or expired; the transition is a single
// conditional UPDATE keyed on status = 'pending', and grant creation is
// gated strictly behind that update reporting one affected row. That
// row-level write is the only serialization point: the poll path and
// the webhook path may both call Reconcile concurrently and only one
// can win.
type OrderService struct {
	db      *gorm.DB
	catalog *CatalogService
	gateway gateway.Client
	config  *config.Config
}

func NewOrderService(db *gorm.DB, catalog *CatalogService, gw gateway.Client, cfg *config.Config) *OrderService {
	return &OrderService{
		db:      db,
		catalog: catalog,
		gateway: gw,
		config:  cfg,
	}
}

// CreateOrder opens a pending order for the product and registers a
// payment intent with the gateway. The order id doubles as the
// gateway-side tracking key, so a retried create is idempotent on the
// provider's side. A failed intent leaves a failed order row behind
// for audit; the row is never deleted.
func (s *OrderService) CreateOrder(ctx context.Context, user *models.User, productSlug, email, phone string) (*models.Order, error) {
	product, err := s.catalog.GetBySlug(productSlug)
	if err != nil {
		return nil, err
	}

	if !product.IsAvailable() {
		return nil, ErrProductUnavailable
	}

	// Ownership check runs before any gateway traffic: an owned
	// product must short-circuit without creating an intent.
	owned, err := s.hasGrant(user.ID, product.ID)
	if err != nil {
		return nil, err
	}
	if owned {
		return nil, ErrAlreadyOwned
	}

	expiresAt := time.Now().Add(time.Duration(s.config.Payment.OrderTTLHours) * time.Hour)
	order := &models.Order{
		UserID:        user.ID,
		ProductID:     product.ID,
		AmountKopecks: product.PriceKopecks,
		Currency:      product.Currency,
		Status:        models.OrderStatusPending,
		ExpiresAt:     &expiresAt,
	}

	if err := s.db.Create(order).Error; err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	intentCtx, cancel := context.WithTimeout(ctx, s.intentTimeout())
	defer cancel()

	intent, err := s.gateway.CreateIntent(intentCtx, &gateway.IntentRequest{
		AmountKopecks: order.AmountKopecks,
		Currency:      order.Currency,
		Description:   fmt.Sprintf("Payment: %s", product.Name),
		TrackingID:    order.ID.String(),
		Email:         email,
		Phone:         phone,
	})
	if err != nil {
		logrus.WithError(err).WithField("order_id", order.ID).Error("Failed to create payment intent")
		s.transition(order, models.OrderStatusPending, map[string]interface{}{
			"status": models.OrderStatusFailed,
		})
		return nil, fmt.Errorf("%w: %v", ErrPaymentCreation, err)
	}

	updates := map[string]interface{}{
		"bepaid_transaction_id": intent.TransactionID,
		"bepaid_checkout_url":   intent.CheckoutURL,
	}
	if err := s.db.Model(order).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to persist checkout reference: %w", err)
	}

	order.BepaidTransactionID = &intent.TransactionID
	order.BepaidCheckoutURL = intent.CheckoutURL

	logrus.WithFields(logrus.Fields{
		"order_id":       order.ID,
		"transaction_id": intent.TransactionID,
		"amount":         order.AmountKopecks,
	}).Info("Order created")

	return order, nil
}

// Reconcile is the single idempotent entry point for both
// reconciliation paths: the explicit status poll and the webhook
// ingress. The webhook payload's claimed status is never trusted; the
// authoritative state is always re-fetched from the gateway by
// transaction reference.
func (s *OrderService) Reconcile(ctx context.Context, transactionID string) (*models.Order, error) {
	var order models.Order
	if err := s.db.Where("bepaid_transaction_id = ?", transactionID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	// Expiry is evaluated lazily and wins over a late success: once
	// the flip to expired lands, the paid transition can no longer
	// observe a pending row.
	if s.expireIfDue(&order) {
		return &order, nil
	}

	// Terminal states are the idempotency backstop: a redelivered
	// webhook or a racing poll returns the settled state unchanged.
	if order.Status.IsTerminal() {
		return &order, nil
	}

	statusCtx, cancel := context.WithTimeout(ctx, s.statusTimeout())
	defer cancel()

	status, err := s.gateway.GetStatus(statusCtx, transactionID)
	if err != nil {
		// Indeterminate: the order stays pending and the next poll or
		// webhook redelivery retries. Never surfaced as a failure.
		logrus.WithError(err).WithField("transaction_id", transactionID).Warn("Gateway status check failed, order left pending")
		return &order, nil
	}

	switch gateway.Classify(status.Status) {
	case gateway.OutcomeSuccessful:
		return s.settlePaid(&order, status)
	case gateway.OutcomeFailed:
		if !s.transition(&order, models.OrderStatusPending, map[string]interface{}{
			"status": models.OrderStatusFailed,
		}) {
			return s.reload(order.ID)
		}
		order.Status = models.OrderStatusFailed
		logrus.WithField("order_id", order.ID).Info("Payment marked as failed")
		return &order, nil
	default:
		logrus.WithFields(logrus.Fields{
			"order_id": order.ID,
			"status":   status.Status,
		}).Info("Unrecognized gateway status, order left pending")
		return &order, nil
	}
}

// settlePaid performs the pending→paid transition and creates the
// grant. Only the caller whose conditional update reports exactly one
// affected row may create it; the loser reloads and returns the
// already-settled state.
func (s *OrderService) settlePaid(order *models.Order, status *gateway.PaymentStatus) (*models.Order, error) {
	now := time.Now()
	updates := map[string]interface{}{
		"status":  models.OrderStatusPaid,
		"paid_at": now,
	}
	method := gateway.Method(status.PaymentMethod)
	if method != "" {
		updates["payment_method"] = method
	}

	if !s.transition(order, models.OrderStatusPending, updates) {
		return s.reload(order.ID)
	}

	order.Status = models.OrderStatusPaid
	order.PaidAt = &now
	if method != "" {
		pm := models.PaymentMethod(method)
		order.PaymentMethod = &pm
	}

	grant := &models.UserProduct{
		UserID:      order.UserID,
		ProductID:   order.ProductID,
		OrderID:     order.ID,
		PurchasedAt: now,
	}
	if err := s.db.Create(grant).Error; err != nil {
		// The order is settled; a grant write failure must be loud
		// because nothing retries it automatically.
		logrus.WithError(err).WithField("order_id", order.ID).Error("Failed to create grant for paid order")
		return order, fmt.Errorf("failed to create grant: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"order_id":   order.ID,
		"user_id":    order.UserID,
		"product_id": order.ProductID,
	}).Info("Payment marked as successful")

	return order, nil
}

// GetUserOrders returns the user's orders newest first, lazily
// expiring any pending order past its window.
func (s *OrderService) GetUserOrders(userID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	if err := s.db.Where("user_id = ?", userID).
		Preload("Product").
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}

	for i := range orders {
		s.expireIfDue(&orders[i])
	}

	return orders, nil
}

// expireIfDue flips a pending order past its expiry timestamp to
// expired. Returns true when the order is now expired.
func (s *OrderService) expireIfDue(order *models.Order) bool {
	if order.Status != models.OrderStatusPending || !order.IsExpired(time.Now()) {
		return false
	}

	if s.transition(order, models.OrderStatusPending, map[string]interface{}{
		"status": models.OrderStatusExpired,
	}) {
		order.Status = models.OrderStatusExpired
		logrus.WithField("order_id", order.ID).Info("Order expired")
		return true
	}

	// Lost the race to another transition; pick up whatever won.
	if fresh, err := s.reload(order.ID); err == nil {
		*order = *fresh
	}
	return order.Status == models.OrderStatusExpired
}

// transition runs the conditional status update and reports whether
// this caller won it. Zero affected rows means another path settled
// the order first.
func (s *OrderService) transition(order *models.Order, from models.OrderStatus, updates map[string]interface{}) bool {
	res := s.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, from).
		Updates(updates)
	if res.Error != nil {
		logrus.WithError(res.Error).WithField("order_id", order.ID).Error("Order status update failed")
		return false
	}
	return res.RowsAffected == 1
}

func (s *OrderService) reload(id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.db.First(&order, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}
	return &order, nil
}

func (s *OrderService) hasGrant(userID, productID uuid.UUID) (bool, error) {
	var count int64
	if err := s.db.Model(&models.UserProduct{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check ownership: %w", err)
	}
	return count > 0, nil
}

func (s *OrderService) intentTimeout() time.Duration {
	if s.config.Payment.IntentTimeoutSec > 0 {
		return time.Duration(s.config.Payment.IntentTimeoutSec) * time.Second
	}
	return 10 * time.Second
}

func (s *OrderService) statusTimeout() time.Duration {
	if s.config.Payment.StatusTimeoutSec > 0 {
		return time.Duration(s.config.Payment.StatusTimeoutSec) * time.Second
	}
	return 5 * time.Second
}
