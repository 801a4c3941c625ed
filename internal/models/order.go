// internal/models/order.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Order tracks a purchase attempt from creation through terminal
// settlement. AmountKopecks is snapshotted from the product at
// creation time. BepaidTransactionID is the join key for both
// reconciliation paths and is unique when non-null.
type Order struct {
	BaseModel
	UserID              uuid.UUID      `json:"user_id" gorm:"type:uuid;not null;index"`
	ProductID           uuid.UUID      `json:"product_id" gorm:"type:uuid;not null;index"`
	AmountKopecks       int64          `json:"amount_kopecks" gorm:"not null"`
	Currency            string         `json:"currency" gorm:"size:3;default:'BYN';not null"`
	Status              OrderStatus    `json:"status" gorm:"type:varchar(20);default:'pending';not null;index"`
	BepaidTransactionID *string        `json:"bepaid_transaction_id" gorm:"size:255;uniqueIndex"`
	BepaidCheckoutURL   string         `json:"bepaid_checkout_url" gorm:"size:500"`
	PaymentMethod       *PaymentMethod `json:"payment_method" gorm:"type:varchar(50)"`
	ExpiresAt           *time.Time     `json:"expires_at"`
	PaidAt              *time.Time     `json:"paid_at"`

	// Relationships
	User    User    `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Product Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

func (o *Order) IsExpired(now time.Time) bool {
	return o.ExpiresAt != nil && now.After(*o.ExpiresAt)
}

// UserProduct records that a user owns a product, tied to exactly one
// paid order. Created once by the order service; delivery bookkeeping
// is owned by the delivery service. Never deleted.
type UserProduct struct {
	BaseModel
	UserID              uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index:idx_user_products_user_product,unique,priority:1"`
	ProductID           uuid.UUID  `json:"product_id" gorm:"type:uuid;not null;index:idx_user_products_user_product,unique,priority:2"`
	OrderID             uuid.UUID  `json:"order_id" gorm:"type:uuid;not null;index"`
	PurchasedAt         time.Time  `json:"purchased_at" gorm:"not null"`
	FileDelivered       bool       `json:"file_delivered" gorm:"default:false;not null"`
	DeliveryAttempts    int        `json:"delivery_attempts" gorm:"default:0;not null"`
	LastDeliveryAttempt *time.Time `json:"last_delivery_attempt"`

	// Relationships
	User    User    `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Product Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Order   Order   `json:"order,omitempty" gorm:"foreignKey:OrderID"`
}

// WebhookEvent stores provider notifications for audit. Reconcile is
// idempotent, so rows are kept for diagnostics rather than hard
// deduplication.
type WebhookEvent struct {
	BaseModel
	Provider        string     `json:"provider" gorm:"size:20;not null;index"`
	EventType       string     `json:"event_type" gorm:"size:100;not null;index"`
	TransactionID   string     `json:"transaction_id" gorm:"size:255;index"`
	Payload         string     `json:"payload" gorm:"type:text;not null"`
	SignatureValid  bool       `json:"signature_valid" gorm:"default:false"`
	ProcessedAt     *time.Time `json:"processed_at"`
	ProcessingError string     `json:"processing_error" gorm:"type:text"`
}
