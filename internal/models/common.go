// internal/models/common.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns the id client-side so the same models work
// against Postgres and the sqlite test database.
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Enums
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusPaid     OrderStatus = "paid"
	OrderStatusFailed   OrderStatus = "failed"
	OrderStatusExpired  OrderStatus = "expired"
	OrderStatusRefunded OrderStatus = "refunded"
)

// IsTerminal reports whether no further transition is accepted.
func (s OrderStatus) IsTerminal() bool {
	return s != OrderStatusPending
}

type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodERIP PaymentMethod = "erip"
)

type FileType string

const (
	FileTypeDocument FileType = "document"
	FileTypeVideo    FileType = "video"
	FileTypePhoto    FileType = "photo"
)
