// internal/models/user.go
package models

import "time"

// User maps a chat identity to an internal id. The bot sends its
// telegram id with every request; everything else keys off the uuid.
type User struct {
	BaseModel
	TelegramID   int64      `json:"telegram_id" gorm:"uniqueIndex;not null"`
	Username     string     `json:"username" gorm:"size:255"`
	FirstName    string     `json:"first_name" gorm:"size:255"`
	LastName     string     `json:"last_name" gorm:"size:255"`
	Email        string     `json:"email" gorm:"size:255"`
	Phone        string     `json:"phone" gorm:"size:50"`
	IsBlocked    bool       `json:"is_blocked" gorm:"default:false"`
	LastActiveAt *time.Time `json:"last_active_at"`

	// Relationships
	Orders   []Order       `json:"orders,omitempty" gorm:"foreignKey:UserID"`
	Products []UserProduct `json:"products,omitempty" gorm:"foreignKey:UserID"`
}
