// internal/models/product.go
package models

import (
	"github.com/lib/pq"
)

// Product is an immutable catalog entry. Price is stored in kopecks;
// FileID is the opaque reference to the deliverable content (telegram
// file id or S3 object key). Only IsActive is toggled at runtime.
type Product struct {
	BaseModel
	Slug         string         `json:"slug" gorm:"size:100;uniqueIndex;not null"`
	Name         string         `json:"name" gorm:"size:255;not null"`
	Description  string         `json:"description" gorm:"type:text"`
	PriceKopecks int64          `json:"price_kopecks" gorm:"not null"`
	Currency     string         `json:"currency" gorm:"size:3;default:'BYN';not null"`
	FileID       string         `json:"file_id" gorm:"size:255"`
	FileType     FileType       `json:"file_type" gorm:"type:varchar(50)"`
	Tags         pq.StringArray `json:"tags" gorm:"type:text[]"`
	IsActive     bool           `json:"is_active" gorm:"default:true;not null"`
	SortOrder    int            `json:"sort_order" gorm:"default:0;not null"`

	// Relationships
	Orders []Order `json:"orders,omitempty" gorm:"foreignKey:ProductID"`
}

func (p *Product) IsAvailable() bool {
	return p.IsActive
}
