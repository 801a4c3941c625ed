// internal/services/delivery_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/kitshop/backend/internal/models"
)

// DeliveryService exclusively owns grant delivery bookkeeping. Every
// attempt bumps the counter, delivered or not; the flag flips only
// once the content reference is confirmed non-empty. Re-delivery is
// safe: the same reference is returned and the counter bumps again.
type DeliveryService struct {
	db      *gorm.DB
	catalog *CatalogService
}

// DeliveryResult carries the opaque content reference; transmission
// of the bytes is the caller's concern.
type DeliveryResult struct {
	FileID   string          `json:"file_id"`
	FileType models.FileType `json:"file_type"`
}

func NewDeliveryService(db *gorm.DB, catalog *CatalogService) *DeliveryService {
	return &DeliveryService{db: db, catalog: catalog}
}

func (s *DeliveryService) Deliver(userID uuid.UUID, productSlug string) (*DeliveryResult, error) {
	product, err := s.catalog.GetBySlug(productSlug)
	if err != nil {
		return nil, err
	}

	var grant models.UserProduct
	if err := s.db.Where("user_id = ? AND product_id = ?", userID, product.ID).
		First(&grant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotEntitled
		}
		return nil, fmt.Errorf("failed to load grant: %w", err)
	}

	// Attempt bookkeeping is unconditional for abuse and diagnostic
	// visibility.
	now := time.Now()
	if err := s.db.Model(&grant).Updates(map[string]interface{}{
		"delivery_attempts":     gorm.Expr("delivery_attempts + 1"),
		"last_delivery_attempt": now,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to record delivery attempt: %w", err)
	}

	if product.FileID == "" {
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"product": productSlug,
		}).Error("Granted product has no content reference")
		return nil, ErrContentMissing
	}

	if !grant.FileDelivered {
		if err := s.db.Model(&grant).Update("file_delivered", true).Error; err != nil {
			return nil, fmt.Errorf("failed to mark grant delivered: %w", err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"product": productSlug,
	}).Info("Content delivered")

	return &DeliveryResult{
		FileID:   product.FileID,
		FileType: product.FileType,
	}, nil
}

// Grants returns the user's grants with product data, for the bot's
// "my purchases" view.
func (s *DeliveryService) Grants(userID uuid.UUID) ([]models.UserProduct, error) {
	var grants []models.UserProduct
	if err := s.db.Where("user_id = ?", userID).
		Preload("Product").
		Order("purchased_at DESC").
		Find(&grants).Error; err != nil {
		return nil, fmt.Errorf("failed to load grants: %w", err)
	}
	return grants, nil
}
