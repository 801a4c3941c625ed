// internal/services/catalog_service.go
package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/kitshop/backend/internal/models"
)

// CatalogService is a read-mostly lookup over the product table. The
// order service treats any storage failure here as non-retryable for
// the current request.
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

func (s *CatalogService) GetBySlug(slug string) (*models.Product, error) {
	var product models.Product
	if err := s.db.Where("slug = ?", slug).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return &product, nil
}

func (s *CatalogService) ListActive() ([]models.Product, error) {
	var products []models.Product
	if err := s.db.Where("is_active = ?", true).
		Order("sort_order ASC, created_at ASC").
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// SetActive toggles catalog availability; the only runtime mutation
// a product sees.
func (s *CatalogService) SetActive(slug string, active bool) (*models.Product, error) {
	product, err := s.GetBySlug(slug)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(product).Update("is_active", active).Error; err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	product.IsActive = active
	return product, nil
}
