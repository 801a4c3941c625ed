// internal/database/connection.go
package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kitshop/backend/internal/config"
	"github.com/kitshop/backend/internal/models"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return db, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Order{},
		&models.UserProduct{},
		&models.WebhookEvent{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// Order indexes: the transaction id is the join key for both
		// reconciliation paths, status feeds expiry sweeps and admin
		// reporting.
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_bepaid_transaction_id ON orders(bepaid_transaction_id) WHERE bepaid_transaction_id IS NOT NULL",
		"CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders(user_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)",

		// Grant indexes
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_user_products_user_product ON user_products(user_id, product_id)",
		"CREATE INDEX IF NOT EXISTS idx_user_products_order ON user_products(order_id)",

		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_active_sort ON products(is_active, sort_order)",

		// Webhook audit
		"CREATE INDEX IF NOT EXISTS idx_webhook_events_transaction ON webhook_events(transaction_id)",
		"CREATE INDEX IF NOT EXISTS idx_webhook_events_created ON webhook_events(created_at DESC)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// Seed initial data
func SeedProducts(db *gorm.DB) error {
	log.Println("Seeding catalog...")

	products := []models.Product{
		{
			Slug:         "kit_child",
			Name:         "Child Kit",
			Description:  "PDF guide and video course for parents of children aged 4-11",
			PriceKopecks: 4900,
			Currency:     "BYN",
			FileType:     models.FileTypeDocument,
			Tags:         []string{"child", "pdf"},
			IsActive:     true,
			SortOrder:    1,
		},
		{
			Slug:         "kit_teen",
			Name:         "Teen Kit",
			Description:  "PDF guide and video course for parents of teenagers",
			PriceKopecks: 4900,
			Currency:     "BYN",
			FileType:     models.FileTypeDocument,
			Tags:         []string{"teen", "pdf"},
			IsActive:     true,
			SortOrder:    2,
		},
		{
			Slug:         "kit_full",
			Name:         "Full Bundle",
			Description:  "Both kits plus the bonus video library",
			PriceKopecks: 7900,
			Currency:     "BYN",
			FileType:     models.FileTypeVideo,
			Tags:         []string{"child", "teen", "video"},
			IsActive:     true,
			SortOrder:    3,
		},
	}

	// All-or-nothing so a mid-seed failure never leaves a partial
	// catalog behind.
	err := WithTransaction(db, func(tx *gorm.DB) error {
		for _, product := range products {
			var count int64
			tx.Model(&models.Product{}).Where("slug = ?", product.Slug).Count(&count)
			if count == 0 {
				if err := tx.Create(&product).Error; err != nil {
					return fmt.Errorf("failed to seed product %s: %w", product.Slug, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Println("Catalog seeding completed")
	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
