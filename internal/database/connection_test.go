// internal/database/connection_test.go
package database

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kitshop/backend/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}))
	return db
}

func TestSeedProductsIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, SeedProducts(db))
	require.NoError(t, SeedProducts(db))

	var count int64
	db.Model(&models.Product{}).Count(&count)
	assert.Equal(t, int64(3), count)

	var kit models.Product
	require.NoError(t, db.First(&kit, "slug = ?", "kit_full").Error)
	assert.Equal(t, int64(7900), kit.PriceKopecks)
	assert.Equal(t, "BYN", kit.Currency)
}

func TestWithTransactionCommits(t *testing.T) {
	db := openTestDB(t)

	err := WithTransaction(db, func(tx *gorm.DB) error {
		return tx.Create(&models.Product{
			Slug: "kit_tx", Name: "TX Kit", PriceKopecks: 100, Currency: "BYN",
		}).Error
	})

	require.NoError(t, err)

	var count int64
	db.Model(&models.Product{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	db := openTestDB(t)

	err := WithTransaction(db, func(tx *gorm.DB) error {
		if err := tx.Create(&models.Product{
			Slug: "kit_tx", Name: "TX Kit", PriceKopecks: 100, Currency: "BYN",
		}).Error; err != nil {
			return err
		}
		return errors.New("seed interrupted")
	})

	require.Error(t, err)

	var count int64
	db.Model(&models.Product{}).Count(&count)
	assert.Equal(t, int64(0), count)
}
