// internal/services/admin_service.go
package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kitshop/backend/internal/models"
	"github.com/kitshop/backend/internal/utils"
)

type AdminService struct {
	db *gorm.DB
}

type AdminDashboardStats struct {
	TotalUsers         int64 `json:"total_users"`
	NewUsersThisMonth  int64 `json:"new_users_this_month"`
	TotalOrders        int64 `json:"total_orders"`
	PendingOrders      int64 `json:"pending_orders"`
	PaidOrders         int64 `json:"paid_orders"`
	FailedOrders       int64 `json:"failed_orders"`
	ExpiredOrders      int64 `json:"expired_orders"`
	RevenueKopecks     int64 `json:"revenue_kopecks"`
	MonthlyRevenue     int64 `json:"monthly_revenue_kopecks"`
	GrantsTotal        int64 `json:"grants_total"`
	GrantsUndelivered  int64 `json:"grants_undelivered"`
}

type AdminOrderFilter struct {
	utils.PaginationParams
	Status *models.OrderStatus `json:"status,omitempty"`
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

func (s *AdminService) GetDashboardStats() (*AdminDashboardStats, error) {
	stats := &AdminDashboardStats{}
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	// User statistics
	s.db.Model(&models.User{}).Count(&stats.TotalUsers)
	s.db.Model(&models.User{}).Where("created_at >= ?", monthStart).Count(&stats.NewUsersThisMonth)

	// Order statistics
	s.db.Model(&models.Order{}).Count(&stats.TotalOrders)
	s.db.Model(&models.Order{}).Where("status = ?", models.OrderStatusPending).Count(&stats.PendingOrders)
	s.db.Model(&models.Order{}).Where("status = ?", models.OrderStatusPaid).Count(&stats.PaidOrders)
	s.db.Model(&models.Order{}).Where("status = ?", models.OrderStatusFailed).Count(&stats.FailedOrders)
	s.db.Model(&models.Order{}).Where("status = ?", models.OrderStatusExpired).Count(&stats.ExpiredOrders)

	// Revenue statistics
	s.db.Model(&models.Order{}).
		Where("status = ?", models.OrderStatusPaid).
		Select("COALESCE(SUM(amount_kopecks), 0)").Scan(&stats.RevenueKopecks)

	s.db.Model(&models.Order{}).
		Where("status = ? AND paid_at >= ?", models.OrderStatusPaid, monthStart).
		Select("COALESCE(SUM(amount_kopecks), 0)").Scan(&stats.MonthlyRevenue)

	// Delivery statistics
	s.db.Model(&models.UserProduct{}).Count(&stats.GrantsTotal)
	s.db.Model(&models.UserProduct{}).Where("file_delivered = ?", false).Count(&stats.GrantsUndelivered)

	return stats, nil
}

func (s *AdminService) GetOrders(filter AdminOrderFilter) ([]models.Order, int64, error) {
	query := s.db.Model(&models.Order{}).
		Preload("User").Preload("Product")

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	allowedSortFields := []string{"created_at", "amount_kopecks", "status", "paid_at"}
	query = utils.ApplySort(query, filter.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, filter.PaginationParams)

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch orders: %w", err)
	}

	return orders, total, nil
}
