// internal/services/user_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kitshop/backend/internal/models"
)

// UserService resolves the chat transport's identity to an internal
// user row, creating it on first contact.
type UserService struct {
	db *gorm.DB
}

type ResolveUserRequest struct {
	TelegramID int64  `json:"telegram_id" validate:"required"`
	Username   string `json:"username,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	Phone      string `json:"phone,omitempty"`
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) Resolve(req *ResolveUserRequest) (*models.User, error) {
	now := time.Now()

	var user models.User
	err := s.db.Where("telegram_id = ?", req.TelegramID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			TelegramID:   req.TelegramID,
			Username:     req.Username,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Email:        req.Email,
			Phone:        req.Phone,
			LastActiveAt: &now,
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		return &user, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	updates := map[string]interface{}{"last_active_at": now}
	if req.Username != "" {
		updates["username"] = req.Username
	}
	if req.Email != "" {
		updates["email"] = req.Email
	}
	if req.Phone != "" {
		updates["phone"] = req.Phone
	}

	if err := s.db.Model(&user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return &user, nil
}

func (s *UserService) GetByTelegramID(telegramID int64) (*models.User, error) {
	var user models.User
	if err := s.db.Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}
