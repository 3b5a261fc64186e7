package service

import (
	"context"
	"fmt"

	"card-vault/internal/core/domain"
	"card-vault/internal/core/ports"
	"card-vault/pkg/apperror"
)

// UserServiceImpl implements ports.UserService.
type UserServiceImpl struct {
	userRepo ports.UserRepository
}

// NewUserService creates a new UserServiceImpl.
func NewUserService(userRepo ports.UserRepository) *UserServiceImpl {
	return &UserServiceImpl{userRepo: userRepo}
}

// List returns a page of users together with the total count.
func (s *UserServiceImpl) List(ctx context.Context, page, pageSize int) ([]domain.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	users, total, err := s.userRepo.List(ctx, page, pageSize)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list users: %w", err))
	}
	return users, total, nil
}
