package services

import (
	"context"
	"fmt"

	"storefront/internal/domain"
)

// UserService backs the admin user screens.
type UserService struct {
	Users  UserStore
	Orders OrderStore
}

func NewUserService(users UserStore, orders OrderStore) *UserService {
	return &UserService{Users: users, Orders: orders}
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.Users.List(ctx)
}

// Delete cancels the user's open orders, then removes the account with its
// sessions, cart and wishlist. Deleting an unknown id is not an error.
func (s *UserService) Delete(ctx context.Context, id string) (cancelled int, err error) {
	cancelled, err = s.Orders.CancelForUser(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("cancel orders: %w", err)
	}
	if err := s.Users.DeleteCascade(ctx, id); err != nil {
		return cancelled, fmt.Errorf("delete user %s: %w", id, err)
	}
	return cancelled, nil
}
