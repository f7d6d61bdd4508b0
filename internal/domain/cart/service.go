// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Service is the server-side cart API backing the remote gateway
type Service struct {
	repo   Repository
	logger logrus.FieldLogger
}

var _ Gateway = (*Service)(nil)

// NewService creates a new cart service
func NewService(repo Repository, logger logrus.FieldLogger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.WithField("component", "cart_service"),
	}
}

// GetCart returns the user's cart lines in insertion order
func (s *Service) GetCart(ctx context.Context, userID string) ([]CartItem, error) {
	userID, err := requireUser(userID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve user cart: %w", err)
	}
	if items == nil {
		items = []CartItem{}
	}
	return items, nil
}

// AddToCart merges item into an existing same-item line or inserts a new one
func (s *Service) AddToCart(ctx context.Context, userID string, item CartItem) (string, error) {
	userID, err := requireUser(userID)
	if err != nil {
		return "", err
	}

	if err := item.Validate(); err != nil {
		return "", err
	}

	existing, err := s.repo.ListItems(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve user cart: %w", err)
	}

	return s.mergeOrInsert(ctx, userID, existing, item.Normalized())
}

// UpdateCartItemQuantity sets a line's quantity clamped to its stock limit.
// A quantity below 1 removes the line.
func (s *Service) UpdateCartItemQuantity(ctx context.Context, userID, cartItemID string, quantity int) error {
	userID, err := requireUser(userID)
	if err != nil {
		return err
	}

	if quantity < 1 {
		return s.RemoveFromCart(ctx, userID, cartItemID)
	}

	item, err := s.repo.GetItem(ctx, userID, cartItemID)
	if err != nil {
		return fmt.Errorf("failed to load cart item %s: %w", cartItemID, err)
	}

	quantity = ClampQuantity(quantity, item.MaxQuantity)
	if err := s.repo.UpdateQuantity(ctx, userID, cartItemID, quantity); err != nil {
		return fmt.Errorf("failed to update cart item %s: %w", cartItemID, err)
	}
	return nil
}

// RemoveFromCart deletes a line. Unknown ids are not an error.
func (s *Service) RemoveFromCart(ctx context.Context, userID, cartItemID string) error {
	userID, err := requireUser(userID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteItem(ctx, userID, cartItemID); err != nil {
		return fmt.Errorf("failed to remove cart item %s: %w", cartItemID, err)
	}
	return nil
}

// ClearCart removes every line of the user's cart
func (s *Service) ClearCart(ctx context.Context, userID string) error {
	userID, err := requireUser(userID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteAll(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// SyncCart merges each item into the user's cart. Invalid items are skipped.
func (s *Service) SyncCart(ctx context.Context, userID string, items []CartItem) error {
	userID, err := requireUser(userID)
	if err != nil {
		return err
	}

	existing, err := s.repo.ListItems(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to retrieve user cart: %w", err)
	}

	merged := 0
	for _, item := range items {
		if err := item.Validate(); err != nil {
			s.logger.WithFields(logrus.Fields{
				"user_id":    userID,
				"product_id": item.ProductID,
			}).WithError(err).Warn("Skipping invalid item during cart sync")
			continue
		}

		item = item.Normalized()
		id, err := s.mergeOrInsert(ctx, userID, existing, item)
		if err != nil {
			return err
		}

		if idx := IndexOfSameItem(existing, item); idx >= 0 {
			existing[idx].Quantity = ClampQuantity(existing[idx].Quantity+item.Quantity, existing[idx].MaxQuantity)
		} else {
			item.ID = id
			existing = append(existing, item)
		}
		merged++
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"received": len(items),
		"merged":   merged,
	}).Info("Cart synced")
	return nil
}

func (s *Service) mergeOrInsert(ctx context.Context, userID string, existing []CartItem, item CartItem) (string, error) {
	if idx := IndexOfSameItem(existing, item); idx >= 0 {
		line := existing[idx]
		quantity := ClampQuantity(line.Quantity+item.Quantity, line.MaxQuantity)
		if err := s.repo.UpdateQuantity(ctx, userID, line.ID, quantity); err != nil {
			return "", fmt.Errorf("failed to update cart item %s: %w", line.ID, err)
		}
		return line.ID, nil
	}

	item.ID = ""
	created, err := s.repo.CreateItem(ctx, userID, item)
	if err != nil {
		return "", fmt.Errorf("failed to add item to cart: %w", err)
	}
	return created.ID, nil
}

func requireUser(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", ErrUserRequired
	}
	return userID, nil
}

// IsNotFound reports whether err means the cart line does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound)
}
