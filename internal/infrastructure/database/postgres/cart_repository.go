// internal/infrastructure/database/postgres/cart_repository.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hoodskool/hoodskool-backend/internal/domain/cart"
)

// CartItemRecord is a cart line stored in PostgreSQL for authenticated users
type CartItemRecord struct {
	ID          string    `gorm:"type:varchar(36);primaryKey"`
	UserID      string    `gorm:"type:varchar(128);not null;index"`
	ProductID   string    `gorm:"type:varchar(128);not null"`
	VariantID   string    `gorm:"type:varchar(128)"`
	Name        string    `gorm:"type:varchar(255)"`
	Price       float64   `gorm:"not null;default:0"`
	Quantity    int       `gorm:"not null"`
	MaxQuantity int       `gorm:"not null;default:0"`
	Image       string    `gorm:"type:text"`
	SKU         string    `gorm:"type:varchar(100)"`
	InStock     bool      `gorm:"not null"`
	Size        string    `gorm:"type:varchar(50)"`
	ColorName   string    `gorm:"type:varchar(100)"`
	ColorHex    string    `gorm:"type:varchar(16)"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName overrides the table name
func (CartItemRecord) TableName() string {
	return "cart_items"
}

// CartRepository implements cart.Repository with gorm
type CartRepository struct {
	db *gorm.DB
}

var _ cart.Repository = (*CartRepository)(nil)

// NewCartRepository creates a new postgres cart repository
func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) ListItems(ctx context.Context, userID string) ([]cart.CartItem, error) {
	var records []CartItemRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}

	items := make([]cart.CartItem, 0, len(records))
	for _, record := range records {
		items = append(items, record.toDomain())
	}
	return items, nil
}

func (r *CartRepository) GetItem(ctx context.Context, userID, cartItemID string) (cart.CartItem, error) {
	var record CartItemRecord
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", cartItemID, userID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return cart.CartItem{}, cart.ErrItemNotFound
		}
		return cart.CartItem{}, fmt.Errorf("failed to get cart item: %w", err)
	}
	return record.toDomain(), nil
}

func (r *CartRepository) CreateItem(ctx context.Context, userID string, item cart.CartItem) (cart.CartItem, error) {
	record := cartItemRecordFromDomain(userID, item)
	record.ID = uuid.NewString()

	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return cart.CartItem{}, fmt.Errorf("failed to create cart item: %w", err)
	}
	return record.toDomain(), nil
}

func (r *CartRepository) UpdateQuantity(ctx context.Context, userID, cartItemID string, quantity int) error {
	result := r.db.WithContext(ctx).
		Model(&CartItemRecord{}).
		Where("id = ? AND user_id = ?", cartItemID, userID).
		Updates(map[string]interface{}{
			"quantity":   quantity,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update cart item quantity: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return cart.ErrItemNotFound
	}
	return nil
}

func (r *CartRepository) DeleteItem(ctx context.Context, userID, cartItemID string) error {
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", cartItemID, userID).
		Delete(&CartItemRecord{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	return nil
}

func (r *CartRepository) DeleteAll(ctx context.Context, userID string) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&CartItemRecord{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func cartItemRecordFromDomain(userID string, item cart.CartItem) CartItemRecord {
	record := CartItemRecord{
		ID:          item.ID,
		UserID:      userID,
		ProductID:   item.ProductID,
		VariantID:   item.VariantID,
		Name:        item.Name,
		Price:       item.Price,
		Quantity:    item.Quantity,
		MaxQuantity: item.MaxQuantity,
		Image:       item.Image,
		SKU:         item.SKU,
		InStock:     item.InStock,
		Size:        item.Size,
	}
	if item.Color != nil {
		record.ColorName = item.Color.Name
		record.ColorHex = item.Color.Hex
	}
	return record
}

func (r CartItemRecord) toDomain() cart.CartItem {
	item := cart.CartItem{
		ID:          r.ID,
		ProductID:   strings.TrimSpace(r.ProductID),
		VariantID:   strings.TrimSpace(r.VariantID),
		Name:        r.Name,
		Price:       r.Price,
		Quantity:    r.Quantity,
		MaxQuantity: r.MaxQuantity,
		Image:       r.Image,
		SKU:         r.SKU,
		InStock:     r.InStock,
		Size:        strings.TrimSpace(r.Size),
	}
	if r.ColorName != "" || r.ColorHex != "" {
		item.Color = &cart.Color{Name: r.ColorName, Hex: r.ColorHex}
	}
	return item
}
