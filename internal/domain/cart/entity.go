// internal/domain/cart/entity.go
package cart

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidItem  = errors.New("cart: invalid item")
	ErrItemNotFound = errors.New("cart: item not found")
	ErrUserRequired = errors.New("cart: user id required")
)

// Color is the colorway selected for a line item
type Color struct {
	Name string `json:"name"`
	Hex  string `json:"hex,omitempty"`
}

// CartItem represents one line item in a cart.
// ID is assigned by the remote store, or is a temporary token for guest carts.
type CartItem struct {
	ID          string  `json:"id,omitempty"`
	ProductID   string  `json:"productId"`
	VariantID   string  `json:"variantId,omitempty"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	MaxQuantity int     `json:"maxQuantity"`
	Image       string  `json:"image,omitempty"`
	SKU         string  `json:"sku,omitempty"`
	InStock     bool    `json:"inStock"`
	Size        string  `json:"size,omitempty"`
	Color       *Color  `json:"color,omitempty"`
}

// ColorName returns the color name or "" when no color is set
func (i CartItem) ColorName() string {
	if i.Color == nil {
		return ""
	}
	return i.Color.Name
}

// SameItem reports whether both items describe the same purchasable
// configuration: product, variant, size and color name all match.
// An absent attribute only matches another absent attribute.
func (i CartItem) SameItem(other CartItem) bool {
	return i.key() == other.key()
}

// Normalized returns a copy with surrounding whitespace trimmed, empty
// optional attributes dropped and the quantity clamped.
func (i CartItem) Normalized() CartItem {
	out := i
	out.ID = strings.TrimSpace(i.ID)
	out.ProductID = strings.TrimSpace(i.ProductID)
	out.VariantID = strings.TrimSpace(i.VariantID)
	out.Name = strings.TrimSpace(i.Name)
	out.Image = strings.TrimSpace(i.Image)
	out.SKU = strings.TrimSpace(i.SKU)
	out.Size = strings.TrimSpace(i.Size)
	out.Color = nil

	if i.Color != nil {
		name := strings.TrimSpace(i.Color.Name)
		hex := strings.TrimSpace(i.Color.Hex)
		if name != "" || hex != "" {
			out.Color = &Color{Name: name, Hex: hex}
		}
	}

	if out.MaxQuantity < 0 {
		out.MaxQuantity = 0
	}
	out.Quantity = ClampQuantity(i.Quantity, out.MaxQuantity)
	return out
}

// Validate checks the fields the remote store requires
func (i CartItem) Validate() error {
	if strings.TrimSpace(i.ProductID) == "" {
		return fmt.Errorf("%w: product id is required", ErrInvalidItem)
	}
	if i.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidItem)
	}
	if i.Price < 0 {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidItem)
	}
	return nil
}

// ClampQuantity bounds quantity to [1, maxQuantity].
// A maxQuantity of zero or less means stock is unknown and only the lower bound applies.
func ClampQuantity(quantity, maxQuantity int) int {
	if maxQuantity > 0 && quantity > maxQuantity {
		quantity = maxQuantity
	}
	if quantity < 1 {
		quantity = 1
	}
	return quantity
}

// CountItems returns the sum of all item quantities
func CountItems(items []CartItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}

// IndexOfSameItem returns the position of the first item that is the same
// logical item as target, or -1.
func IndexOfSameItem(items []CartItem, target CartItem) int {
	k := target.key()
	for i := range items {
		if items[i].key() == k {
			return i
		}
	}
	return -1
}

// Dedupe folds items that share a logical identity into the first one seen,
// summing quantities and clamping to the surviving item's maxQuantity.
// Order of first appearance is preserved.
func Dedupe(items []CartItem) []CartItem {
	out := make([]CartItem, 0, len(items))
	index := make(map[itemKey]int, len(items))

	for _, item := range items {
		k := item.key()
		if pos, ok := index[k]; ok {
			survivor := &out[pos]
			survivor.Quantity = ClampQuantity(survivor.Quantity+item.Quantity, survivor.MaxQuantity)
			continue
		}
		item.Quantity = ClampQuantity(item.Quantity, item.MaxQuantity)
		item.Color = cloneColor(item.Color)
		index[k] = len(out)
		out = append(out, item)
	}

	return out
}

// UniqueItems returns the items of candidates that have no same-item match in existing
func UniqueItems(candidates, existing []CartItem) []CartItem {
	present := make(map[itemKey]struct{}, len(existing))
	for _, item := range existing {
		present[item.key()] = struct{}{}
	}

	out := []CartItem{}
	for _, item := range candidates {
		if _, ok := present[item.key()]; ok {
			continue
		}
		out = append(out, item)
	}
	return out
}

// CloneItems deep-copies a slice of items
func CloneItems(items []CartItem) []CartItem {
	out := make([]CartItem, len(items))
	for i, item := range items {
		item.Color = cloneColor(item.Color)
		out[i] = item
	}
	return out
}

// NewTemporaryID returns a client-side id for guest cart items
func NewTemporaryID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("temp_%d_%s", now.UnixMilli(), random[:8])
}

// IsTemporaryID reports whether id was issued by NewTemporaryID
func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, "temp_")
}

type itemKey struct {
	productID string
	variantID string
	size      string
	color     string
}

func (i CartItem) key() itemKey {
	return itemKey{
		productID: i.ProductID,
		variantID: i.VariantID,
		size:      i.Size,
		color:     i.ColorName(),
	}
}

func cloneColor(c *Color) *Color {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
