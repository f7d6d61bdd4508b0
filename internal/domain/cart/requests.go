// internal/domain/cart/requests.go
package cart

// ColorRequest is the color part of an add request
type ColorRequest struct {
	Name string `json:"name" binding:"required"`
	Hex  string `json:"hex"`
}

// AddItemRequest represents the body of an add-to-cart request
type AddItemRequest struct {
	ProductID   string        `json:"productId" binding:"required"`
	VariantID   string        `json:"variantId"`
	Name        string        `json:"name" binding:"required"`
	Price       float64       `json:"price" binding:"min=0"`
	Quantity    int           `json:"quantity" binding:"required,min=1"`
	MaxQuantity int           `json:"maxQuantity" binding:"min=0"`
	Image       string        `json:"image"`
	SKU         string        `json:"sku"`
	InStock     *bool         `json:"inStock"`
	Size        string        `json:"size"`
	Color       *ColorRequest `json:"color"`
}

// UpdateQuantityRequest represents a quantity change; zero or less removes the item
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// SyncCartRequest represents a bulk merge of items into the user's cart
type SyncCartRequest struct {
	Items []AddItemRequest `json:"items" binding:"dive"`
}

// ToItem converts the request into a normalized CartItem.
// A missing inStock flag defaults to true.
func (r AddItemRequest) ToItem() CartItem {
	item := CartItem{
		ProductID:   r.ProductID,
		VariantID:   r.VariantID,
		Name:        r.Name,
		Price:       r.Price,
		Quantity:    r.Quantity,
		MaxQuantity: r.MaxQuantity,
		Image:       r.Image,
		SKU:         r.SKU,
		InStock:     true,
		Size:        r.Size,
	}
	if r.InStock != nil {
		item.InStock = *r.InStock
	}
	if r.Color != nil {
		item.Color = &Color{Name: r.Color.Name, Hex: r.Color.Hex}
	}
	return item.Normalized()
}

// ToItems converts every request item
func (r SyncCartRequest) ToItems() []CartItem {
	items := make([]CartItem, 0, len(r.Items))
	for _, req := range r.Items {
		items = append(items, req.ToItem())
	}
	return items
}
