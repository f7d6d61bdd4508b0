// internal/domain/cart/ports.go
package cart

import "context"

// Gateway is the remote cart API the Store reconciles against.
// Service implements it on top of a Repository.
type Gateway interface {
	GetCart(ctx context.Context, userID string) ([]CartItem, error)
	// AddToCart merges item into an existing same-item line or inserts it,
	// returning the id of the affected line.
	AddToCart(ctx context.Context, userID string, item CartItem) (string, error)
	UpdateCartItemQuantity(ctx context.Context, userID, cartItemID string, quantity int) error
	RemoveFromCart(ctx context.Context, userID, cartItemID string) error
	ClearCart(ctx context.Context, userID string) error
	// SyncCart bulk merges items into the user's cart.
	SyncCart(ctx context.Context, userID string, items []CartItem) error
}

// LocalStorage persists a guest item list under a single key.
// Only the items are stored; flags and counters are derived on load.
type LocalStorage interface {
	Load(ctx context.Context) ([]CartItem, error)
	Save(ctx context.Context, items []CartItem) error
	Clear(ctx context.Context) error
}

// Repository is the persistence port for authenticated carts.
// GetItem and UpdateQuantity return ErrItemNotFound for unknown ids;
// DeleteItem on an unknown id is not an error.
type Repository interface {
	ListItems(ctx context.Context, userID string) ([]CartItem, error)
	GetItem(ctx context.Context, userID, cartItemID string) (CartItem, error)
	CreateItem(ctx context.Context, userID string, item CartItem) (CartItem, error)
	UpdateQuantity(ctx context.Context, userID, cartItemID string, quantity int) error
	DeleteItem(ctx context.Context, userID, cartItemID string) error
	DeleteAll(ctx context.Context, userID string) error
}
