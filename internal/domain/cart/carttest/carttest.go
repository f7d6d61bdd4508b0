// Package carttest provides in-memory cart ports for tests.
package carttest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hoodskool/hoodskool-backend/internal/domain/cart"
)

// ErrUnavailable is returned by FailingGateway for failing operations
var ErrUnavailable = errors.New("carttest: gateway unavailable")

// MemoryRepository implements cart.Repository with per-user slices
type MemoryRepository struct {
	mu     sync.Mutex
	carts  map[string][]cart.CartItem
	nextID int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{carts: map[string][]cart.CartItem{}}
}

// Seed stores items for userID, assigning ids to items that lack one
func (r *MemoryRepository) Seed(userID string, items ...cart.CartItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		if item.ID == "" {
			item.ID = r.newID()
		}
		r.carts[userID] = append(r.carts[userID], item)
	}
}

// Items returns a copy of userID's stored cart
func (r *MemoryRepository) Items(userID string) []cart.CartItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cart.CloneItems(r.carts[userID])
}

func (r *MemoryRepository) ListItems(_ context.Context, userID string) ([]cart.CartItem, error) {
	return r.Items(userID), nil
}

func (r *MemoryRepository) GetItem(_ context.Context, userID, cartItemID string) (cart.CartItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.carts[userID] {
		if item.ID == cartItemID {
			return item, nil
		}
	}
	return cart.CartItem{}, cart.ErrItemNotFound
}

func (r *MemoryRepository) CreateItem(_ context.Context, userID string, item cart.CartItem) (cart.CartItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item.ID = r.newID()
	r.carts[userID] = append(r.carts[userID], item)
	return item, nil
}

func (r *MemoryRepository) UpdateQuantity(_ context.Context, userID, cartItemID string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.carts[userID]
	for i := range items {
		if items[i].ID == cartItemID {
			items[i].Quantity = quantity
			return nil
		}
	}
	return cart.ErrItemNotFound
}

func (r *MemoryRepository) DeleteItem(_ context.Context, userID, cartItemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.carts[userID]
	for i := range items {
		if items[i].ID == cartItemID {
			r.carts[userID] = append(items[:i:i], items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *MemoryRepository) DeleteAll(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, userID)
	return nil
}

func (r *MemoryRepository) newID() string {
	r.nextID++
	return fmt.Sprintf("item-%d", r.nextID)
}

// MemoryStorage implements cart.LocalStorage in memory
type MemoryStorage struct {
	mu      sync.Mutex
	items   []cart.CartItem
	saves   int
	cleared bool
	Err     error
}

func NewMemoryStorage(items ...cart.CartItem) *MemoryStorage {
	return &MemoryStorage{items: cart.CloneItems(items)}
}

func (m *MemoryStorage) Load(context.Context) ([]cart.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return cart.CloneItems(m.items), nil
}

func (m *MemoryStorage) Save(_ context.Context, items []cart.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.items = cart.CloneItems(items)
	m.saves++
	return nil
}

func (m *MemoryStorage) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.items = nil
	m.cleared = true
	return nil
}

// Stored returns a copy of what was last saved
func (m *MemoryStorage) Stored() []cart.CartItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cart.CloneItems(m.items)
}

// Cleared reports whether Clear was called
func (m *MemoryStorage) Cleared() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cleared
}

// FailingGateway wraps a gateway and fails the named operations.
// Operation names match the cart.Gateway method names.
type FailingGateway struct {
	cart.Gateway

	mu    sync.Mutex
	fail  map[string]bool
	calls map[string]int
}

func NewFailingGateway(inner cart.Gateway, failing ...string) *FailingGateway {
	g := &FailingGateway{Gateway: inner, fail: map[string]bool{}, calls: map[string]int{}}
	for _, op := range failing {
		g.fail[op] = true
	}
	return g
}

// SetFailing toggles failure for op
func (g *FailingGateway) SetFailing(op string, failing bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail[op] = failing
}

// Calls returns how many times op was invoked
func (g *FailingGateway) Calls(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

func (g *FailingGateway) check(op string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[op]++
	if g.fail[op] {
		return ErrUnavailable
	}
	return nil
}

func (g *FailingGateway) GetCart(ctx context.Context, userID string) ([]cart.CartItem, error) {
	if err := g.check("GetCart"); err != nil {
		return nil, err
	}
	return g.Gateway.GetCart(ctx, userID)
}

func (g *FailingGateway) AddToCart(ctx context.Context, userID string, item cart.CartItem) (string, error) {
	if err := g.check("AddToCart"); err != nil {
		return "", err
	}
	return g.Gateway.AddToCart(ctx, userID, item)
}

func (g *FailingGateway) UpdateCartItemQuantity(ctx context.Context, userID, cartItemID string, quantity int) error {
	if err := g.check("UpdateCartItemQuantity"); err != nil {
		return err
	}
	return g.Gateway.UpdateCartItemQuantity(ctx, userID, cartItemID, quantity)
}

func (g *FailingGateway) RemoveFromCart(ctx context.Context, userID, cartItemID string) error {
	if err := g.check("RemoveFromCart"); err != nil {
		return err
	}
	return g.Gateway.RemoveFromCart(ctx, userID, cartItemID)
}

func (g *FailingGateway) ClearCart(ctx context.Context, userID string) error {
	if err := g.check("ClearCart"); err != nil {
		return err
	}
	return g.Gateway.ClearCart(ctx, userID)
}

func (g *FailingGateway) SyncCart(ctx context.Context, userID string, items []cart.CartItem) error {
	if err := g.check("SyncCart"); err != nil {
		return err
	}
	return g.Gateway.SyncCart(ctx, userID, items)
}
