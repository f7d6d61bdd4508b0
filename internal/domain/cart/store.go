// internal/domain/cart/store.go
package cart

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hoodskool/hoodskool-backend/internal/pkg/metrics"
)

const defaultQueueSize = 32

// State is a point-in-time copy of a Store
type State struct {
	Items        []CartItem `json:"items"`
	ItemCount    int        `json:"itemCount"`
	IsLoading    bool       `json:"isLoading"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
	// Revision increments every time the items are replaced from the remote store.
	Revision uint64 `json:"-"`
}

// Task is a handle on a queued store operation
type Task struct {
	done chan struct{}
}

func newTask() *Task {
	return &Task{done: make(chan struct{})}
}

// Done is closed once the operation has finished
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the operation finishes or ctx is done.
// The operation keeps running when ctx expires first.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type operation struct {
	name string
	ctx  context.Context
	run  func(ctx context.Context)
	task *Task
}

// Store holds one shopper's cart in memory and reconciles it with the
// remote gateway (authenticated) or local storage (guest).
//
// Operations are queued and executed one at a time in issuance order.
// Gateway failures are logged and counted, never returned: local state is
// left as is (load, add) or keeps its optimistic change (remove, update, clear).
type Store struct {
	gateway Gateway
	storage LocalStorage
	logger  logrus.FieldLogger
	now     func() time.Time

	mu           sync.RWMutex
	items        []CartItem
	itemCount    int
	isLoading    bool
	lastSyncedAt time.Time
	revision     uint64

	queueMu sync.RWMutex
	closed  bool
	queue   chan operation
	stopped chan struct{}
}

// NewStore creates a store and starts its worker. Call Close to stop it.
func NewStore(gateway Gateway, storage LocalStorage, logger logrus.FieldLogger) *Store {
	s := &Store{
		gateway: gateway,
		storage: storage,
		logger:  logger.WithField("component", "cart_store"),
		now:     time.Now,
		items:   []CartItem{},
		queue:   make(chan operation, defaultQueueSize),
		stopped: make(chan struct{}),
	}
	go s.worker()
	return s
}

// Close stops accepting operations, finishes the queued ones and stops the worker
func (s *Store) Close() {
	s.queueMu.Lock()
	if s.closed {
		s.queueMu.Unlock()
		<-s.stopped
		return
	}
	s.closed = true
	close(s.queue)
	s.queueMu.Unlock()

	<-s.stopped
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := State{
		Items:     CloneItems(s.items),
		ItemCount: s.itemCount,
		IsLoading: s.isLoading,
		Revision:  s.revision,
	}
	if !s.lastSyncedAt.IsZero() {
		t := s.lastSyncedAt
		state.LastSyncedAt = &t
	}
	return state
}

// Hydrate replaces the in-memory items with the deduplicated contents of local storage
func (s *Store) Hydrate(ctx context.Context) *Task {
	return s.enqueue(ctx, "hydrate", s.hydrate)
}

// LoadCart deduplicates the local items (guest) or reloads them from the gateway
func (s *Store) LoadCart(ctx context.Context, userID string) *Task {
	return s.enqueue(ctx, "load_cart", func(ctx context.Context) {
		s.loadCart(ctx, userID)
	})
}

// AddItem merges item into the cart
func (s *Store) AddItem(ctx context.Context, item CartItem, userID string) *Task {
	return s.enqueue(ctx, "add_item", func(ctx context.Context) {
		s.addItem(ctx, item, userID)
	})
}

// RemoveItem drops the line with the given id
func (s *Store) RemoveItem(ctx context.Context, cartItemID, userID string) *Task {
	return s.enqueue(ctx, "remove_item", func(ctx context.Context) {
		s.removeItem(ctx, cartItemID, userID)
	})
}

// UpdateQuantity sets the quantity of a line; quantities below 1 remove it
func (s *Store) UpdateQuantity(ctx context.Context, cartItemID string, quantity int, userID string) *Task {
	return s.enqueue(ctx, "update_quantity", func(ctx context.Context) {
		s.updateQuantity(ctx, cartItemID, quantity, userID)
	})
}

// ClearCart empties the cart
func (s *Store) ClearCart(ctx context.Context, userID string) *Task {
	return s.enqueue(ctx, "clear_cart", func(ctx context.Context) {
		s.clearCart(ctx, userID)
	})
}

// SyncWithRemote merges the current guest items into userID's remote cart
func (s *Store) SyncWithRemote(ctx context.Context, userID string) *Task {
	return s.enqueue(ctx, "sync_with_remote", func(ctx context.Context) {
		s.syncWithRemote(ctx, userID)
	})
}

// Reset drops the in-memory cart without touching remote or local storage
func (s *Store) Reset(ctx context.Context) *Task {
	return s.enqueue(ctx, "reset", func(context.Context) {
		s.mu.Lock()
		s.items = []CartItem{}
		s.itemCount = 0
		s.isLoading = false
		s.lastSyncedAt = time.Time{}
		s.mu.Unlock()
	})
}

// Flush returns a task that finishes once every operation queued before it has run
func (s *Store) Flush(ctx context.Context) *Task {
	return s.enqueue(ctx, "flush", func(context.Context) {})
}

func (s *Store) enqueue(ctx context.Context, name string, run func(ctx context.Context)) *Task {
	task := newTask()

	s.queueMu.RLock()
	defer s.queueMu.RUnlock()

	if s.closed {
		s.logger.WithField("op", name).Warn("Cart store is closed, dropping operation")
		close(task.done)
		return task
	}

	s.queue <- operation{
		name: name,
		ctx:  context.WithoutCancel(ctx),
		run:  run,
		task: task,
	}
	return task
}

func (s *Store) worker() {
	defer close(s.stopped)

	for op := range s.queue {
		metrics.RecordStoreOperation(op.name)
		op.run(op.ctx)
		close(op.task.done)
	}
}

func (s *Store) hydrate(ctx context.Context) {
	items, err := s.storage.Load(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load guest cart from local storage")
		return
	}

	s.mu.Lock()
	s.items = Dedupe(items)
	s.recount()
	s.mu.Unlock()
}

func (s *Store) loadCart(ctx context.Context, userID string) {
	if userID == "" {
		s.mu.Lock()
		s.items = Dedupe(s.items)
		s.recount()
		items := CloneItems(s.items)
		s.mu.Unlock()

		s.persistGuest(ctx, items)
		return
	}

	s.reloadRemote(ctx, userID)
}

// reloadRemote replaces local state with the remote cart. On failure the
// existing state is kept and false is returned.
func (s *Store) reloadRemote(ctx context.Context, userID string) bool {
	var items []CartItem
	err := s.call(ctx, "get_cart", userID, func() error {
		var err error
		items, err = s.gateway.GetCart(ctx, userID)
		return err
	})
	if err != nil {
		return false
	}

	s.replaceFromRemote(items)
	return true
}

func (s *Store) replaceFromRemote(items []CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = Dedupe(items)
	s.lastSyncedAt = s.now()
	s.revision++
	s.recount()
}

func (s *Store) addItem(ctx context.Context, item CartItem, userID string) {
	item = item.Normalized()

	if userID == "" {
		s.mu.Lock()
		if idx := IndexOfSameItem(s.items, item); idx >= 0 {
			existing := &s.items[idx]
			existing.Quantity = ClampQuantity(existing.Quantity+item.Quantity, existing.MaxQuantity)
		} else {
			item.ID = NewTemporaryID(s.now())
			s.items = append(s.items, item)
		}
		s.recount()
		items := CloneItems(s.items)
		s.mu.Unlock()

		s.persistGuest(ctx, items)
		return
	}

	item.ID = ""
	err := s.call(ctx, "add_to_cart", userID, func() error {
		_, err := s.gateway.AddToCart(ctx, userID, item)
		return err
	})
	if err != nil {
		return
	}

	s.reloadRemote(ctx, userID)
}

func (s *Store) removeItem(ctx context.Context, cartItemID, userID string) {
	s.mu.Lock()
	kept := make([]CartItem, 0, len(s.items))
	for _, item := range s.items {
		if item.ID != cartItemID {
			kept = append(kept, item)
		}
	}
	s.items = kept
	s.recount()
	items := CloneItems(s.items)
	s.mu.Unlock()

	if userID == "" {
		s.persistGuest(ctx, items)
		return
	}

	_ = s.call(ctx, "remove_from_cart", userID, func() error {
		return s.gateway.RemoveFromCart(ctx, userID, cartItemID)
	}, logrus.Fields{"cart_item_id": cartItemID})
}

func (s *Store) updateQuantity(ctx context.Context, cartItemID string, quantity int, userID string) {
	if quantity < 1 {
		s.removeItem(ctx, cartItemID, userID)
		return
	}

	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == cartItemID {
			quantity = ClampQuantity(quantity, s.items[i].MaxQuantity)
			s.items[i].Quantity = quantity
			break
		}
	}
	s.recount()
	items := CloneItems(s.items)
	s.mu.Unlock()

	if userID == "" {
		s.persistGuest(ctx, items)
		return
	}

	_ = s.call(ctx, "update_cart_item_quantity", userID, func() error {
		return s.gateway.UpdateCartItemQuantity(ctx, userID, cartItemID, quantity)
	}, logrus.Fields{"cart_item_id": cartItemID, "quantity": quantity})
}

func (s *Store) clearCart(ctx context.Context, userID string) {
	s.mu.Lock()
	s.items = []CartItem{}
	s.recount()
	s.mu.Unlock()

	if userID == "" {
		if err := s.storage.Clear(ctx); err != nil {
			s.logger.WithError(err).Error("Failed to clear guest cart in local storage")
		}
		return
	}

	_ = s.call(ctx, "clear_cart", userID, func() error {
		return s.gateway.ClearCart(ctx, userID)
	})
}

func (s *Store) syncWithRemote(ctx context.Context, userID string) {
	if userID == "" {
		s.logger.Warn("Cart sync requested without a user, skipping")
		return
	}

	s.mu.RLock()
	local := CloneItems(s.items)
	s.mu.RUnlock()

	var remote []CartItem
	err := s.call(ctx, "get_cart", userID, func() error {
		var err error
		remote, err = s.gateway.GetCart(ctx, userID)
		return err
	})
	if err != nil {
		return
	}

	log := s.logger.WithFields(logrus.Fields{
		"user_id":      userID,
		"local_items":  len(local),
		"remote_items": len(remote),
	})

	var pushed []CartItem
	switch {
	case len(local) == 0:
		s.replaceFromRemote(remote)
		log.Debug("Adopted remote cart, no guest items to merge")
		s.clearGuestStorage(ctx)
		return
	case len(remote) == 0:
		pushed = local
	default:
		// Same-item matches keep the remote quantity; the guest quantity is dropped.
		pushed = UniqueItems(local, remote)
	}

	if len(pushed) > 0 {
		err := s.call(ctx, "sync_cart", userID, func() error {
			return s.gateway.SyncCart(ctx, userID, stripIDs(pushed))
		}, logrus.Fields{"items": len(pushed)})
		if err != nil {
			return
		}
	}

	if !s.reloadRemote(ctx, userID) {
		return
	}

	log.WithField("pushed_items", len(pushed)).Info("Guest cart merged into user cart")
	s.clearGuestStorage(ctx)
}

// call runs a gateway request with the loading flag raised. Failures are
// logged and counted; the error is returned only so callers can stop.
func (s *Store) call(ctx context.Context, op, userID string, fn func() error, fields ...logrus.Fields) error {
	s.setLoading(true)
	err := fn()
	s.setLoading(false)

	if err != nil {
		metrics.RecordGatewayFailure(op)
		entry := s.logger.WithFields(logrus.Fields{"op": op, "user_id": userID})
		for _, f := range fields {
			entry = entry.WithFields(f)
		}
		entry.WithError(err).Error("Remote cart call failed")
	}
	return err
}

func (s *Store) setLoading(loading bool) {
	s.mu.Lock()
	s.isLoading = loading
	s.mu.Unlock()
}

func (s *Store) persistGuest(ctx context.Context, items []CartItem) {
	if err := s.storage.Save(ctx, items); err != nil {
		s.logger.WithError(err).Error("Failed to persist guest cart to local storage")
	}
}

func (s *Store) clearGuestStorage(ctx context.Context) {
	if err := s.storage.Clear(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to clear guest cart after sync")
	}
}

// recount must be called with mu held
func (s *Store) recount() {
	s.itemCount = CountItems(s.items)
}

func stripIDs(items []CartItem) []CartItem {
	out := CloneItems(items)
	for i := range out {
		out[i].ID = ""
	}
	return out
}
