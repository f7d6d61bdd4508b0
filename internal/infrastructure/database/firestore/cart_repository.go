// internal/infrastructure/database/firestore/cart_repository.go
package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hoodskool/hoodskool-backend/internal/domain/cart"
)

const DefaultCartsCollection = "carts"

// CartRepository implements cart.Repository on Firestore.
//
// Layout: <collection>/{userId}/items/{cartItemId}. The parent document is
// never written; the items subcollection is the cart.
type CartRepository struct {
	client     *firestore.Client
	collection string
	now        func() time.Time
}

var _ cart.Repository = (*CartRepository)(nil)

func NewCartRepository(client *firestore.Client, collection string) *CartRepository {
	if strings.TrimSpace(collection) == "" {
		collection = DefaultCartsCollection
	}
	return &CartRepository{client: client, collection: collection, now: time.Now}
}

func (r *CartRepository) items(userID string) *firestore.CollectionRef {
	return r.client.Collection(r.collection).Doc(userID).Collection("items")
}

func (r *CartRepository) ListItems(ctx context.Context, userID string) ([]cart.CartItem, error) {
	snaps, err := r.items(userID).OrderBy("addedAt", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return []cart.CartItem{}, nil
		}
		return nil, fmt.Errorf("cart_repository_fs: list items: %w", err)
	}

	out := make([]cart.CartItem, 0, len(snaps))
	for _, snap := range snaps {
		var doc cartItemDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("cart_repository_fs: decode item %s: %w", snap.Ref.ID, err)
		}
		out = append(out, doc.toDomain(snap.Ref.ID))
	}
	return out, nil
}

func (r *CartRepository) GetItem(ctx context.Context, userID, cartItemID string) (cart.CartItem, error) {
	if strings.TrimSpace(cartItemID) == "" {
		return cart.CartItem{}, cart.ErrItemNotFound
	}

	snap, err := r.items(userID).Doc(cartItemID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return cart.CartItem{}, cart.ErrItemNotFound
		}
		return cart.CartItem{}, fmt.Errorf("cart_repository_fs: get item: %w", err)
	}

	var doc cartItemDoc
	if err := snap.DataTo(&doc); err != nil {
		return cart.CartItem{}, fmt.Errorf("cart_repository_fs: decode item %s: %w", cartItemID, err)
	}
	return doc.toDomain(snap.Ref.ID), nil
}

func (r *CartRepository) CreateItem(ctx context.Context, userID string, item cart.CartItem) (cart.CartItem, error) {
	item.ID = uuid.NewString()
	now := r.now().UTC()

	if _, err := r.items(userID).Doc(item.ID).Create(ctx, cartItemDocFromDomain(item, now)); err != nil {
		return cart.CartItem{}, fmt.Errorf("cart_repository_fs: create item: %w", err)
	}
	return item, nil
}

func (r *CartRepository) UpdateQuantity(ctx context.Context, userID, cartItemID string, quantity int) error {
	if strings.TrimSpace(cartItemID) == "" {
		return cart.ErrItemNotFound
	}

	_, err := r.items(userID).Doc(cartItemID).Update(ctx, []firestore.Update{
		{Path: "quantity", Value: quantity},
		{Path: "updatedAt", Value: r.now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return cart.ErrItemNotFound
		}
		return fmt.Errorf("cart_repository_fs: update quantity: %w", err)
	}
	return nil
}

func (r *CartRepository) DeleteItem(ctx context.Context, userID, cartItemID string) error {
	if strings.TrimSpace(cartItemID) == "" {
		return nil
	}
	if _, err := r.items(userID).Doc(cartItemID).Delete(ctx); err != nil {
		return fmt.Errorf("cart_repository_fs: delete item: %w", err)
	}
	return nil
}

func (r *CartRepository) DeleteAll(ctx context.Context, userID string) error {
	refs, err := r.items(userID).DocumentRefs(ctx).GetAll()
	if err != nil {
		return fmt.Errorf("cart_repository_fs: list item refs: %w", err)
	}
	if len(refs) == 0 {
		return nil
	}

	bw := r.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(refs))
	for _, ref := range refs {
		job, err := bw.Delete(ref)
		if err != nil {
			bw.End()
			return fmt.Errorf("cart_repository_fs: queue delete %s: %w", ref.ID, err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	var errs []error
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("cart_repository_fs: clear cart: %w", errors.Join(errs...))
	}
	return nil
}

// -----------------------------------------
// Firestore DTO
// -----------------------------------------

type colorDoc struct {
	Name string `firestore:"name"`
	Hex  string `firestore:"hex,omitempty"`
}

// cartItemDoc is the stored shape. Empty optional fields are omitted.
type cartItemDoc struct {
	ProductID   string    `firestore:"productId"`
	VariantID   string    `firestore:"variantId,omitempty"`
	Name        string    `firestore:"name"`
	Price       float64   `firestore:"price"`
	Quantity    int       `firestore:"quantity"`
	MaxQuantity int       `firestore:"maxQuantity"`
	Image       string    `firestore:"image,omitempty"`
	SKU         string    `firestore:"sku,omitempty"`
	InStock     bool      `firestore:"inStock"`
	Size        string    `firestore:"size,omitempty"`
	Color       *colorDoc `firestore:"color,omitempty"`
	AddedAt     time.Time `firestore:"addedAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

func cartItemDocFromDomain(item cart.CartItem, now time.Time) cartItemDoc {
	doc := cartItemDoc{
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
		AddedAt:     now,
		UpdatedAt:   now,
	}
	if item.Color != nil {
		doc.Color = &colorDoc{Name: item.Color.Name, Hex: item.Color.Hex}
	}
	return doc
}

func (d cartItemDoc) toDomain(id string) cart.CartItem {
	item := cart.CartItem{
		ID:          id,
		ProductID:   strings.TrimSpace(d.ProductID),
		VariantID:   strings.TrimSpace(d.VariantID),
		Name:        d.Name,
		Price:       d.Price,
		Quantity:    d.Quantity,
		MaxQuantity: d.MaxQuantity,
		Image:       d.Image,
		SKU:         d.SKU,
		InStock:     d.InStock,
		Size:        strings.TrimSpace(d.Size),
	}
	if d.Color != nil {
		item.Color = &cart.Color{Name: d.Color.Name, Hex: d.Color.Hex}
	}
	return item
}
