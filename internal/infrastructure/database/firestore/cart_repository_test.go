package firestore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hoodskool/hoodskool-backend/internal/domain/cart"
)

func TestCartItemDocRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	item := cart.CartItem{
		ID:          "ignored",
		ProductID:   "p1",
		VariantID:   "v2",
		Name:        "Boxy Tee",
		Price:       45,
		Quantity:    2,
		MaxQuantity: 6,
		Image:       "https://res.cloudinary.com/hoodskool/tee.jpg",
		SKU:         "HS-TEE-BLK-M",
		InStock:     true,
		Size:        "M",
		Color:       &cart.Color{Name: "Black", Hex: "#000000"},
	}

	doc := cartItemDocFromDomain(item, now)
	assert.Equal(t, now, doc.AddedAt)
	assert.Equal(t, now, doc.UpdatedAt)

	got := doc.toDomain("doc-1")
	want := item
	want.ID = "doc-1"
	assert.Equal(t, want, got)
}

func TestCartItemDoc_NoColor(t *testing.T) {
	doc := cartItemDocFromDomain(cart.CartItem{ProductID: "p1", Quantity: 1}, time.Now())
	assert.Nil(t, doc.Color)
	assert.Nil(t, doc.toDomain("x").Color)
}

func TestNewCartRepository_DefaultCollection(t *testing.T) {
	r := NewCartRepository(nil, " ")
	assert.Equal(t, DefaultCartsCollection, r.collection)
}
