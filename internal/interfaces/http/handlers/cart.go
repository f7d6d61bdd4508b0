// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hoodskool/hoodskool-backend/internal/domain/cart"
	"github.com/hoodskool/hoodskool-backend/internal/interfaces/http/middleware"
)

// CartHandler exposes the remote cart gateway to authenticated users
type CartHandler struct {
	gateway cart.Gateway
	logger  logrus.FieldLogger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(gateway cart.Gateway, logger logrus.FieldLogger) *CartHandler {
	return &CartHandler{
		gateway: gateway,
		logger:  logger.WithField("handler", "cart"),
	}
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	items, err := h.gateway.GetCart(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err, "Failed to retrieve cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart retrieved successfully",
		"data": gin.H{
			"items":     items,
			"itemCount": cart.CountItems(items),
		},
	})
}

// AddToCart handles POST /cart/items
func (h *CartHandler) AddToCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req cart.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	cartItemID, err := h.gateway.AddToCart(c.Request.Context(), userID, req.ToItem())
	if err != nil {
		h.respondError(c, err, "Failed to add item to cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item added to cart successfully",
		"data":    gin.H{"cartItemId": cartItemID},
	})
}

// UpdateCartItem handles PUT /cart/items/:id
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req cart.UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	if err := h.gateway.UpdateCartItemQuantity(c.Request.Context(), userID, c.Param("id"), *req.Quantity); err != nil {
		h.respondError(c, err, "Failed to update cart item")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart item updated successfully",
	})
}

// RemoveFromCart handles DELETE /cart/items/:id
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.gateway.RemoveFromCart(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.respondError(c, err, "Failed to remove item from cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item removed from cart successfully",
	})
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.gateway.ClearCart(c.Request.Context(), userID); err != nil {
		h.respondError(c, err, "Failed to clear cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared successfully",
	})
}

// SyncCart handles POST /cart/sync
func (h *CartHandler) SyncCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req cart.SyncCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	if err := h.gateway.SyncCart(c.Request.Context(), userID, req.ToItems()); err != nil {
		h.respondError(c, err, "Failed to sync cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart synced successfully",
	})
}

// respondError maps domain errors to status codes and logs server errors
func (h *CartHandler) respondError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, cart.ErrInvalidItem):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case cart.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "Cart item not found"})
	case errors.Is(err, cart.ErrUserRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
	default:
		h.logger.WithError(err).WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"path":       c.FullPath(),
		}).Error(message)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}

func requireUser(c *gin.Context) (string, bool) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return "", false
	}
	return userID, true
}
