// internal/interfaces/http/handlers/storefront.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hoodskool/hoodskool-backend/internal/domain/cart"
	"github.com/hoodskool/hoodskool-backend/internal/domain/storefront"
	"github.com/hoodskool/hoodskool-backend/internal/interfaces/http/middleware"
)

const SessionCookieName = "hoodskool_session"

// StorefrontHandler serves the shopper's cart. Guests are identified by
// the session cookie; signed-in shoppers additionally by their ID token.
//
// Every endpoint answers 200 with the cart after the operation. Remote
// failures are logged by the cart store and never reach the response.
type StorefrontHandler struct {
	sessions     *storefront.Sessions
	logger       logrus.FieldLogger
	cookieMaxAge time.Duration
	secure       bool
}

// NewStorefrontHandler creates a new storefront handler
func NewStorefrontHandler(sessions *storefront.Sessions, cookieMaxAge time.Duration, secure bool, logger logrus.FieldLogger) *StorefrontHandler {
	return &StorefrontHandler{
		sessions:     sessions,
		logger:       logger.WithField("handler", "storefront"),
		cookieMaxAge: cookieMaxAge,
		secure:       secure,
	}
}

// GetCart handles GET /storefront/cart
func (h *StorefrontHandler) GetCart(c *gin.Context) {
	h.run(c, "Cart retrieved successfully", func(ctx context.Context, store *cart.Store, userID string) *cart.Task {
		return store.LoadCart(ctx, userID)
	})
}

// AddItem handles POST /storefront/cart/items
func (h *StorefrontHandler) AddItem(c *gin.Context) {
	var req cart.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	item := req.ToItem()
	h.run(c, "Item added to cart successfully", func(ctx context.Context, store *cart.Store, userID string) *cart.Task {
		return store.AddItem(ctx, item, userID)
	})
}

// UpdateQuantity handles PATCH /storefront/cart/items/:id
func (h *StorefrontHandler) UpdateQuantity(c *gin.Context) {
	var req cart.UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	cartItemID := c.Param("id")
	h.run(c, "Cart item updated successfully", func(ctx context.Context, store *cart.Store, userID string) *cart.Task {
		return store.UpdateQuantity(ctx, cartItemID, *req.Quantity, userID)
	})
}

// RemoveItem handles DELETE /storefront/cart/items/:id
func (h *StorefrontHandler) RemoveItem(c *gin.Context) {
	cartItemID := c.Param("id")
	h.run(c, "Item removed from cart successfully", func(ctx context.Context, store *cart.Store, userID string) *cart.Task {
		return store.RemoveItem(ctx, cartItemID, userID)
	})
}

// ClearCart handles DELETE /storefront/cart
func (h *StorefrontHandler) ClearCart(c *gin.Context) {
	h.run(c, "Cart cleared successfully", func(ctx context.Context, store *cart.Store, userID string) *cart.Task {
		return store.ClearCart(ctx, userID)
	})
}

// SyncCart handles POST /storefront/cart/sync, merging the guest cart into
// the signed-in user's cart once per login.
func (h *StorefrontHandler) SyncCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	sessionID := h.getOrCreateSessionID(c)

	store, merged, err := h.sessions.MergeOnLogin(c.Request.Context(), sessionID, userID)
	if err != nil && store == nil {
		h.sessionError(c, err)
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Warn("Cart sync still running when request ended")
	}
	if merged {
		email, _ := middleware.GetUserEmailFromContext(c)
		h.logger.WithFields(logrus.Fields{"user_id": userID, "email": email}).Info("Guest cart merged on sign-in")
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart synced successfully",
		"merged":  merged,
		"data":    store.Snapshot(),
	})
}

// Logout handles POST /storefront/cart/logout
func (h *StorefrontHandler) Logout(c *gin.Context) {
	sessionID := h.getOrCreateSessionID(c)

	store, err := h.sessions.Logout(c.Request.Context(), sessionID)
	if err != nil {
		h.sessionError(c, err)
		return
	}
	h.wait(c, store.Flush(c.Request.Context()))

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
		"data":    store.Snapshot(),
	})
}

type storeOp func(ctx context.Context, store *cart.Store, userID string) *cart.Task

func (h *StorefrontHandler) run(c *gin.Context, message string, op storeOp) {
	userID, _ := middleware.GetUserIDFromContext(c)
	sessionID := h.getOrCreateSessionID(c)

	store, activeUser, err := h.sessions.Cart(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.sessionError(c, err)
		return
	}

	h.wait(c, op(c.Request.Context(), store, activeUser))

	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"data":    store.Snapshot(),
	})
}

// wait blocks until the task finishes or the request deadline passes.
// On timeout the snapshot still reflects optimistic changes.
func (h *StorefrontHandler) wait(c *gin.Context, task *cart.Task) {
	if err := task.Wait(c.Request.Context()); err != nil {
		h.logger.WithError(err).WithField("request_id", c.GetString("request_id")).Warn("Cart operation still running when request ended")
	}
}

func (h *StorefrontHandler) sessionError(c *gin.Context, err error) {
	h.logger.WithError(err).Error("Failed to resolve cart session")
	c.JSON(http.StatusBadRequest, gin.H{
		"error": "Invalid cart session",
	})
}

func (h *StorefrontHandler) getOrCreateSessionID(c *gin.Context) string {
	sessionID, err := c.Cookie(SessionCookieName)
	if err == nil {
		if _, parseErr := uuid.Parse(sessionID); parseErr == nil {
			return sessionID
		}
	}

	sessionID = uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, sessionID, int(h.cookieMaxAge.Seconds()), "/", "", h.secure, true)
	return sessionID
}
