// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hoodskool/hoodskool-backend/internal/config"
	"github.com/hoodskool/hoodskool-backend/internal/domain/cart"
	"github.com/hoodskool/hoodskool-backend/internal/domain/storefront"
	"github.com/hoodskool/hoodskool-backend/internal/interfaces/http/handlers"
	"github.com/hoodskool/hoodskool-backend/internal/interfaces/http/middleware"
	"github.com/hoodskool/hoodskool-backend/internal/pkg/auth"
)

// Dependencies are the services the routes are built from
type Dependencies struct {
	Config   *config.Config
	Logger   logrus.FieldLogger
	Gateway  cart.Gateway
	Sessions *storefront.Sessions
	Verifier auth.TokenVerifier
	// DevIssuer enables POST /dev/token when set
	DevIssuer handlers.TokenIssuer
}

// SetupCartRoutes sets up the authenticated cart gateway routes
func SetupCartRoutes(rg *gin.RouterGroup, deps Dependencies) {
	cartHandler := handlers.NewCartHandler(deps.Gateway, deps.Logger)

	cartGroup := rg.Group("/cart")
	cartGroup.Use(middleware.AuthMiddleware(deps.Verifier, deps.Logger))
	{
		cartGroup.GET("", cartHandler.GetCart)
		cartGroup.DELETE("", cartHandler.ClearCart)
		cartGroup.POST("/items", cartHandler.AddToCart)
		cartGroup.PUT("/items/:id", cartHandler.UpdateCartItem)
		cartGroup.DELETE("/items/:id", cartHandler.RemoveFromCart)
		cartGroup.POST("/sync", cartHandler.SyncCart)
	}
}

// SetupStorefrontRoutes sets up the session-backed shopper cart routes
func SetupStorefrontRoutes(rg *gin.RouterGroup, deps Dependencies) {
	storefrontHandler := handlers.NewStorefrontHandler(
		deps.Sessions,
		deps.Config.Cart.GuestTTL,
		deps.Config.Security.SecureCookies,
		deps.Logger,
	)

	storefrontCart := rg.Group("/storefront/cart")
	storefrontCart.Use(middleware.OptionalAuthMiddleware(deps.Verifier))
	{
		storefrontCart.GET("", storefrontHandler.GetCart)
		storefrontCart.DELETE("", storefrontHandler.ClearCart)
		storefrontCart.POST("/items", storefrontHandler.AddItem)
		storefrontCart.PATCH("/items/:id", storefrontHandler.UpdateQuantity)
		storefrontCart.DELETE("/items/:id", storefrontHandler.RemoveItem)
		storefrontCart.POST("/logout", storefrontHandler.Logout)
	}

	// Merge-on-login needs a verified user
	rg.POST("/storefront/cart/sync",
		middleware.AuthMiddleware(deps.Verifier, deps.Logger),
		storefrontHandler.SyncCart,
	)
}

// SetupDevRoutes sets up development-only helpers
func SetupDevRoutes(rg *gin.RouterGroup, deps Dependencies) {
	if deps.DevIssuer == nil {
		return
	}

	devHandler := handlers.NewDevTokenHandler(deps.DevIssuer)
	rg.POST("/dev/token", devHandler.IssueToken)
}

// SetupRoutes sets up all API routes
func SetupRoutes(rg *gin.RouterGroup, deps Dependencies) {
	SetupCartRoutes(rg, deps)
	SetupStorefrontRoutes(rg, deps)
	SetupDevRoutes(rg, deps)
}
