// internal/interfaces/http/handlers/dev_token.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TokenIssuer signs development ID tokens
type TokenIssuer interface {
	GenerateToken(uid, email string) (string, error)
}

// DevTokenHandler issues tokens for local testing without a Firebase project
type DevTokenHandler struct {
	issuer TokenIssuer
}

// NewDevTokenHandler creates a new dev token handler
func NewDevTokenHandler(issuer TokenIssuer) *DevTokenHandler {
	return &DevTokenHandler{issuer: issuer}
}

type devTokenRequest struct {
	UID   string `json:"uid" binding:"required"`
	Email string `json:"email" binding:"omitempty,email"`
}

// IssueToken handles POST /dev/token
func (h *DevTokenHandler) IssueToken(c *gin.Context) {
	var req devTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	token, err := h.issuer.GenerateToken(req.UID, req.Email)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Token issued",
		"data": gin.H{
			"idToken":   token,
			"tokenType": "Bearer",
		},
	})
}
