// internal/handler/auth.go
package handler

import (
	"boost-wallet/internal/auth"
	"boost-wallet/internal/domain"
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type AuthService interface {
	SignUp(ctx context.Context, email, password string) (*domain.User, string, error)
	SignIn(ctx context.Context, email, password string) (string, error)
}

type AuthHandler struct {
	auth    AuthService
	wallets WalletSource
}

func NewAuthHandler(a AuthService, wallets WalletSource) *AuthHandler {
	return &AuthHandler{auth: a, wallets: wallets}
}

type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// SignUp godoc
// @Summary Register a new user
// @Router /api/v1/signup [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if err := validateStruct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := h.auth.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}
		slog.Error("SignUp failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sign up"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user_id": user.ID, "token": token})
}

// Login godoc
// @Summary Sign in with email and password
// @Router /api/v1/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if err := validateStruct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		slog.Error("Login failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Logout сбрасывает кошелёк из памяти; сам токен живёт до истечения
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	h.wallets.Drop(userID)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
