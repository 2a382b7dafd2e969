// internal/handler/handler.go
package handler

import (
	"boost-wallet/internal/middleware"
	"boost-wallet/internal/wallet"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	val "boost-wallet/internal/validator"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// WalletSource отдаёт загруженный кошелёк пользователя (wallet.Registry)
type WalletSource interface {
	Get(ctx context.Context, userID int64) (*wallet.Manager, error)
	Drop(userID int64)
}

// currentWallet достаёт user_id из контекста и кошелёк пользователя.
// При ошибке ответ уже отправлен.
func currentWallet(c *gin.Context, wallets WalletSource) (*wallet.Manager, bool) {
	userID, ok := currentUser(c)
	if !ok {
		return nil, false
	}
	m, err := wallets.Get(c.Request.Context(), userID)
	if err != nil {
		slog.Error("Failed to load wallet", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load wallet"})
		return nil, false
	}
	return m, true
}

func currentUser(c *gin.Context) (int64, bool) {
	if _, exists := c.Get(middleware.UserIDKey); !exists {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "user_id missing"})
		return 0, false
	}
	userID, ok := middleware.UserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "invalid user_id"})
		return 0, false
	}
	return userID, true
}

func validateStruct(v any) error {
	if err := val.Validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("invalid input: %w", err)
		}
		var errs []string
		for _, e := range verrs {
			errs = append(errs, fieldErrorToString(e))
		}
		return fmt.Errorf("invalid input: %s", strings.Join(errs, "; "))
	}
	return nil
}

func fieldErrorToString(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "notblank":
		return fmt.Sprintf("%s must not be blank", e.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email", e.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", e.Field(), e.Param())
	case "latitude", "longitude":
		return fmt.Sprintf("%s is out of range", e.Field())
	case "dive":
		return fmt.Sprintf("%s has invalid items", e.Field())
	default:
		return fmt.Sprintf("%s is invalid", e.Field())
	}
}
