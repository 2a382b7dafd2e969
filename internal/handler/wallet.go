// internal/handler/wallet.go
package handler

import (
	"boost-wallet/internal/catalog"
	"boost-wallet/internal/wallet"
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type CatalogLister interface {
	ListCatalog(ctx context.Context) ([]catalog.IssuerCards, error)
}

type WalletHandler struct {
	wallets WalletSource
	catalog CatalogLister
}

func NewWalletHandler(wallets WalletSource, cat CatalogLister) *WalletHandler {
	return &WalletHandler{wallets: wallets, catalog: cat}
}

type CardRequest struct {
	Issuer      string `json:"issuer" form:"issuer" validate:"required,notblank"`
	ProductName string `json:"product_name" form:"product_name" validate:"required,notblank"`
}

// GetWallet godoc
// @Summary Cards in the user's wallet in stored order
// @Router /api/v1/wallet [get]
func (h *WalletHandler) GetWallet(c *gin.Context) {
	m, ok := currentWallet(c, h.wallets)
	if !ok {
		return
	}
	cards := m.Cards()
	c.JSON(http.StatusOK, gin.H{"cards": cards, "count": len(cards)})
}

// AddCard godoc
// @Summary Add a catalog card to the wallet
// @Router /api/v1/wallet/cards [post]
func (h *WalletHandler) AddCard(c *gin.Context) {
	var req CardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if err := validateStruct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, ok := currentWallet(c, h.wallets)
	if !ok {
		return
	}

	card, err := m.AddFromCatalog(c.Request.Context(), req.Issuer, req.ProductName)
	if err != nil {
		writeWalletError(c, err, m.UserID(), req.Issuer, req.ProductName)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"card": card})
}

// RemoveCard godoc
// @Param issuer query string true "Issuer"
// @Param product_name query string true "Product name"
// @Router /api/v1/wallet/cards [delete]
func (h *WalletHandler) RemoveCard(c *gin.Context) {
	var req CardRequest
	_ = c.ShouldBindQuery(&req)
	if err := validateStruct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, ok := currentWallet(c, h.wallets)
	if !ok {
		return
	}

	if err := m.Remove(c.Request.Context(), req.Issuer, req.ProductName); err != nil {
		writeWalletError(c, err, m.UserID(), req.Issuer, req.ProductName)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListCatalog godoc
// @Summary All catalog products grouped by issuer
// @Router /api/v1/catalog [get]
func (h *WalletHandler) ListCatalog(c *gin.Context) {
	groups, err := h.catalog.ListCatalog(c.Request.Context())
	if err != nil {
		slog.Error("ListCatalog failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}
	if groups == nil {
		groups = []catalog.IssuerCards{}
	}
	c.JSON(http.StatusOK, gin.H{"issuers": groups})
}

func writeWalletError(c *gin.Context, err error, userID int64, issuer, name string) {
	switch {
	case errors.Is(err, catalog.ErrCardNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Card not found in catalog"})
	case errors.Is(err, wallet.ErrCardNotInWallet):
		c.JSON(http.StatusNotFound, gin.H{"error": "Card not in wallet"})
	case errors.Is(err, wallet.ErrDuplicateCard):
		c.JSON(http.StatusConflict, gin.H{"error": "Card already in wallet"})
	case errors.Is(err, wallet.ErrVirtualCard):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Virtual card cannot be changed"})
	default:
		slog.Error("Wallet update failed", "error", err, "user_id", userID, "issuer", issuer, "card", name)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update wallet"})
	}
}
