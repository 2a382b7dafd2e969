// internal/handler/analytics.go
package handler

import (
	"boost-wallet/internal/domain"
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// WalletURL открывает Apple Wallet на устройстве пользователя
const WalletURL = "shoebox://"

type Tracker interface {
	TrackPaymentUsage(userID int64, category, issuer, name string)
	Metrics(ctx context.Context, userID int64) (*domain.UserMetrics, error)
}

type AnalyticsHandler struct {
	wallets WalletSource
	tracker Tracker
}

func NewAnalyticsHandler(wallets WalletSource, t Tracker) *AnalyticsHandler {
	return &AnalyticsHandler{wallets: wallets, tracker: t}
}

type PaymentRequest struct {
	Issuer      string `json:"issuer" validate:"required,notblank"`
	ProductName string `json:"product_name" validate:"required,notblank"`
	Category    string `json:"category"`
}

// Payment godoc
// @Summary Record that a card was chosen for payment
// @Router /api/v1/payments [post]
func (h *AnalyticsHandler) Payment(c *gin.Context) {
	var req PaymentRequest
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
	card, found := m.Find(req.Issuer, req.ProductName)
	if !found || card.IsVirtual() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Card not in wallet"})
		return
	}

	h.tracker.TrackPaymentUsage(m.UserID(), req.Category, card.Issuer, card.ProductName)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "wallet_url": WalletURL})
}

// Metrics godoc
// @Summary Analytics counters of the current user
// @Router /api/v1/metrics [get]
func (h *AnalyticsHandler) Metrics(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	metrics, err := h.tracker.Metrics(c.Request.Context(), userID)
	if err != nil {
		slog.Error("Metrics failed", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}
	c.JSON(http.StatusOK, metrics)
}
