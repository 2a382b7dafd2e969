// internal/handler/router.go
package handler

import (
	"boost-wallet/internal/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Auth      *AuthHandler
	Wallet    *WalletHandler
	Recommend *RecommendHandler
	Analytics *AnalyticsHandler
}

// NewRouter собирает gin с публичными и защищёнными маршрутами /api/v1
func NewRouter(h Handlers, authMiddleware *middleware.AuthMiddleware) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID(), gin.Logger(), gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	public := router.Group("/api/v1")
	{
		public.POST("/signup", h.Auth.SignUp)
		public.POST("/login", h.Auth.Login)
	}

	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware.RequireAuth())
	{
		v1.POST("/logout", h.Auth.Logout)

		v1.GET("/wallet", h.Wallet.GetWallet)
		v1.POST("/wallet/cards", h.Wallet.AddCard)
		v1.DELETE("/wallet/cards", h.Wallet.RemoveCard)
		v1.GET("/catalog", h.Wallet.ListCatalog)

		v1.GET("/recommend/category", h.Recommend.BestForCategory)
		v1.POST("/recommend/business", h.Recommend.BestForBusiness)
		v1.GET("/recommend/rate", h.Recommend.RewardRate)
		v1.GET("/recommend/ranking", h.Recommend.Ranking)
		v1.GET("/places/nearby", h.Recommend.Nearby)
		v1.GET("/places/search", h.Recommend.Search)
		v1.GET("/categories", h.Recommend.Categories)

		v1.POST("/payments", h.Analytics.Payment)
		v1.GET("/metrics", h.Analytics.Metrics)
	}

	return router
}
