// internal/handler/recommend.go
package handler

import (
	"boost-wallet/internal/category"
	"boost-wallet/internal/domain"
	"boost-wallet/internal/places"
	"boost-wallet/internal/recommend"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type RecommendHandler struct {
	wallets     WalletSource
	recommender *recommend.Recommender
	places      places.Provider
}

func NewRecommendHandler(wallets WalletSource, r *recommend.Recommender, p places.Provider) *RecommendHandler {
	return &RecommendHandler{wallets: wallets, recommender: r, places: p}
}

// CategoryQuery: пустая категория означает "other"
type CategoryQuery struct {
	Category string `form:"category"`
}

func (q CategoryQuery) Normalized() string {
	cat := strings.TrimSpace(q.Category)
	if cat == "" {
		return category.Other
	}
	return cat
}

type BusinessRequest struct {
	BusinessName string   `json:"business_name" validate:"required,notblank"`
	Types        []string `json:"types"`
	Category     string   `json:"category"`
}

type RateQuery struct {
	Issuer      string `form:"issuer" validate:"required,notblank"`
	ProductName string `form:"product_name" validate:"required,notblank"`
	Category    string `form:"category"`
}

type SearchQuery struct {
	Query string   `form:"q" validate:"required,notblank,max=200"`
	Lat   *float64 `form:"lat" validate:"omitempty,latitude"`
	Lng   *float64 `form:"lng" validate:"omitempty,longitude"`
}

type NearbyQuery struct {
	Lat *float64 `form:"lat" validate:"required,latitude"`
	Lng *float64 `form:"lng" validate:"required,longitude"`
}

type recommendationResponse struct {
	Category       string                 `json:"category"`
	KnownCategory  bool                   `json:"known_category"`
	Recommendation *domain.Recommendation `json:"recommendation"`
	RateText       string                 `json:"rate_text,omitempty"`
}

type placeResponse struct {
	Business       domain.Business        `json:"business"`
	Category       string                 `json:"category"`
	Recommendation *domain.Recommendation `json:"recommendation"`
	RateText       string                 `json:"rate_text,omitempty"`
}

func newRecommendationResponse(cat string, rec *domain.Recommendation) recommendationResponse {
	resp := recommendationResponse{
		Category:       cat,
		KnownCategory:  category.IsKnown(strings.ToLower(cat)) || category.IsDisplayName(cat),
		Recommendation: rec,
	}
	if rec != nil {
		resp.RateText = recommend.FormatRate(rec.Rate)
	}
	return resp
}

// BestForCategory godoc
// @Summary Best wallet card for a category
// @Param category query string true "Category or display name (Restaurants, Gas...)"
// @Router /api/v1/recommend/category [get]
func (h *RecommendHandler) BestForCategory(c *gin.Context) {
	var q CategoryQuery
	_ = c.ShouldBindQuery(&q)

	m, ok := currentWallet(c, h.wallets)
	if !ok {
		return
	}

	cat := q.Normalized()
	rec := recommend.BestForCategory(m.Snapshot(), cat)
	c.JSON(http.StatusOK, newRecommendationResponse(cat, rec))
}

// BestForBusiness godoc
// @Summary Best wallet card for a business (co-branded cards first)
// @Router /api/v1/recommend/business [post]
func (h *RecommendHandler) BestForBusiness(c *gin.Context) {
	var req BusinessRequest
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

	var (
		rec *domain.Recommendation
		cat string
	)
	if len(req.Types) > 0 {
		rec, cat = h.recommender.ForPlace(m.Snapshot(), domain.Business{Name: req.BusinessName, Types: req.Types})
	} else {
		cat = strings.TrimSpace(req.Category)
		if cat == "" {
			cat = category.Other
		}
		rec = h.recommender.ForBusiness(m.Snapshot(), req.BusinessName, cat)
	}

	c.JSON(http.StatusOK, gin.H{
		"business_name":  req.BusinessName,
		"category":       cat,
		"recommendation": rec,
		"rate_text":      rateText(rec),
	})
}

// RewardRate godoc
// @Summary Reward rate of one wallet card for a category
// @Router /api/v1/recommend/rate [get]
func (h *RecommendHandler) RewardRate(c *gin.Context) {
	var q RateQuery
	_ = c.ShouldBindQuery(&q)
	if err := validateStruct(q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, ok := currentWallet(c, h.wallets)
	if !ok {
		return
	}

	card, found := m.Find(q.Issuer, q.ProductName)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Card not in wallet"})
		return
	}

	rate := recommend.RewardRate(card, q.Category)
	c.JSON(http.StatusOK, gin.H{
		"issuer":       card.Issuer,
		"product_name": card.ProductName,
		"category":     q.Category,
		"rate":         rate,
		"rate_text":    recommend.FormatRate(rate),
	})
}

// Ranking godoc
// @Summary Wallet cards ordered by rate for a category
// @Router /api/v1/recommend/ranking [get]
func (h *RecommendHandler) Ranking(c *gin.Context) {
	var q CategoryQuery
	_ = c.ShouldBindQuery(&q)

	m, ok := currentWallet(c, h.wallets)
	if !ok {
		return
	}

	cat := q.Normalized()
	c.JSON(http.StatusOK, gin.H{
		"category": cat,
		"cards":    recommend.Rank(m.Snapshot(), cat),
	})
}

// Nearby godoc
// @Summary Places around a point with the best card for each
// @Router /api/v1/places/nearby [get]
func (h *RecommendHandler) Nearby(c *gin.Context) {
	if h.places == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Places provider is not configured"})
		return
	}

	var q NearbyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng must be numbers"})
		return
	}
	if err := validateStruct(q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, ok := currentWallet(c, h.wallets)
	if !ok {
		return
	}

	found, err := h.places.Nearby(c.Request.Context(), *q.Lat, *q.Lng)
	if err != nil {
		if errors.Is(err, places.ErrInvalidCoordinates) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.Error("Nearby search failed", "error", err, "lat", *q.Lat, "lng", *q.Lng)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Places search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"places": h.recommendPlaces(m.Snapshot(), found)})
}

// Search godoc
// @Summary Businesses matching a text query with the best card for each
// @Param q query string true "Business name or free text"
// @Router /api/v1/places/search [get]
func (h *RecommendHandler) Search(c *gin.Context) {
	if h.places == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Places provider is not configured"})
		return
	}

	var q SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng must be numbers"})
		return
	}
	if err := validateStruct(q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if (q.Lat == nil) != (q.Lng == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng must be set together"})
		return
	}

	m, ok := currentWallet(c, h.wallets)
	if !ok {
		return
	}

	var near *places.Point
	if q.Lat != nil {
		near = &places.Point{Lat: *q.Lat, Lng: *q.Lng}
	}

	found, err := h.places.Search(c.Request.Context(), q.Query, near)
	if err != nil {
		if errors.Is(err, places.ErrInvalidCoordinates) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.Error("Places search failed", "error", err, "query", q.Query)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Places search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"places": h.recommendPlaces(m.Snapshot(), found)})
}

// Categories godoc
// @Summary Known categories and display-name mappings
// @Router /api/v1/categories [get]
func (h *RecommendHandler) Categories(c *gin.Context) {
	type display struct {
		Name string   `json:"name"`
		Keys []string `json:"keys"`
	}
	mappings := category.Mappings()
	displays := make([]display, 0, len(mappings))
	for _, m := range mappings {
		displays = append(displays, display{Name: m.Display, Keys: m.Keys})
	}
	c.JSON(http.StatusOK, gin.H{
		"categories":  category.Categories(),
		"display":     displays,
		"place_types": category.PlaceTypes(),
	})
}

func (h *RecommendHandler) recommendPlaces(snapshot []domain.Card, found []domain.Business) []placeResponse {
	result := make([]placeResponse, 0, len(found))
	for _, p := range found {
		rec, cat := h.recommender.ForPlace(snapshot, p)
		result = append(result, placeResponse{Business: p, Category: cat, Recommendation: rec, RateText: rateText(rec)})
	}
	return result
}

func rateText(rec *domain.Recommendation) string {
	if rec == nil {
		return ""
	}
	return recommend.FormatRate(rec.Rate)
}
