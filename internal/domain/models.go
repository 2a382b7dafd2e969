// internal/domain/models.go
package domain

import (
	"strings"
	"time"
)

const (
	VirtualIssuer      = "Virtual"
	VirtualProductName = "Debit Card"

	// OtherCategory: ключ "всё остальное" в таблице вознаграждений
	OtherCategory = "other"

	// DefaultRate: базовый 1%, когда ничего не подошло
	DefaultRate = 1.0
)

// Card: карта в кошельке пользователя
type Card struct {
	ID          string             `json:"id"`
	Issuer      string             `json:"issuer"`
	ProductName string             `json:"product_name"`
	Rewards     map[string]float64 `json:"rewards"`
	ImageURL    string             `json:"image_url,omitempty"`
}

// VirtualCard: "карта не выбрана". Есть в каждом кошельке, в рекомендациях не участвует.
func VirtualCard() Card {
	return Card{
		Issuer:      VirtualIssuer,
		ProductName: VirtualProductName,
		Rewards:     map[string]float64{},
	}
}

func (c Card) IsVirtual() bool {
	return c.Issuer == VirtualIssuer
}

// SameAs сравнивает карты по issuer + product name без учёта регистра и пробелов по краям.
func (c Card) SameAs(issuer, productName string) bool {
	return strings.EqualFold(strings.TrimSpace(c.Issuer), strings.TrimSpace(issuer)) &&
		strings.EqualFold(strings.TrimSpace(c.ProductName), strings.TrimSpace(productName))
}

// Rate ищет ставку по ключу без учёта регистра.
// Точное совпадение важнее, из нескольких регистровых вариантов берётся наименьший ключ.
func (c Card) Rate(key string) (float64, bool) {
	if rate, ok := c.Rewards[key]; ok {
		return rate, true
	}
	var (
		found   bool
		bestKey string
		best    float64
	)
	for k, rate := range c.Rewards {
		if !strings.EqualFold(k, key) {
			continue
		}
		if !found || k < bestKey {
			found, bestKey, best = true, k, rate
		}
	}
	return best, found
}

// Clone копирует карту вместе с таблицей вознаграждений
func (c Card) Clone() Card {
	rewards := make(map[string]float64, len(c.Rewards))
	for k, v := range c.Rewards {
		rewards[k] = v
	}
	c.Rewards = rewards
	return c
}

// CardDetails: запись каталога карт
type CardDetails struct {
	ID       string             `json:"id"`
	Issuer   string             `json:"issuer"`
	Name     string             `json:"name"`
	Rewards  map[string]float64 `json:"rewards"`
	ImageURL string             `json:"image_url,omitempty"`
}

// Recommendation: результат подбора карты.
// MatchedCategory заполнен только при совпадении по названию бизнеса (ко-бренд).
type Recommendation struct {
	Card            Card    `json:"card"`
	Rate            float64 `json:"rate"`
	MatchedCategory string  `json:"matched_category,omitempty"`
}

type RankedCard struct {
	Card Card    `json:"card"`
	Rate float64 `json:"rate"`
}

// Business: место от провайдера (Google Places)
type Business struct {
	PlaceID string   `json:"place_id,omitempty"`
	Name    string   `json:"name"`
	Types   []string `json:"types"`
	Address string   `json:"address,omitempty"`
	Lat     float64  `json:"lat"`
	Lng     float64  `json:"lng"`
	Rating  float64  `json:"rating,omitempty"`
}

// UserMetrics: счётчики аналитики пользователя
type UserMetrics struct {
	UserID              int64                     `json:"-"`
	TotalCards          int                       `json:"total_cards"`
	CardUsageByCategory map[string]map[string]int `json:"card_usage_by_category"`
}

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	TelegramID   *int64    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
