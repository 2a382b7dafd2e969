// internal/recommend/engine.go
package recommend

import (
	"log/slog"
	"strings"

	"boost-wallet/internal/category"
	"boost-wallet/internal/domain"
)

// Слова, которые вырезаем из названия бизнеса перед сравнением с картами
var businessNoise = []string{"wholesale", "store", "gas station", "supermarket", "supercenter"}

const (
	costcoIssuer   = "Citi"
	costcoProduct  = "Costco Anywhere Visa"
	costcoGasRate  = 5.0
	minReverseName = 3
)

// BestForCategory: лучшая карта кошелька для категории (операция A).
// Совпадение по конкретной категории на любой карте важнее любых "other".
// При равных ставках остаётся карта, встреченная первой. nil: ни одной подходящей записи.
func BestForCategory(wallet []domain.Card, cat string) *domain.Recommendation {
	keys := category.GetDatabaseKeys(cat)

	var (
		best      *domain.Card
		bestRate  float64
		specific  bool
		other     *domain.Card
		otherRate float64
	)

	for i := range wallet {
		card := &wallet[i]
		if card.IsVirtual() {
			continue
		}

		for _, key := range keys {
			rate, ok := card.Rate(key)
			if !ok {
				continue
			}
			if !specific || rate > bestRate {
				best, bestRate, specific = card, rate, true
			}
		}

		if rate, ok := card.Rate(domain.OtherCategory); ok {
			if other == nil || rate > otherRate {
				other, otherRate = card, rate
			}
		}
	}

	if specific {
		slog.Debug("best card by category", "category", cat, "issuer", best.Issuer, "card", best.ProductName, "rate", bestRate)
		return &domain.Recommendation{Card: *best, Rate: bestRate}
	}
	if other != nil {
		slog.Debug("no specific category match, using other", "category", cat, "issuer", other.Issuer, "card", other.ProductName, "rate", otherRate)
		return &domain.Recommendation{Card: *other, Rate: otherRate}
	}

	slog.Debug("no cards with rewards for category", "category", cat)
	return nil
}

// BestForBusiness сначала ищет ко-брендовую карту по названию бизнеса (первое совпадение),
// потом откатывается на BestForCategory (операция B).
func BestForBusiness(wallet []domain.Card, businessName, cat string) *domain.Recommendation {
	clean := CleanBusinessName(businessName)

	if clean != "" {
		lowerName := strings.ToLower(businessName)
		for _, card := range wallet {
			if card.IsVirtual() {
				continue
			}
			if !namesMatch(strings.ToLower(card.ProductName), clean) {
				continue
			}

			var rate float64
			if strings.Contains(lowerName, "costco") && strings.Contains(lowerName, "gas") &&
				card.Issuer == costcoIssuer && card.ProductName == costcoProduct {
				// акция: Costco Gas с Costco Anywhere Visa всегда 5%
				rate = costcoGasRate
			} else {
				rate = coBrandedRate(card, clean)
			}

			slog.Debug("co-branded card matched", "business", businessName, "issuer", card.Issuer, "card", card.ProductName, "rate", rate)
			return &domain.Recommendation{
				Card:            card,
				Rate:            rate,
				MatchedCategory: category.Capitalize(clean),
			}
		}
	}

	if res := BestForCategory(wallet, cat); res != nil {
		res.MatchedCategory = ""
		return res
	}
	return nil
}

// RewardRate: ставка конкретной карты для категории (операция C). Всегда возвращает число.
func RewardRate(card domain.Card, cat string) float64 {
	normalized := strings.ToLower(strings.TrimSpace(cat))

	if rate, ok := card.Rate(normalized); ok {
		return rate
	}

	if m, ok := category.FindMapping(normalized); ok {
		for _, key := range m.Keys {
			if rate, ok := card.Rate(key); ok {
				return rate
			}
		}
		if rate, ok := card.Rate(strings.ToLower(m.Display)); ok {
			return rate
		}
	}

	if rate, ok := card.Rate(domain.OtherCategory); ok {
		return rate
	}
	return domain.DefaultRate
}

// CleanBusinessName: "Costco Wholesale #123" -> "costco  #123" (двойной пробел остаётся внутри)
func CleanBusinessName(name string) string {
	clean := strings.ToLower(name)
	for _, noise := range businessNoise {
		clean = strings.ReplaceAll(clean, noise, "")
	}
	return strings.TrimSpace(clean)
}

func namesMatch(cardName, business string) bool {
	if cardName == "" {
		return false
	}
	if strings.Contains(cardName, business) {
		return true
	}
	return len([]rune(business)) > minReverseName && strings.Contains(business, cardName)
}

func coBrandedRate(card domain.Card, clean string) float64 {
	if rate, ok := card.Rate(clean); ok {
		return rate
	}
	if rate, ok := card.Rate(domain.OtherCategory); ok {
		return rate
	}
	return domain.DefaultRate
}
