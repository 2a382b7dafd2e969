// internal/recommend/rank.go
package recommend

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"boost-wallet/internal/category"
	"boost-wallet/internal/domain"
)

// Rank сортирует реальные карты кошелька по ставке для категории, по убыванию.
// При равных ставках сохраняется порядок кошелька.
func Rank(wallet []domain.Card, cat string) []domain.RankedCard {
	ranked := make([]domain.RankedCard, 0, len(wallet))
	for _, card := range wallet {
		if card.IsVirtual() {
			continue
		}
		ranked = append(ranked, domain.RankedCard{Card: card, Rate: RewardRate(card, cat)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Rate > ranked[j].Rate
	})
	return ranked
}

// FormatRate: 5 -> "5%", 1.5 -> "1.5%"
func FormatRate(rate float64) string {
	if rate == math.Trunc(rate) {
		return fmt.Sprintf("%d%%", int64(rate))
	}
	return fmt.Sprintf("%.1f%%", rate)
}

// Recommender связывает определение категории места и подбор карты
type Recommender struct {
	logger *slog.Logger
}

func NewRecommender(logger *slog.Logger) *Recommender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recommender{logger: logger}
}

// ForPlace: категория по первому типу места, затем BestForBusiness.
// Возвращает и категорию, чтобы вызывающий мог показать её, если ко-бренд не сработал.
func (r *Recommender) ForPlace(wallet []domain.Card, place domain.Business) (*domain.Recommendation, string) {
	cat := category.ResolvePrimary(place.Types)
	res := r.ForBusiness(wallet, place.Name, cat)
	return res, cat
}

func (r *Recommender) ForBusiness(wallet []domain.Card, businessName, cat string) *domain.Recommendation {
	if cat == "" {
		cat = category.Other
	}
	res := BestForBusiness(wallet, businessName, cat)
	if res == nil {
		r.logger.Info("no card recommended", "business", businessName, "category", cat)
		return nil
	}
	r.logger.Info("card recommended",
		"business", businessName,
		"category", cat,
		"issuer", res.Card.Issuer,
		"card", res.Card.ProductName,
		"rate", res.Rate,
		"matched_category", res.MatchedCategory,
	)
	return res
}
