// internal/catalog/rewards.go
package catalog

import (
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// ParseRewards приводит сырую таблицу вознаграждений из jsonb к map[string]float64.
// Значения, которые не получается прочитать как конечное неотрицательное число, пропускаются.
func ParseRewards(raw map[string]any) map[string]float64 {
	rewards := make(map[string]float64, len(raw))
	for key, value := range raw {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		rate, ok := toRate(value)
		if !ok {
			slog.Warn("skip reward with invalid value", "category", key, "value", value)
			continue
		}
		rewards[key] = rate
	}
	return rewards
}

func toRate(v any) (float64, bool) {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, false
	}
	return f, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
