// internal/analytics/tracker.go
package analytics

import (
	"boost-wallet/internal/domain"
	"boost-wallet/internal/storage"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultPaymentCategory = "Other"
	writeTimeout           = 10 * time.Second
)

// CardKey: ("U.S Bank", "Cash+") -> "us_bank_cash+"
func CardKey(issuer, name string) string {
	clean := func(s string) string {
		s = strings.ToLower(s)
		s = strings.ReplaceAll(s, " ", "_")
		return strings.ReplaceAll(s, ".", "")
	}
	return clean(issuer) + "_" + clean(name)
}

// Tracker пишет счётчики в фоне, чтобы не задерживать ответ пользователю.
// Ошибки записи только логируются.
type Tracker struct {
	store  storage.MetricsStorage
	wg     sync.WaitGroup
	logger *slog.Logger
}

func NewTracker(store storage.MetricsStorage, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{store: store, logger: logger}
}

func (t *Tracker) TrackCardAdded(userID int64, issuer, name string) {
	key := CardKey(issuer, name)
	t.update(userID, "card_added", func(m *domain.UserMetrics) {
		m.TotalCards++
		m.CardUsageByCategory[key] = map[string]int{}
	})
}

func (t *Tracker) TrackCardDeleted(userID int64, issuer, name string) {
	key := CardKey(issuer, name)
	t.update(userID, "card_deleted", func(m *domain.UserMetrics) {
		m.TotalCards = max(0, m.TotalCards-1)
		delete(m.CardUsageByCategory, key)
	})
}

// TrackPaymentUsage: пользователь открыл кошелёк для оплаты выбранной картой
func (t *Tracker) TrackPaymentUsage(userID int64, category, issuer, name string) {
	category = strings.TrimSpace(category)
	if category == "" {
		category = defaultPaymentCategory
	}
	key := CardKey(issuer, name)
	t.update(userID, "payment_usage", func(m *domain.UserMetrics) {
		usage, ok := m.CardUsageByCategory[key]
		if !ok || usage == nil {
			usage = map[string]int{}
			m.CardUsageByCategory[key] = usage
		}
		usage[category]++
	})
}

// SyncTotalCards выравнивает счётчик карт с реальным кошельком
func (t *Tracker) SyncTotalCards(userID int64, count int) {
	t.update(userID, "sync_total_cards", func(m *domain.UserMetrics) {
		m.TotalCards = count
	})
}

// Metrics: текущие счётчики; пустые, если пользователь ещё ничего не делал
func (t *Tracker) Metrics(ctx context.Context, userID int64) (*domain.UserMetrics, error) {
	m, err := t.store.GetMetrics(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get metrics: %w", err)
	}
	if m == nil {
		m = &domain.UserMetrics{UserID: userID}
	}
	if m.CardUsageByCategory == nil {
		m.CardUsageByCategory = map[string]map[string]int{}
	}
	return m, nil
}

// Wait дожидается всех фоновых записей (graceful shutdown, тесты)
func (t *Tracker) Wait() {
	t.wg.Wait()
}

func (t *Tracker) update(userID int64, event string, apply func(m *domain.UserMetrics)) {
	eventID := uuid.NewString()
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		err := t.store.UpdateMetrics(ctx, userID, func(m *domain.UserMetrics) error {
			if m.CardUsageByCategory == nil {
				m.CardUsageByCategory = map[string]map[string]int{}
			}
			apply(m)
			return nil
		})
		if err != nil {
			t.logger.Error("analytics update failed", "event", event, "event_id", eventID, "user_id", userID, "error", err)
			return
		}
		t.logger.Debug("analytics updated", "event", event, "event_id", eventID, "user_id", userID)
	}()
}
