// internal/wallet/manager.go
package wallet

import (
	"boost-wallet/internal/catalog"
	"boost-wallet/internal/domain"
	"boost-wallet/internal/storage"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

var (
	ErrVirtualCard     = errors.New("virtual card cannot be added or removed")
	ErrCardNotInWallet = errors.New("card not in wallet")
	ErrDuplicateCard   = errors.New("card already in wallet")
)

const loadConcurrency = 4

type Catalog interface {
	FetchCardDetails(ctx context.Context, issuer, name string) (*domain.CardDetails, error)
}

// Events получает уведомления об изменениях кошелька (аналитика)
type Events interface {
	TrackCardAdded(userID int64, issuer, name string)
	TrackCardDeleted(userID int64, issuer, name string)
}

// Manager: кошелёк одного пользователя. Первая карта всегда виртуальная.
type Manager struct {
	mu      sync.RWMutex
	userID  int64
	cards   []domain.Card
	store   storage.WalletStorage
	catalog Catalog
	events  Events
	logger  *slog.Logger
}

func NewManager(userID int64, store storage.WalletStorage, cat Catalog, events Events, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		userID:  userID,
		cards:   []domain.Card{domain.VirtualCard()},
		store:   store,
		catalog: cat,
		events:  events,
		logger:  logger.With("user_id", userID),
	}
}

func (m *Manager) UserID() int64 {
	return m.userID
}

// Snapshot: копия кошелька в сохранённом порядке, вместе с виртуальной картой
func (m *Manager) Snapshot() []domain.Card {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Card, len(m.cards))
	for i, c := range m.cards {
		out[i] = c.Clone()
	}
	return out
}

// Cards: только реальные карты
func (m *Manager) Cards() []domain.Card {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Card, 0, len(m.cards))
	for _, c := range m.cards {
		if !c.IsVirtual() {
			out = append(out, c.Clone())
		}
	}
	return out
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.cards {
		if !c.IsVirtual() {
			n++
		}
	}
	return n
}

func (m *Manager) Find(issuer, name string) (domain.Card, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.indexOf(issuer, name); i >= 0 {
		return m.cards[i].Clone(), true
	}
	return domain.Card{}, false
}

// Add сохраняет карту в БД и добавляет в конец кошелька
func (m *Manager) Add(ctx context.Context, card domain.Card) error {
	if card.IsVirtual() {
		return ErrVirtualCard
	}
	if card.ID == "" {
		card.ID = catalog.FormatCardID(card.Issuer, card.ProductName)
	}
	if card.Rewards == nil {
		card.Rewards = map[string]float64{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.indexOf(card.Issuer, card.ProductName) >= 0 {
		return fmt.Errorf("%s %s: %w", card.Issuer, card.ProductName, ErrDuplicateCard)
	}

	if m.store != nil {
		err := m.store.AddUserCard(ctx, m.userID, storage.StoredCard{
			CardID:      card.ID,
			Issuer:      card.Issuer,
			ProductName: card.ProductName,
		})
		if err != nil {
			return fmt.Errorf("save wallet card: %w", err)
		}
	}

	m.cards = append(m.cards, card.Clone())
	m.logger.Info("card added to wallet", "issuer", card.Issuer, "card", card.ProductName, "rewards", len(card.Rewards))

	if m.events != nil {
		m.events.TrackCardAdded(m.userID, card.Issuer, card.ProductName)
	}
	return nil
}

// AddFromCatalog находит продукт в каталоге и добавляет его в кошелёк
func (m *Manager) AddFromCatalog(ctx context.Context, issuer, name string) (domain.Card, error) {
	if m.catalog == nil {
		return domain.Card{}, errors.New("catalog is not configured")
	}
	name = catalog.ExtractCardName(issuer, name)

	details, err := m.catalog.FetchCardDetails(ctx, issuer, name)
	if err != nil {
		return domain.Card{}, err
	}

	card := catalog.CardFromDetails(*details)
	if err := m.Add(ctx, card); err != nil {
		return domain.Card{}, err
	}
	return card, nil
}

func (m *Manager) Remove(ctx context.Context, issuer, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(issuer, name)
	if i < 0 {
		return fmt.Errorf("%s %s: %w", issuer, name, ErrCardNotInWallet)
	}
	card := m.cards[i]
	if card.IsVirtual() {
		return ErrVirtualCard
	}

	if m.store != nil {
		if err := m.store.RemoveUserCard(ctx, m.userID, card.ID); err != nil {
			return fmt.Errorf("remove wallet card: %w", err)
		}
	}

	m.cards = append(m.cards[:i], m.cards[i+1:]...)
	m.logger.Info("card removed from wallet", "issuer", card.Issuer, "card", card.ProductName)

	if m.events != nil {
		m.events.TrackCardDeleted(m.userID, card.Issuer, card.ProductName)
	}
	return nil
}

// Clear оставляет только виртуальную карту (выход из аккаунта)
func (m *Manager) Clear() {
	m.mu.Lock()
	m.cards = []domain.Card{domain.VirtualCard()}
	m.mu.Unlock()
}

// Load перечитывает кошелёк из БД. Детали карт грузятся параллельно,
// при ошибке каталога карта остаётся с пустой таблицей вознаграждений.
func (m *Manager) Load(ctx context.Context) error {
	if m.store == nil {
		return nil
	}

	stored, err := m.store.ListUserCards(ctx, m.userID)
	if err != nil {
		return fmt.Errorf("list wallet cards: %w", err)
	}

	loaded := make([]domain.Card, len(stored))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)

	for i, sc := range stored {
		i, sc := i, sc
		g.Go(func() error {
			loaded[i] = m.resolve(gctx, sc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	cards := make([]domain.Card, 0, len(loaded)+1)
	cards = append(cards, domain.VirtualCard())
	for _, c := range loaded {
		if c.IsVirtual() || containsCard(cards, c) {
			m.logger.Warn("skip duplicate wallet card", "issuer", c.Issuer, "card", c.ProductName)
			continue
		}
		cards = append(cards, c)
	}

	m.mu.Lock()
	m.cards = cards
	m.mu.Unlock()

	m.logger.Info("wallet loaded", "cards", len(cards)-1)
	return nil
}

func (m *Manager) resolve(ctx context.Context, sc storage.StoredCard) domain.Card {
	if m.catalog == nil {
		return withID(catalog.FallbackCard(sc.Issuer, sc.ProductName), sc.CardID)
	}
	details, err := m.catalog.FetchCardDetails(ctx, sc.Issuer, sc.ProductName)
	if err != nil {
		m.logger.Warn("using fallback card details", "issuer", sc.Issuer, "card", sc.ProductName, "error", err)
		return withID(catalog.FallbackCard(sc.Issuer, sc.ProductName), sc.CardID)
	}
	card := catalog.CardFromDetails(*details)
	// в кошельке остаётся то написание, с которым карту добавили
	card.Issuer, card.ProductName = sc.Issuer, sc.ProductName
	return withID(card, sc.CardID)
}

func (m *Manager) indexOf(issuer, name string) int {
	for i, c := range m.cards {
		if c.SameAs(issuer, name) {
			return i
		}
	}
	return -1
}

func containsCard(cards []domain.Card, card domain.Card) bool {
	for _, c := range cards {
		if c.SameAs(card.Issuer, card.ProductName) {
			return true
		}
	}
	return false
}

func withID(card domain.Card, id string) domain.Card {
	if id != "" {
		card.ID = id
	}
	return card
}
