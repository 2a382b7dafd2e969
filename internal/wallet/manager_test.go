package wallet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"boost-wallet/internal/catalog"
	"boost-wallet/internal/domain"
	"boost-wallet/internal/recommend"
	"boost-wallet/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memWallets struct {
	mu    sync.Mutex
	cards map[int64][]storage.StoredCard
	fail  error
}

func newMemWallets() *memWallets {
	return &memWallets{cards: make(map[int64][]storage.StoredCard)}
}

func (s *memWallets) ListUserCards(_ context.Context, userID int64) ([]storage.StoredCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	return append([]storage.StoredCard(nil), s.cards[userID]...), nil
}

func (s *memWallets) AddUserCard(_ context.Context, userID int64, card storage.StoredCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.cards[userID] = append(s.cards[userID], card)
	return nil
}

func (s *memWallets) RemoveUserCard(_ context.Context, userID int64, cardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.cards[userID]
	for i, c := range list {
		if c.CardID == cardID {
			s.cards[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

type fakeCatalog struct {
	details map[string]domain.CardDetails
	broken  map[string]bool
}

func (f *fakeCatalog) FetchCardDetails(_ context.Context, issuer, name string) (*domain.CardDetails, error) {
	id := catalog.FormatCardID(catalog.NormalizeIssuer(issuer), name)
	if f.broken[id] {
		return nil, errors.New("catalog unavailable")
	}
	d, ok := f.details[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, catalog.ErrCardNotFound)
	}
	return &d, nil
}

type recorder struct {
	mu      sync.Mutex
	added   []string
	deleted []string
}

func (r *recorder) TrackCardAdded(_ int64, issuer, name string) {
	r.mu.Lock()
	r.added = append(r.added, issuer+" "+name)
	r.mu.Unlock()
}

func (r *recorder) TrackCardDeleted(_ int64, issuer, name string) {
	r.mu.Lock()
	r.deleted = append(r.deleted, issuer+" "+name)
	r.mu.Unlock()
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{
		details: map[string]domain.CardDetails{
			"amex_gold":                {ID: "amex_gold", Issuer: "Amex", Name: "Gold", Rewards: map[string]float64{"dining": 4}},
			"chase_sapphire_preferred": {ID: "chase_sapphire_preferred", Issuer: "Chase", Name: "Sapphire Preferred", Rewards: map[string]float64{"dining": 3, "other": 1}},
			"citi_double_cash":         {ID: "citi_double_cash", Issuer: "Citi", Name: "Double Cash", Rewards: map[string]float64{"other": 2}},
		},
		broken: map[string]bool{},
	}
}

func TestNewManagerHasOnlyVirtualCard(t *testing.T) {
	m := NewManager(1, nil, nil, nil, nil)

	snap := m.Snapshot()
	require.Len(t, snap, 1)
	assert.True(t, snap[0].IsVirtual())
	assert.Empty(t, m.Cards())
	assert.Equal(t, 0, m.Count())
}

func TestAddFromCatalogKeepsOrder(t *testing.T) {
	store := newMemWallets()
	events := &recorder{}
	m := NewManager(1, store, testCatalog(), events, nil)
	ctx := context.Background()

	_, err := m.AddFromCatalog(ctx, "Chase", "Sapphire Preferred")
	require.NoError(t, err)
	card, err := m.AddFromCatalog(ctx, "American Express", "Amex Gold")
	require.NoError(t, err)
	assert.Equal(t, "Gold", card.ProductName)

	snap := m.Snapshot()
	require.Len(t, snap, 3)
	assert.True(t, snap[0].IsVirtual())
	assert.Equal(t, "Sapphire Preferred", snap[1].ProductName)
	assert.Equal(t, "Gold", snap[2].ProductName)

	assert.Equal(t, []string{"chase_sapphire_preferred", "amex_gold"}, storedIDs(store, 1))
	assert.Equal(t, []string{"Chase Sapphire Preferred", "Amex Gold"}, events.added)
}

func TestAddDuplicateIsRejected(t *testing.T) {
	m := NewManager(1, newMemWallets(), testCatalog(), nil, nil)
	ctx := context.Background()

	_, err := m.AddFromCatalog(ctx, "Chase", "Sapphire Preferred")
	require.NoError(t, err)

	err = m.Add(ctx, domain.Card{Issuer: " chase", ProductName: "SAPPHIRE preferred "})
	assert.ErrorIs(t, err, ErrDuplicateCard)
	assert.Equal(t, 1, m.Count())
}

func TestAddVirtualIsRejected(t *testing.T) {
	m := NewManager(1, nil, nil, nil, nil)
	assert.ErrorIs(t, m.Add(context.Background(), domain.VirtualCard()), ErrVirtualCard)
}

func TestAddFromCatalogUnknownCard(t *testing.T) {
	store := newMemWallets()
	m := NewManager(1, store, testCatalog(), nil, nil)

	_, err := m.AddFromCatalog(context.Background(), "Chase", "Nope")
	assert.ErrorIs(t, err, catalog.ErrCardNotFound)
	assert.Equal(t, 0, m.Count())
	assert.Empty(t, storedIDs(store, 1))
}

func TestAddStorageFailureLeavesWalletUntouched(t *testing.T) {
	store := newMemWallets()
	store.fail = errors.New("db down")
	m := NewManager(1, store, testCatalog(), nil, nil)

	_, err := m.AddFromCatalog(context.Background(), "Citi", "Double Cash")
	require.Error(t, err)
	assert.Equal(t, 0, m.Count())
}

func TestRemove(t *testing.T) {
	store := newMemWallets()
	events := &recorder{}
	m := NewManager(1, store, testCatalog(), events, nil)
	ctx := context.Background()

	_, err := m.AddFromCatalog(ctx, "Citi", "Double Cash")
	require.NoError(t, err)

	assert.ErrorIs(t, m.Remove(ctx, "Virtual", "Debit Card"), ErrVirtualCard)
	assert.ErrorIs(t, m.Remove(ctx, "Chase", "Freedom Flex"), ErrCardNotInWallet)

	require.NoError(t, m.Remove(ctx, "citi", "double cash"))
	assert.Equal(t, 0, m.Count())
	assert.Empty(t, storedIDs(store, 1))
	assert.Equal(t, []string{"Citi Double Cash"}, events.deleted)
}

func TestFind(t *testing.T) {
	m := NewManager(1, nil, testCatalog(), nil, nil)
	_, err := m.AddFromCatalog(context.Background(), "Amex", "Gold")
	require.NoError(t, err)

	card, ok := m.Find("AMEX", "gold")
	require.True(t, ok)
	assert.Equal(t, 4.0, card.Rewards["dining"])

	_, ok = m.Find("Amex", "Platinum")
	assert.False(t, ok)
}

func TestSnapshotIsACopy(t *testing.T) {
	m := NewManager(1, nil, testCatalog(), nil, nil)
	_, err := m.AddFromCatalog(context.Background(), "Amex", "Gold")
	require.NoError(t, err)

	snap := m.Snapshot()
	snap[1].Rewards["dining"] = 100

	card, _ := m.Find("Amex", "Gold")
	assert.Equal(t, 4.0, card.Rewards["dining"])
}

func TestLoadKeepsStoredOrderAndFallsBack(t *testing.T) {
	store := newMemWallets()
	store.cards[7] = []storage.StoredCard{
		{CardID: "citi_double_cash", Issuer: "Citi", ProductName: "Double Cash"},
		{CardID: "amex_gold", Issuer: "Amex", ProductName: "Gold"},
		{CardID: "chase_slate_edge", Issuer: "Chase", ProductName: "Slate Edge"},
		{CardID: "amex_gold", Issuer: "Amex", ProductName: "Gold"},
		{CardID: "chase_sapphire_preferred", Issuer: "Chase", ProductName: "Sapphire Preferred"},
	}
	cat := testCatalog()
	cat.broken["chase_sapphire_preferred"] = true

	m := NewManager(7, store, cat, nil, nil)
	require.NoError(t, m.Load(context.Background()))

	snap := m.Snapshot()
	require.Len(t, snap, 5)
	assert.True(t, snap[0].IsVirtual())

	names := make([]string, 0, 4)
	for _, c := range snap[1:] {
		names = append(names, c.ProductName)
	}
	assert.Equal(t, []string{"Double Cash", "Gold", "Slate Edge", "Sapphire Preferred"}, names)

	assert.Equal(t, 2.0, snap[1].Rewards["other"])
	assert.Empty(t, snap[3].Rewards)
	assert.Empty(t, snap[4].Rewards)
	assert.Equal(t, "chase_sapphire_preferred", snap[4].ID)
}

func TestLoadStorageError(t *testing.T) {
	store := newMemWallets()
	store.fail = errors.New("db down")
	m := NewManager(1, store, testCatalog(), nil, nil)

	require.Error(t, m.Load(context.Background()))
	assert.Len(t, m.Snapshot(), 1)
}

func TestClear(t *testing.T) {
	m := NewManager(1, nil, testCatalog(), nil, nil)
	_, err := m.AddFromCatalog(context.Background(), "Amex", "Gold")
	require.NoError(t, err)

	m.Clear()
	snap := m.Snapshot()
	require.Len(t, snap, 1)
	assert.True(t, snap[0].IsVirtual())
}

func storedIDs(s *memWallets, userID int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.cards[userID]))
	for _, c := range s.cards[userID] {
		ids = append(ids, c.CardID)
	}
	return ids
}

func TestRecommendationsDuringConcurrentEdits(t *testing.T) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewManager(1, newMemWallets(), nil, nil, quiet)
	ctx := context.Background()

	gold := domain.Card{Issuer: "Amex", ProductName: "Gold", Rewards: map[string]float64{"dining": 4, "other": 1}}
	costco := domain.Card{Issuer: "Citi", ProductName: "Costco Anywhere Visa", Rewards: map[string]float64{"gas": 4, "other": 1}}
	require.NoError(t, m.Add(ctx, gold))

	const rounds = 200
	var wg sync.WaitGroup

	for w := 0; w < 2; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				err := m.Add(ctx, costco)
				if err != nil && !errors.Is(err, ErrDuplicateCard) {
					t.Errorf("add: %v", err)
					return
				}
				err = m.Remove(ctx, costco.Issuer, costco.ProductName)
				if err != nil && !errors.Is(err, ErrCardNotInWallet) {
					t.Errorf("remove: %v", err)
					return
				}
			}
		}()
	}

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				snapshot := m.Snapshot()
				for _, rec := range []*domain.Recommendation{
					recommend.BestForCategory(snapshot, "dining"),
					recommend.BestForCategory(snapshot, "gas"),
					recommend.BestForBusiness(snapshot, "Costco Gas Station", "gas"),
				} {
					if rec == nil {
						t.Errorf("no recommendation for wallet of %d cards", len(snapshot))
						return
					}
					if rec.Card.IsVirtual() {
						t.Errorf("virtual card recommended")
						return
					}
				}
			}
		}()
	}

	wg.Wait()
	cards := m.Cards()
	require.Len(t, cards, 1)
	assert.Equal(t, "Gold", cards[0].ProductName)
}
