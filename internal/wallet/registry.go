// internal/wallet/registry.go
package wallet

import (
	"boost-wallet/internal/storage"
	"context"
	"log/slog"
	"sort"
	"sync"
)

// Registry держит загруженные кошельки активных пользователей
type Registry struct {
	mu       sync.Mutex
	managers map[int64]*Manager
	store    storage.WalletStorage
	catalog  Catalog
	events   Events
	logger   *slog.Logger
}

func NewRegistry(store storage.WalletStorage, cat Catalog, events Events, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		managers: make(map[int64]*Manager),
		store:    store,
		catalog:  cat,
		events:   events,
		logger:   logger,
	}
}

// Get возвращает кошелёк пользователя, при первом обращении загружает его из БД
func (r *Registry) Get(ctx context.Context, userID int64) (*Manager, error) {
	r.mu.Lock()
	m, ok := r.managers[userID]
	r.mu.Unlock()
	if ok {
		return m, nil
	}

	m = NewManager(userID, r.store, r.catalog, r.events, r.logger)
	if err := m.Load(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.managers[userID]; ok {
		return existing, nil
	}
	r.managers[userID] = m
	return m, nil
}

// Drop очищает кошелёк и забывает его (выход из аккаунта)
func (r *Registry) Drop(userID int64) {
	r.mu.Lock()
	m, ok := r.managers[userID]
	delete(r.managers, userID)
	r.mu.Unlock()

	if ok {
		m.Clear()
		r.logger.Info("wallet session dropped", "user_id", userID)
	}
}

// Each вызывает fn для каждого загруженного кошелька по возрастанию user_id
func (r *Registry) Each(fn func(m *Manager)) {
	r.mu.Lock()
	ids := make([]int64, 0, len(r.managers))
	for id := range r.managers {
		ids = append(ids, id)
	}
	managers := make([]*Manager, 0, len(ids))
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		managers = append(managers, r.managers[id])
	}
	r.mu.Unlock()

	for _, m := range managers {
		fn(m)
	}
}
