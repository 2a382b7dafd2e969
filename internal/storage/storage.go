// internal/storage/storage.go
package storage

import (
	"boost-wallet/internal/domain"
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// StoredCard: ссылка на карту в кошельке пользователя (порядок добавления важен)
type StoredCard struct {
	CardID      string
	Issuer      string
	ProductName string
}

// CatalogRecord: сырая запись каталога: rewards как есть из jsonb
type CatalogRecord struct {
	ID       string
	Issuer   string
	Name     string
	Rewards  map[string]any
	ImageURL string
}

type CatalogStorage interface {
	FindCard(ctx context.Context, issuer, name string) (*CatalogRecord, error)
	ListCards(ctx context.Context) ([]CatalogRecord, error)
}

type WalletStorage interface {
	ListUserCards(ctx context.Context, userID int64) ([]StoredCard, error)
	AddUserCard(ctx context.Context, userID int64, card StoredCard) error
	RemoveUserCard(ctx context.Context, userID int64, cardID string) error
}

type MetricsStorage interface {
	// UpdateMetrics читает метрики под блокировкой, применяет fn и сохраняет результат
	UpdateMetrics(ctx context.Context, userID int64, fn func(m *domain.UserMetrics) error) error
	GetMetrics(ctx context.Context, userID int64) (*domain.UserMetrics, error)
}

type UserStorage interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	EnsureTelegramUser(ctx context.Context, telegramID int64) (int64, error)
}
