// internal/catalog/service.go
package catalog

import (
	"boost-wallet/internal/domain"
	"boost-wallet/internal/storage"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/sethvargo/go-retry"
)

var ErrCardNotFound = errors.New("card not found in catalog")

const (
	cardKeyPrefix = "catalog:card:"
	allCardsKey   = "catalog:all"
)

// Cache: то, что каталогу нужно от кэша (реализация на redis в internal/cache)
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type Options struct {
	CacheTTL       time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
}

type Service struct {
	store  storage.CatalogStorage
	cache  Cache
	opts   Options
	logger *slog.Logger
}

// IssuerCards: продукты одного банка для выбора при добавлении карты
type IssuerCards struct {
	Issuer string               `json:"issuer"`
	Cards  []domain.CardDetails `json:"cards"`
}

func NewService(store storage.CatalogStorage, cache Cache, opts Options, logger *slog.Logger) *Service {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 200 * time.Millisecond
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cache: cache, opts: opts, logger: logger}
}

// FetchCardDetails ищет продукт по банку и названию: сначала кэш, потом БД с повторами.
func (s *Service) FetchCardDetails(ctx context.Context, issuer, name string) (*domain.CardDetails, error) {
	issuer = NormalizeIssuer(issuer)
	key := cardKeyPrefix + FormatCardID(issuer, name)

	if s.cache != nil {
		var cached domain.CardDetails
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("catalog cache read failed", "key", key, "error", err)
		} else if hit {
			s.logger.Debug("catalog cache hit", "key", key)
			return &cached, nil
		}
	}

	var rec *storage.CatalogRecord
	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		found, err := s.store.FindCard(ctx, issuer, name)
		if err != nil {
			s.logger.Warn("catalog lookup failed, retrying", "issuer", issuer, "name", name, "error", err)
			return retry.RetryableError(err)
		}
		if found == nil {
			return ErrCardNotFound
		}
		rec = found
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCardNotFound) {
			return nil, fmt.Errorf("%s %s: %w", issuer, name, ErrCardNotFound)
		}
		return nil, fmt.Errorf("fetch card details: %w", err)
	}

	details := detailsFromRecord(*rec)
	s.remember(ctx, key, details)

	s.logger.Info("card details fetched", "id", details.ID, "issuer", details.Issuer, "name", details.Name, "rewards", len(details.Rewards))
	return &details, nil
}

// ListCatalog возвращает весь каталог, сгруппированный по банкам (банки и продукты по алфавиту).
func (s *Service) ListCatalog(ctx context.Context) ([]IssuerCards, error) {
	if s.cache != nil {
		var cached []IssuerCards
		if hit, err := s.cache.Get(ctx, allCardsKey, &cached); err == nil && hit {
			return cached, nil
		}
	}

	var records []storage.CatalogRecord
	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		list, err := s.store.ListCards(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}
		records = list
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}

	groups := make(map[string][]domain.CardDetails)
	for _, rec := range records {
		groups[rec.Issuer] = append(groups[rec.Issuer], detailsFromRecord(rec))
	}

	result := make([]IssuerCards, 0, len(groups))
	for issuer, cards := range groups {
		sort.Slice(cards, func(i, j int) bool { return cards[i].Name < cards[j].Name })
		result = append(result, IssuerCards{Issuer: issuer, Cards: cards})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Issuer < result[j].Issuer })

	s.remember(ctx, allCardsKey, result)
	return result, nil
}

func (s *Service) backoff() retry.Backoff {
	b := retry.NewExponential(s.opts.InitialBackoff)
	b = retry.WithJitterPercent(20, b)
	return retry.WithMaxRetries(uint64(s.opts.MaxAttempts-1), b)
}

func (s *Service) remember(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.opts.CacheTTL); err != nil {
		s.logger.Warn("catalog cache write failed", "key", key, "error", err)
	}
}

func detailsFromRecord(rec storage.CatalogRecord) domain.CardDetails {
	id := rec.ID
	if id == "" {
		id = FormatCardID(rec.Issuer, rec.Name)
	}
	return domain.CardDetails{
		ID:       id,
		Issuer:   rec.Issuer,
		Name:     rec.Name,
		Rewards:  ParseRewards(rec.Rewards),
		ImageURL: rec.ImageURL,
	}
}

// CardFromDetails превращает запись каталога в карту кошелька
func CardFromDetails(d domain.CardDetails) domain.Card {
	rewards := make(map[string]float64, len(d.Rewards))
	for k, v := range d.Rewards {
		rewards[k] = v
	}
	id := d.ID
	if id == "" {
		id = FormatCardID(d.Issuer, d.Name)
	}
	return domain.Card{
		ID:          id,
		Issuer:      d.Issuer,
		ProductName: d.Name,
		Rewards:     rewards,
		ImageURL:    d.ImageURL,
	}
}

// FallbackCard: карта без таблицы вознаграждений, когда каталог недоступен
func FallbackCard(issuer, name string) domain.Card {
	return domain.Card{
		ID:          FormatCardID(issuer, name),
		Issuer:      issuer,
		ProductName: name,
		Rewards:     map[string]float64{},
	}
}
