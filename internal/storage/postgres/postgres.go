// internal/storage/postgres/postgres.go
package postgres

import (
	"boost-wallet/internal/domain"
	"boost-wallet/internal/storage"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type Storage struct {
	db *pgxpool.Pool
}

func NewStorage(db *pgxpool.Pool) *Storage {
	return &Storage{db: db}
}

// sanitizeString очищает строку от невидимых и проблемных символов
func sanitizeString(s string) string {
	result := make([]rune, 0, len(s))
	for _, r := range s {
		// NO-BREAK SPACE и прочие пробельные -> обычный пробел
		if unicode.IsSpace(r) {
			result = append(result, ' ')
		} else if unicode.IsPrint(r) {
			result = append(result, r)
		}
	}
	return strings.Join(strings.Fields(string(result)), " ")
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// === CatalogStorage ===

func (s *Storage) FindCard(ctx context.Context, issuer, name string) (*storage.CatalogRecord, error) {
	var rec storage.CatalogRecord
	err := s.db.QueryRow(ctx, `
		SELECT id, issuer, name, rewards, COALESCE(img_url, '')
		FROM cards
		WHERE lower(issuer) = lower($1) AND lower(name) = lower($2)
		LIMIT 1
	`, sanitizeString(issuer), sanitizeString(name)).Scan(&rec.ID, &rec.Issuer, &rec.Name, &rec.Rewards, &rec.ImageURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find card: %w", err)
	}
	return &rec, nil
}

func (s *Storage) ListCards(ctx context.Context) ([]storage.CatalogRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, issuer, name, rewards, COALESCE(img_url, '')
		FROM cards
		ORDER BY issuer, name
	`)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var records []storage.CatalogRecord
	for rows.Next() {
		var rec storage.CatalogRecord
		if err := rows.Scan(&rec.ID, &rec.Issuer, &rec.Name, &rec.Rewards, &rec.ImageURL); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// === WalletStorage ===

func (s *Storage) ListUserCards(ctx context.Context, userID int64) ([]storage.StoredCard, error) {
	rows, err := s.db.Query(ctx, `
		SELECT card_id, issuer, product_name
		FROM user_cards
		WHERE user_id = $1
		ORDER BY position
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user cards: %w", err)
	}
	defer rows.Close()

	var cards []storage.StoredCard
	for rows.Next() {
		var c storage.StoredCard
		if err := rows.Scan(&c.CardID, &c.Issuer, &c.ProductName); err != nil {
			return nil, fmt.Errorf("scan user card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func (s *Storage) AddUserCard(ctx context.Context, userID int64, card storage.StoredCard) error {
	issuer := sanitizeString(card.Issuer)
	product := sanitizeString(card.ProductName)
	if issuer == "" || product == "" || card.CardID == "" {
		return fmt.Errorf("card id, issuer and product name cannot be empty")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// блокируем кошелёк пользователя, чтобы позиции не пересекались
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", userID); err != nil {
		return fmt.Errorf("lock wallet: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO user_cards (user_id, card_id, issuer, product_name, position)
		VALUES ($1, $2, $3, $4,
			(SELECT COALESCE(MAX(position), 0) + 1 FROM user_cards WHERE user_id = $1))
		ON CONFLICT (user_id, card_id) DO NOTHING
	`, userID, card.CardID, issuer, product)
	if err != nil {
		return fmt.Errorf("insert user card: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	slog.Debug("AddUserCard completed", "user_id", userID, "card_id", card.CardID)
	return nil
}

func (s *Storage) RemoveUserCard(ctx context.Context, userID int64, cardID string) error {
	result, err := s.db.Exec(ctx, `
		DELETE FROM user_cards WHERE user_id = $1 AND card_id = $2
	`, userID, cardID)
	if err != nil {
		return fmt.Errorf("delete user card: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("card %q: %w", cardID, storage.ErrNotFound)
	}
	return nil
}

// === MetricsStorage ===

func (s *Storage) UpdateMetrics(ctx context.Context, userID int64, fn func(m *domain.UserMetrics) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO user_metrics (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	m := domain.UserMetrics{UserID: userID}
	err = tx.QueryRow(ctx, `
		SELECT total_cards, card_usage FROM user_metrics WHERE user_id = $1 FOR UPDATE
	`, userID).Scan(&m.TotalCards, &m.CardUsageByCategory)
	if err != nil {
		return fmt.Errorf("lock metrics: %w", err)
	}
	if m.CardUsageByCategory == nil {
		m.CardUsageByCategory = map[string]map[string]int{}
	}

	if err := fn(&m); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE user_metrics
		SET total_cards = $2, card_usage = $3, updated_at = now()
		WHERE user_id = $1
	`, userID, m.TotalCards, m.CardUsageByCategory)
	if err != nil {
		return fmt.Errorf("update metrics: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *Storage) GetMetrics(ctx context.Context, userID int64) (*domain.UserMetrics, error) {
	m := domain.UserMetrics{UserID: userID}
	err := s.db.QueryRow(ctx, `
		SELECT total_cards, card_usage FROM user_metrics WHERE user_id = $1
	`, userID).Scan(&m.TotalCards, &m.CardUsageByCategory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get metrics: %w", err)
	}
	return &m, nil
}

// === UserStorage ===

func (s *Storage) CreateUser(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	u := domain.User{Email: email, PasswordHash: passwordHash}
	err = tx.QueryRow(ctx, `
		INSERT INTO users (email, password_hash) VALUES ($1, $2)
		RETURNING id, created_at
	`, email, passwordHash).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, storage.ErrDuplicate
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	// пустые метрики заводим сразу вместе с пользователем
	if _, err := tx.Exec(ctx, `INSERT INTO user_metrics (user_id) VALUES ($1)`, u.ID); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &u, nil
}

func (s *Storage) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := s.db.QueryRow(ctx, `
		SELECT id, email, password_hash, telegram_id, created_at
		FROM users WHERE email = $1
	`, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.TelegramID, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (s *Storage) EnsureTelegramUser(ctx context.Context, telegramID int64) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO users (telegram_id) VALUES ($1)
		ON CONFLICT (telegram_id) DO UPDATE SET telegram_id = EXCLUDED.telegram_id
		RETURNING id
	`, telegramID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create or get telegram user: %w", err)
	}
	return id, nil
}
