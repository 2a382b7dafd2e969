// internal/auth/service.go
package auth

import (
	"boost-wallet/internal/domain"
	"boost-wallet/internal/storage"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
)

type Service struct {
	users  storage.UserStorage
	tokens *TokenService
}

func NewService(users storage.UserStorage, tokens *TokenService) *Service {
	return &Service{users: users, tokens: tokens}
}

// SignUp создаёт пользователя и сразу выдаёт токен
func (s *Service) SignUp(ctx context.Context, email, password string) (*domain.User, string, error) {
	email = normalizeEmail(email)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, email, string(hash))
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}

	slog.Info("user signed up", "user_id", user.ID)
	return user, token, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.FindUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Warn("sign in failed", "user_id", user.ID)
		return "", ErrInvalidCredentials
	}

	return s.tokens.GenerateToken(user.ID)
}

// EnsureTelegramUser: id пользователя для чата в Telegram, создаётся при первом сообщении
func (s *Service) EnsureTelegramUser(ctx context.Context, telegramID int64) (int64, error) {
	id, err := s.users.EnsureTelegramUser(ctx, telegramID)
	if err != nil {
		return 0, fmt.Errorf("ensure telegram user: %w", err)
	}
	return id, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
