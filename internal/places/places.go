// internal/places/places.go
package places

import (
	"boost-wallet/internal/domain"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const MaxResults = 10

var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Provider ищет места рядом с точкой и по названию
type Provider interface {
	Nearby(ctx context.Context, lat, lng float64) ([]domain.Business, error)
	// near может быть nil
	Search(ctx context.Context, query string, near *Point) ([]domain.Business, error)
}

type Point struct {
	Lat float64
	Lng float64
}

// UniqueByName оставляет первое место с каждым названием (без учёта регистра)
func UniqueByName(list []domain.Business) []domain.Business {
	seen := make(map[string]struct{}, len(list))
	out := make([]domain.Business, 0, len(list))
	for _, b := range list {
		key := strings.ToLower(strings.TrimSpace(b.Name))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, b)
	}
	return out
}

// ParseCoordinates разбирает строку вида "37.7749, -122.4194"
func ParseCoordinates(s string) (float64, float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%q: %w", s, ErrInvalidCoordinates)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%q: %w", s, ErrInvalidCoordinates)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%q: %w", s, ErrInvalidCoordinates)
	}
	if err := ValidateCoordinates(lat, lng); err != nil {
		return 0, 0, err
	}
	return lat, lng, nil
}

func ValidateCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return fmt.Errorf("%.6f, %.6f: %w", lat, lng, ErrInvalidCoordinates)
	}
	return nil
}

// Static возвращает заранее заданный список мест (офлайн-режим, тесты)
type Static struct {
	Places []domain.Business
}

func (s Static) Nearby(_ context.Context, lat, lng float64) ([]domain.Business, error) {
	if err := ValidateCoordinates(lat, lng); err != nil {
		return nil, err
	}
	n := min(len(s.Places), MaxResults)
	out := make([]domain.Business, n)
	copy(out, s.Places[:n])
	return out, nil
}

// Search ищет по вхождению запроса в название, координаты только проверяются
func (s Static) Search(_ context.Context, query string, near *Point) ([]domain.Business, error) {
	if near != nil {
		if err := ValidateCoordinates(near.Lat, near.Lng); err != nil {
			return nil, err
		}
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}

	var matched []domain.Business
	for _, p := range s.Places {
		if strings.Contains(strings.ToLower(p.Name), query) {
			matched = append(matched, p)
		}
	}
	out := UniqueByName(matched)
	return out[:min(len(out), MaxResults)], nil
}
