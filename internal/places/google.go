// internal/places/google.go
package places

import (
	"boost-wallet/internal/domain"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultEndpoint = "https://places.googleapis.com/v1"
	DefaultRadius   = 100.0

	// радиус смещения выдачи текстового поиска к точке пользователя
	searchBiasRadius = 5000.0

	fieldMask = "places.id,places.displayName,places.formattedAddress,places.location,places.types,places.rating"
)

type GoogleClient struct {
	endpoint string
	apiKey   string
	radius   float64
	client   *http.Client
}

func NewGoogleClient(endpoint, apiKey string, radius float64, timeout time.Duration) *GoogleClient {
	endpoint = strings.TrimSuffix(endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if radius <= 0 {
		radius = DefaultRadius
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &GoogleClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		radius:   radius,
		client:   &http.Client{Timeout: timeout},
	}
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type nearbyRequest struct {
	ExcludedTypes       []string `json:"excludedTypes"`
	MaxResultCount      int      `json:"maxResultCount"`
	RankPreference      string   `json:"rankPreference"`
	LocationRestriction struct {
		Circle circle `json:"circle"`
	} `json:"locationRestriction"`
}

type circle struct {
	Center latLng  `json:"center"`
	Radius float64 `json:"radius"`
}

type locationBias struct {
	Circle circle `json:"circle"`
}

type searchTextRequest struct {
	TextQuery      string        `json:"textQuery"`
	MaxResultCount int           `json:"maxResultCount"`
	LocationBias   *locationBias `json:"locationBias,omitempty"`
}

type placesResponse struct {
	Places []struct {
		ID          string `json:"id"`
		DisplayName struct {
			Text string `json:"text"`
		} `json:"displayName"`
		FormattedAddress string   `json:"formattedAddress"`
		Location         latLng   `json:"location"`
		Types            []string `json:"types"`
		Rating           float64  `json:"rating"`
	} `json:"places"`
}

// Nearby: популярные места в радиусе от точки, без торговых центров, не больше MaxResults
func (c *GoogleClient) Nearby(ctx context.Context, lat, lng float64) ([]domain.Business, error) {
	if err := ValidateCoordinates(lat, lng); err != nil {
		return nil, err
	}

	var body nearbyRequest
	body.ExcludedTypes = []string{"shopping_mall"}
	body.MaxResultCount = MaxResults
	body.RankPreference = "POPULARITY"
	body.LocationRestriction.Circle.Center = latLng{Latitude: lat, Longitude: lng}
	body.LocationRestriction.Circle.Radius = c.radius

	result, err := c.post(ctx, "/places:searchNearby", body)
	if err != nil {
		return nil, err
	}

	slog.Debug("nearby places found", "lat", lat, "lng", lng, "count", len(result))
	return result, nil
}

// Search: текстовый поиск заведений. Одинаковые названия схлопываются, остаётся первое.
func (c *GoogleClient) Search(ctx context.Context, query string, near *Point) ([]domain.Business, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	body := searchTextRequest{TextQuery: query, MaxResultCount: MaxResults}
	if near != nil {
		if err := ValidateCoordinates(near.Lat, near.Lng); err != nil {
			return nil, err
		}
		body.LocationBias = &locationBias{
			Circle: circle{Center: latLng{Latitude: near.Lat, Longitude: near.Lng}, Radius: searchBiasRadius},
		}
	}

	found, err := c.post(ctx, "/places:searchText", body)
	if err != nil {
		return nil, err
	}

	result := UniqueByName(found)
	slog.Debug("places search done", "query", query, "count", len(result))
	return result, nil
}

func (c *GoogleClient) post(ctx context.Context, path string, body any) ([]domain.Business, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode places request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("places request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("places api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var decoded placesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode places response: %w", err)
	}

	result := make([]domain.Business, 0, min(len(decoded.Places), MaxResults))
	for _, p := range decoded.Places {
		if len(result) == MaxResults {
			break
		}
		result = append(result, domain.Business{
			PlaceID: p.ID,
			Name:    p.DisplayName.Text,
			Types:   p.Types,
			Address: p.FormattedAddress,
			Lat:     p.Location.Latitude,
			Lng:     p.Location.Longitude,
			Rating:  p.Rating,
		})
	}
	return result, nil
}
