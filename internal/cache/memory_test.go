package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string             `json:"name"`
	Rates map[string]float64 `json:"rates"`
}

func TestMemorySetGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var got payload
	hit, err := m.Get(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, m.Set(ctx, "k", payload{Name: "Gold", Rates: map[string]float64{"dining": 4}}, time.Minute))

	hit, err = m.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "Gold", got.Name)
	assert.Equal(t, 4.0, got.Rates["dining"])
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", "v", time.Minute))

	var s string
	hit, _ := m.Get(ctx, "k", &s)
	assert.True(t, hit)

	now = now.Add(2 * time.Minute)
	hit, _ = m.Get(ctx, "k", &s)
	assert.False(t, hit)
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "k", 1, 0))
	require.NoError(t, m.Delete(ctx, "k"))

	var n int
	hit, err := m.Get(ctx, "k", &n)
	require.NoError(t, err)
	assert.False(t, hit)
}
