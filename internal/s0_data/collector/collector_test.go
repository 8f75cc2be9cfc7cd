package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pairlab/backend/internal/contracts"
	"github.com/wonny/pairlab/backend/internal/s0_data"
	"github.com/wonny/pairlab/backend/pkg/logger"
)

type memoryStore struct {
	mu   sync.Mutex
	rows map[string]int
}

func (m *memoryStore) SaveBatch(ctx context.Context, source string, bars []contracts.PriceBar) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range bars {
		m.rows[b.Symbol]++
	}
	return len(bars), nil
}

func TestCollector_Collect(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	var bars []contracts.PriceBar
	for i := 0; i < 5; i++ {
		bars = append(bars,
			contracts.PriceBar{Symbol: "AAA", Date: start.AddDate(0, 0, i), Close: 10},
			contracts.PriceBar{Symbol: "BBB", Date: start.AddDate(0, 0, i), Close: 20},
		)
	}
	source := s0_data.NewMemorySource(bars)
	store := &memoryStore{rows: map[string]int{}}

	c := NewCollector(source, "memory", store, logger.NewNop())
	results, err := c.Collect(context.Background(), []string{"BBB", "MISSING", "AAA"}, time.Time{}, time.Time{}, Config{Workers: 4})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "AAA", results[0].Symbol)
	assert.Equal(t, 5, results[0].PriceCount)
	assert.NoError(t, results[0].Error)

	assert.Equal(t, "BBB", results[1].Symbol)
	assert.Equal(t, 5, results[1].PriceCount)

	assert.Equal(t, "MISSING", results[2].Symbol)
	assert.True(t, errors.Is(results[2].Error, contracts.ErrInput))

	assert.Equal(t, map[string]int{"AAA": 5, "BBB": 5}, store.rows)
}

func TestCollector_NoSymbols(t *testing.T) {
	c := NewCollector(s0_data.NewMemorySource(nil), "memory", &memoryStore{rows: map[string]int{}}, nil)
	_, err := c.Collect(context.Background(), nil, time.Time{}, time.Time{}, Config{})
	assert.Error(t, err)
}
