package series

import (
	"context"
	"sync"

	"github.com/efreitasn/replaytrader/internal/domain"
)

// MemoryProvider serves series held in memory.
type MemoryProvider struct {
	mu     sync.RWMutex
	series map[Key][]domain.PricePoint
}

// NewMemoryProvider creates an empty MemoryProvider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{series: make(map[Key][]domain.PricePoint)}
}

// Put stores a copy of points under key, replacing any previous series.
func (p *MemoryProvider) Put(key Key, points []domain.PricePoint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.series[key] = append([]domain.PricePoint(nil), points...)
}

// Load implements Provider.
func (p *MemoryProvider) Load(_ context.Context, key Key) ([]domain.PricePoint, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	pts, ok := p.series[key]
	if !ok {
		return nil, domain.ErrSeriesNotFound
	}
	return append([]domain.PricePoint(nil), pts...), nil
}
