package usecase

import (
	"sync"
	"time"

	"github.com/vitos/coin_alarm/internal/domain"
)

// CoinStore is the single source of truth for current per-symbol state.
// Writes are serialized; readers always see fully merged records.
type CoinStore struct {
	mu      sync.RWMutex
	coins   map[string]*domain.CoinRecord
	timeNow func() time.Time // For testing
}

func NewCoinStore() *CoinStore {
	return &CoinStore{
		coins:   make(map[string]*domain.CoinRecord),
		timeNow: time.Now,
	}
}

// Upsert merges one tick into the record for tick.Symbol, creating it if
// absent, and returns a copy of the merged record. Only fields present in the
// tick overwrite; a field never seen stays at its zero value. Ticks with an
// empty symbol are the normalizer's job to filter out.
func (s *CoinStore) Upsert(tick domain.Tick) domain.CoinRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.coins[tick.Symbol]
	if !ok {
		rec = &domain.CoinRecord{Symbol: tick.Symbol}
		s.coins[tick.Symbol] = rec
	}

	applyTick(rec, tick)

	if tick.Timestamp != nil {
		rec.LastUpdated = time.UnixMilli(*tick.Timestamp)
	} else {
		rec.LastUpdated = s.timeNow()
	}

	return *rec
}

func applyTick(rec *domain.CoinRecord, tick domain.Tick) {
	if tick.Price != nil {
		rec.Price = *tick.Price
	}
	if tick.Volume1m != nil {
		rec.Volume1m = *tick.Volume1m
	}
	if tick.Volume5m != nil {
		rec.Volume5m = *tick.Volume5m
	}
	if tick.Volume15m != nil {
		rec.Volume15m = *tick.Volume15m
	}
	if tick.Volume1h != nil {
		rec.Volume1h = *tick.Volume1h
	}
	if tick.Volume24h != nil {
		rec.Volume24h = *tick.Volume24h
	}
	if tick.BuyVolume != nil {
		rec.BuyVolume = *tick.BuyVolume
	}
	if tick.SellVolume != nil {
		rec.SellVolume = *tick.SellVolume
	}
	if tick.Change24h != nil {
		rec.Change24h = *tick.Change24h
	}
	if tick.MarketCap != nil {
		rec.MarketCap = *tick.MarketCap
	}
	if tick.MaintenanceRate != nil {
		rec.MaintenanceRate = *tick.MaintenanceRate
	}
}

// Get returns a copy of the record for symbol.
func (s *CoinStore) Get(symbol string) (domain.CoinRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.coins[symbol]
	if !ok {
		return domain.CoinRecord{}, false
	}
	return *rec, true
}

// Snapshot returns copies of all current records. Order is not guaranteed.
func (s *CoinStore) Snapshot() []domain.CoinRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.CoinRecord, 0, len(s.coins))
	for _, rec := range s.coins {
		out = append(out, *rec)
	}
	return out
}

func (s *CoinStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.coins)
}
