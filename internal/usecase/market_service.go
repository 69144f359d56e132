package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vitos/coin_alarm/internal/domain"
	"go.uber.org/zap"
)

// Preference keys owned by the service.
const (
	prefKeyFilters = "coinFilters"
	prefKeyShowAll = "showAllCoins"
)

// MarketServiceConfig carries the alarm policy. Threshold and cooldown are
// policy, not mechanism, so they are injected rather than hardcoded.
type MarketServiceConfig struct {
	AlarmThreshold   float64
	AlarmCooldown    time.Duration
	AlarmLogCapacity int
}

// MarketService drives the ingestion pipeline: raw message -> normalized
// ticks -> store merge -> alarm check -> log append, plus the favorites set
// and view options the projection depends on. All mutation happens on the
// transport's message callback or on HTTP handlers; shared maps are guarded.
type MarketService struct {
	store     *CoinStore
	evaluator *AlarmEvaluator
	alarms    *AlarmLog
	gateway   domain.FavoritesGateway
	cache     domain.FavoritesCache
	prefs     domain.PreferenceStore
	logger    *zap.Logger
	threshold float64

	mu        sync.RWMutex
	favorites map[string]bool
	filters   FilterConfig
	showAll   bool
	connected bool

	cbMu         sync.RWMutex
	alarmCbs     []func(domain.AlarmEvent)
	viewChangeCb func()
}

func NewMarketService(
	cfg MarketServiceConfig,
	gateway domain.FavoritesGateway,
	cache domain.FavoritesCache,
	prefs domain.PreferenceStore,
	logger *zap.Logger,
) *MarketService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarketService{
		store:     NewCoinStore(),
		evaluator: NewAlarmEvaluator(cfg.AlarmThreshold, cfg.AlarmCooldown),
		alarms:    NewAlarmLog(cfg.AlarmLogCapacity),
		gateway:   gateway,
		cache:     cache,
		prefs:     prefs,
		logger:    logger,
		threshold: cfg.AlarmThreshold,
		favorites: make(map[string]bool),
		filters:   DefaultFilterConfig(),
	}
}

// OnAlarm registers a callback invoked for every fired alarm, on the
// message-processing goroutine.
func (s *MarketService) OnAlarm(fn func(domain.AlarmEvent)) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.alarmCbs = append(s.alarmCbs, fn)
}

// OnViewChange registers the recompute trigger. The projection itself is
// pure; mutation sites call this instead of relying on implicit dependency
// tracking.
func (s *MarketService) OnViewChange(fn func()) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.viewChangeCb = fn
}

func (s *MarketService) notifyView() {
	s.cbMu.RLock()
	fn := s.viewChangeCb
	s.cbMu.RUnlock()
	if fn != nil {
		fn()
	}
}

// HandleMessage processes one raw feed payload. A malformed payload is
// logged and dropped; the store keeps its prior state. Ticks are applied in
// order, each one merged before its alarm check so the check sees the
// retained fields too.
func (s *MarketService) HandleMessage(raw []byte) {
	ticks, err := ParseMessage(raw)
	if err != nil {
		s.logger.Warn("Discarding malformed market message", zap.Error(err), zap.Int("bytes", len(raw)))
		return
	}
	if len(ticks) == 0 {
		return
	}

	for _, tick := range ticks {
		rec := s.store.Upsert(tick)

		if ev, fired := s.evaluator.Check(rec); fired {
			s.alarms.Append(ev)
			s.logger.Info("Volume alarm fired",
				zap.String("symbol", ev.Symbol),
				zap.Float64("volume1m", rec.Volume1m))

			s.cbMu.RLock()
			cbs := make([]func(domain.AlarmEvent), len(s.alarmCbs))
			copy(cbs, s.alarmCbs)
			s.cbMu.RUnlock()
			for _, cb := range cbs {
				cb(ev)
			}
		}
	}

	s.notifyView()
}

// HandleConnected marks the stream up.
func (s *MarketService) HandleConnected() {
	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()
	s.logger.Info("Market stream connected")
}

// HandleDisconnect marks the stream down. Last-known state is retained; the
// in-flight message was already fully received, so nothing is cancelled.
func (s *MarketService) HandleDisconnect(err error) {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
	s.logger.Warn("Market stream disconnected, retaining last-known state", zap.Error(err))
}

// Displayed computes the current projection.
func (s *MarketService) Displayed() []domain.CoinRecord {
	s.mu.RLock()
	filters := s.filters
	showAll := s.showAll
	favorites := make(map[string]bool, len(s.favorites))
	for sym := range s.favorites {
		favorites[sym] = true
	}
	s.mu.RUnlock()

	return Project(s.store.Snapshot(), filters, favorites, showAll, s.threshold)
}

// Alarms returns the alarm log, most-recent-first.
func (s *MarketService) Alarms() []domain.AlarmEvent {
	return s.alarms.All()
}

func (s *MarketService) Coin(symbol string) (domain.CoinRecord, bool) {
	return s.store.Get(symbol)
}

// Filters returns the current filter selection.
func (s *MarketService) Filters() FilterConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

// ToggleFilter flips one market-cap filter flag and persists the selection.
func (s *MarketService) ToggleFilter(ctx context.Context, key string) FilterConfig {
	s.mu.Lock()
	s.filters = s.filters.Toggle(key)
	filters := s.filters
	s.mu.Unlock()

	s.persistFilters(ctx, filters)
	s.notifyView()
	return filters
}

func (s *MarketService) ShowAll() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.showAll
}

// SetShowAll flips the "show every symbol" toggle.
func (s *MarketService) SetShowAll(ctx context.Context, showAll bool) {
	s.mu.Lock()
	s.showAll = showAll
	s.mu.Unlock()

	if s.prefs != nil {
		if err := s.prefs.SetPreference(ctx, prefKeyShowAll, fmt.Sprintf("%t", showAll)); err != nil {
			s.logger.Warn("Failed to persist show-all preference", zap.Error(err))
		}
	}
	s.notifyView()
}

// Favorites returns the favorite symbols, sorted.
func (s *MarketService) Favorites() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.favorites))
	for sym := range s.favorites {
		out = append(out, sym)
	}
	s.mu.RUnlock()

	sort.Strings(out)
	return out
}

func (s *MarketService) IsFavorite(symbol string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.favorites[symbol]
}

// ToggleFavorite applies the optimistic local flip, syncs the gateway, and
// applies the precise inverse on failure. The returned error wraps
// domain.ErrFavoritesSync and is informational; local state is already
// consistent either way.
func (s *MarketService) ToggleFavorite(ctx context.Context, symbol string) error {
	s.mu.Lock()
	wasFavorite := s.favorites[symbol]
	if wasFavorite {
		delete(s.favorites, symbol)
	} else {
		s.favorites[symbol] = true
	}
	s.mu.Unlock()
	s.notifyView()

	var err error
	if s.gateway != nil {
		if wasFavorite {
			err = s.gateway.Remove(ctx, symbol)
		} else {
			err = s.gateway.Add(ctx, symbol)
		}
	}
	if err != nil {
		// Rollback: re-add if removal failed, re-remove if addition failed.
		s.mu.Lock()
		if wasFavorite {
			s.favorites[symbol] = true
		} else {
			delete(s.favorites, symbol)
		}
		s.mu.Unlock()
		s.notifyView()

		s.logger.Warn("Favorites sync failed, rolled back local change",
			zap.String("symbol", symbol), zap.Error(err))
		return fmt.Errorf("%w: %s: %v", domain.ErrFavoritesSync, symbol, err)
	}

	s.persistFavorites(ctx)
	return nil
}

// LoadFavorites fills the favorites set from the gateway, falling back to the
// local cache when the round trip fails.
func (s *MarketService) LoadFavorites(ctx context.Context) {
	var symbols []string
	var err error

	if s.gateway != nil {
		symbols, err = s.gateway.List(ctx)
	} else {
		err = errors.New("no favorites gateway configured")
	}
	if err != nil {
		s.logger.Warn("Failed to load favorites from server, falling back to local cache", zap.Error(err))
		if s.cache != nil {
			symbols, err = s.cache.LoadFavorites(ctx)
			if err != nil {
				s.logger.Warn("Failed to load favorites from local cache", zap.Error(err))
				return
			}
		}
	}

	s.mu.Lock()
	s.favorites = make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		if sym != "" {
			s.favorites[sym] = true
		}
	}
	s.mu.Unlock()
	s.notifyView()
}

// LoadPreferences restores the persisted filter selection and show-all flag.
func (s *MarketService) LoadPreferences(ctx context.Context) {
	if s.prefs == nil {
		return
	}

	if raw, err := s.prefs.GetPreference(ctx, prefKeyFilters); err == nil && raw != "" {
		var filters FilterConfig
		if err := json.Unmarshal([]byte(raw), &filters); err == nil {
			// Re-normalize in case a stale value violates the invariant.
			if !filters.Large && !filters.Mid && !filters.Small {
				filters = DefaultFilterConfig()
			} else {
				filters.All = false
			}
			s.mu.Lock()
			s.filters = filters
			s.mu.Unlock()
		}
	}

	if raw, err := s.prefs.GetPreference(ctx, prefKeyShowAll); err == nil && raw == "true" {
		s.mu.Lock()
		s.showAll = true
		s.mu.Unlock()
	}
}

func (s *MarketService) persistFilters(ctx context.Context, filters FilterConfig) {
	if s.prefs == nil {
		return
	}
	raw, err := json.Marshal(filters)
	if err == nil {
		err = s.prefs.SetPreference(ctx, prefKeyFilters, string(raw))
	}
	if err != nil {
		s.logger.Warn("Failed to persist filter preference", zap.Error(err))
	}
}

func (s *MarketService) persistFavorites(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SaveFavorites(ctx, s.Favorites()); err != nil {
		s.logger.Warn("Failed to persist favorites cache", zap.Error(err))
	}
}

// Status summarizes the service for the status endpoint.
type Status struct {
	Connected  bool `json:"connected"`
	Coins      int  `json:"coins"`
	Alarms     int  `json:"alarms"`
	Favorites  int  `json:"favorites"`
	ShowAll    bool `json:"showAll"`
	Displaying int  `json:"displaying"`
}

func (s *MarketService) Status() Status {
	s.mu.RLock()
	connected := s.connected
	showAll := s.showAll
	favCount := len(s.favorites)
	s.mu.RUnlock()

	return Status{
		Connected:  connected,
		Coins:      s.store.Len(),
		Alarms:     s.alarms.Len(),
		Favorites:  favCount,
		ShowAll:    showAll,
		Displaying: len(s.Displayed()),
	}
}
