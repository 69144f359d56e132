package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/coin_alarm/internal/infrastructure/favorites"
	"github.com/vitos/coin_alarm/internal/infrastructure/storage"
	"github.com/vitos/coin_alarm/internal/usecase"
	"go.uber.org/zap"
)

// ScenarioHelper wraps common setup for end-to-end scenario tests: a real
// SQLite store, a fake favorites backend over httptest and the market
// service wired together the way cmd/alarmd does it.
type ScenarioHelper struct {
	t       *testing.T
	store   *storage.SQLiteStore
	backend *FavoritesBackend
	server  *httptest.Server
	svc     *usecase.MarketService
	ctx     context.Context
}

// FavoritesBackend is an in-memory stand-in for the favorites REST API.
type FavoritesBackend struct {
	mu        sync.Mutex
	favorites []string
	failing   bool
}

func (b *FavoritesBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failing {
		http.Error(w, "backend down", http.StatusInternalServerError)
		return
	}

	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(b.favorites)
	case http.MethodPost:
		b.favorites = append(b.favorites, r.URL.Query().Get("marketCode"))
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		code := r.URL.Query().Get("marketCode")
		out := b.favorites[:0]
		for _, s := range b.favorites {
			if s != code {
				out = append(out, s)
			}
		}
		b.favorites = out
		w.WriteHeader(http.StatusOK)
	}
}

func (b *FavoritesBackend) SetFailing(failing bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failing = failing
}

func (b *FavoritesBackend) Favorites() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.favorites...)
}

func NewScenarioHelper(t *testing.T) *ScenarioHelper {
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "scenario.db"))
	require.NoError(t, err, "init store")
	t.Cleanup(func() { store.Close() })

	backend := &FavoritesBackend{}
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	gateway := favorites.NewClient(server.URL)
	svc := usecase.NewMarketService(usecase.MarketServiceConfig{
		AlarmThreshold:   300_000_000,
		AlarmCooldown:    3 * time.Second,
		AlarmLogCapacity: 100,
	}, gateway, store, store, zap.NewNop())

	return &ScenarioHelper{
		t:       t,
		store:   store,
		backend: backend,
		server:  server,
		svc:     svc,
		ctx:     context.Background(),
	}
}

// NewService builds a fresh service against the same store and backend,
// simulating a process restart.
func (h *ScenarioHelper) NewService() *usecase.MarketService {
	gateway := favorites.NewClient(h.server.URL)
	return usecase.NewMarketService(usecase.MarketServiceConfig{
		AlarmThreshold:   300_000_000,
		AlarmCooldown:    3 * time.Second,
		AlarmLogCapacity: 100,
	}, gateway, h.store, h.store, zap.NewNop())
}

func TestScenarioTickToAlarm(t *testing.T) {
	h := NewScenarioHelper(t)

	h.svc.HandleConnected()
	h.svc.HandleMessage([]byte(`{
		"KRW-BTC": {"price": 95000000, "volume1m": 400000000, "marketCap": 6000000000000},
		"KRW-XRP": {"price": 800, "volume1m": 100000000, "marketCap": 60000000000}
	}`))

	alarms := h.svc.Alarms()
	require.Len(t, alarms, 1, "only the coin over threshold fires")
	assert.Equal(t, "KRW-BTC", alarms[0].Symbol)

	// A second burst inside the cooldown window stays quiet.
	h.svc.HandleMessage([]byte(`{"KRW-BTC": {"volume1m": 500000000}}`))
	assert.Len(t, h.svc.Alarms(), 1)

	// The partial update merged into the existing record.
	rec, ok := h.svc.Coin("KRW-BTC")
	require.True(t, ok)
	assert.Equal(t, 500_000_000.0, rec.Volume1m)
	assert.Equal(t, 95_000_000.0, rec.Price, "price survives a volume-only update")

	status := h.svc.Status()
	assert.True(t, status.Connected)
	assert.Equal(t, 2, status.Coins)
}

func TestScenarioFavoritesRoundTrip(t *testing.T) {
	h := NewScenarioHelper(t)

	require.NoError(t, h.svc.ToggleFavorite(h.ctx, "KRW-BTC"))
	require.NoError(t, h.svc.ToggleFavorite(h.ctx, "KRW-ETH"))

	assert.ElementsMatch(t, []string{"KRW-BTC", "KRW-ETH"}, h.backend.Favorites(), "backend received the adds")

	cached, err := h.store.LoadFavorites(h.ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"KRW-BTC", "KRW-ETH"}, cached, "cache mirrors the favorites")

	// Toggling off removes everywhere.
	require.NoError(t, h.svc.ToggleFavorite(h.ctx, "KRW-ETH"))
	assert.Equal(t, []string{"KRW-BTC"}, h.svc.Favorites())
	assert.Equal(t, []string{"KRW-BTC"}, h.backend.Favorites())
}

func TestScenarioFavoriteRollbackOnBackendFailure(t *testing.T) {
	h := NewScenarioHelper(t)

	require.NoError(t, h.svc.ToggleFavorite(h.ctx, "KRW-BTC"))

	h.backend.SetFailing(true)
	err := h.svc.ToggleFavorite(h.ctx, "KRW-ETH")
	require.Error(t, err)

	assert.Equal(t, []string{"KRW-BTC"}, h.svc.Favorites(), "failed add rolled back")

	err = h.svc.ToggleFavorite(h.ctx, "KRW-BTC")
	require.Error(t, err)

	assert.True(t, h.svc.IsFavorite("KRW-BTC"), "failed remove rolled back")
}

func TestScenarioRestartRecoversFromCache(t *testing.T) {
	h := NewScenarioHelper(t)

	require.NoError(t, h.svc.ToggleFavorite(h.ctx, "KRW-BTC"))
	h.svc.ToggleFilter(h.ctx, "large")
	h.svc.SetShowAll(h.ctx, true)

	// Restart with the backend down: favorites come back from SQLite,
	// filters and the show-all flag from preferences.
	h.backend.SetFailing(true)
	svc2 := h.NewService()
	svc2.LoadPreferences(h.ctx)
	svc2.LoadFavorites(h.ctx)

	assert.Equal(t, []string{"KRW-BTC"}, svc2.Favorites())
	assert.True(t, svc2.Filters().Large)
	assert.False(t, svc2.Filters().All)
	assert.True(t, svc2.ShowAll())
}

func TestScenarioProjectionOrdersFavoritesFirst(t *testing.T) {
	h := NewScenarioHelper(t)

	h.svc.HandleMessage([]byte(`{
		"KRW-AAA": {"volume1m": 900000000, "marketCap": 6000000000000},
		"KRW-BBB": {"volume1m": 800000000, "marketCap": 6000000000000},
		"KRW-CCC": {"volume1m": 700000000, "marketCap": 6000000000000}
	}`))
	require.NoError(t, h.svc.ToggleFavorite(h.ctx, "KRW-CCC"))

	displayed := h.svc.Displayed()
	require.Len(t, displayed, 3)
	assert.Equal(t, "KRW-CCC", displayed[0].Symbol, "favorite leads regardless of volume")
	assert.Equal(t, "KRW-AAA", displayed[1].Symbol)
	assert.Equal(t, "KRW-BBB", displayed[2].Symbol)
}
