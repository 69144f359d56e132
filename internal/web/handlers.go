package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vitos/coin_alarm/internal/domain"
	"go.uber.org/zap"
)

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) handleCoins(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.service.Displayed())
}

func (s *Server) handleCoin(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	rec, ok := s.service.Coin(symbol)
	if !ok {
		http.Error(w, "unknown symbol", http.StatusNotFound)
		return
	}
	s.writeJSON(w, rec)
}

func (s *Server) handleAlarms(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.service.Alarms())
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.service.Favorites())
}

type toggleFavoriteResponse struct {
	Favorites []string `json:"favorites"`
	Synced    bool     `json:"synced"`
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}

	err := s.service.ToggleFavorite(r.Context(), symbol)
	synced := err == nil
	if err != nil && !errors.Is(err, domain.ErrFavoritesSync) {
		s.logger.Error("Favorite toggle failed", zap.String("symbol", symbol), zap.Error(err))
		http.Error(w, "toggle failed", http.StatusInternalServerError)
		return
	}

	// A sync failure was already rolled back locally; report the (restored)
	// set rather than erroring.
	s.writeJSON(w, toggleFavoriteResponse{
		Favorites: s.service.Favorites(),
		Synced:    synced,
	})
}

func (s *Server) handleToggleFilter(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	switch key {
	case "all", "large", "mid", "small":
	default:
		http.Error(w, "key must be one of all|large|mid|small", http.StatusBadRequest)
		return
	}

	s.writeJSON(w, s.service.ToggleFilter(r.Context(), key))
}

func (s *Server) handleShowAll(w http.ResponseWriter, r *http.Request) {
	showAll := !s.service.ShowAll()
	s.service.SetShowAll(r.Context(), showAll)
	s.writeJSON(w, map[string]bool{"showAll": showAll})
}

func (s *Server) handleListPreferences(w http.ResponseWriter, r *http.Request) {
	if s.prefs == nil {
		s.writeJSON(w, map[string]string{})
		return
	}

	prefs, err := s.prefs.ListPreferences(r.Context())
	if err != nil {
		s.logger.Error("Failed to list preferences", zap.Error(err))
		http.Error(w, "failed to list preferences", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, prefs)
}

func (s *Server) handleSetPreference(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	value := r.URL.Query().Get("value")
	if key == "" {
		http.Error(w, "key is required", http.StatusBadRequest)
		return
	}
	if s.prefs == nil {
		http.Error(w, "preference store unavailable", http.StatusServiceUnavailable)
		return
	}

	if err := s.prefs.SetPreference(r.Context(), key, value); err != nil {
		s.logger.Error("Failed to set preference", zap.String("key", key), zap.Error(err))
		http.Error(w, "failed to set preference", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, map[string]string{key: value})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.service.Status())
}
