package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vitos/coin_alarm/internal/domain"
	"github.com/vitos/coin_alarm/internal/usecase"
	"go.uber.org/zap"
)

type Server struct {
	router  *http.ServeMux
	server  *http.Server
	service *usecase.MarketService
	prefs   domain.PreferenceStore
	logger  *zap.Logger
}

func NewServer(
	port int,
	service *usecase.MarketService,
	prefs domain.PreferenceStore,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:  http.NewServeMux(),
		service: service,
		prefs:   prefs,
		logger:  logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Coins (projected display list)
	s.router.HandleFunc("GET /api/coins", s.handleCoins)
	s.router.HandleFunc("GET /api/coins/{symbol}", s.handleCoin)

	// Alarm log
	s.router.HandleFunc("GET /api/alarms", s.handleAlarms)

	// Favorites
	s.router.HandleFunc("GET /api/favorites", s.handleFavorites)
	s.router.HandleFunc("POST /api/favorites/toggle", s.handleToggleFavorite)

	// View options
	s.router.HandleFunc("POST /api/filters", s.handleToggleFilter)
	s.router.HandleFunc("POST /api/view/show-all", s.handleShowAll)

	// Preferences
	s.router.HandleFunc("GET /api/preferences", s.handleListPreferences)
	s.router.HandleFunc("PUT /api/preferences", s.handleSetPreference)

	// Status
	s.router.HandleFunc("GET /status", s.handleStatus)
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
