package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vitos/coin_alarm/internal/config"
	"github.com/vitos/coin_alarm/internal/infrastructure/favorites"
	"github.com/vitos/coin_alarm/internal/infrastructure/logger"
	"github.com/vitos/coin_alarm/internal/infrastructure/storage"
	"github.com/vitos/coin_alarm/internal/infrastructure/stream"
	"github.com/vitos/coin_alarm/internal/usecase"
	"github.com/vitos/coin_alarm/internal/web"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Config
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Init Storage (favorites cache + preferences)
	store, err := storage.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	// 4. Init Favorites Gateway
	gateway := favorites.NewClient(cfg.Favorites.APIBaseURL)

	// 5. Init Service
	svc := usecase.NewMarketService(usecase.MarketServiceConfig{
		AlarmThreshold:   cfg.Alarm.Threshold,
		AlarmCooldown:    cfg.AlarmCooldown(),
		AlarmLogCapacity: cfg.Alarm.LogCapacity,
	}, gateway, store, store, log)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 10*time.Second)
	svc.LoadPreferences(startupCtx)
	svc.LoadFavorites(startupCtx)
	cancelStartup()

	// 6. Connect the market stream
	var subscribe []byte
	if cfg.Stream.SubscribeMessage != "" {
		subscribe = []byte(cfg.Stream.SubscribeMessage)
	}
	feed := stream.NewClient(cfg.Stream.WSEndpoint, subscribe, log)
	feed.OnMessage(svc.HandleMessage)
	feed.OnConnect(svc.HandleConnected)
	feed.OnDisconnect(svc.HandleDisconnect)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := feed.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("Stream consumer stopped", zap.Error(err))
		}
	}()

	// 7. Web server
	server := web.NewServer(cfg.Server.Port, svc, store, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Web server failed", zap.Error(err))
		}
	}()

	// 8. Wait for Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down")
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Web server shutdown failed", zap.Error(err))
	}
}
