package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Strongman1380/myassistant/internal/calendar"
	"github.com/Strongman1380/myassistant/internal/config"
	"github.com/Strongman1380/myassistant/internal/db"
	httpx "github.com/Strongman1380/myassistant/internal/http"
	"github.com/Strongman1380/myassistant/internal/llm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	tz, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Fatal("invalid TIMEZONE", zap.String("timezone", cfg.Timezone), zap.Error(err))
	}

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		logger.Fatal("database migrate failed", zap.Error(err))
	}

	gw := llm.NewClient(llm.Config{APIKey: cfg.OpenAIAPIKey}, logger)
	states := calendar.NewStateSigner(cfg.OAuthStateSecret)
	connectors := map[string]calendar.Connector{
		"google":  calendar.NewGoogleConnector(cfg.Google, cfg.Timezone, states, logger),
		"outlook": calendar.NewOutlookConnector(cfg.Microsoft, cfg.Timezone, states, logger),
	}

	r := httpx.NewRouter(cfg, gdb, gw, connectors, states, tz, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
