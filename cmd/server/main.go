package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"bandroom/internal/cache"
	"bandroom/internal/config"
	"bandroom/internal/handlers"
	"bandroom/internal/lookup"
	"bandroom/internal/models"
	"bandroom/internal/repositories"
	"bandroom/internal/services"
)

func main() {
	// Load .env file for local development
	_ = godotenv.Load()

	// Initialize structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize database
	db, err := models.NewDatabase(context.Background(), cfg.MongodbURL, cfg.DBName)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close(context.Background())

	if err := db.CreateIndexes(context.Background()); err != nil {
		slog.Error("Failed to create indexes", "error", err)
		os.Exit(1)
	}

	// Optional Valkey hot cache in front of the Mongo result cache
	var hotCache cache.Cache
	if cfg.ValkeyURL != "" {
		hotCache, err = cache.NewValkeyCache(cfg.ValkeyURL)
		if err != nil {
			slog.Warn("Hot cache unavailable, continuing without it", "error", err)
		} else {
			defer hotCache.Close()
		}
	}

	resultCache := lookup.NewResultCache(repositories.NewMongoEntryRepository(db), hotCache)

	// Each source adapter is wired only when its credentials are present;
	// the pipeline degrades through its fallback tiers for the rest
	var metadata services.MetadataSource
	if cfg.HasSpotify() {
		metadata = services.NewSpotifyService(cfg.SpotifyClientID, cfg.SpotifyClientSecret)
	}
	var lyrics services.LyricsSource
	if cfg.HasGenius() {
		lyrics = services.NewGeniusService(cfg.GeniusAccessToken)
	}
	var recognition services.RecognitionSource
	if cfg.HasAudd() {
		recognition = services.NewAuddService(cfg.AuddAPIToken)
	}
	var generative services.GenerativeSource
	if cfg.HasOpenAI() {
		generative = services.NewOpenAIService(cfg.OpenAIAPIKey)
	}
	slog.Info("Source adapters configured",
		"spotify", metadata != nil,
		"genius", lyrics != nil,
		"audd", recognition != nil,
		"openai", generative != nil)

	lookupService := lookup.NewLookupService(resultCache, metadata, lyrics, recognition, generative, config.GetCachePolicy())

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	handlers.RegisterRoutes(router, handlers.NewSongHandler(lookupService), handlers.NewAdminHandler(lookupService))

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Forced shutdown", "error", err)
	}
	slog.Info("Server stopped")
}
