package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	apimw "movierockstar/api"
	"movierockstar/config"
	"movierockstar/handlers"
	"movierockstar/metrics"
	"movierockstar/services/catalog"
	"movierockstar/services/recommend"
	"movierockstar/services/streaming"
	"movierockstar/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	listenAddr := flag.String("addr", "", "listen address (overrides config)")
	flag.Parse()

	settings, err := config.NewManager(*configPath).Load()
	if err != nil {
		log.Fatalf("[main] load config: %v", err)
	}
	if *listenAddr != "" {
		settings.ListenAddr = *listenAddr
	}

	if settings.LogFile != "" {
		log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   settings.LogFile,
			MaxSize:    20, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := metrics.New()

	catalogClient := catalog.New(catalog.Config{
		APIKey:      settings.TMDBAPIKey,
		BaseURL:     settings.TMDBBaseURL,
		Language:    settings.Language,
		MaxAttempts: settings.MaxAttempts,
		Metrics:     m,
	})

	streamingService := streaming.NewService(catalogClient, nil, settings.Regions)
	if settings.AIEnabled() {
		suggester := recommend.New(recommend.Config{
			APIKey:  settings.OpenAIAPIKey,
			BaseURL: settings.OpenAIBaseURL,
			Model:   settings.OpenAIModel,
			Metrics: m,
		})
		streamingService = streaming.NewService(catalogClient, suggester, settings.Regions)
		log.Printf("[main] AI link suggestions enabled (model %s)", settings.OpenAIModel)
	} else {
		log.Printf("[main] AI link suggestions disabled: no OpenAI API key")
	}

	pages := handlers.NewPagesHandler(catalogClient, streamingService)
	apiHandler := handlers.NewAPIHandler(catalogClient, streamingService)
	health := handlers.NewHealthHandler(catalogClient)
	limiter := apimw.NewIPRateLimiter(rate.Limit(10), 30)

	router := utils.NewRouter()
	handlers.RegisterRoutes(router, pages, apiHandler, health, m, limiter)

	server := &http.Server{
		Addr:         settings.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		defer pingCancel()
		if err := catalogClient.Ping(pingCtx); err != nil {
			log.Printf("[main] catalog unreachable at startup: %v", err)
		} else {
			log.Printf("[main] catalog reachable")
		}
	}()

	go func() {
		log.Printf("[main] listening on %s", settings.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[main] serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("[main] shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] shutdown: %v", err)
	}
}
