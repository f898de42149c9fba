package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Josephabidoyefreelance/wavespeed-fresh/internal/http/handlers"
	"github.com/Josephabidoyefreelance/wavespeed-fresh/internal/http/httpapi"
	"github.com/Josephabidoyefreelance/wavespeed-fresh/internal/infra"
	"github.com/Josephabidoyefreelance/wavespeed-fresh/internal/providers"
	"github.com/Josephabidoyefreelance/wavespeed-fresh/internal/providers/fal"
	"github.com/Josephabidoyefreelance/wavespeed-fresh/internal/providers/wavespeed"
	"github.com/Josephabidoyefreelance/wavespeed-fresh/internal/relay"
	"github.com/Josephabidoyefreelance/wavespeed-fresh/internal/store"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	recordStore, err := store.NewClient(store.Options{
		BaseURL:  cfg.StoreBaseURL,
		Table:    cfg.StoreTable,
		APIToken: cfg.StoreAPIToken,
		Logger:   &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build record store client")
	}

	waveSpeed, err := wavespeed.NewClient(wavespeed.Options{
		APIKey:  cfg.WaveSpeedAPIKey,
		BaseURL: cfg.WaveSpeedBaseURL,
		Model:   cfg.WaveSpeedModel,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build wavespeed client")
	}
	falClient, err := fal.NewClient(fal.Options{
		APIKey:  cfg.FalAPIKey,
		BaseURL: cfg.FalBaseURL,
		Model:   cfg.FalModel,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build fal client")
	}
	registry := providers.Registry{
		waveSpeed.Name(): waveSpeed,
		falClient.Name(): falClient,
	}

	dispatcher, err := relay.NewDispatcher(relay.DispatcherOptions{
		Store:         recordStore,
		Providers:     registry,
		PublicBaseURL: cfg.PublicBaseURL,
		MaxCount:      cfg.MaxBatchCount,
		Logger:        &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build dispatcher")
	}
	aggregator, err := relay.NewAggregator(relay.AggregatorOptions{
		Store:     recordStore,
		Providers: registry,
		Logger:    &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build aggregator")
	}

	app := handlers.NewApp(dispatcher, aggregator, recordStore, &logger)
	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("relay listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
