package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"bountyledger/internal/adapter"
	"bountyledger/internal/http/handlers"
	httpapi "bountyledger/internal/http/httpapi"
	"bountyledger/internal/infra"
	"bountyledger/internal/ledger"
	"bountyledger/internal/notify"
	"bountyledger/internal/settlement"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := adapter.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer stores.Close()
	logger.Info().Str("backend", stores.Backend).Msg("ledger store ready")

	dispatcher := notify.NewDispatcher(stores.Notifications, cfg.NotifyLocale, logger)
	svc := ledger.NewService(stores.Ledger,
		ledger.WithNotifier(dispatcher),
		ledger.WithLogger(logger),
	)

	var verifier handlers.SignatureVerifier
	if cfg.Settlement.VerifySignatures {
		submitter, err := settlement.NewFromConfig(nil, cfg.Settlement, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure signature verification")
		}
		verifier = submitter
	}

	app := handlers.NewApp(svc, verifier, stores, logger)
	router := httpapi.NewRouter(app, cfg, logger)
	server := infra.NewHTTPServer(cfg, router)

	logger.Info().Msgf("API listening on :%s", cfg.Port)
	if err := server.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
	}
	svc.Wait()
	logger.Info().Msg("server stopped")
}
