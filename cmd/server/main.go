package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	handler "github.com/raid-guild/x402-paygate-go/api"
	"github.com/raid-guild/x402-paygate-go/app"
	"github.com/raid-guild/x402-paygate-go/config"
	"github.com/raid-guild/x402-paygate-go/core"
	"github.com/raid-guild/x402-paygate-go/explorer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := app.Logger(cfg.LogLevel)
	defer logger.Sync()

	// Configuration faults prevent serving any requests
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	price, err := cfg.Price()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	var checker core.StatusChecker
	switch {
	case cfg.ExplorerURL != "":
		checker = explorer.New(cfg.ExplorerURL, cfg.ExplorerAPIKey)
	case cfg.RPCURL != "":
		checker = core.ChainStatusChecker{RPCURL: cfg.RPCURL}
	default:
		logger.Warn("no explorer or RPC configured, settlement lookups disabled")
	}

	var replay *core.ReplayGuard
	if cfg.ReplayProtection {
		replay = core.NewReplayGuard(time.Duration(cfg.MaxTimeoutSeconds) * time.Second)
	}

	var settlement core.StatusChecker
	if cfg.RequireSettlement {
		if checker == nil {
			logger.Fatal("REQUIRE_SETTLEMENT is set but no explorer or RPC is configured")
		}
		settlement = checker
	}

	mux := http.NewServeMux()
	mux.Handle("/api/protected", handler.Protected(handler.ProtectedConfig{
		Requirement: cfg.Requirement(),
		BasePrice:   price,
		Resource:    "/api/protected",
		Description: "Access to premium content",
		Replay:      replay,
		Status:      settlement,
		Log:         logger,
	}))
	if checker != nil {
		mux.Handle("/api/content", handler.Content(handler.ContentConfig{
			Requirement: cfg.Requirement(),
			Price:       price,
			Resource:    "premium-content",
			Status:      checker,
			Log:         logger,
		}))
		mux.Handle("/api/status", handler.Status(checker, logger))
	}

	httpServer := http.Server{
		Addr:    fmt.Sprintf(":%v", cfg.Port),
		Handler: mux,
	}

	logger.Info("listening",
		zap.Int("port", cfg.Port),
		zap.String("network", cfg.Network),
		zap.String("recipient", cfg.RecipientAddress),
	)

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("listen and serve", zap.Error(err))
	}
}
