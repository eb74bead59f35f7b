package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/vigia-app/vigia/internal/api"
	"github.com/vigia-app/vigia/internal/config"
	"github.com/vigia-app/vigia/internal/feed"
	"github.com/vigia-app/vigia/internal/ipfs"
	"github.com/vigia-app/vigia/internal/ledger"
	"github.com/vigia-app/vigia/internal/logging"
	"github.com/vigia-app/vigia/internal/report"
	"github.com/vigia-app/vigia/internal/vigiadb"
	"github.com/vigia-app/vigia/internal/wallet"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging.
	logCloser, err := logging.Setup(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	target := cfg.TargetNetwork()

	slog.Info("vigia starting",
		"port", cfg.Port,
		"network", target.Name,
		"chainId", target.ChainID,
		"contract", target.ContractAddress,
		"dbPath", cfg.DBPath,
	)

	// Open database and run migrations.
	db, err := vigiadb.New(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	seeds, err := db.ListSeedReports()
	if err != nil {
		slog.Error("failed to load seed reports", "error", err)
		os.Exit(1)
	}
	slog.Info("database ready", "path", cfg.DBPath, "seedReports", len(seeds))

	// Dial the ledger RPC for the read path and receipt polling.
	ethClient, err := ethclient.Dial(target.RPCURL)
	if err != nil {
		slog.Error("failed to dial ledger rpc", "url", target.RPCURL, "error", err)
		os.Exit(1)
	}
	defer ethClient.Close()

	gateway, err := ledger.NewGateway(ethClient, target.ContractAddress)
	if err != nil {
		slog.Error("failed to create ledger gateway", "error", err)
		os.Exit(1)
	}

	// Assemble the signing provider host.
	httpClient := newHTTPClient()
	host, cleanup, err := buildHost(context.Background(), cfg, httpClient)
	if err != nil {
		slog.Error("failed to assemble provider host", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	sessions := wallet.NewManager()

	// Content publisher is optional; without it, reports go up image-less.
	var uploader report.Uploader
	if cfg.StoreURL != "" {
		uploader = ipfs.NewPublisher(httpClient, cfg.StoreURL, cfg.StoreToken)
		slog.Info("content publisher configured", "url", cfg.StoreURL)
	} else {
		slog.Warn("no content store configured, image uploads disabled")
	}

	pipeline := report.NewPipeline(sessions, uploader, gateway, db, target)

	// Start the report feed.
	model := feed.NewReadModel(gateway, seeds, config.FeedRefreshInterval)
	model.Start(context.Background())

	// Build API router with all dependencies.
	deps := &api.Dependencies{
		Config:   cfg,
		DB:       db,
		Host:     host,
		Sessions: sessions,
		Gateway:  gateway,
		Pipeline: pipeline,
		Feed:     model,
	}
	router := api.NewRouter(deps)

	// Start HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
	}

	// Graceful shutdown.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	sig := <-done
	slog.Info("shutdown signal received", "signal", sig)

	// Stop the feed first, then drain the HTTP server.
	model.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("vigia stopped")
}

// buildHost assembles the static provider host from the configured keystore
// and wallet bridges. The returned cleanup releases provider resources.
func buildHost(ctx context.Context, cfg *config.Config, httpClient *http.Client) (wallet.Host, func(), error) {
	var providers []wallet.Provider
	cleanup := func() {}

	if cfg.KeystoreDir != "" {
		ks, err := wallet.NewKeystoreProvider(cfg.KeystoreDir, cfg.KeystorePassphrase,
			cfg.TargetNetwork(), config.HardhatNetwork())
		if err != nil {
			return nil, nil, fmt.Errorf("keystore provider: %w", err)
		}
		providers = append(providers, ks)
		cleanup = ks.Close
	}

	for _, url := range cfg.BridgeURLs {
		bridge, err := wallet.NewBridgeProvider(ctx, httpClient, url)
		if err != nil {
			// A dead bridge at startup is not fatal; the rest still serve.
			slog.Warn("skipping unreachable wallet bridge", "url", url, "error", err)
			continue
		}
		providers = append(providers, bridge)
	}

	slog.Info("provider host assembled", "providers", len(providers))
	return wallet.NewStaticHost(providers...), cleanup, nil
}

// newHTTPClient creates the pooled HTTP client shared by the content store
// and wallet bridges.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: config.StoreRequestTimeout,
		Transport: &http.Transport{
			MaxConnsPerHost:     config.HTTPMaxConnsPerHost,
			MaxIdleConnsPerHost: config.HTTPMaxIdleConnsPerHost,
			MaxIdleConns:        config.HTTPMaxIdleConns,
		},
	}
}
