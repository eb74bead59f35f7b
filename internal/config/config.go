package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port     int    `envconfig:"VIGIA_PORT" default:"8080"`
	LogLevel string `envconfig:"VIGIA_LOG_LEVEL" default:"info"`
	LogDir   string `envconfig:"VIGIA_LOG_DIR" default:"./logs"`
	DBPath   string `envconfig:"VIGIA_DB_PATH" default:"./data/vigia.sqlite"`

	// Network selects the target ledger network: "hardhat" or "liskSepolia".
	Network string `envconfig:"VIGIA_NETWORK" default:"liskSepolia"`

	// KeystoreDir is the go-ethereum keystore directory for the local signing
	// provider. Empty disables the local provider.
	KeystoreDir        string `envconfig:"VIGIA_KEYSTORE_DIR"`
	KeystorePassphrase string `envconfig:"VIGIA_KEYSTORE_PASSPHRASE"`

	// BridgeURLs lists wallet-bridge endpoints exposing injected browser
	// providers to this service. Comma-separated.
	BridgeURLs []string `envconfig:"VIGIA_BRIDGE_URLS"`

	// StoreURL is the content store upload endpoint. Empty degrades image
	// uploads to the "no image" path.
	StoreURL   string `envconfig:"VIGIA_STORE_URL"`
	StoreToken string `envconfig:"VIGIA_STORE_TOKEN"`
}

// Load reads configuration from .env file (if present) then from environment variables.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			slog.Warn("failed to load .env file", "error", err)
		} else {
			slog.Info("loaded .env file")
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks configuration values for correctness.
func (c *Config) Validate() error {
	if c.Network != NetworkHardhat && c.Network != NetworkLiskSepolia {
		return fmt.Errorf("invalid config: network must be %q or %q, got %q",
			NetworkHardhat, NetworkLiskSepolia, c.Network)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid config: port must be 1-65535, got %d", c.Port)
	}
	if c.KeystoreDir == "" && len(c.BridgeURLs) == 0 {
		return fmt.Errorf("invalid config: no signing providers configured (set VIGIA_KEYSTORE_DIR or VIGIA_BRIDGE_URLS)")
	}
	return nil
}

// TargetNetwork returns the descriptor of the configured ledger network.
func (c *Config) TargetNetwork() NetworkDescriptor {
	if c.Network == NetworkHardhat {
		return HardhatNetwork()
	}
	return LiskSepoliaNetwork()
}
