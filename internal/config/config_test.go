package config

import (
	"testing"
)

func TestValidate_ValidLiskSepolia(t *testing.T) {
	cfg := &Config{
		Network:     NetworkLiskSepolia,
		Port:        8080,
		KeystoreDir: "/tmp/keystore",
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_ValidHardhat(t *testing.T) {
	cfg := &Config{
		Network:    NetworkHardhat,
		Port:       8080,
		BridgeURLs: []string{"http://localhost:9001"},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_InvalidNetwork(t *testing.T) {
	tests := []struct {
		name    string
		network string
	}{
		{"empty", ""},
		{"foobar", "foobar"},
		{"case sensitive", "LiskSepolia"},
		{"mainnet", "lisk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Network:     tt.network,
				Port:        8080,
				KeystoreDir: "/tmp/keystore",
			}
			if err := cfg.Validate(); err == nil {
				t.Fatalf("Validate() expected error for network=%q, got nil", tt.network)
			}
		})
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	tests := []struct {
		name string
		port int
	}{
		{"zero", 0},
		{"negative", -1},
		{"too high", 65536},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Network:     NetworkHardhat,
				Port:        tt.port,
				KeystoreDir: "/tmp/keystore",
			}
			if err := cfg.Validate(); err == nil {
				t.Fatalf("Validate() expected error for port=%d, got nil", tt.port)
			}
		})
	}
}

func TestValidate_NoProviders(t *testing.T) {
	cfg := &Config{
		Network: NetworkHardhat,
		Port:    8080,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() accepted a config without signing providers")
	}
}

func TestTargetNetwork(t *testing.T) {
	cfg := &Config{Network: NetworkHardhat}
	if got := cfg.TargetNetwork().ChainID; got != HardhatChainID {
		t.Errorf("TargetNetwork().ChainID = %d, want %d", got, HardhatChainID)
	}

	cfg.Network = NetworkLiskSepolia
	if got := cfg.TargetNetwork().ChainID; got != LiskSepoliaChainID {
		t.Errorf("TargetNetwork().ChainID = %d, want %d", got, LiskSepoliaChainID)
	}
}

func TestChainIDHex(t *testing.T) {
	if got := LiskSepoliaNetwork().ChainIDHex(); got != "0x106a" {
		t.Errorf("ChainIDHex() = %q, want 0x106a", got)
	}
	if got := HardhatNetwork().ChainIDHex(); got != "0x7a69" {
		t.Errorf("ChainIDHex() = %q, want 0x7a69", got)
	}
}

func TestAddChainParams(t *testing.T) {
	params := LiskSepoliaNetwork().AddChainParams()

	if params["chainId"] != "0x106a" {
		t.Errorf("chainId = %v", params["chainId"])
	}
	if params["chainName"] != "Lisk Sepolia Testnet" {
		t.Errorf("chainName = %v", params["chainName"])
	}
	currency, ok := params["nativeCurrency"].(map[string]any)
	if !ok || currency["symbol"] != "ETH" || currency["decimals"] != 18 {
		t.Errorf("nativeCurrency = %v", params["nativeCurrency"])
	}
	if _, ok := params["blockExplorerUrls"]; !ok {
		t.Error("missing blockExplorerUrls")
	}

	// Hardhat has no explorer; the key must be absent, not empty.
	if _, ok := HardhatNetwork().AddChainParams()["blockExplorerUrls"]; ok {
		t.Error("hardhat params carry blockExplorerUrls")
	}
}
