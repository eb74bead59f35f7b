package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/vigia-app/vigia/internal/config"
)

// NetKind classifies network reconciliation failures.
type NetKind int

const (
	// NetUserRejected means the user declined the switch or add prompt. This
	// is an expected terminal outcome, not a defect.
	NetUserRejected NetKind = iota + 1
	// NetUnsupported means the provider could not provision the target chain.
	NetUnsupported
	// NetOther covers remaining provider failures; terminal for the call so
	// the user is not spammed with repeated prompts.
	NetOther
)

// NetworkError is a discriminated reconciliation failure.
type NetworkError struct {
	Kind NetKind
	Err  error
}

func (e *NetworkError) Error() string {
	switch e.Kind {
	case NetUserRejected:
		return fmt.Sprintf("network change rejected by user: %v", e.Err)
	case NetUnsupported:
		return fmt.Sprintf("network not supported by provider: %v", e.Err)
	default:
		return fmt.Sprintf("network reconciliation failed: %v", e.Err)
	}
}

func (e *NetworkError) Unwrap() error { return e.Err }

// EnsureNetwork brings the provider's active chain into agreement with the
// target network, provisioning it on the provider when absent. It must
// succeed before any write reaches the ledger; reads go straight to the
// ledger RPC and never need it.
func EnsureNetwork(ctx context.Context, p Provider, target config.NetworkDescriptor) error {
	current, err := currentChainID(ctx, p)
	if err != nil {
		return &NetworkError{Kind: NetOther, Err: fmt.Errorf("read chain id: %w", err)}
	}

	if current == target.ChainID {
		slog.Debug("already on target network", "chainId", current)
		return nil
	}

	slog.Info("switching network",
		"from", current,
		"to", target.ChainID,
		"network", target.Name,
	)

	switchParams := map[string]any{"chainId": target.ChainIDHex()}

	_, err = p.Request(ctx, "wallet_switchEthereumChain", switchParams)
	if err == nil {
		return nil
	}
	if IsUserRejected(err) {
		return &NetworkError{Kind: NetUserRejected, Err: err}
	}
	if !isUnrecognizedChain(err) {
		return &NetworkError{Kind: NetOther, Err: err}
	}

	// The provider has no record of the chain: add it with the full
	// descriptor, then retry the switch once.
	slog.Info("network unknown to provider, adding", "network", target.Name, "chainId", target.ChainIDHex())

	if _, err := p.Request(ctx, "wallet_addEthereumChain", target.AddChainParams()); err != nil {
		if IsUserRejected(err) {
			return &NetworkError{Kind: NetUserRejected, Err: err}
		}
		return &NetworkError{Kind: NetUnsupported, Err: fmt.Errorf("add chain: %w", err)}
	}

	if _, err := p.Request(ctx, "wallet_switchEthereumChain", switchParams); err != nil {
		if IsUserRejected(err) {
			return &NetworkError{Kind: NetUserRejected, Err: err}
		}
		return &NetworkError{Kind: NetOther, Err: fmt.Errorf("switch after add: %w", err)}
	}

	slog.Info("network switched", "network", target.Name, "chainId", target.ChainID)
	return nil
}

// currentChainID reads the provider's active chain identifier.
func currentChainID(ctx context.Context, p Provider) (uint64, error) {
	raw, err := p.Request(ctx, "eth_chainId")
	if err != nil {
		return 0, err
	}

	var hexID string
	if err := json.Unmarshal(raw, &hexID); err != nil {
		return 0, fmt.Errorf("parse chain id response: %w", err)
	}

	id, err := hexutil.DecodeUint64(hexID)
	if err != nil {
		return 0, fmt.Errorf("decode chain id %q: %w", hexID, err)
	}
	return id, nil
}

// isUnrecognizedChain detects the provider-specific "chain not recognized"
// signal: code 4902 or the MetaMask message variant.
func isUnrecognizedChain(err error) bool {
	if ErrorCode(err) == config.CodeUnrecognizedChain {
		return true
	}
	return strings.Contains(err.Error(), "Unrecognized chain ID")
}
