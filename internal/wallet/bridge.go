package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// BridgeProvider forwards requests to a wallet bridge: a companion endpoint
// that relays them to a browser-injected provider and returns the provider's
// result or error verbatim. User-rejection and unrecognized-chain codes from
// the real wallet arrive through this path.
type BridgeProvider struct {
	client  *http.Client
	baseURL string
	flags   Flags
	nextID  atomic.Uint64
}

// bridgeRequest is the JSON-RPC 2.0 request envelope sent to the bridge.
type bridgeRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// bridgeResponse is the JSON-RPC 2.0 response envelope.
type bridgeResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// NewBridgeProvider probes the bridge's capability flags once and returns a
// provider handle for it.
func NewBridgeProvider(ctx context.Context, client *http.Client, baseURL string) (*BridgeProvider, error) {
	p := &BridgeProvider{
		client:  client,
		baseURL: baseURL,
	}

	flags, err := p.probeFlags(ctx)
	if err != nil {
		return nil, fmt.Errorf("probe bridge capabilities at %s: %w", baseURL, err)
	}
	p.flags = flags

	slog.Info("wallet bridge provider created",
		"baseURL", baseURL,
		"isMetaMask", flags.MetaMask,
		"isRabby", flags.Rabby,
		"isCoinbaseWallet", flags.CoinbaseWallet,
		"isTrust", flags.Trust,
	)

	return p, nil
}

// Flags returns the vendor markers reported by the bridged provider.
func (p *BridgeProvider) Flags() Flags { return p.flags }

// Request relays a provider request through the bridge.
func (p *BridgeProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}

	payload, err := json.Marshal(bridgeRequest{
		JSONRPC: "2.0",
		ID:      p.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal bridge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/rpc", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create bridge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bridge request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read bridge response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from bridge: %s", resp.StatusCode, string(body))
	}

	var envelope bridgeResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("parse bridge response: %w", err)
	}
	if envelope.Error != nil {
		return nil, envelope.Error
	}

	return envelope.Result, nil
}

// probeFlags fetches the bridged provider's vendor markers.
func (p *BridgeProvider) probeFlags(ctx context.Context) (Flags, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/capabilities", nil)
	if err != nil {
		return Flags{}, fmt.Errorf("create capabilities request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Flags{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Flags{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var flags Flags
	if err := json.NewDecoder(resp.Body).Decode(&flags); err != nil {
		return Flags{}, fmt.Errorf("parse capabilities: %w", err)
	}
	return flags, nil
}
