package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vigia-app/vigia/internal/config"
)

// Provider is an EIP-1193-style signing provider handle: the capability to
// request accounts, report the active chain, and sign transactions on behalf
// of a user-controlled account. Providers are owned by their host; the
// service only references them for the lifetime of a session.
type Provider interface {
	// Request performs a provider request with EIP-1193 semantics. Params are
	// marshalled positionally into the request's params array. Provider-side
	// failures carry an *RPCError with a numeric code; transport failures
	// return plain errors.
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)

	// Flags reports the provider's vendor capability markers. Read-only
	// probing, never mutated.
	Flags() Flags
}

// Flags are the vendor-specific boolean markers a provider exposes for
// identification.
type Flags struct {
	MetaMask       bool `json:"is_meta_mask"`
	Rabby          bool `json:"is_rabby"`
	CoinbaseWallet bool `json:"is_coinbase_wallet"`
	Trust          bool `json:"is_trust"`
}

// RPCError is a provider-reported error carrying an EIP-1474 numeric code.
// Code 4001 means the user rejected the prompt; 4902 means the requested
// chain is not known to the provider.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// ErrorCode extracts the EIP-1474 code from an error chain, or 0 if the
// error did not originate from a provider.
func ErrorCode(err error) int {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Code
	}
	return 0
}

// IsUserRejected reports whether the error is an explicit user rejection of
// a provider prompt.
func IsUserRejected(err error) bool {
	return ErrorCode(err) == config.CodeUserRejected
}

// Host exposes the signing providers available in the service's environment.
// A host may aggregate several providers under one umbrella handle.
type Host interface {
	Providers() []Provider
}

// StaticHost is a Host assembled once at startup from configured providers.
type StaticHost struct {
	providers []Provider
}

// NewStaticHost creates a host over a fixed provider list.
func NewStaticHost(providers ...Provider) *StaticHost {
	return &StaticHost{providers: providers}
}

// Providers returns the hosted providers in registration order.
func (h *StaticHost) Providers() []Provider {
	return h.providers
}
