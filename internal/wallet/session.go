package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/vigia-app/vigia/internal/config"
)

// ConnKind classifies connection failures so callers can render a
// differentiated message.
type ConnKind int

const (
	// ConnUserRejected means the provider reported an explicit rejection of
	// the account-access prompt.
	ConnUserRejected ConnKind = iota + 1
	// ConnProviderUnavailable means the capability call failed at the
	// transport level or the provider is missing.
	ConnProviderUnavailable
	// ConnUnknown covers everything else.
	ConnUnknown
)

// ConnectionError is a discriminated connect failure.
type ConnectionError struct {
	Kind ConnKind
	Err  error
}

func (e *ConnectionError) Error() string {
	switch e.Kind {
	case ConnUserRejected:
		return fmt.Sprintf("connection rejected by user: %v", e.Err)
	case ConnProviderUnavailable:
		return fmt.Sprintf("signing provider unavailable: %v", e.Err)
	default:
		return fmt.Sprintf("connection failed: %v", e.Err)
	}
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Session is the single active signing connection. It is ephemeral per
// process lifetime; there is no persistent session restoration.
type Session struct {
	Provider    Provider
	Address     string // lowercase hex account identifier
	WalletLabel string
	Connected   bool
}

// Manager owns the single active session. Connecting while connected
// replaces the session; disconnecting clears local state only, since
// authorization at the provider cannot be revoked from here.
type Manager struct {
	mu      sync.Mutex
	session *Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{}
}

// Connect requests account access from the chosen provider and, on success,
// stores the session with the first authorized address.
func (m *Manager) Connect(ctx context.Context, p Provider, label string) (*Session, error) {
	if p == nil {
		return nil, &ConnectionError{Kind: ConnProviderUnavailable, Err: config.ErrProviderUnavailable}
	}

	raw, err := p.Request(ctx, "eth_requestAccounts")
	if err != nil {
		return nil, classifyConnectError(err)
	}

	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, &ConnectionError{Kind: ConnUnknown, Err: fmt.Errorf("parse accounts: %w", err)}
	}
	if len(accounts) == 0 {
		return nil, &ConnectionError{Kind: ConnUnknown, Err: fmt.Errorf("provider authorized no accounts")}
	}

	session := &Session{
		Provider:    p,
		Address:     strings.ToLower(accounts[0]),
		WalletLabel: label,
		Connected:   true,
	}

	m.mu.Lock()
	replaced := m.session != nil
	m.session = session
	m.mu.Unlock()

	slog.Info("wallet session connected",
		"address", session.Address,
		"wallet", label,
		"replaced", replaced,
	)

	return session, nil
}

// Disconnect clears the active session. Safe to call when disconnected.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	had := m.session != nil
	m.session = nil
	m.mu.Unlock()

	if had {
		slog.Info("wallet session disconnected")
	}
}

// Active returns the current session, or nil when disconnected.
func (m *Manager) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

func classifyConnectError(err error) *ConnectionError {
	code := ErrorCode(err)
	switch {
	case code == config.CodeUserRejected:
		return &ConnectionError{Kind: ConnUserRejected, Err: err}
	case code != 0:
		return &ConnectionError{Kind: ConnUnknown, Err: err}
	default:
		// No provider code at all: the capability call itself failed.
		return &ConnectionError{Kind: ConnProviderUnavailable, Err: err}
	}
}
