package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/vigia-app/vigia/internal/config"
)

func accountsProvider(addrs ...string) *fakeProvider {
	return &fakeProvider{
		handler: func(method string, _ []any) (json.RawMessage, error) {
			if method == "eth_requestAccounts" {
				return json.Marshal(addrs)
			}
			return json.Marshal(nil)
		},
	}
}

func TestConnectStoresLowercaseAddress(t *testing.T) {
	m := NewManager()
	p := accountsProvider("0xAbCd000000000000000000000000000000000001")

	s, err := m.Connect(context.Background(), p, "MetaMask")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if s.Address != "0xabcd000000000000000000000000000000000001" {
		t.Errorf("address = %q, want lowercase", s.Address)
	}
	if !s.Connected {
		t.Error("session not marked connected")
	}
	if s.WalletLabel != "MetaMask" {
		t.Errorf("label = %q, want MetaMask", s.WalletLabel)
	}
	if m.Active() != s {
		t.Error("Active() did not return the new session")
	}
}

func TestConnectDisconnectRoundTrip(t *testing.T) {
	m := NewManager()
	if m.Active() != nil {
		t.Fatal("fresh manager should have no session")
	}

	if _, err := m.Connect(context.Background(), accountsProvider("0x01"), "MetaMask"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	m.Disconnect()
	if m.Active() != nil {
		t.Error("session still active after Disconnect")
	}

	// A subsequent connect succeeds.
	if _, err := m.Connect(context.Background(), accountsProvider("0x02"), "Rabby"); err != nil {
		t.Errorf("reconnect after disconnect error = %v", err)
	}
}

func TestConnectReplacesExistingSession(t *testing.T) {
	m := NewManager()

	first, err := m.Connect(context.Background(), accountsProvider("0x01"), "MetaMask")
	if err != nil {
		t.Fatalf("first Connect() error = %v", err)
	}

	second, err := m.Connect(context.Background(), accountsProvider("0x02"), "Rabby")
	if err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}

	if m.Active() != second {
		t.Error("second session should be active")
	}
	if m.Active() == first {
		t.Error("first session should have been replaced")
	}
}

func TestConnectErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ConnKind
	}{
		{"user rejected", &RPCError{Code: config.CodeUserRejected, Message: "User rejected the request"}, ConnUserRejected},
		{"provider rpc error", &RPCError{Code: -32603, Message: "internal"}, ConnUnknown},
		{"transport failure", errors.New("connection refused"), ConnProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager()
			p := &fakeProvider{
				handler: func(string, []any) (json.RawMessage, error) { return nil, tt.err },
			}

			_, err := m.Connect(context.Background(), p, "test")
			var connErr *ConnectionError
			if !errors.As(err, &connErr) {
				t.Fatalf("error type = %T, want *ConnectionError", err)
			}
			if connErr.Kind != tt.want {
				t.Errorf("kind = %d, want %d", connErr.Kind, tt.want)
			}
			if m.Active() != nil {
				t.Error("failed connect must not leave a session")
			}
		})
	}
}

func TestConnectNilProvider(t *testing.T) {
	m := NewManager()

	_, err := m.Connect(context.Background(), nil, "none")
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("error type = %T, want *ConnectionError", err)
	}
	if connErr.Kind != ConnProviderUnavailable {
		t.Errorf("kind = %d, want ConnProviderUnavailable", connErr.Kind)
	}
}

func TestConnectNoAccounts(t *testing.T) {
	m := NewManager()

	_, err := m.Connect(context.Background(), accountsProvider(), "empty")
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("error type = %T, want *ConnectionError", err)
	}
	if connErr.Kind != ConnUnknown {
		t.Errorf("kind = %d, want ConnUnknown", connErr.Kind)
	}
}
