package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vigia-app/vigia/internal/config"
)

// newBridgeServer serves the bridge surface: capability flags and a scripted
// rpc endpoint.
func newBridgeServer(t *testing.T, flags Flags, handle func(req bridgeRequest) bridgeResponse) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/capabilities", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(flags)
	})
	mux.HandleFunc("/rpc", func(w http.ResponseWriter, r *http.Request) {
		var req bridgeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(handle(req))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestBridgeProbesFlags(t *testing.T) {
	srv := newBridgeServer(t, Flags{MetaMask: true}, nil)

	p, err := NewBridgeProvider(context.Background(), srv.Client(), srv.URL)
	if err != nil {
		t.Fatalf("NewBridgeProvider() error = %v", err)
	}
	if !p.Flags().MetaMask {
		t.Error("probed flags lost the MetaMask marker")
	}
}

func TestBridgeUnreachable(t *testing.T) {
	if _, err := NewBridgeProvider(context.Background(), http.DefaultClient, "http://127.0.0.1:1"); err == nil {
		t.Error("NewBridgeProvider succeeded against a dead endpoint")
	}
}

func TestBridgeProbeHonorsContext(t *testing.T) {
	srv := newBridgeServer(t, Flags{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewBridgeProvider(ctx, srv.Client(), srv.URL); err == nil {
		t.Error("NewBridgeProvider succeeded with a cancelled context")
	}
}

func TestBridgeRelaysRequest(t *testing.T) {
	srv := newBridgeServer(t, Flags{}, func(req bridgeRequest) bridgeResponse {
		if req.Method != "eth_requestAccounts" {
			t.Errorf("relayed method = %q", req.Method)
		}
		result, _ := json.Marshal([]string{"0xabc"})
		return bridgeResponse{Result: result}
	})

	p, err := NewBridgeProvider(context.Background(), srv.Client(), srv.URL)
	if err != nil {
		t.Fatalf("NewBridgeProvider() error = %v", err)
	}

	raw, err := p.Request(context.Background(), "eth_requestAccounts")
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}

	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(accounts) != 1 || accounts[0] != "0xabc" {
		t.Errorf("accounts = %v", accounts)
	}
}

func TestBridgePassesProviderErrorThrough(t *testing.T) {
	srv := newBridgeServer(t, Flags{}, func(bridgeRequest) bridgeResponse {
		return bridgeResponse{Error: &RPCError{Code: config.CodeUserRejected, Message: "User rejected the request"}}
	})

	p, err := NewBridgeProvider(context.Background(), srv.Client(), srv.URL)
	if err != nil {
		t.Fatalf("NewBridgeProvider() error = %v", err)
	}

	_, err = p.Request(context.Background(), "eth_requestAccounts")
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("error type = %T, want *RPCError", err)
	}
	if rpcErr.Code != config.CodeUserRejected {
		t.Errorf("code = %d, want 4001", rpcErr.Code)
	}
	if !IsUserRejected(err) {
		t.Error("IsUserRejected() = false for a relayed 4001")
	}
}
