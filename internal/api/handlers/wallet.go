package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vigia-app/vigia/internal/config"
	"github.com/vigia-app/vigia/internal/httputil"
	"github.com/vigia-app/vigia/internal/wallet"
)

type providerEntry struct {
	Index int          `json:"index"`
	Label string       `json:"label"`
	Flags wallet.Flags `json:"flags"`
}

// ListProvidersHandler returns a handler for GET /api/wallet/providers.
// Safe to call repeatedly; an empty host yields an empty list, not an error.
func ListProvidersHandler(host wallet.Host) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := wallet.Discover(host)

		out := make([]providerEntry, len(entries))
		for i, e := range entries {
			out[i] = providerEntry{Index: i, Label: e.Label, Flags: e.Provider.Flags()}
		}

		slog.Debug("providers listed", "count", len(out))
		httputil.JSON(w, http.StatusOK, out)
	}
}

type connectRequest struct {
	ProviderIndex int `json:"provider_index"`
}

type sessionResponse struct {
	Connected   bool   `json:"connected"`
	Address     string `json:"address,omitempty"`
	WalletLabel string `json:"wallet_label,omitempty"`
}

// ConnectHandler returns a handler for POST /api/wallet/connect.
func ConnectHandler(host wallet.Host, sessions *wallet.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req connectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Debug("connect: invalid request body", "error", err)
			httputil.Error(w, http.StatusBadRequest, config.ErrorInvalidRequest, "Invalid request body")
			return
		}

		entries := wallet.Discover(host)
		if req.ProviderIndex < 0 || req.ProviderIndex >= len(entries) {
			httputil.Error(w, http.StatusNotFound, config.ErrorNoProvider,
				"No signing provider at the requested index")
			return
		}
		entry := entries[req.ProviderIndex]

		session, err := sessions.Connect(r.Context(), entry.Provider, entry.Label)
		if err != nil {
			var connErr *wallet.ConnectionError
			if errors.As(err, &connErr) {
				switch connErr.Kind {
				case wallet.ConnUserRejected:
					httputil.Error(w, http.StatusConflict, config.ErrorUserRejected,
						"Connection request was rejected")
					return
				case wallet.ConnProviderUnavailable:
					httputil.Error(w, http.StatusBadGateway, config.ErrorProviderUnavailable,
						"Signing provider is unavailable")
					return
				}
			}
			slog.Error("wallet connect failed", "wallet", entry.Label, "error", err)
			httputil.Error(w, http.StatusInternalServerError, config.ErrorInternal, "Connection failed")
			return
		}

		httputil.JSON(w, http.StatusOK, sessionResponse{
			Connected:   true,
			Address:     session.Address,
			WalletLabel: session.WalletLabel,
		})
	}
}

// DisconnectHandler returns a handler for POST /api/wallet/disconnect.
// Clears local session state only; provider-side authorization is out of reach.
func DisconnectHandler(sessions *wallet.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions.Disconnect()
		httputil.JSON(w, http.StatusOK, sessionResponse{Connected: false})
	}
}

// SessionHandler returns a handler for GET /api/wallet/session.
func SessionHandler(sessions *wallet.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := sessions.Active()
		if session == nil {
			httputil.JSON(w, http.StatusOK, sessionResponse{Connected: false})
			return
		}
		httputil.JSON(w, http.StatusOK, sessionResponse{
			Connected:   true,
			Address:     session.Address,
			WalletLabel: session.WalletLabel,
		})
	}
}
