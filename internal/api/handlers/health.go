package handlers

import (
	"net/http"

	"github.com/vigia-app/vigia/internal/config"
	"github.com/vigia-app/vigia/internal/httputil"
	"github.com/vigia-app/vigia/internal/wallet"
)

// HealthHandler returns a handler for GET /api/health.
// No auth — always open.
func HealthHandler(cfg *config.Config, sessions *wallet.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"network":   cfg.Network,
			"connected": sessions.Active() != nil,
		})
	}
}
