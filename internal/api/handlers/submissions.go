package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/vigia-app/vigia/internal/config"
	"github.com/vigia-app/vigia/internal/httputil"
	"github.com/vigia-app/vigia/internal/vigiadb"
)

// ListSubmissionsHandler returns a handler for GET /api/submissions.
// Optional ?address= filters the audit trail to one account.
func ListSubmissionsHandler(db *vigiadb.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address := strings.ToLower(r.URL.Query().Get("address"))

		subs, err := db.ListSubmissions(r.Context(), address)
		if err != nil {
			slog.Error("list submissions failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, config.ErrorInternal, "Failed to list submissions")
			return
		}

		httputil.JSON(w, http.StatusOK, subs)
	}
}
