package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vigia-app/vigia/internal/config"
	"github.com/vigia-app/vigia/internal/feed"
	"github.com/vigia-app/vigia/internal/httputil"
	"github.com/vigia-app/vigia/internal/ipfs"
	"github.com/vigia-app/vigia/internal/ledger"
	"github.com/vigia-app/vigia/internal/models"
	"github.com/vigia-app/vigia/internal/report"
	"github.com/vigia-app/vigia/internal/wallet"
)

// ListReportsHandler returns a handler for GET /api/reports.
// Serves the read model's current snapshot; no session required.
func ListReportsHandler(model *feed.ReadModel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, model.Snapshot())
	}
}

// GetReportHandler returns a handler for GET /api/reports/{id}.
func GetReportHandler(gateway *ledger.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, config.ErrorInvalidRequest, "Report id must be a non-negative integer")
			return
		}

		rep, err := gateway.GetReport(r.Context(), id)
		if err != nil {
			if errors.Is(err, config.ErrReportNotFound) {
				httputil.Error(w, http.StatusNotFound, config.ErrorReportNotFound, "Report not found")
				return
			}
			slog.Error("get report failed", "id", id, "error", err)
			httputil.Error(w, http.StatusBadGateway, config.ErrorInternal, "Failed to read report from the ledger")
			return
		}

		httputil.JSON(w, http.StatusOK, models.DisplayReport{
			Report:   rep,
			Color:    feed.StatusColor(rep.Status, len(rep.Confirmations)),
			ImageURL: ipfs.GatewayURL(rep.ImageHash),
		})
	}
}

// CountReportsHandler returns a handler for GET /api/reports/count.
func CountReportsHandler(gateway *ledger.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		total, err := gateway.CountReports(r.Context())
		if err != nil {
			slog.Error("count reports failed", "error", err)
			httputil.Error(w, http.StatusBadGateway, config.ErrorInternal, "Failed to count reports on the ledger")
			return
		}
		httputil.JSON(w, http.StatusOK, map[string]uint64{"total": total})
	}
}

type submitRequest struct {
	Latitude    string `json:"latitude"`
	Longitude   string `json:"longitude"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// SubmitReportHandler returns a handler for POST /api/reports.
// Accepts multipart/form-data with an optional image part, or a bare JSON
// body for image-less reports. Blocks until the transaction is finalized.
func SubmitReportHandler(pipeline *report.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, ok := decodeSubmitRequest(w, r)
		if !ok {
			return
		}

		res, err := pipeline.Submit(r.Context(), in)
		if err != nil {
			writeSubmitError(w, err)
			return
		}

		httputil.JSON(w, http.StatusCreated, res)
	}
}

// ConfirmReportHandler returns a handler for POST /api/reports/{id}/confirm.
func ConfirmReportHandler(pipeline *report.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, config.ErrorInvalidRequest, "Report id must be a non-negative integer")
			return
		}

		txHash, err := pipeline.Confirm(r.Context(), id)
		if err != nil {
			writeSubmitError(w, err)
			return
		}

		httputil.JSON(w, http.StatusOK, map[string]string{"tx_hash": txHash})
	}
}

// decodeSubmitRequest parses either encoding of the submit body. The reported
// bool is false when a response has already been written.
func decodeSubmitRequest(w http.ResponseWriter, r *http.Request) (report.Input, bool) {
	contentType := r.Header.Get("Content-Type")

	// Bound the whole body; the publisher enforces the exact image limit.
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadBytes+1024*1024)

	if strings.HasPrefix(contentType, "multipart/form-data") {
		// Memory threshold only; larger parts spill to temp files.
		if err := r.ParseMultipartForm(config.MaxUploadBytes); err != nil {
			httputil.Error(w, http.StatusBadRequest, config.ErrorInvalidRequest, "Invalid multipart body")
			return report.Input{}, false
		}

		in := report.Input{
			Latitude:    r.FormValue("latitude"),
			Longitude:   r.FormValue("longitude"),
			Description: r.FormValue("description"),
			Category:    r.FormValue("category"),
		}

		file, header, err := r.FormFile("image")
		switch {
		case err == nil:
			defer file.Close()
			data, readErr := io.ReadAll(file)
			if readErr != nil {
				httputil.Error(w, http.StatusBadRequest, config.ErrorInvalidRequest, "Failed to read image part")
				return report.Input{}, false
			}
			in.Image = data
			in.ImageType = header.Header.Get("Content-Type")
		case errors.Is(err, http.ErrMissingFile):
			// No image attached.
		default:
			httputil.Error(w, http.StatusBadRequest, config.ErrorInvalidRequest, "Invalid image part")
			return report.Input{}, false
		}

		return in, true
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Debug("submit report: invalid request body", "error", err)
		httputil.Error(w, http.StatusBadRequest, config.ErrorInvalidRequest, "Invalid request body")
		return report.Input{}, false
	}
	return report.Input{
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Description: req.Description,
		Category:    req.Category,
	}, true
}

// writeSubmitError maps pipeline failures onto the API error surface.
func writeSubmitError(w http.ResponseWriter, err error) {
	if errors.Is(err, config.ErrSubmitInFlight) {
		httputil.Error(w, http.StatusConflict, config.ErrorSubmitInFlight,
			"A submission is already in flight; wait for it to finish")
		return
	}

	var subErr *report.SubmissionError
	if !errors.As(err, &subErr) {
		slog.Error("submission failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, config.ErrorInternal, "Submission failed")
		return
	}

	switch subErr.Kind {
	case report.SubValidation:
		httputil.Error(w, http.StatusBadRequest, config.ErrorValidation, subErr.Err.Error())
	case report.SubNetwork:
		writeNetworkError(w, subErr.Err)
	case report.SubUpload:
		slog.Warn("submission upload failed", "error", subErr.Err)
		httputil.Error(w, http.StatusBadGateway, config.ErrorUploadFailed, subErr.Err.Error())
	default:
		slog.Error("submission transaction failed", "error", subErr.Err)
		httputil.Error(w, http.StatusBadGateway, config.ErrorTransactionFailed, subErr.Err.Error())
	}
}

func writeNetworkError(w http.ResponseWriter, err error) {
	if errors.Is(err, config.ErrNoActiveSession) {
		httputil.Error(w, http.StatusUnauthorized, config.ErrorNoSession, "Connect a wallet before submitting")
		return
	}

	var netErr *wallet.NetworkError
	if errors.As(err, &netErr) && netErr.Kind == wallet.NetUserRejected {
		httputil.Error(w, http.StatusConflict, config.ErrorUserRejected, "Network change was rejected")
		return
	}

	slog.Warn("network reconciliation failed", "error", err)
	httputil.Error(w, http.StatusBadGateway, config.ErrorNetworkMismatch,
		"Could not reconcile the wallet's network; switch networks manually and retry")
}
