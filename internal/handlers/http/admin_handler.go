// internal/handlers/http/admin_handler.go
// Endpoint admin (chi): upload work history, statistik store, hapus batch.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Strikerin/SalesPerformanceDashboard/internal/middleware"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/services"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/util"
	wh "github.com/Strikerin/SalesPerformanceDashboard/internal/workhistory"
)

// MaxUploadBytes caps the JSON body of one upload.
const MaxUploadBytes = 64 << 20

type AdminHandler struct {
	Reports *services.ReportService
	Logger  *zap.Logger
}

// Routes mounts the admin endpoints; the caller adds authentication.
func (h *AdminHandler) Routes(r chi.Router) {
	r.Route("/workhistory", func(cr chi.Router) {
		cr.Post("/upload", h.Upload)
		cr.Get("/stats", h.Stats)
		cr.Delete("/batches/{batchID}", h.DeleteBatch)
	})
}

func (h *AdminHandler) log() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

// decodeUpload accepts a bare JSON array of rows or {"records": [...]}.
func decodeUpload(r *http.Request) ([]wh.RawRecord, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, util.BadInput("upload exceeds the size limit")
		}
		return nil, util.BadInput("invalid JSON body")
	}
	var rows []wh.RawRecord
	if strings.HasPrefix(strings.TrimSpace(string(raw)), "[") {
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, util.BadInput("invalid record array: " + err.Error())
		}
		return rows, nil
	}
	var wrapped struct {
		Records []wh.RawRecord `json:"records"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, util.BadInput("invalid upload object: " + err.Error())
	}
	return wrapped.Records, nil
}

// Upload: POST /admin/workhistory/upload
func (h *AdminHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	rows, err := decodeUpload(r)
	if err != nil {
		util.WriteError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()
	res, err := h.Reports.Ingest(ctx, rows)
	if err != nil {
		if util.HTTPStatus(err) >= http.StatusInternalServerError {
			h.log().Error("upload failed", zap.Int("rows", len(rows)), zap.Error(err))
		}
		util.WriteError(w, err)
		return
	}
	by := ""
	if c, ok := middleware.AdminFrom(r.Context()); ok {
		by = c.User
	}
	h.log().Info("admin upload", zap.String("batch_id", res.BatchID), zap.Int("stored", res.Stored), zap.String("by", by))
	util.WriteJSON(w, http.StatusCreated, map[string]any{"ok": true, "result": res})
}

// Stats: GET /admin/workhistory/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	st, err := h.Reports.Stats(ctx)
	if err != nil {
		util.WriteError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, st)
}

// DeleteBatch: DELETE /admin/workhistory/batches/{batchID}
func (h *AdminHandler) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "batchID")
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	n, err := h.Reports.DeleteBatch(ctx, id)
	if err != nil {
		util.WriteError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "batch_id": id, "deleted": n})
}
