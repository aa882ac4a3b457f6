package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/photomat/photomat/internal/app"
	"github.com/photomat/photomat/internal/capture"
	"github.com/photomat/photomat/internal/domain"
	"github.com/photomat/photomat/internal/session"
)

// writeError writes a JSON error body with given status code.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg})
	if cid, ok := GetCorrelationID(ctx); ok {
		slog.Debug("wrote error response", "cid", cid, "status", code, "msg", msg)
	}
}

// mapServiceError maps domain/store/service errors to HTTP responses.
func (h *Handler) mapServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	cid, _ := GetCorrelationID(ctx)
	switch {
	case errors.Is(err, domain.ErrInvalidID):
		slog.Warn("service error", "cid", cid, "code", "invalid_id")
		h.writeError(ctx, w, http.StatusBadRequest, "invalid id")
	case errors.Is(err, app.ErrSizeExceeded):
		slog.Warn("service error", "cid", cid, "code", "size_exceeded")
		h.writeError(ctx, w, http.StatusRequestEntityTooLarge, "size exceeded")
	case errors.Is(err, app.ErrGone):
		slog.Info("service error", "cid", cid, "code", "gone")
		h.writeError(ctx, w, http.StatusGone, "gone")
	case errors.Is(err, app.ErrNotFound):
		slog.Info("service error", "cid", cid, "code", "not_found")
		h.writeError(ctx, w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrCameraUnavailable):
		slog.Warn("service error", "cid", cid, "code", "camera_unavailable")
		h.writeError(ctx, w, http.StatusServiceUnavailable, "camera unavailable")
	case errors.Is(err, domain.ErrFrameNotReady):
		slog.Warn("service error", "cid", cid, "code", "frame_not_ready")
		h.writeError(ctx, w, http.StatusServiceUnavailable, "camera not ready")
	case errors.Is(err, capture.ErrCaptureInFlight):
		slog.Info("service error", "cid", cid, "code", "capture_in_flight")
		h.writeError(ctx, w, http.StatusConflict, "capture in flight")
	case errors.Is(err, capture.ErrNotReviewing):
		slog.Info("service error", "cid", cid, "code", "not_reviewing")
		h.writeError(ctx, w, http.StatusConflict, "no photo under review")
	case errors.Is(err, session.ErrSessionActive):
		slog.Info("service error", "cid", cid, "code", "session_active")
		h.writeError(ctx, w, http.StatusConflict, "session already active")
	case errors.Is(err, session.ErrNoSession):
		slog.Info("service error", "cid", cid, "code", "no_session")
		h.writeError(ctx, w, http.StatusNotFound, "no active session")
	case errors.Is(err, os.ErrNotExist):
		slog.Info("service error", "cid", cid, "code", "not_found", "err_type", "os.ErrNotExist")
		h.writeError(ctx, w, http.StatusNotFound, "not found")
	default:
		// Raw error strings can carry ids and paths; they stay out of the log.
		slog.Error("unhandled service error", "cid", cid, "code", "unhandled", "err_type", "unknown")
		h.writeError(ctx, w, http.StatusInternalServerError, "internal")
	}
}
