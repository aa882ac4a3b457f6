package httpx

import (
	"encoding/json"
	"net/http"
)

// captureView is the JSON shape of the machine snapshot polled by the
// kiosk UI.
type captureView struct {
	State     string `json:"state"`
	Remaining int    `json:"remaining"`
	PhotoID   string `json:"photo_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// handleCaptureStart implements POST /api/capture: begin a countdown.
func (h *Handler) handleCaptureStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.touch()
	if err := h.Machine.Start(ctx); err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	h.writeCaptureView(w, http.StatusAccepted)
}

// handleCaptureStatus implements GET /api/capture: snapshot for UI polls.
func (h *Handler) handleCaptureStatus(w http.ResponseWriter, _ *http.Request) {
	h.touch()
	h.writeCaptureView(w, http.StatusOK)
}

// handleCaptureCancel implements POST /api/capture/cancel. Cancelling is
// idempotent: outside a countdown it is a no-op.
func (h *Handler) handleCaptureCancel(w http.ResponseWriter, _ *http.Request) {
	h.touch()
	h.Machine.Cancel()
	h.writeCaptureView(w, http.StatusOK)
}

// handleCaptureRetake implements POST /api/capture/retake: discard the
// reviewed photo and return to Idle.
func (h *Handler) handleCaptureRetake(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.touch()
	if err := h.Machine.Retake(ctx); err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	h.writeCaptureView(w, http.StatusOK)
}

func (h *Handler) writeCaptureView(w http.ResponseWriter, status int) {
	v := h.Machine.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(captureView{
		State:     v.State.String(),
		Remaining: v.Remaining,
		PhotoID:   v.PhotoID.String(),
		Error:     v.Err,
	})
}
