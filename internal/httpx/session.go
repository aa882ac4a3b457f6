package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/photomat/photomat/internal/session"
)

// sessionView is the JSON shape returned by the session endpoints.
type sessionView struct {
	ID        string    `json:"id"`
	PhotoID   string    `json:"photo_id,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// handleSessionBegin implements POST /api/session. The body is the contact
// record the visitor entered at the start screen; the pipeline stores it
// opaquely.
func (h *Handler) handleSessionBegin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body := http.MaxBytesReader(w, r.Body, 16<<10)
	defer body.Close()
	var contact session.Contact
	if err := json.NewDecoder(body).Decode(&contact); err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, "invalid json body")
		return
	}
	s, err := h.Sessions.Begin(contact)
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(sessionView{ID: s.ID, StartedAt: s.StartedAt})
}

// handleSessionCurrent implements GET /api/session.
func (h *Handler) handleSessionCurrent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, err := h.Sessions.Current()
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	h.Sessions.Touch()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(sessionView{ID: s.ID, PhotoID: s.PhotoID.String(), StartedAt: s.StartedAt})
}

// handleSessionEnd implements DELETE /api/session. Ending when no session
// is active still returns 204: the kiosk UI calls this on every reset.
func (h *Handler) handleSessionEnd(w http.ResponseWriter, _ *http.Request) {
	h.Sessions.End("visitor")
	w.WriteHeader(http.StatusNoContent)
}
