package httpx

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/photomat/photomat/internal/domain"
	"github.com/photomat/photomat/internal/metrics"
	"github.com/photomat/photomat/internal/uplink"
)

// uploadRequest is the JSON envelope posted by the kiosk uplink. The image
// travels as a data URL; the filename carries the photo id.
type uploadRequest struct {
	Image    string `json:"image"`
	Filename string `json:"filename"`
}

// handleUploadPhoto implements POST /api/photos, the server side of the
// remote handoff contract.
func (h *Handler) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body := http.MaxBytesReader(w, r.Body, h.uploadLimit())
	defer body.Close()
	var req uploadRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, "invalid json body")
		return
	}
	still, err := uplink.DecodeDataURL(req.Image)
	if err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, "invalid image data url")
		return
	}
	idStr := strings.TrimSuffix(req.Filename, path.Ext(req.Filename))
	id, err := h.Service.Ingest(ctx, idStr, still)
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	h.inc(metrics.CounterPhotosCaptured)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(struct {
		ImageURL string `json:"imageUrl"`
	}{ImageURL: h.Minter.Link(id)})
}

// handleFetchPhoto implements GET /api/photos/{id}. The first successful
// fetch marks the photo delivered; the payload itself survives until the
// visitor (or the janitor) consumes it.
func (h *Handler) handleFetchPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rc, size, err := h.Service.Deliver(ctx, r.PathValue("id"))
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	defer rc.Close()
	still, err := io.ReadAll(io.LimitReader(rc, size))
	if err != nil {
		h.writeError(ctx, w, http.StatusInternalServerError, "internal")
		return
	}
	h.inc(metrics.CounterPhotosFetched)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(struct {
		ImageDataURL string `json:"imageDataURL"`
	}{ImageDataURL: "data:" + h.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(still)})
}

// handleConsumePhoto implements POST /api/photos/{id}/consume: 204 exactly
// once, 410 on every later attempt.
func (h *Handler) handleConsumePhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.Service.Consume(ctx, r.PathValue("id")); err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	h.inc(metrics.CounterPhotosConsumed)
	w.WriteHeader(http.StatusNoContent)
}

// handlePreviewPhoto implements GET /api/photos/{id}/preview, the
// non-consuming read behind the kiosk review screen. ?thumb=N returns a
// downscaled copy with max edge N.
func (h *Handler) handlePreviewPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.touch()
	if thumbStr := r.URL.Query().Get("thumb"); thumbStr != "" {
		edge, err := strconv.ParseUint(thumbStr, 10, 16)
		if err != nil || edge == 0 {
			h.writeError(ctx, w, http.StatusBadRequest, "invalid thumb size")
			return
		}
		data, err := h.Service.PreviewThumbnail(ctx, r.PathValue("id"), uint(edge))
		if err != nil {
			h.mapServiceError(ctx, w, err)
			return
		}
		w.Header().Set("Content-Type", h.MIMEType)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}
	rc, size, err := h.Service.Preview(ctx, r.PathValue("id"))
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", h.MIMEType)
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)
	_, _ = io.CopyN(w, rc, size)
}

// handlePhotoQR implements GET /api/photos/{id}/qr, returning the PNG QR
// code for the photo's retrieval link.
func (h *Handler) handlePhotoQR(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.touch()
	id, err := domain.ParseID(r.PathValue("id"))
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	size := 0
	if sizeStr := r.URL.Query().Get("size"); sizeStr != "" {
		size, err = strconv.Atoi(sizeStr)
		if err != nil || size < 0 || size > 2048 {
			h.writeError(ctx, w, http.StatusBadRequest, "invalid size")
			return
		}
	}
	png, err := h.Minter.QRCodePNG(id, size)
	if err != nil {
		h.writeError(ctx, w, http.StatusInternalServerError, "internal")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// uploadLimit bounds the upload JSON envelope. Base64 plus the JSON
// wrapper inflates the still by roughly a third.
func (h *Handler) uploadLimit() int64 {
	if h.MaxBody <= 0 {
		return 32 << 20
	}
	return h.MaxBody*4/3 + 4096
}

func (h *Handler) inc(name string) {
	if h.Metrics != nil {
		h.Metrics.Inc(name, 1)
	}
}

func (h *Handler) touch() {
	if h.Sessions != nil {
		h.Sessions.Touch()
	}
}
