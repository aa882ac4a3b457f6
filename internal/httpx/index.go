package httpx

import (
	"net/http"
	"path"
	"strings"

	"github.com/photomat/photomat/internal/domain"
)

// IndexView supplies dynamic config values to the kiosk page template.
type IndexView struct {
	CountdownSeconds int
	PortraitMode     bool
	MirrorPreview    bool
}

// handleIndex renders the kiosk HTML page.
func (h *Handler) handleIndex(w http.ResponseWriter, _ *http.Request) {
	if h.IndexTmpl == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("kiosk page unavailable"))
		return
	}
	renderTemplate(w, h.IndexTmpl, h.IndexView)
}

// downloadView supplies the photo id to the download page template. The
// page itself fetches the payload and drives consumption client-side.
type downloadView struct {
	PhotoID string
}

// handleDownloadPage serves the HTML page a visitor lands on after
// scanning the QR code.
func (h *Handler) handleDownloadPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseID(r.PathValue("id"))
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	if h.DownloadTmpl == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("download page unavailable"))
		return
	}
	renderTemplate(w, h.DownloadTmpl, downloadView{PhotoID: id.String()})
}

// staticHandler serves embedded static assets under /static/.
func (h *Handler) staticHandler() http.Handler {
	fs := h.Assets
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent directory listings; require a file with extension
		if strings.HasSuffix(r.URL.Path, "/") || path.Ext(r.URL.Path) == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=300")
		http.FileServer(fs).ServeHTTP(w, r)
	})
}
