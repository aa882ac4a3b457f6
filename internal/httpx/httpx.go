// Package httpx contains the HTTP delivery layer (net/http handlers) for
// the photomat service. It maps HTTP requests to the application service,
// capture machine, and session manager while enforcing validation, size
// limits, security headers, and error translation. Handlers are split
// across files (photos.go, capture.go, session.go, health.go, errors.go).
package httpx

import (
	"context"
	"io"
	"net/http"

	"github.com/photomat/photomat/internal/capture"
	"github.com/photomat/photomat/internal/domain"
	"github.com/photomat/photomat/internal/session"
)

// ServicePort abstracts the subset of app.Service used by the HTTP layer.
// It is satisfied by *app.Service in production and mocked in tests.
type ServicePort interface {
	Ready(ctx context.Context) error
	Ingest(ctx context.Context, idStr string, still []byte) (domain.PhotoID, error)
	Preview(ctx context.Context, idStr string) (io.ReadCloser, int64, error)
	PreviewThumbnail(ctx context.Context, idStr string, maxEdge uint) ([]byte, error)
	Deliver(ctx context.Context, idStr string) (io.ReadCloser, int64, error)
	Consume(ctx context.Context, idStr string) error
}

// CapturePort abstracts the capture state machine for the kiosk endpoints.
type CapturePort interface {
	Start(ctx context.Context) error
	Cancel()
	Retake(ctx context.Context) error
	Snapshot() capture.View
}

// SessionPort abstracts the visitor session manager.
type SessionPort interface {
	Begin(contact session.Contact) (session.Session, error)
	Current() (session.Session, error)
	Touch()
	End(reason string) bool
}

// LinkMinter builds retrieval links and QR codes for stored photos.
// Satisfied by *delivery.Minter.
type LinkMinter interface {
	Link(id domain.PhotoID) string
	QRCodePNG(id domain.PhotoID, size int) ([]byte, error)
}

// Collector receives request-path metric emissions. Optional.
type Collector interface {
	Inc(name string, delta int64)
	Observe(name string, v int64)
}

// Handler wires HTTP endpoints to the application layer.
// It is safe for concurrent use. Zero-value is not valid; construct via New.
type Handler struct {
	Service      ServicePort
	Machine      CapturePort                 // optional; nil disables kiosk capture endpoints
	Sessions     SessionPort                 // optional; nil disables session endpoints
	Minter       LinkMinter                  // required for upload and QR responses
	Metrics      Collector                   // optional
	MaxBody      int64                       // mirror service.MaxBytes
	MIMEType     string                      // media type of stored stills, e.g. "image/jpeg"
	Readiness    func(context.Context) error // optional readiness probe
	IndexTmpl    Renderer                    // optional renderer for kiosk page
	IndexView    IndexView                   // values rendered into the kiosk page
	DownloadTmpl Renderer                    // optional renderer for download page
	Assets       http.FileSystem             // static assets filesystem (optional)
	MetricsPage  http.HandlerFunc            // optional /metrics endpoint
}

// New returns a configured Handler.
// svc: application service port implementation.
// minter: link/QR builder for the public base URL.
// maxBody: maximum allowed request body size (0 disables extra check).
func New(svc ServicePort, minter LinkMinter, maxBody int64) *Handler {
	return &Handler{Service: svc, Minter: minter, MaxBody: maxBody, MIMEType: "image/jpeg"}
}

// Router constructs and returns an http.Handler with all routes mounted and
// the correlation-ID and security headers middleware applied.
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("GET /download/{id}", h.handleDownloadPage)
	mux.HandleFunc("POST /api/photos", h.handleUploadPhoto)
	mux.HandleFunc("GET /api/photos/{id}", h.handleFetchPhoto)
	mux.HandleFunc("POST /api/photos/{id}/consume", h.handleConsumePhoto)
	mux.HandleFunc("GET /api/photos/{id}/preview", h.handlePreviewPhoto)
	mux.HandleFunc("GET /api/photos/{id}/qr", h.handlePhotoQR)
	if h.Machine != nil {
		mux.HandleFunc("POST /api/capture", h.handleCaptureStart)
		mux.HandleFunc("GET /api/capture", h.handleCaptureStatus)
		mux.HandleFunc("POST /api/capture/cancel", h.handleCaptureCancel)
		mux.HandleFunc("POST /api/capture/retake", h.handleCaptureRetake)
	}
	if h.Sessions != nil {
		mux.HandleFunc("POST /api/session", h.handleSessionBegin)
		mux.HandleFunc("GET /api/session", h.handleSessionCurrent)
		mux.HandleFunc("DELETE /api/session", h.handleSessionEnd)
	}
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("GET /readyz", h.handleReady)
	if h.MetricsPage != nil {
		mux.HandleFunc("GET /metrics", h.MetricsPage)
	}
	if h.Assets != nil {
		mux.Handle("GET /static/", http.StripPrefix("/static/", h.staticHandler()))
	}
	return CorrelationIDMiddleware(h.secureHeaders(mux))
}

// secureHeaders middleware adds standard security & cache control headers.
func (h *Handler) secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		// Cache defaults per route: page handlers override to no-store; static handler sets long-lived.
		if ct := w.Header().Get("Content-Type"); ct == "" {
			w.Header().Set("Cache-Control", "no-store")
			w.Header().Set("Pragma", "no-cache")
		}
		w.Header().Set("Content-Security-Policy", "default-src 'none'; script-src 'self'; style-src 'self'; img-src 'self' data: blob:; media-src 'self' blob:; connect-src 'self'; font-src 'self'; frame-ancestors 'none'; base-uri 'none'; form-action 'self'")
		next.ServeHTTP(w, r)
	})
}
