package httpx

import (
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type failingRenderer struct{}

func (failingRenderer) Execute(w http.ResponseWriter, data any) error {
	_, _ = w.Write([]byte("partial output"))
	return errors.New("boom")
}

func TestRenderTemplateSuccess(t *testing.T) {
	tmpl := template.Must(template.New("p").Parse(`<p>{{.PhotoID}}</p>`))
	rw := httptest.NewRecorder()
	renderTemplate(rw, TemplateRenderer{T: tmpl}, downloadView{PhotoID: testIDStr})
	if rw.Code != http.StatusOK {
		t.Fatalf("status = %d", rw.Code)
	}
	if !strings.Contains(rw.Body.String(), testIDStr) {
		t.Fatalf("body missing id: %q", rw.Body.String())
	}
	if cc := rw.Header().Get("Cache-Control"); cc != "no-store" {
		t.Fatalf("cache control = %q", cc)
	}
}

func TestRenderTemplateFailureSuppressesPartialOutput(t *testing.T) {
	rw := httptest.NewRecorder()
	renderTemplate(rw, failingRenderer{}, nil)
	if rw.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rw.Code)
	}
	if strings.Contains(rw.Body.String(), "partial output") {
		t.Fatalf("partial template output leaked: %q", rw.Body.String())
	}
}

func TestDownloadPage(t *testing.T) {
	h, _ := newTestHandler()
	h.DownloadTmpl = TemplateRenderer{T: template.Must(template.New("d").Parse(`<div data-id="{{.PhotoID}}"></div>`))}
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/download/" + testIDStr)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	resp2, _ := http.Get(srv.URL + "/download/invalid")
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid id: status = %d, want 400", resp2.StatusCode)
	}
}

func TestIndexPageUnavailableWithoutTemplate(t *testing.T) {
	h, _ := newTestHandler()
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	resp, _ := http.Get(srv.URL + "/")
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}
