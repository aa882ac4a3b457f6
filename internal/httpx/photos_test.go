package httpx

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	return resp
}

func uploadStill(t *testing.T, srvURL, id string, still []byte) *http.Response {
	t.Helper()
	return postJSON(t, srvURL+"/api/photos", map[string]string{
		"image":    "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(still),
		"filename": id + ".jpg",
	})
}

func TestUploadPhoto(t *testing.T) {
	h, svc := newTestHandler()
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	still := []byte("encoded-still")
	resp := uploadStill(t, srv.URL, testIDStr, still)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var out struct {
		ImageURL string `json:"imageUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ImageURL != "http://kiosk.local/download/"+testIDStr {
		t.Fatalf("imageUrl = %q", out.ImageURL)
	}
	if !bytes.Equal(svc.stills[testIDStr], still) {
		t.Fatalf("stored payload mismatch")
	}
}

func TestUploadPhotoBadRequests(t *testing.T) {
	h, _ := newTestHandler()
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"not a data url", map[string]string{"image": "plain", "filename": testIDStr + ".jpg"}, http.StatusBadRequest},
		{"invalid id in filename", map[string]string{"image": "data:image/jpeg;base64,aGk=", "filename": "nope.jpg"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/photos", tt.body)
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}

	resp, err := http.Post(srv.URL+"/api/photos", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed json: status = %d, want 400", resp.StatusCode)
	}
}

func TestFetchPhoto(t *testing.T) {
	h, _ := newTestHandler()
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	still := []byte("still-bytes")
	uploadStill(t, srv.URL, testIDStr, still).Body.Close()

	// Repeated fetches all succeed; delivery does not consume.
	for i := 0; i < 2; i++ {
		resp, err := http.Get(srv.URL + "/api/photos/" + testIDStr)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		var out struct {
			ImageDataURL string `json:"imageDataURL"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("fetch #%d: status = %d", i, resp.StatusCode)
		}
		want := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(still)
		if out.ImageDataURL != want {
			t.Fatalf("data url mismatch: %q", out.ImageDataURL)
		}
	}
}

func TestFetchPhotoNotFound(t *testing.T) {
	h, _ := newTestHandler()
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	resp, _ := http.Get(srv.URL + "/api/photos/" + testIDStr)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}

	resp, _ = http.Get(srv.URL + "/api/photos/not-a-valid-id")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid id: status = %d, want 400", resp.StatusCode)
	}
}

func TestConsumePhotoExactlyOnce(t *testing.T) {
	h, _ := newTestHandler()
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	uploadStill(t, srv.URL, testIDStr, []byte("still")).Body.Close()

	resp, err := http.Post(srv.URL+"/api/photos/"+testIDStr+"/consume", "", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("first consume: status = %d, want 204", resp.StatusCode)
	}

	resp, _ = http.Post(srv.URL+"/api/photos/"+testIDStr+"/consume", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusGone {
		t.Fatalf("second consume: status = %d, want 410", resp.StatusCode)
	}

	// Fetch after consume reports gone as well.
	resp, _ = http.Get(srv.URL + "/api/photos/" + testIDStr)
	resp.Body.Close()
	if resp.StatusCode != http.StatusGone {
		t.Fatalf("fetch after consume: status = %d, want 410", resp.StatusCode)
	}
}

func TestPreviewPhoto(t *testing.T) {
	h, _ := newTestHandler()
	sess := &mockSessions{}
	h.Sessions = sess
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	still := []byte("full-size")
	uploadStill(t, srv.URL, testIDStr, still).Body.Close()

	resp, err := http.Get(srv.URL + "/api/photos/" + testIDStr + "/preview")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !bytes.Equal(got, still) {
		t.Fatalf("preview: status=%d body=%q", resp.StatusCode, got)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Fatalf("content type = %q", ct)
	}
	if sess.touches == 0 {
		t.Fatalf("preview must refresh the idle timer")
	}

	// Thumbnail path.
	resp, _ = http.Get(srv.URL + "/api/photos/" + testIDStr + "/preview?thumb=320")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("thumb: status = %d", resp.StatusCode)
	}

	resp, _ = http.Get(srv.URL + "/api/photos/" + testIDStr + "/preview?thumb=zero")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad thumb: status = %d, want 400", resp.StatusCode)
	}
}

func TestPhotoQR(t *testing.T) {
	h, _ := newTestHandler()
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/photos/" + testIDStr + "/qr")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}
	if string(body) != "png-bytes" {
		t.Fatalf("unexpected body %q", body)
	}

	resp, _ = http.Get(srv.URL + "/api/photos/bogus/qr")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid id: status = %d, want 400", resp.StatusCode)
	}

	resp, _ = http.Get(srv.URL + "/api/photos/" + testIDStr + "/qr?size=9999")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("oversize qr: status = %d, want 400", resp.StatusCode)
	}
}

type countCollector struct{ counts map[string]int64 }

func (c *countCollector) Inc(name string, delta int64) { c.counts[name] += delta }
func (c *countCollector) Observe(string, int64)        {}

// Every successful remote fetch counts, repeats included; the counter is
// named for fetches, not for the one-time delivered transition.
func TestFetchCounterCountsRepeats(t *testing.T) {
	h, svc := newTestHandler()
	col := &countCollector{counts: map[string]int64{}}
	h.Metrics = col
	svc.stills[testIDStr] = []byte("still-bytes")
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	for i := 0; i < 3; i++ {
		resp, err := http.Get(srv.URL + "/api/photos/" + testIDStr)
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("fetch %d status = %d", i, resp.StatusCode)
		}
	}
	if got := col.counts["photos_fetched_total"]; got != 3 {
		t.Fatalf("fetch counter = %d, want 3", got)
	}
	if got := col.counts["photos_delivered_total"]; got != 0 {
		t.Fatalf("no delivered-transition counter may be emitted here, got %d", got)
	}

	resp, err := http.Get(srv.URL + "/api/photos/ffffffffffffffffffffffffffffffff")
	if err != nil {
		t.Fatalf("fetch unknown: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown fetch status = %d", resp.StatusCode)
	}
	if got := col.counts["photos_fetched_total"]; got != 3 {
		t.Fatalf("failed fetch must not count, got %d", got)
	}
}
