// Package uplink implements the client side of the remote photo delivery
// endpoint: stills are posted as base64-encoded JSON and fetched back as
// data URLs.
package uplink

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUploadFailed wraps any transport or remote rejection of an upload.
var ErrUploadFailed = errors.New("uplink: upload failed")

// maxResponseBytes bounds remote response bodies. Data URLs for a
// full-size still fit comfortably under this.
const maxResponseBytes = 32 << 20

type uploadRequest struct {
	Image    string `json:"image"`
	Filename string `json:"filename"`
}

type uploadResponse struct {
	ImageURL string `json:"imageUrl"`
}

type fetchResponse struct {
	ImageDataURL string `json:"imageDataURL"`
}

// Client talks to a remote delivery endpoint implementing the photo
// upload/fetch contract.
type Client struct {
	base string
	http *http.Client
	mime string
}

// New returns a Client for the endpoint rooted at base. mimeType is the
// media type stamped into uploaded data URLs, e.g. "image/jpeg".
func New(base, mimeType string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: timeout},
		mime: mimeType,
	}
}

// Upload posts a still to the remote endpoint and returns the remote
// image URL. The payload travels as a data URL in a JSON envelope.
func (c *Client) Upload(ctx context.Context, filename string, still []byte) (string, error) {
	body, err := json.Marshal(uploadRequest{
		Image:    "data:" + c.mime + ";base64," + base64.StdEncoding.EncodeToString(still),
		Filename: filename,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/photos", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: remote returned %s", ErrUploadFailed, resp.Status)
	}
	var out uploadResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUploadFailed, err)
	}
	if out.ImageURL == "" {
		return "", fmt.Errorf("%w: response missing imageUrl", ErrUploadFailed)
	}
	return out.ImageURL, nil
}

// Fetch retrieves a previously uploaded photo by id and returns the
// decoded image bytes.
func (c *Client) Fetch(ctx context.Context, id string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/photos/"+id, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("uplink: fetch %s: remote returned %s", id, resp.Status)
	}
	var out fetchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return nil, fmt.Errorf("uplink: fetch %s: decode response: %w", id, err)
	}
	return DecodeDataURL(out.ImageDataURL)
}

// DecodeDataURL extracts the base64 payload from a data URL of the form
// data:<mime>;base64,<payload>.
func DecodeDataURL(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "data:") {
		return nil, errors.New("uplink: response is not a data url")
	}
	idx := strings.Index(s, ",")
	if idx < 0 || !strings.HasSuffix(s[:idx], ";base64") {
		return nil, errors.New("uplink: unsupported data url encoding")
	}
	data, err := base64.StdEncoding.DecodeString(s[idx+1:])
	if err != nil {
		return nil, fmt.Errorf("uplink: decode data url: %w", err)
	}
	return data, nil
}
