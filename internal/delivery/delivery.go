// Package delivery mints retrieval links for captured photos and renders
// them as QR codes for the kiosk review screen.
package delivery

import (
	"fmt"
	"net/url"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/photomat/photomat/internal/domain"
)

// DefaultQRSize is the rendered QR code edge length in pixels.
const DefaultQRSize = 256

// Minter builds absolute download URLs from a configured public base URL.
type Minter struct {
	base string
}

// NewMinter validates base as an absolute http(s) URL and returns a Minter.
// Trailing slashes are trimmed so minted links have a single separator.
func NewMinter(base string) (*Minter, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", base)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base url %q: missing host", base)
	}
	return &Minter{base: strings.TrimRight(base, "/")}, nil
}

// Link returns the public retrieval URL for a photo. The path embeds the
// photo ID and nothing else; possession of the link is the only credential.
func (m *Minter) Link(id domain.PhotoID) string {
	return m.base + "/download/" + id.String()
}

// QRCodePNG renders the retrieval URL for id as a PNG-encoded QR code of
// the given pixel size, using high error correction.
func (m *Minter) QRCodePNG(id domain.PhotoID, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	png, err := qrcode.Encode(m.Link(id), qrcode.High, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
