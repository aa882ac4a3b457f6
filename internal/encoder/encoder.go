// Package encoder turns raw camera frames into correctly-oriented,
// lossy-compressed still images. The camera sensor is landscape-native and
// the live preview is horizontally mirrored (selfie mirror), so this
// package owns the two transforms that must happen exactly once, at
// capture time: rotation to match the kiosk display orientation and
// undoing the preview mirror so stills are not reversed relative to
// reality.
package encoder

import (
	"bytes"
	"fmt"
	"image"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"

	"github.com/photomat/photomat/internal/domain"
)

// Format selects the lossy output encoding.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatWebP Format = "webp"
)

// Valid reports whether f is a supported output format.
func (f Format) Valid() bool { return f == FormatJPEG || f == FormatWebP }

// MIMEType returns the media type for the encoded output.
func (f Format) MIMEType() string {
	if f == FormatWebP {
		return "image/webp"
	}
	return "image/jpeg"
}

// Orientation is the kiosk display orientation at capture time.
type Orientation int

const (
	Landscape Orientation = iota
	Portrait
)

// Encoder holds the fixed encoding policy for a kiosk station.
type Encoder struct {
	Format  Format
	Quality int // 1..100, applied to both JPEG and WebP

	// MirrorStills keeps the selfie-mirror look in saved photos. Off by
	// default: the preview mirror is undone so text in frame reads
	// correctly.
	MirrorStills bool
}

// New returns an Encoder, substituting sane values for out-of-range inputs.
func New(format Format, quality int, mirrorStills bool) *Encoder {
	if !format.Valid() {
		format = FormatJPEG
	}
	if quality < 1 || quality > 100 {
		quality = 90
	}
	return &Encoder{Format: format, Quality: quality, MirrorStills: mirrorStills}
}

// Encode produces the stored still from a raw frame. The frame arrives in
// sensor orientation with the preview mirror applied; in portrait mode it
// is rotated 90 degrees clockwise so the output's long edge matches the
// viewing axis. A frame with zero dimensions means the stream had not
// produced data yet and yields domain.ErrFrameNotReady.
func (e *Encoder) Encode(frame image.Image, o Orientation) ([]byte, error) {
	if frame == nil {
		return nil, domain.ErrFrameNotReady
	}
	b := frame.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, domain.ErrFrameNotReady
	}
	img := frame
	if !e.MirrorStills {
		img = imaging.FlipH(img)
	}
	if o == Portrait {
		// Rotate270 is a 90-degree clockwise turn, matching the display's
		// rotation of the sensor-landscape preview.
		img = imaging.Rotate270(img)
	}
	return e.encode(img)
}

func (e *Encoder) encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	switch e.Format {
	case FormatWebP:
		if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(e.Quality)}); err != nil {
			return nil, fmt.Errorf("encode webp: %w", err)
		}
	default:
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(e.Quality)); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// Thumbnail re-encodes stored still bytes scaled down so the longest edge
// is at most maxEdge pixels. Used by the on-kiosk review screen; it never
// mutates the stored artifact.
func (e *Encoder) Thumbnail(still []byte, maxEdge uint) ([]byte, error) {
	if maxEdge == 0 {
		return nil, fmt.Errorf("thumbnail edge must be positive")
	}
	img, err := imaging.Decode(bytes.NewReader(still))
	if err != nil {
		return nil, fmt.Errorf("decode still: %w", err)
	}
	small := resize.Thumbnail(maxEdge, maxEdge, img, resize.Lanczos3)
	return e.encode(small)
}
