package camera

import (
	"image"
	"image/color"
	"sync"
)

// TestPattern is a synthetic Grabber producing a gradient with a moving
// bar, used when no physical device is attached (dev mode) and in tests.
type TestPattern struct {
	w, h int

	mu sync.Mutex
	n  int
}

// NewTestPattern returns a pattern source at the given sensor geometry.
func NewTestPattern(w, h int) *TestPattern {
	if w <= 0 {
		w = 640
	}
	if h <= 0 {
		h = 480
	}
	return &TestPattern{w: w, h: h}
}

// Grab renders the next pattern frame.
func (p *TestPattern) Grab() (image.Image, error) {
	p.mu.Lock()
	n := p.n
	p.n++
	p.mu.Unlock()

	img := image.NewNRGBA(image.Rect(0, 0, p.w, p.h))
	bar := (n * 8) % p.w
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			c := color.NRGBA{
				R: uint8(x * 255 / p.w),
				G: uint8(y * 255 / p.h),
				B: 128,
				A: 255,
			}
			if x >= bar && x < bar+8 {
				c = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img, nil
}

// Close is a no-op; the pattern holds no device.
func (p *TestPattern) Close() error { return nil }
