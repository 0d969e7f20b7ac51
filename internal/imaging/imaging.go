// Package imaging decodes producer-supplied image payloads into normalized
// 3-channel RGB frames and provides the placeholder frame substituted when
// no decodable image is available.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
)

// Channels is the channel count of every normalized frame.
const Channels = 3

// PlaceholderSize is the edge length of the placeholder frame.
const PlaceholderSize = 64

// Frame is a decoded image: row-major RGB, 8 bits per channel.
// len(Pix) == Width*Height*Channels.
type Frame struct {
	Width  int
	Height int
	Pix    []uint8
}

// PixelAt returns the RGB triple at (x, y). Callers must stay in bounds.
func (f *Frame) PixelAt(x, y int) (r, g, b uint8) {
	i := (y*f.Width + x) * Channels
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// Placeholder returns a freshly allocated zero-filled (black) frame of
// PlaceholderSize x PlaceholderSize. Callers own the returned frame.
func Placeholder() *Frame {
	return &Frame{
		Width:  PlaceholderSize,
		Height: PlaceholderSize,
		Pix:    make([]uint8, PlaceholderSize*PlaceholderSize*Channels),
	}
}

// EncodePNG re-encodes a frame as PNG. Used by CLI snapshot saving and
// round-trip tests.
func EncodePNG(f *Frame) ([]byte, error) {
	if len(f.Pix) != f.Width*f.Height*Channels {
		return nil, fmt.Errorf("frame pix length %d does not match %dx%dx%d", len(f.Pix), f.Width, f.Height, Channels)
	}

	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i := 0; i < f.Width*f.Height; i++ {
		img.Pix[i*4+0] = f.Pix[i*3+0]
		img.Pix[i*4+1] = f.Pix[i*3+1]
		img.Pix[i*4+2] = f.Pix[i*3+2]
		img.Pix[i*4+3] = 255
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
