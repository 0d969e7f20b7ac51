package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	// Registered formats. The companion apps mostly send PNG and JPEG;
	// the x/image formats cover screenshots and export tools that don't.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrEmptyPayload is returned when the encoded input is empty or absent.
var ErrEmptyPayload = errors.New("empty image payload")

// DecodeBase64 decodes a base64-encoded image string into a normalized frame.
// A data-URI prefix ("data:image/png;base64,....") is stripped when present.
func DecodeBase64(s string) (*Frame, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptyPayload
	}

	if i := strings.Index(s, "base64,"); i >= 0 {
		s = s[i+len("base64,"):]
	}

	// Producers disagree on padding; decode unpadded and trim whatever
	// padding was sent.
	raw, err := base64.StdEncoding.WithPadding(base64.NoPadding).DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}

	return Decode(raw)
}

// Decode parses raw image bytes and normalizes them to a 3-channel RGB frame:
// alpha is flattened onto a black background using the alpha as blend weight,
// grayscale is replicated across all three channels.
func Decode(raw []byte) (*Frame, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyPayload
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	return normalize(img), nil
}

// normalize converts any image.Image to an RGB frame. RGBA() returns
// alpha-premultiplied values, which is exactly "blend onto black".
func normalize(img image.Image) *Frame {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	f := &Frame{
		Width:  w,
		Height: h,
		Pix:    make([]uint8, w*h*Channels),
	}

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			f.Pix[i+0] = uint8(r >> 8)
			f.Pix[i+1] = uint8(g >> 8)
			f.Pix[i+2] = uint8(b >> 8)
			i += Channels
		}
	}
	return f
}
