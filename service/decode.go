package service

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"math/rand"
	"strings"
	"unicode"

	_ "github.com/gen2brain/avif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/disintegration/imaging"
	"github.com/krau/handsign/metrics"
)

const (
	DefaultFallbackWidth  = 640
	DefaultFallbackHeight = 480
	// MaxImageSide caps both decoded and synthesized images per side.
	MaxImageSide = 4096
)

type DecoderOptions struct {
	// Fallback replaces undecodable payloads with a random image instead of
	// returning ErrDecodeFailed.
	Fallback      bool
	DefaultWidth  int
	DefaultHeight int
}

type Decoder struct {
	opts DecoderOptions
}

func NewDecoder(opts DecoderOptions) *Decoder {
	if opts.DefaultWidth <= 0 {
		opts.DefaultWidth = DefaultFallbackWidth
	}
	if opts.DefaultHeight <= 0 {
		opts.DefaultHeight = DefaultFallbackHeight
	}
	return &Decoder{opts: opts}
}

// Decode turns a payload into pixels. The bool result reports whether the
// image is a synthetic placeholder.
func (d *Decoder) Decode(p RawImage) (*DecodedImage, bool, error) {
	img, err := decodePayload(p.Data)
	if err == nil {
		return img, false, nil
	}
	if !d.opts.Fallback {
		return nil, false, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}

	w, h := d.fallbackSize(p)
	slog.Warn("Decode failed, classifying synthetic image",
		slog.String("error", err.Error()), slog.Int("width", w), slog.Int("height", h))
	metrics.DecodeFallbacks.Inc()
	return Synthesize(w, h), true, nil
}

func (d *Decoder) fallbackSize(p RawImage) (int, int) {
	w, h := p.Width, p.Height
	if w <= 0 {
		w = d.opts.DefaultWidth
	}
	if h <= 0 {
		h = d.opts.DefaultHeight
	}
	return min(w, MaxImageSide), min(h, MaxImageSide)
}

func decodePayload(data string) (*DecodedImage, error) {
	raw, err := DecodeBase64(data)
	if err != nil {
		return nil, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	if cfg.Width > MaxImageSide || cfg.Height > MaxImageSide {
		return nil, fmt.Errorf("image %dx%d exceeds %d pixels per side", cfg.Width, cfg.Height, MaxImageSide)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	return FromImage(img), nil
}

// StripDataURL drops a "data:<mime>;base64," style prefix.
func StripDataURL(s string) string {
	if _, rest, ok := strings.Cut(s, ","); ok {
		return rest
	}
	return s
}

// DecodeBase64 accepts padded or unpadded standard base64, with or without a
// data URL prefix. Whitespace anywhere is ignored.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, StripDataURL(s))
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	b, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	return b, nil
}

// FromImage keeps gray images single-channel and flattens everything else
// to RGB, dropping alpha.
func FromImage(img image.Image) *DecodedImage {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	switch src := img.(type) {
	case *image.Gray:
		pix := make([]uint8, w*h)
		for y := 0; y < h; y++ {
			i := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(pix[y*w:(y+1)*w], src.Pix[i:i+w])
		}
		return &DecodedImage{Width: w, Height: h, Channels: 1, Pix: pix}
	case *image.Gray16:
		pix := make([]uint8, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				pix[y*w+x] = uint8(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y >> 8)
			}
		}
		return &DecodedImage{Width: w, Height: h, Channels: 1, Pix: pix}
	}

	nrgba := imaging.Clone(img)
	pix := make([]uint8, w*h*3)
	for i, j := 0, 0; j < len(pix); i, j = i+4, j+3 {
		copy(pix[j:j+3], nrgba.Pix[i:i+3])
	}
	return &DecodedImage{Width: w, Height: h, Channels: 3, Pix: pix}
}

// Synthesize builds the random RGB placeholder used by the decode fallback.
func Synthesize(w, h int) *DecodedImage {
	pix := make([]uint8, w*h*3)
	for i := range pix {
		pix[i] = uint8(rand.Uint32())
	}
	return &DecodedImage{Width: w, Height: h, Channels: 3, Pix: pix}
}
