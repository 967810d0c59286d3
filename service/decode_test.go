package service

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestDecodeRGB(t *testing.T) {
	d := NewDecoder(DecoderOptions{})
	img, synthetic, err := d.Decode(RawImage{Data: encodePNG(t, solid(100, 50, color.NRGBA{R: 255, A: 255}))})
	if err != nil {
		t.Fatal(err)
	}
	if synthetic {
		t.Error("real image reported as synthetic")
	}
	if img.Width != 100 || img.Height != 50 || img.Channels != 3 {
		t.Fatalf("got %dx%dx%d", img.Width, img.Height, img.Channels)
	}
	if err := img.Validate(); err != nil {
		t.Fatal(err)
	}
	if img.Pix[0] != 255 || img.Pix[1] != 0 || img.Pix[2] != 0 {
		t.Errorf("first pixel = %v", img.Pix[:3])
	}
}

func TestDecodeGray(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 10, 4))
	for i := range g.Pix {
		g.Pix[i] = uint8(i)
	}
	img, _, err := NewDecoder(DecoderOptions{}).Decode(RawImage{Data: encodePNG(t, g)})
	if err != nil {
		t.Fatal(err)
	}
	if img.Channels != 1 || !bytes.Equal(img.Pix, g.Pix) {
		t.Fatalf("channels=%d pix=%v", img.Channels, img.Pix)
	}
}

func TestDecodeJPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, solid(16, 16, color.White), nil); err != nil {
		t.Fatal(err)
	}
	img, _, err := NewDecoder(DecoderOptions{}).Decode(RawImage{Data: base64.StdEncoding.EncodeToString(buf.Bytes())})
	if err != nil {
		t.Fatal(err)
	}
	if img.Width != 16 || img.Height != 16 {
		t.Fatalf("got %dx%d", img.Width, img.Height)
	}
}

func TestDecodeBase64Variants(t *testing.T) {
	payload := encodePNG(t, solid(4, 4, color.Black))
	variants := map[string]string{
		"plain":    payload,
		"data url": "data:image/png;base64," + payload,
		"unpadded": strings.TrimRight(payload, "="),
		"wrapped":  payload[:10] + "\n" + payload[10:] + "  ",
	}
	for name, v := range variants {
		t.Run(name, func(t *testing.T) {
			if _, _, err := NewDecoder(DecoderOptions{}).Decode(RawImage{Data: v}); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestStripDataURL(t *testing.T) {
	if got := StripDataURL("data:image/jpeg;base64,AAAA"); got != "AAAA" {
		t.Errorf("got %q", got)
	}
	if got := StripDataURL("AAAA"); got != "AAAA" {
		t.Errorf("got %q", got)
	}
}

// oversizedPNG encodes a 1x1 PNG and rewrites its IHDR to declare w x h.
func oversizedPNG(t *testing.T, w, h uint32) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatal(err)
	}
	b := buf.Bytes()
	binary.BigEndian.PutUint32(b[16:20], w)
	binary.BigEndian.PutUint32(b[20:24], h)
	binary.BigEndian.PutUint32(b[29:33], crc32.ChecksumIEEE(b[12:29]))
	return base64.StdEncoding.EncodeToString(b)
}

func TestDecodeRejectsOversizedImage(t *testing.T) {
	d := NewDecoder(DecoderOptions{})
	for _, size := range [][2]uint32{{60000, 60000}, {MaxImageSide + 1, 1}, {1, MaxImageSide + 1}} {
		_, _, err := d.Decode(RawImage{Data: oversizedPNG(t, size[0], size[1])})
		if !errors.Is(err, ErrDecodeFailed) {
			t.Errorf("%dx%d: err = %v, want ErrDecodeFailed", size[0], size[1], err)
		}
	}

	img, _, err := d.Decode(RawImage{Data: encodePNG(t, solid(MaxImageSide, 1, color.Black))})
	if err != nil || img.Width != MaxImageSide {
		t.Fatalf("image at the limit: %v", err)
	}
}

// Undecodable input is an error by default; the random-image fallback is
// opt-in.
func TestDecodeFailureWithoutFallback(t *testing.T) {
	d := NewDecoder(DecoderOptions{})
	for _, data := range []string{"not base64!!", base64.StdEncoding.EncodeToString([]byte("plain text"))} {
		if _, _, err := d.Decode(RawImage{Data: data}); !errors.Is(err, ErrDecodeFailed) {
			t.Errorf("Decode(%q) err = %v, want ErrDecodeFailed", data, err)
		}
	}
}

func TestDecodeFallback(t *testing.T) {
	d := NewDecoder(DecoderOptions{Fallback: true})
	tests := []struct {
		name         string
		payload      RawImage
		wantW, wantH int
	}{
		{"default size", RawImage{Data: "garbage"}, 640, 480},
		{"hinted size", RawImage{Data: "garbage", Width: 32, Height: 24}, 32, 24},
		{"clamped", RawImage{Data: "garbage", Width: 100000, Height: 8}, MaxImageSide, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, synthetic, err := d.Decode(tt.payload)
			if err != nil {
				t.Fatal(err)
			}
			if !synthetic {
				t.Error("fallback image not flagged synthetic")
			}
			if img.Width != tt.wantW || img.Height != tt.wantH || img.Channels != 3 {
				t.Errorf("got %dx%dx%d", img.Width, img.Height, img.Channels)
			}
			if err := img.Validate(); err != nil {
				t.Error(err)
			}
		})
	}
}
