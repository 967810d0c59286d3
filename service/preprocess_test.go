package service

import (
	"image/color"
	"math"
	"testing"
)

func rgbImage(w, h int, r, g, b uint8) *DecodedImage {
	pix := make([]uint8, w*h*3)
	for i := 0; i < len(pix); i += 3 {
		pix[i], pix[i+1], pix[i+2] = r, g, b
	}
	return &DecodedImage{Width: w, Height: h, Channels: 3, Pix: pix}
}

func assertAll(t *testing.T, tensor *Tensor, want, tol float32) {
	t.Helper()
	for i, v := range tensor.Data {
		if float32(math.Abs(float64(v-want))) > tol {
			t.Fatalf("element %d = %v, want %v", i, v, want)
		}
	}
}

func TestNormalizeShape(t *testing.T) {
	tensor, err := Normalize(Synthesize(640, 480))
	if err != nil {
		t.Fatal(err)
	}
	if tensor.Shape != [4]int{1, 28, 28, 1} || len(tensor.Data) != 28*28 {
		t.Fatalf("shape %v len %d", tensor.Shape, len(tensor.Data))
	}
	for i, v := range tensor.Data {
		if v < 0 || v > 1 {
			t.Fatalf("element %d = %v out of [0,1]", i, v)
		}
	}
}

func TestNormalizeWhite(t *testing.T) {
	tensor, err := Normalize(rgbImage(100, 100, 255, 255, 255))
	if err != nil {
		t.Fatal(err)
	}
	assertAll(t, tensor, 1, 1e-6)
}

func TestNormalizeBlackUpscale(t *testing.T) {
	tensor, err := Normalize(rgbImage(7, 5, 0, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	assertAll(t, tensor, 0, 0)
}

func TestNormalizeLuminance(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		luma    float64
	}{
		{"red", 255, 0, 0, 0.299},
		{"green", 0, 255, 0, 0.587},
		{"blue", 0, 0, 255, 0.114},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tensor, err := Normalize(rgbImage(28, 28, tt.r, tt.g, tt.b))
			if err != nil {
				t.Fatal(err)
			}
			assertAll(t, tensor, float32(tt.luma), 1.0/255)
		})
	}
}

// A canonical 28x28 gray image survives a normalize, rescale, normalize
// round trip unchanged.
func TestNormalizeIdempotent(t *testing.T) {
	pix := make([]uint8, 28*28)
	for i := range pix {
		pix[i] = uint8(i * 7)
	}
	first, err := Normalize(&DecodedImage{Width: 28, Height: 28, Channels: 1, Pix: pix})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range first.Data {
		if v != float32(pix[i])/255 {
			t.Fatalf("element %d = %v, want %v", i, v, float32(pix[i])/255)
		}
	}

	back := make([]uint8, len(first.Data))
	for i, v := range first.Data {
		back[i] = uint8(math.Round(float64(v) * 255))
	}
	second, err := Normalize(&DecodedImage{Width: 28, Height: 28, Channels: 1, Pix: back})
	if err != nil {
		t.Fatal(err)
	}
	for i := range first.Data {
		if first.Data[i] != second.Data[i] {
			t.Fatalf("element %d changed: %v -> %v", i, first.Data[i], second.Data[i])
		}
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	img := Synthesize(50, 40)
	a, _ := Normalize(img)
	b, _ := Normalize(img)
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatalf("element %d differs", i)
		}
	}
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	bad := []*DecodedImage{
		{Width: 0, Height: 10, Channels: 1},
		{Width: 2, Height: 2, Channels: 4, Pix: make([]uint8, 16)},
		{Width: 2, Height: 2, Channels: 3, Pix: make([]uint8, 5)},
	}
	for _, img := range bad {
		if _, err := Normalize(img); err == nil {
			t.Errorf("Normalize(%dx%dx%d, %d bytes) succeeded", img.Width, img.Height, img.Channels, len(img.Pix))
		}
	}
}

func TestFromImageDropsAlpha(t *testing.T) {
	img := FromImage(solid(3, 3, color.NRGBA{R: 10, G: 20, B: 30, A: 255}))
	if img.Channels != 3 || img.Pix[0] != 10 || img.Pix[1] != 20 || img.Pix[2] != 30 {
		t.Fatalf("got %d channels, %v", img.Channels, img.Pix[:3])
	}
}
