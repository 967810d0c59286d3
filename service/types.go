package service

import (
	"fmt"
	"image"

	"github.com/krau/handsign/model"
)

// RawImage is one inbound payload: base64 text, optionally a data URL, with
// optional size hints used only by the decode fallback.
type RawImage struct {
	Data   string
	Width  int
	Height int
}

// DecodedImage is an interleaved 8-bit pixel grid with 1 (gray) or 3 (RGB)
// channels.
type DecodedImage struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

func (d *DecodedImage) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", d.Width, d.Height)
	}
	if d.Channels != 1 && d.Channels != 3 {
		return fmt.Errorf("unsupported channel count %d", d.Channels)
	}
	if len(d.Pix) != d.Width*d.Height*d.Channels {
		return fmt.Errorf("pixel buffer has %d bytes, want %d", len(d.Pix), d.Width*d.Height*d.Channels)
	}
	return nil
}

// Image wraps the pixel buffer for use with image codecs and filters.
func (d *DecodedImage) Image() image.Image {
	r := image.Rect(0, 0, d.Width, d.Height)
	if d.Channels == 1 {
		return &image.Gray{Pix: d.Pix, Stride: d.Width, Rect: r}
	}
	dst := image.NewNRGBA(r)
	for i, j := 0, 0; j < len(d.Pix); i, j = i+4, j+3 {
		dst.Pix[i] = d.Pix[j]
		dst.Pix[i+1] = d.Pix[j+1]
		dst.Pix[i+2] = d.Pix[j+2]
		dst.Pix[i+3] = 0xff
	}
	return dst
}

// Tensor is the model input in [batch, height, width, channel] order with
// every element in [0,1].
type Tensor struct {
	Shape [4]int
	Data  []float32
}

// Classifier is the part of model.Runtime the pipeline depends on.
type Classifier interface {
	Classify(input []float32) ([]float32, error)
}

type PredictionResult struct {
	Letter        string    `json:"letter"`
	Confidence    float32   `json:"confidence"`
	Index         int       `json:"index"`
	Probabilities []float32 `json:"all_probabilities"`
	// Synthetic is set when the payload could not be decoded and a
	// placeholder image was classified instead.
	Synthetic bool `json:"synthetic,omitempty"`
}

var _ Classifier = (*model.Runtime)(nil)
