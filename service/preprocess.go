package service

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/krau/handsign/model"
)

// Normalize converts a decoded image into the [1,28,28,1] float tensor the
// classifier expects. Images already 28x28 are not resampled.
func Normalize(img *DecodedImage) (*Tensor, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}

	const size = model.ImageSize
	gray := toGray(img)

	t := &Tensor{
		Shape: [4]int{1, size, size, 1},
		Data:  make([]float32, size*size),
	}
	if img.Width == size && img.Height == size {
		for i, v := range gray.Pix {
			t.Data[i] = float32(v) / 255
		}
		return t, nil
	}

	resized := imaging.Resize(gray, size, size, imaging.Linear)
	for i := range t.Data {
		t.Data[i] = float32(resized.Pix[i*4]) / 255
	}
	return t, nil
}

// toGray applies the ITU-R 601 luma weights to RGB input.
func toGray(img *DecodedImage) *image.Gray {
	if img.Channels == 1 {
		return &image.Gray{
			Pix:    img.Pix,
			Stride: img.Width,
			Rect:   image.Rect(0, 0, img.Width, img.Height),
		}
	}
	g := imaging.Grayscale(img.Image())
	out := image.NewGray(g.Bounds())
	for i := range out.Pix {
		out.Pix[i] = g.Pix[i*4]
	}
	return out
}
