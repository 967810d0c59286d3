package service

import (
	"strings"
	"time"

	"github.com/krau/handsign/metrics"
	"github.com/krau/handsign/model"
)

// Predictor runs decode, normalize, classify and label lookup for each image.
// A nil classifier means the model failed to load; every call then returns
// ErrModelUnavailable.
type Predictor struct {
	classifier Classifier
	labels     model.LabelMap
	decoder    *Decoder
}

func NewPredictor(classifier Classifier, labels model.LabelMap, decoder *Decoder) *Predictor {
	if decoder == nil {
		decoder = NewDecoder(DecoderOptions{})
	}
	return &Predictor{
		classifier: classifier,
		labels:     labels,
		decoder:    decoder,
	}
}

func (p *Predictor) Ready() bool {
	return p.classifier != nil
}

func (p *Predictor) PredictOne(payload RawImage) (*PredictionResult, error) {
	if !p.Ready() {
		return nil, ErrModelUnavailable
	}
	if strings.TrimSpace(payload.Data) == "" {
		return nil, ErrNoImage
	}

	img, synthetic, err := p.decoder.Decode(payload)
	if err != nil {
		return nil, err
	}
	tensor, err := Normalize(img)
	if err != nil {
		return nil, &InferenceError{Stage: "preprocess", Err: err}
	}

	start := time.Now()
	probs, err := p.classifier.Classify(tensor.Data)
	metrics.InferenceDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, &InferenceError{Stage: "classify", Err: err}
	}

	index, confidence := Argmax(probs)
	letter, err := p.labels.At(index)
	if err != nil {
		return nil, &InferenceError{Stage: "label", Err: err}
	}
	metrics.Predictions.WithLabelValues(letter).Inc()

	return &PredictionResult{
		Letter:        letter,
		Confidence:    confidence,
		Index:         index,
		Probabilities: probs,
		Synthetic:     synthetic,
	}, nil
}

// PredictMany classifies each payload on its own, in order. The first
// failing item fails the whole batch with an *ItemError.
func (p *Predictor) PredictMany(payloads []RawImage) ([]*PredictionResult, error) {
	if !p.Ready() {
		return nil, ErrModelUnavailable
	}
	results := make([]*PredictionResult, 0, len(payloads))
	for i, payload := range payloads {
		res, err := p.PredictOne(payload)
		if err != nil {
			return nil, &ItemError{Index: i, Err: err}
		}
		results = append(results, res)
	}
	return results, nil
}

// Argmax returns the first index holding the maximum value, or -1 for an
// empty vector.
func Argmax(v []float32) (int, float32) {
	if len(v) == 0 {
		return -1, 0
	}
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best, v[best]
}
