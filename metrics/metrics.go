// Package metrics defines prometheus metrics to expose
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "handsign_request_duration_seconds",
			Help:    "Total time taken for requests in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"path", "status"},
	)

	InferenceDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "handsign_inference_duration_seconds",
			Help:    "Time spent in a single classify call",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
	)

	Predictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "handsign_predictions_total",
			Help: "Predictions served per letter",
		},
		[]string{"letter"},
	)

	DecodeFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "handsign_decode_fallbacks_total",
			Help: "Undecodable payloads replaced by a synthetic image",
		},
	)

	ModelLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "handsign_model_loaded",
			Help: "1 when the classifier is loaded and serving",
		},
	)
)
