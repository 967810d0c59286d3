package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/krau/handsign/service"
)

type PredictRequest struct {
	Image  string `json:"image"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type BatchPredictRequest struct {
	Images []string `json:"images"`
}

type BatchPrediction struct {
	Letter     string  `json:"letter"`
	Confidence float32 `json:"confidence"`
	Index      int     `json:"index"`
	Synthetic  bool    `json:"synthetic,omitempty"`
}

type BatchPredictResponse struct {
	Predictions []BatchPrediction `json:"predictions"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

func (s *Server) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", ModelLoaded: s.predictor.Ready()})
}

func (s *Server) PredictHandler(c *gin.Context) {
	if !s.predictor.Ready() {
		abort(c, ErrModelNotLoaded)
		return
	}

	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, bindError(err))
		return
	}
	if req.Image == "" {
		abort(c, ErrNoImage)
		return
	}

	res, err := s.predictor.PredictOne(service.RawImage{Data: req.Image, Width: req.Width, Height: req.Height})
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) BatchPredictHandler(c *gin.Context) {
	if !s.predictor.Ready() {
		abort(c, ErrModelNotLoaded)
		return
	}

	var req BatchPredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, bindError(err))
		return
	}
	if s.cfg.MaxBatch > 0 && len(req.Images) > s.cfg.MaxBatch {
		abort(c, errTooManyImages(s.cfg.MaxBatch))
		return
	}

	payloads := make([]service.RawImage, len(req.Images))
	for i, img := range req.Images {
		payloads[i] = service.RawImage{Data: img}
	}
	results, err := s.predictor.PredictMany(payloads)
	if err != nil {
		abort(c, err)
		return
	}

	resp := BatchPredictResponse{Predictions: make([]BatchPrediction, 0, len(results))}
	for _, r := range results {
		resp.Predictions = append(resp.Predictions, BatchPrediction{
			Letter:     r.Letter,
			Confidence: r.Confidence,
			Index:      r.Index,
			Synthetic:  r.Synthetic,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// bindError keeps body-size failures distinct from malformed JSON.
func bindError(err error) error {
	if re := toRequestError(err); re.StatusCode == http.StatusRequestEntityTooLarge {
		return re
	}
	return withCause(ErrInvalidBody, err)
}
