package server

import (
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/krau/handsign/config"
	"github.com/krau/handsign/metrics"
	"github.com/krau/handsign/model"
	"github.com/krau/handsign/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	cfg       config.Config
	predictor *service.Predictor
	runtime   *model.Runtime
	loadErr   error
}

// Init loads the model described by cfg. A load failure does not stop the
// server: it keeps answering /health and rejects predictions.
func Init(cfg config.Config) *Server {
	s := &Server{cfg: cfg}

	rt, labels, err := loadModel(cfg)
	var classifier service.Classifier
	if err != nil {
		s.loadErr = err
		metrics.ModelLoaded.Set(0)
		slog.Error("Failed to load model, serving degraded",
			slog.String("path", cfg.ModelPath()), slog.String("error", err.Error()))
	} else {
		s.runtime = rt
		classifier = rt
		metrics.ModelLoaded.Set(1)
		slog.Info("Model loaded",
			slog.String("path", rt.Path()),
			slog.String("backend", rt.Kind()),
			slog.String("input", rt.Input().String()),
			slog.String("output", rt.Output().String()),
			slog.Int("pool_size", rt.PoolSize()),
			slog.Any("labels", labels.Labels()))
	}

	s.predictor = service.NewPredictor(classifier, labels, decoder(cfg))
	return s
}

// NewWithPredictor wires a server around an existing predictor.
func NewWithPredictor(cfg config.Config, p *service.Predictor) *Server {
	return &Server{cfg: cfg, predictor: p}
}

func loadModel(cfg config.Config) (*model.Runtime, model.LabelMap, error) {
	labels := model.DefaultLabels()
	if path := cfg.LabelsPath(); path != "" {
		loaded, err := model.LoadLabels(path)
		if err != nil {
			return nil, labels, err
		}
		labels = loaded
	}
	rt, err := model.Load(model.LoadOptions{
		Path:     cfg.ModelPath(),
		Backend:  cfg.Backend,
		PoolSize: cfg.PoolSize,
		Threads:  cfg.Threads,
		Classes:  labels.Len(),
	})
	if err != nil {
		return nil, labels, fmt.Errorf("failed to load %s: %w", cfg.ModelPath(), err)
	}
	return rt, labels, nil
}

func decoder(cfg config.Config) *service.Decoder {
	return service.NewDecoder(service.DecoderOptions{
		Fallback:      cfg.DecodeFallback,
		DefaultWidth:  cfg.FallbackWidth,
		DefaultHeight: cfg.FallbackHeight,
	})
}

func (s *Server) LoadErr() error {
	return s.loadErr
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(trackMiddleware(), recoverMiddleware(), corsMiddleware(s.cfg.CorsOrigin))

	r.GET("/health", s.HealthHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("", authMiddleware(s.cfg.Token), bodyLimitMiddleware(int64(s.cfg.MaxBodyMB)<<20))
	api.POST("/predict", s.PredictHandler)
	api.POST("/batch-predict", s.BatchPredictHandler)
	return r
}

func (s *Server) Close() error {
	if s.runtime == nil {
		return nil
	}
	return s.runtime.Close()
}
