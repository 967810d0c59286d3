package server

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aidarkhanov/nanoid"
	"github.com/gin-gonic/gin"
	"github.com/krau/handsign/metrics"
)

const loggerKey = "logger"

func logger(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*slog.Logger); ok {
			return l
		}
	}
	return slog.Default()
}

func trackMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID, _ := nanoid.Generate("0123456789abcdefghijklmnopqrstuvwxyz", 20)
		reqID = "req_" + reqID
		log := slog.With(slog.String("request_id", reqID))
		c.Set(loggerKey, log)
		c.Header("X-Request-Id", reqID)

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		log.Info("end_of_request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("status_code", status),
			slog.String("duration", duration.String()))
		metrics.RequestDuration.WithLabelValues(path, status).Observe(duration.Seconds())
	}
}

func recoverMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, err any) {
		logger(c).Error("Api Panic", slog.String("error", fmt.Sprint(err)))
		c.AbortWithStatusJSON(ErrInternalFailure.StatusCode, gin.H{"error": ErrInternalFailure.Msg})
	})
}

func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if origin == "" {
			c.Next()
			return
		}
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, expectedToken string) error {
	if expectedToken == "" {
		return nil
	}
	auth := c.GetHeader("Authorization")
	providedToken := ""
	if len(auth) > 7 && auth[:7] == "Bearer " {
		providedToken = auth[7:]
	}
	if subtle.ConstantTimeCompare([]byte(providedToken), []byte(expectedToken)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

func authMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authenticate(c, token); err != nil {
			abort(c, err)
			return
		}
		c.Next()
	}
}

func bodyLimitMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

func abort(c *gin.Context, err error) {
	re := toRequestError(err)
	if re.StatusCode >= http.StatusInternalServerError {
		logger(c).Error("Request failed", slog.String("error", err.Error()))
	} else {
		logger(c).Debug("Request rejected", slog.String("error", err.Error()))
	}
	c.AbortWithStatusJSON(re.StatusCode, gin.H{"error": re.Msg})
}
