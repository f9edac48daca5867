package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"golang.org/x/time/rate"

	"github.com/OpenVietcong/blender-plugin-vietcong/internal/logger"
)

// RequestID echoes a caller-supplied X-Request-Id or assigns a new UUID.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			id := c.Request().Header.Get(headerRequestID)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			c.Response().Header().Set(headerRequestID, id)
			return next(c)
		}
	}
}

// RateLimit rejects requests beyond a token bucket of rps with the given burst.
// A nil limiter passes every request through.
func RateLimit(l *rate.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			if l != nil && !l.Allow() {
				return writeError(c, http.StatusTooManyRequests, "rate_limit_error", "too many requests")
			}
			return next(c)
		}
	}
}

// AccessLog logs one line per request through log.
func AccessLog(log logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			start := time.Now()
			err := next(c)
			req := c.Request()
			log.Info("request",
				"method", req.Method,
				"path", req.URL.Path,
				"request_id", requestID(c),
				"bytes_in", req.ContentLength,
				"took", time.Since(start),
				"err", err,
			)
			return err
		}
	}
}
