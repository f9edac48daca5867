// Package api serves BES decoding over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v5"
	"golang.org/x/time/rate"

	"github.com/OpenVietcong/blender-plugin-vietcong/internal/export"
	"github.com/OpenVietcong/blender-plugin-vietcong/internal/logger"
	"github.com/OpenVietcong/blender-plugin-vietcong/internal/scene"
	"github.com/OpenVietcong/blender-plugin-vietcong/internal/version"
	"github.com/OpenVietcong/blender-plugin-vietcong/pkg/bes"
)

const DefaultMaxBodySize = 64 << 20

type Config struct {
	// MaxBodySize bounds request bodies; 0 means DefaultMaxBodySize, < 0 disables it.
	MaxBodySize int64
	// RateLimit is requests per second across all clients; 0 disables limiting.
	RateLimit float64
	Burst     int
	// Timeout bounds one decode; 0 disables it.
	Timeout  time.Duration
	Options  []bes.Option
	Resolver scene.TextureResolver
	Logger   logger.Logger
}

type Server struct {
	cfg     Config
	limiter *rate.Limiter
	log     logger.Logger
}

func NewServer(cfg Config) *Server {
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	s := &Server{cfg: cfg, log: cfg.Logger}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = max(1, int(cfg.RateLimit))
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return s
}

// Register installs the middleware chain and routes on e.
func (s *Server) Register(e *echo.Echo) {
	e.Use(RequestID())
	e.Use(AccessLog(s.log))

	e.GET("/v1/healthz", s.handleHealth)
	e.POST("/v1/decode", s.handleDecode, RateLimit(s.limiter))
	e.POST("/v1/validate", s.handleValidate, RateLimit(s.limiter))
}

func (s *Server) handleHealth(c *echo.Context) error {
	return writeJSON(c, http.StatusOK, HealthResponse{
		Status:  "ok",
		Build:   version.Resolve(),
		Formats: bes.DefaultVersions,
	})
}

// handleDecode returns the decoded scene. Query parameters: format=json|yaml,
// geometry=true to include vertex and face arrays.
func (s *Server) handleDecode(c *echo.Context) error {
	format, geometry, err := parseDecodeQuery(c)
	if err != nil {
		return writeDecodeError(c, err)
	}

	data, scn, err := s.decode(c)
	if err != nil {
		return writeDecodeError(c, err)
	}
	doc := export.Build(scn, export.Options{Geometry: geometry, Resolver: s.cfg.Resolver})
	doc.Source = c.Request().Header.Get("X-Source-Name")
	b, err := export.Marshal(doc, format)
	if err != nil {
		return err
	}
	s.log.Debug("decoded", "request_id", requestID(c), "bytes", len(data), "objects", doc.Stats.Objects)
	if format == export.FormatYAML {
		return c.Blob(http.StatusOK, "application/yaml", b)
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, b)
}

func parseDecodeQuery(c *echo.Context) (format string, geometry bool, err error) {
	format = strings.ToLower(c.QueryParam("format"))
	switch format {
	case "":
		format = export.FormatJSON
	case export.FormatJSON, export.FormatYAML:
	default:
		return "", false, newInvalidParam("format", "must be json or yaml")
	}
	if raw := c.QueryParam("geometry"); raw != "" {
		geometry, err = strconv.ParseBool(raw)
		if err != nil {
			return "", false, newInvalidParam("geometry", "must be a boolean")
		}
	}
	return format, geometry, nil
}

func (s *Server) handleValidate(c *echo.Context) error {
	data, scn, err := s.decode(c)
	if err != nil {
		return writeDecodeError(c, err)
	}
	st := scn.Root.Stats()
	return writeJSON(c, http.StatusOK, ValidateResponse{
		RequestID: requestID(c),
		Valid:     true,
		Version:   scn.Header.Version,
		Size:      len(data),
		Stats: export.Stats{
			Objects: st.Objects, Meshes: st.Meshes, Vertices: st.Vertices,
			Faces: st.Faces, Materials: st.Materials, Textures: st.Textures,
		},
	})
}

func (s *Server) decode(c *echo.Context) ([]byte, *bes.Scene, error) {
	data, err := readBody(c, s.cfg.MaxBodySize)
	if err != nil {
		return nil, nil, err
	}
	ctx := c.Request().Context()
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	opts := append([]bes.Option{bes.WithContext(ctx)}, s.cfg.Options...)
	scn, err := bes.DecodeScene(data, opts...)
	if err != nil {
		s.log.Warn("decode failed", "request_id", requestID(c), "bytes", len(data), "err", err)
		return data, nil, err
	}
	return data, scn, nil
}
