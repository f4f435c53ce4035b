// Package server runs the medibook HTTP API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/hrygo/medibook/internal/profile"
	"github.com/hrygo/medibook/plugin/intake"
	appmiddleware "github.com/hrygo/medibook/server/middleware"
	apiv1 "github.com/hrygo/medibook/server/router/api/v1"
)

const (
	defaultJanitorSchedule = "@every 5m"
	limiterMaxIdle         = 15 * time.Minute
)

// ExpiringCache is a cache whose stale entries are swept periodically.
type ExpiringCache interface {
	CleanupExpired() int
}

type Server struct {
	Profile *profile.Profile

	echoServer *echo.Echo
	apiV1      *apiv1.APIV1Service
	limiter    *appmiddleware.RateLimiter
	caches     []ExpiringCache
	listener   net.Listener
	janitor    *cron.Cron
}

// Option configures a Server.
type Option func(*Server)

// WithExpiringCache registers a cache for periodic cleanup.
func WithExpiringCache(c ExpiringCache) Option {
	return func(s *Server) {
		if c != nil {
			s.caches = append(s.caches, c)
		}
	}
}

func NewServer(profile *profile.Profile, pipeline *intake.Pipeline, ocr apiv1.OCRInspector, opts ...Option) *Server {
	s := &Server{Profile: profile}
	for _, opt := range opts {
		opt(s)
	}

	echoServer := echo.New()
	echoServer.Debug = profile.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(middleware.Recover())
	echoServer.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "remote_ip", v.RemoteIP}
			if v.Error != nil {
				slog.Warn("http request", append(attrs, "error", v.Error.Error())...)
				return nil
			}
			slog.Debug("http request", attrs...)
			return nil
		},
	}))

	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})

	if profile.RateLimit > 0 {
		s.limiter = appmiddleware.NewRateLimiter(profile.RateLimit, profile.RateBurst)
	}
	s.apiV1 = apiv1.NewAPIV1Service(profile, pipeline, ocr)
	s.apiV1.RegisterRoutes(echoServer, s.limiter)

	s.echoServer = echoServer
	return s
}

// SetPipeline swaps the pipeline behind the API, e.g. after a department reload.
func (s *Server) SetPipeline(p *intake.Pipeline) {
	s.apiV1.SetPipeline(p)
}

// Handler exposes the router for in-process use.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

// Start binds the listener and serves in the background until Shutdown.
func (s *Server) Start(_ context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", address)
	}
	s.listener = listener
	s.echoServer.Listener = listener

	janitor, err := s.startJanitor()
	if err != nil {
		listener.Close()
		return err
	}
	s.janitor = janitor

	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", "error", err)
		}
	}()

	slog.Info("medibook server started", "addr", listener.Addr().String(), "mode", s.Profile.Mode)
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops the janitor and drains in-flight requests, waiting at most 10 seconds.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	slog.Info("server shutting down")
	if s.janitor != nil {
		<-s.janitor.Stop().Done()
	}
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	slog.Info("server stopped properly")
}

// startJanitor schedules sweep on the configured cron spec.
func (s *Server) startJanitor() (*cron.Cron, error) {
	spec := s.Profile.JanitorSchedule
	if spec == "" {
		spec = defaultJanitorSchedule
	}
	c := cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, s.sweep); err != nil {
		return nil, errors.Wrapf(err, "invalid janitor schedule %q", spec)
	}
	c.Start()
	slog.Debug("janitor scheduled", "schedule", spec)
	return c, nil
}

func (s *Server) sweep() {
	removed := 0
	if s.limiter != nil {
		removed += s.limiter.Forget(limiterMaxIdle)
	}
	for _, c := range s.caches {
		removed += c.CleanupExpired()
	}
	if removed > 0 {
		slog.Debug("janitor swept stale entries", "removed", removed)
	}
}
