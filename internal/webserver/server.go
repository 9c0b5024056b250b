// Package webserver builds the echo instances used by the storefront pages
// and by the mock resource server.
package webserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type WebServer struct {
	root *echo.Echo
	addr string
}

// NewWebServer returns a server with recovery and zap request logging installed
func NewWebServer(host string, port int) *WebServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(ZapRequestLogger())
	return &WebServer{root: e, addr: fmt.Sprintf("%s:%d", host, port)}
}

// Echo exposes the router, handlers are registered on it directly or through the helpers below
func (s *WebServer) Echo() *echo.Echo {
	return s.root
}

func (s *WebServer) Addr() string {
	return s.addr
}

func (s *WebServer) GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.root.GET(path, h, m...)
}

func (s *WebServer) POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.root.POST(path, h, m...)
}

func (s *WebServer) DELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.root.DELETE(path, h, m...)
}

func (s *WebServer) Use(m ...echo.MiddlewareFunc) {
	s.root.Use(m...)
}

// ServeHTTP lets tests drive the server through httptest
func (s *WebServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.root.ServeHTTP(w, r)
}

// Start blocks until the server stops. A graceful shutdown is not an error.
func (s *WebServer) Start() error {
	zap.S().Infof("web server listening on %s", s.addr)
	err := s.root.Start(s.addr)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrapf(err, "web server %s", s.addr)
	}
	return nil
}

func (s *WebServer) Shutdown(ctx context.Context) error {
	return s.root.Shutdown(ctx)
}

// ZapRequestLogger writes one log line per request to the global zap logger
func ZapRequestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency.Round(time.Microsecond)),
			}
			if v.Error != nil {
				zap.L().Warn("request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			zap.L().Debug("request", fields...)
			return nil
		},
	})
}
