// Package ops exposes the operational HTTP surface: health checks and
// prometheus metrics. It is separate from the chat-platform traffic and
// binds its own port.
package ops

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// HealthChecker pings one dependency with a short deadline.
type HealthChecker func(ctx context.Context) error

type Server struct {
	srv *http.Server
	log *zap.Logger
}

// New builds the ops server. checks maps dependency names to their ping
// functions; a failing check turns the health endpoint red.
func New(port string, checks map[string]HealthChecker, log *zap.Logger) *Server {
	e := echo.New()

	e.GET("/health", func(c echo.Context) error {
		status := map[string]string{"status": "healthy"}
		code := http.StatusOK
		for name, check := range checks {
			if err := check(c.Request().Context()); err != nil {
				status["status"] = "unhealthy"
				status[name] = err.Error()
				code = http.StatusServiceUnavailable
			} else {
				status[name] = "ok"
			}
		}
		return c.JSON(code, status)
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return &Server{
		srv: &http.Server{
			Addr:         ":" + port,
			Handler:      e,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Start serves until Shutdown. It blocks, so run it on its own
// goroutine.
func (s *Server) Start() error {
	s.log.Info("ops server listening", zap.String("addr", s.srv.Addr))
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
