// internal/server/routes.go
package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tamzrod/pzem004t/internal/status"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics))
	}

	return e
}

type healthResponse struct {
	Meter  string          `json:"meter"`
	Status string          `json:"status"`
	Health status.Snapshot `json:"snapshot"`
}

// HealthCheckHandler answers 200 while the meter is healthy, 503 otherwise.
func (s *Server) HealthCheckHandler(c echo.Context) error {
	snap := s.status.Snapshot()

	res := healthResponse{
		Meter:  s.meterID,
		Status: status.HealthName(snap.Health),
		Health: snap,
	}

	if snap.Healthy() {
		return c.JSON(http.StatusOK, res)
	}
	return c.JSON(http.StatusServiceUnavailable, res)
}
