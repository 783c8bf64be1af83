// internal/server/server.go
package server

import (
	"net/http"
	"time"

	"github.com/tamzrod/pzem004t/internal/config"
	"github.com/tamzrod/pzem004t/internal/status"
)

// StatusSource reports the current meter health.
type StatusSource interface {
	Snapshot() status.Snapshot
}

type Server struct {
	meterID string
	httpLog bool
	status  StatusSource
	metrics http.Handler
}

// NewServer returns an http.Server exposing /healthcheck and /metrics.
func NewServer(cfg config.Config, src StatusSource, metrics http.Handler) *http.Server {
	s := &Server{
		meterID: cfg.Meter.ID,
		httpLog: cfg.Server.HTTPLog,
		status:  src,
		metrics: metrics,
	}

	return &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
