// cmd/pzem/poll.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tamzrod/pzem004t/internal/config"
	"github.com/tamzrod/pzem004t/internal/metrics"
	"github.com/tamzrod/pzem004t/internal/poller"
	"github.com/tamzrod/pzem004t/internal/server"
	"github.com/tamzrod/pzem004t/internal/status"
	"github.com/tamzrod/pzem004t/internal/writer"
)

// staleIntervals is how many poll intervals without any result turn a meter
// stale.
const staleIntervals = 3

func newPollCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Poll the meter periodically and serve health and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.ValidatePoll(&a.cfg); err != nil {
				return fmt.Errorf("config validation failed: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.poll(ctx)
		},
	}
}

func (a *app) poll(ctx context.Context) error {
	log := a.logger
	m := metrics.New()

	// --------------------
	// Meter + poller
	// --------------------

	client, err := openMeter(a.cfg, log, m.Instrument())
	if err != nil {
		return err
	}
	defer client.Close()

	p, err := poller.Build(a.cfg, client)
	if err != nil {
		return err
	}

	// --------------------
	// Writers + health
	// --------------------

	dataWriter, statusWriter := writer.Build(a.cfg.Meter.ID, m, log)

	interval := time.Duration(a.cfg.Poll.IntervalMs) * time.Millisecond
	tracker := status.NewTracker(staleIntervals * interval)

	orch := &orchestrator{
		tracker:      tracker,
		dataWriter:   dataWriter,
		statusWriter: statusWriter,
		log:          log,
	}

	// --------------------
	// Optional HTTP surface
	// --------------------

	var srv *http.Server
	srvErr := make(chan error, 1)
	if a.cfg.Server.Listen != "" {
		srv = server.NewServer(a.cfg, tracker, m.Handler())
		go func() {
			log.Info("http server listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				srvErr <- err
			}
		}()
	}

	// --------------------
	// Run until signalled
	// --------------------

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make(chan poller.PollResult)
	go p.Run(runCtx, out)

	done := make(chan struct{})
	go func() {
		orch.run(runCtx, out)
		close(done)
	}()

	log.Info("polling started",
		zap.Duration("interval", interval),
		zap.Uint8("address", a.cfg.Meter.SlaveAddress()),
	)

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down gracefully")
	case runErr = <-srvErr:
		log.Error("http server error", zap.Error(runErr))
	}

	cancel()
	<-done

	if srv != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("server forced to shutdown", zap.Error(err))
		}
	}

	return runErr
}
