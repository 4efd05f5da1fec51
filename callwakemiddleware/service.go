// --- File: callwakemiddleware/service.go ---
// Package callwakemiddleware assembles the rendezvous engine's
// components into one HTTP service, the way
// notificationservice/service.go assembles the notification service's.
package callwakemiddleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tinywideclouds/go-microservice-base/pkg/microservice"

	"github.com/tinywideclouds/callwake-middleware/callwakemiddleware/config"
	"github.com/tinywideclouds/callwake-middleware/internal/coordinator"
	"github.com/tinywideclouds/callwake-middleware/internal/dispatch"
	"github.com/tinywideclouds/callwake-middleware/internal/httpapi"
	"github.com/tinywideclouds/callwake-middleware/internal/intake"
	"github.com/tinywideclouds/callwake-middleware/internal/metrics"
	"github.com/tinywideclouds/callwake-middleware/internal/storage/responselog"
	"github.com/tinywideclouds/callwake-middleware/pkg/calldevice"
	"github.com/tinywideclouds/callwake-middleware/pkg/rendezvous"
)

// Wrapper is the running service: the rendezvous engine's HTTP surface
// plus the BaseServer providing graceful start/shutdown and readiness.
type Wrapper struct {
	*microservice.BaseServer
	logger *slog.Logger
}

// New assembles the service: the Coordinator and Intake that implement
// spec.md, wrapped in the three HTTP handlers spec.md §6 names.
func New(
	cfg *config.Config,
	store rendezvous.Store,
	devices calldevice.Repository,
	transports map[calldevice.Platform]dispatch.Transport,
	responseLog responselog.Writer,
	emitter metrics.Sink,
	authMiddleware func(http.Handler) http.Handler,
	logger *slog.Logger,
) (*Wrapper, error) {
	baseServer := microservice.NewBaseServer(logger, cfg.ListenAddr)

	pool := dispatch.NewAsyncPool(cfg.AsyncPoolSize, logger)
	dispatcher := dispatch.New(transports, pool, emitter, cfg.ResponseAPIURL, logger)

	coord := coordinator.New(store, devices, dispatcher, emitter, cfg.RoundtripWait, cfg.ResendInterval, logger)
	in := intake.New(store, responseLog, pool, emitter, cfg.RoundtripWait, logger)

	incomingCallHandler := httpapi.NewIncomingCallHandler(coord, logger)
	callResponseHandler := httpapi.NewCallResponseHandler(in, logger)
	hangupReasonHandler := httpapi.NewHangupReasonHandler(devices, emitter, logger)

	mux := baseServer.Mux()
	mux.Handle("POST /incoming-call", incomingCallHandler)
	mux.Handle("POST /call-response", callResponseHandler)
	if authMiddleware != nil {
		mux.Handle("POST /hangup-reason", authMiddleware(hangupReasonHandler))
	} else {
		mux.Handle("POST /hangup-reason", hangupReasonHandler)
	}

	return &Wrapper{BaseServer: baseServer, logger: logger}, nil
}

// Start marks the service ready and blocks serving HTTP until Shutdown
// is called.
func (w *Wrapper) Start(ctx context.Context) error {
	w.SetReady(true)
	w.logger.Info("Service is now ready.")
	if err := w.BaseServer.Start(); err != nil {
		return fmt.Errorf("callwake-middleware: serve: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (w *Wrapper) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down service...")
	if err := w.BaseServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("callwake-middleware: shutdown: %w", err)
	}
	w.logger.Info("Service shutdown complete.")
	return nil
}
