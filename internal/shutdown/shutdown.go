package shutdown

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"op-pipeline-backend/internal/logging"
)

type Stoppable interface {
	Shutdown(ctx context.Context) error
}

type Server interface {
	Stoppable
	ListenAndServe() error
}

// Graceful blocks until one of signals arrives (or ctx ends), then gives s up
// to timeout to drain.
func Graceful(ctx context.Context, signals []os.Signal, s Stoppable, timeout time.Duration, log *logging.Logger) {
	sigCtx, stop := signal.NotifyContext(ctx, signals...)
	defer stop()

	<-sigCtx.Done()
	log.Info("shutdown.signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown.done", "err", err)
	} else {
		log.Info("shutdown.done")
	}
}

// Serve runs srv until it fails or one of signals stops it. ListenAndServe
// returns as soon as Shutdown starts, so Serve also waits for the drain to
// finish before returning.
func Serve(ctx context.Context, signals []os.Signal, srv Server, timeout time.Duration, log *logging.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		Graceful(ctx, signals, srv, timeout, log)
	}()

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	} else {
		cancel()
	}
	<-drained
	return err
}
