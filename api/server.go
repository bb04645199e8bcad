// Package api exposes the manager state and the decision log over HTTP.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	apilog "github.com/kilianp07/platoon/api/eventlog"
	"github.com/kilianp07/platoon/api/vehicles"
	"github.com/kilianp07/platoon/core/eventlog"
	"github.com/kilianp07/platoon/core/vehiclestatus"
	"github.com/kilianp07/platoon/infra/logger"
)

// NewMux routes the status and log endpoints. logs may be nil, in which case
// only the status endpoint is served.
func NewMux(status vehiclestatus.Store, logs eventlog.LogStore, token string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/api/vehicles/status", vehicles.NewStatusHandler(status))
	if logs != nil {
		mux.Handle("/api/platoon/log", apilog.NewLogHandler(logs, token))
	}
	return mux
}

// ListenAndServe serves h on addr until ctx is canceled.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return Serve(ctx, ln, h)
}

func Serve(ctx context.Context, ln net.Listener, h http.Handler) error {
	log := logger.New("api-server")
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("api server shutdown: %v", err)
		}
		cancel()
	}()
	log.Infof("serving api on %s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
