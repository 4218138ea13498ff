package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	httpShutdownTimeout = 3 * time.Second
	httpSnapshotTimeout = time.Second
	maxEventBodyBytes   = 64 << 10
)

// runHTTPServer serves handler on port and shuts it down gracefully when ctx
// is canceled.
func runHTTPServer(ctx context.Context, port int, handler http.Handler, logger *slog.Logger) error {
	listenAddr := fmt.Sprintf(":%d", port)
	logger.Info("HTTP server listening", "port", port)

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown: %w", err)
		}
		<-errCh
		return nil

	case err := <-errCh:
		return err
	}
}

// newHTTPMux registers the websocket endpoint, GET /state and POST /events.
func newHTTPMux(ws *Server, wsPath string, inputs chan<- Input, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	if ws != nil {
		ws.Register(mux, wsPath)
	}

	mux.HandleFunc("GET /state", func(w http.ResponseWriter, r *http.Request) {
		snap, err := requestSnapshot(r.Context(), inputs, httpSnapshotTimeout)
		if err != nil {
			logger.Warn("state snapshot failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, ipcError("%v", err))
			return
		}
		writeJSON(w, http.StatusOK, snap)
	})

	mux.HandleFunc("POST /events", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBodyBytes))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ipcError("read body: %v", err))
			return
		}

		in, err := DecodeInput(body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ipcError("parse event: %v", err))
			return
		}

		if err := submitInput(inputs, in); err != nil {
			logger.Warn("HTTP event rejected", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, ipcError("%v", err))
			return
		}
		writeJSON(w, http.StatusAccepted, ipcOK())
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
