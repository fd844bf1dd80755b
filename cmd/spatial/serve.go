package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/njchilds90/gospatial/internal/config"
	"github.com/njchilds90/gospatial/toolcall"
)

const shutdownTimeout = 10 * time.Second

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// newMux routes the tool endpoints. Bodies larger than maxBody bytes are
// rejected.
func newMux(h *toolcall.Handler, maxBody int64, log *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/tool", func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic in /tool", zap.Any("panic", rec), zap.ByteString("stack", debug.Stack()))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()

		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		defer r.Body.Close()

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()

		var req toolcall.Request
		if err := dec.Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if dec.More() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: trailing data"})
			return
		}

		start := time.Now()
		resp := h.Handle(r.Context(), req)
		log.Info("tool call",
			zap.String("tool", req.Tool),
			zap.Bool("ok", resp.Error == ""),
			zap.Duration("elapsed", time.Since(start)))
		writeJSON(w, http.StatusOK, resp)
	})

	mux.HandleFunc("/schema", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, toolcall.Schema())
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	return mux
}

// serve runs the HTTP server until ctx is cancelled, then shuts it down.
func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	h := toolcall.New(log, toolcall.WithWorkers(cfg.Batch.Workers))
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newMux(h, cfg.Server.MaxBodyBytes, log),
		ReadHeaderTimeout: cfg.Server.GetReadHeaderTimeout(),
		ReadTimeout:       cfg.Server.GetReadTimeout(),
		WriteTimeout:      cfg.Server.GetWriteTimeout(),
		IdleTimeout:       cfg.Server.GetIdleTimeout(),
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("spatial server listening", zap.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
