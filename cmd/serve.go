package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/UnknownOlympus/geoplaces/internal/geocoding"
	"github.com/UnknownOlympus/geoplaces/internal/models"
	"github.com/UnknownOlympus/geoplaces/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const (
	readTimeout     = 5 * time.Second
	writeTimeout    = 2 * time.Minute
	shutdownTimeout = 10 * time.Second
	maxRequestBytes = 4 << 20

	noProviderMessage = "no geocoding provider is configured"
)

// analyzer is the part of the location service the HTTP handlers use.
type analyzer interface {
	Analyze(ctx context.Context, coords []models.Coordinate) (*service.Result, error)
}

type placesRequest struct {
	Coordinates []models.Coordinate `json:"coordinates"`
}

// serveOptions are the settings the handlers read.
type serveOptions struct {
	CacheDir string // Checked by /healthz.
	Radius   uint32 // Applied to coordinates sent without a radius.
}

type errorResponse struct {
	Error string `json:"error"`
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve place resolution, health checks and metrics over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		if err = a.purgeStaleCache(); err != nil {
			return err
		}

		var svc analyzer

		// Without a terminal the first available provider is taken.
		provider, err := a.provider(nil)
		switch {
		case errors.Is(err, geocoding.ErrNoProviders):
			logger.WarnContext(ctx, "No geocoding provider is configured, place resolution is disabled")
		case err != nil:
			return fmt.Errorf("failed to create geocoding provider: %w", err)
		default:
			logger.InfoContext(ctx, "Geocoding provider initialized", "type", provider.Name())

			repo, closeRepo, errRepo := a.openRepository(ctx)
			if errRepo != nil {
				return errRepo
			}
			defer closeRepo()

			svc = service.NewLocationService(logger, provider, repo, a.metrics)
		}

		mux := newServeMux(ctx, logger, a.reg, svc, serveOptions{CacheDir: cfg.CacheDir(), Radius: cfg.Radius})

		return runServer(ctx, logger, mux, cfg.Port)
	},
}

// newServeMux wires the places endpoint, the health check and the metrics endpoint.
// A nil svc makes the places endpoint answer 503.
func newServeMux(
	ctx context.Context,
	log *slog.Logger,
	reg *prometheus.Registry,
	svc analyzer,
	opts serveOptions,
) *http.ServeMux {
	if opts.Radius == 0 {
		opts.Radius = models.DefaultRadius
	}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/places", func(writer http.ResponseWriter, req *http.Request) {
		if svc == nil {
			writeResponse(log, writer, http.StatusServiceUnavailable, errorResponse{Error: noProviderMessage})
			return
		}

		var body placesRequest
		if err := json.NewDecoder(http.MaxBytesReader(writer, req.Body, maxRequestBytes)).Decode(&body); err != nil {
			writeResponse(log, writer, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}
		if len(body.Coordinates) == 0 {
			writeResponse(log, writer, http.StatusBadRequest, errorResponse{Error: "no coordinates given"})
			return
		}
		for i := range body.Coordinates {
			if body.Coordinates[i].Radius == 0 {
				body.Coordinates[i].Radius = opts.Radius
			}
		}

		result, err := svc.Analyze(req.Context(), body.Coordinates)
		switch {
		case errors.Is(err, service.ErrNoPlaces):
			writeResponse(log, writer, http.StatusOK, result)
		case err != nil:
			log.ErrorContext(req.Context(), "Failed to resolve places", "error", err)
			writeResponse(log, writer, http.StatusBadGateway, errorResponse{Error: err.Error()})
		default:
			writeResponse(log, writer, http.StatusOK, result)
		}
	})

	mux.HandleFunc("/healthz", func(writer http.ResponseWriter, _ *http.Request) {
		log.DebugContext(ctx, "Performing health checks...")
		status, body := http.StatusOK, "OK"
		if _, err := os.Stat(opts.CacheDir); err != nil {
			status, body = http.StatusServiceUnavailable, "cache directory unavailable"
		}
		writer.WriteHeader(status)
		if _, err := writer.Write([]byte(body)); err != nil {
			log.ErrorContext(ctx, "failed to write reply", "error", err)
		}

		log.DebugContext(ctx, "Health checks completed", "status", status)
	})

	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return mux
}

func writeResponse(log *slog.Logger, writer http.ResponseWriter, status int, v any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	if err := json.NewEncoder(writer).Encode(v); err != nil {
		log.Error("failed to write reply", "error", err)
	}
}

// runServer serves handler on port until ctx is canceled, then shuts down gracefully.
func runServer(ctx context.Context, log *slog.Logger, handler http.Handler, port int) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.InfoContext(ctx, "Starting server", "port", port)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.InfoContext(ctx, "Shutdown signal received. Stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	log.InfoContext(ctx, "Server stopped gracefully.")
	return nil
}
