package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"cutagent/internal/edl"
	"cutagent/internal/logging"
	"cutagent/internal/ops"
	"cutagent/internal/services"
	"cutagent/internal/validation"
)

// MaxBodyBytes bounds EDL request bodies.
const MaxBodyBytes = 8 << 20

// EDLValidator checks an EDL without running it.
type EDLValidator interface {
	Validate(ctx context.Context, raw []byte) validation.Result
}

// EDLExecutor runs an EDL.
type EDLExecutor interface {
	Execute(ctx context.Context, raw []byte) (ops.Result, error)
}

// ExecutorFunc adapts a function to EDLExecutor.
type ExecutorFunc func(ctx context.Context, raw []byte) (ops.Result, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, raw []byte) (ops.Result, error) {
	return f(ctx, raw)
}

// ServerConfig wires the router's collaborators.
type ServerConfig struct {
	Bind      string
	Version   string
	Validator EDLValidator
	Executor  EDLExecutor
	History   *HistoryService
	// ToolVersions reports resolved encoder versions for /health; optional.
	ToolVersions func(ctx context.Context) map[string]string
	Logger       *slog.Logger
	StartTime    time.Time
}

// NewRouter builds the chi router for cfg.
func NewRouter(cfg ServerConfig) *chi.Mux {
	logger := logging.NewComponentLogger(cfg.Logger, "api")
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(logger))
	r.Use(LoggingMiddleware(logger))

	r.Get("/health", healthHandler(cfg))
	r.Get("/capabilities", capabilitiesHandler())
	r.Post("/validate", validateHandler(cfg))
	r.Post("/execute", executeHandler(cfg, logger))
	r.Get("/runs", runsHandler(cfg))

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:        "ok",
			Version:       cfg.Version,
			UptimeSeconds: int64(time.Since(cfg.StartTime).Seconds()),
		}
		if cfg.ToolVersions != nil {
			resp.Tools = cfg.ToolVersions(r.Context())
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func capabilitiesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, edl.Describe())
	}
}

func validateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := readBody(w, r)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cfg.Validator.Validate(r.Context(), raw))
	}
}

func executeHandler(cfg ServerConfig, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := readBody(w, r)
		if err != nil {
			writeError(w, err)
			return
		}
		result, err := cfg.Executor.Execute(r.Context(), raw)
		if err != nil {
			logging.WithContext(r.Context(), logger).Warn("execute request failed",
				logging.String(logging.FieldErrorCode, string(services.CodeOf(err))),
				logging.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func runsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeError(w, services.New(services.CodeInvalidEDL,
					fmt.Sprintf("limit must be a non-negative integer, got %q", raw),
					map[string]any{"limit": raw}).WithRecovery("Pass ?limit=N with N >= 0"))
				return
			}
			limit = n
		}
		runs, err := cfg.History.List(r.Context(), limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, RunListResponse{Runs: runs})
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, services.New(services.CodeInvalidEDL,
				fmt.Sprintf("Request body exceeds %d bytes", MaxBodyBytes),
				map[string]any{"limit_bytes": MaxBodyBytes})
		}
		return nil, fmt.Errorf("read request body: %w", err)
	}
	return raw, nil
}
