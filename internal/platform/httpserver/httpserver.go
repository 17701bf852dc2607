package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

const defaultCheckTimeout = 2 * time.Second

type Config struct {
	Service         string
	Addr            string
	ShutdownTimeout time.Duration
}

// Options tune the cross-cutting middleware installed by Wrap.
type Options struct {
	// AllowedOrigins lists CORS origins; "*" or an empty list allows any.
	AllowedOrigins []string
}

// Wrap installs, outermost first: request logging, panic recovery, request
// ids, security headers and CORS. A recovered panic is logged with its 500.
func Wrap(logger *slog.Logger, service string, opts Options, next http.Handler) http.Handler {
	inner := corsMiddleware(opts.AllowedOrigins, next)
	inner = securityHeadersMiddleware(inner)
	inner = requestIDMiddleware(service, inner)
	return requestLogMiddleware(logger, recoverMiddleware(logger, inner))
}

// Run serves handler until ctx is done, then drains in-flight requests for
// at most cfg.ShutdownTimeout. A bind failure is returned before serving.
func Run(ctx context.Context, logger *slog.Logger, cfg Config, handler http.Handler) error {
	if cfg.Service == "" {
		return errors.New("service is required")
	}
	if cfg.Addr == "" {
		return errors.New("addr is required")
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "service", cfg.Service, "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		logger.Info("http server shutting down", "service", cfg.Service, "timeout", cfg.ShutdownTimeout.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

func Healthz(service string) http.HandlerFunc {
	started := time.Now()
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service":    service,
			"status":     "ok",
			"uptime_sec": int64(time.Since(started).Seconds()),
		})
	}
}

// ReadinessCheck probes one dependency. Timeout bounds a single probe and
// defaults to two seconds.
type ReadinessCheck struct {
	Name    string
	Timeout time.Duration
	Check   func(context.Context) error
}

type checkResult struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

func (c ReadinessCheck) run(ctx context.Context) checkResult {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	res := checkResult{Name: c.Name, Status: "ok"}
	if err := c.Check(ctx); err != nil {
		res.Status = "fail"
		res.Error = err.Error()
	}
	res.DurationMs = time.Since(start).Milliseconds()
	return res
}

// ReadyzWithChecks runs every check concurrently and answers 503 if any of
// them fails. Results keep the order the checks were given in.
func ReadyzWithChecks(service string, checks ...ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := make([]checkResult, len(checks))
		var wg sync.WaitGroup
		for i, check := range checks {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i] = check.run(r.Context())
			}()
		}
		wg.Wait()

		status, code := "ready", http.StatusOK
		for _, res := range results {
			if res.Status != "ok" {
				status, code = "not_ready", http.StatusServiceUnavailable
				break
			}
		}
		writeJSON(w, code, map[string]any{
			"service": service,
			"status":  status,
			"checks":  results,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}
