// Command storegate-edge runs the edge gate in front of the retail web
// application and proxies admitted requests to it.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/MrEthical07/storegate"
	"github.com/MrEthical07/storegate/internal/logger"
	"github.com/MrEthical07/storegate/metrics/export/internaldefs"
	"github.com/MrEthical07/storegate/metrics/export/prometheus"
	"github.com/MrEthical07/storegate/middleware"
	"github.com/MrEthical07/storegate/permission"
)

func main() {
	envFile := flag.String("env-file", ".env", "dotenv file read before the environment (missing is fine)")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	cfg, err := storegate.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{Env: cfg.AppEnv, Level: cfg.Log.Level, ServiceName: "storegate-edge"})
	defer func() { _ = logger.Sync() }()
	log := logger.Named("edge")

	for _, w := range cfg.Lint() {
		log.Warn("config lint", zap.String("code", w.Code), zap.String("severity", w.Severity.String()), zap.String("message", w.Message))
	}

	if err := run(cfg, log); err != nil {
		log.Fatal("edge stopped", logger.Err(err))
	}
}

func run(cfg storegate.Config, log *zap.Logger) error {
	verifier, err := cfg.NewVerifier()
	if err != nil {
		return fmt.Errorf("token verifier: %w", err)
	}
	matrix, err := storegate.LoadMatrix(cfg.MatrixFile)
	if err != nil {
		return err
	}
	refresher, err := storegate.NewBackendRefresher(cfg, nil)
	if err != nil {
		return fmt.Errorf("refresher: %w", err)
	}
	upstream, err := url.Parse(cfg.Gate.Upstream)
	if err != nil || upstream.Host == "" {
		return fmt.Errorf("invalid upstream %q", cfg.Gate.Upstream)
	}

	metrics := storegate.NewMetrics(cfg.Metrics)
	gate, err := middleware.NewGate(cfg, middleware.GateDeps{
		Verifier:  verifier,
		Matrix:    matrix,
		Refresher: refresher,
		Metrics:   metrics,
		Logger:    logger.Named("gate"),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Gate.ListenAddr,
		Handler:           newRouter(gate, metrics, upstream),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("edge listening", zap.String("addr", srv.Addr), zap.String("upstream", upstream.String()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(gate *middleware.Gate, metrics *storegate.Metrics, upstream *url.URL) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.WithRequestID(), middleware.WithLogging())

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", prometheus.NewGateCollector(metrics).Handler())

	r.Route("/_storegate", func(r chi.Router) {
		r.Use(middleware.RequireIdentity(gate))
		r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
			id, _ := storegate.IdentityFromContext(r.Context())
			writeJSON(w, map[string]any{
				"id":        id.UserID,
				"email":     id.Email,
				"role":      id.Role,
				"storeId":   id.StoreID,
				"expiresAt": id.ExpiresAt,
			})
		})
		r.With(middleware.RequireRole(gate, permission.RoleAdmin)).Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
			snap := metrics.Snapshot()
			counters := make(map[string]uint64, len(internaldefs.CounterDefs))
			for _, def := range internaldefs.CounterDefs {
				counters[def.Name] = snap.Counters[def.ID]
			}
			writeJSON(w, map[string]any{"counters": counters})
		})
	})

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(upstream)
			pr.SetXForwarded()
			middleware.ForwardIdentity(pr.In, pr.Out.Header)
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.From(r.Context()).Error("upstream unavailable", logger.Err(err))
			w.WriteHeader(http.StatusBadGateway)
		},
	}
	r.Group(func(r chi.Router) {
		r.Use(middleware.Guard(gate))
		r.Handle("/*", proxy)
	})
	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(v)
}
