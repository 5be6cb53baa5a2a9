package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/auth"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/config"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/engine"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/lease"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/metrics"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/middleware"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/service"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/storage"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/storage/memory"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/storage/postgres"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/storage/sqlite"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/pkg/api"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/pkg/logging"
)

// anonymousAdmin is the caller every request runs as when auth is disabled.
const anonymousAdmin = "local-admin"

func main() {
	configPath := flag.String("config", os.Getenv("STOKVEL_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("Storage initialized", "driver", cfg.Database.Driver)

	locker, closeLocker, err := openLocker(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer closeLocker()

	m := metrics.New()
	eng := engine.New(store, engine.Options{
		Locker:   locker,
		Logger:   logger,
		Observer: m,
		LeaseTTL: cfg.Server.LeaseTTL,
	})

	jwtManager := auth.NewJWTManager(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	callerInterceptor := middleware.RequireAuth(jwtManager)
	if cfg.Auth.Disabled {
		logger.Warn("Authentication disabled; every request runs as admin", "user_id", anonymousAdmin)
		callerInterceptor = middleware.StaticCaller(anonymousAdmin, auth.RoleAdmin)
	}
	interceptors := connect.WithInterceptors(
		middleware.LoggingInterceptor(logger, m),
		callerInterceptor,
		middleware.RequireAdmin(service.AdminProcedures...),
	)

	stokvelSvc := service.NewStokvelService(eng, service.Options{
		AutoSettle: cfg.Server.AutoSettle,
		Logger:     logger,
		Errors:     m,
	})
	authSvc := service.NewAuthService(jwtManager, logger)

	mux := http.NewServeMux()
	mux.Handle(api.NewStokvelServiceHandler(stokvelSvc, interceptors))
	mux.Handle(api.NewAuthServiceHandler(authSvc, interceptors))
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	// h2c serves HTTP/2 without TLS, which gRPC clients of Connect need.
	handler := h2c.NewHandler(loggingMiddleware(logger, corsMiddleware(mux)), &http2.Server{})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Connect server starting", "address", srv.Addr, "auto_settle", cfg.Server.AutoSettle)
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

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (storage.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return sqlite.New(cfg.Path)
	case config.DriverPostgres:
		return postgres.Connect(ctx, cfg.PostgresDSN)
	case config.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// openLocker returns the Redis lease when an address is configured and the
// in-process lease otherwise.
func openLocker(ctx context.Context, cfg config.RedisConfig) (lease.Locker, func(), error) {
	if cfg.Addr == "" {
		return lease.NewLocal(), func() {}, nil
	}
	client, err := lease.Connect(ctx, cfg.Addr, cfg.Password, cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("Settlement lease backed by redis", "addr", cfg.Addr)
	return lease.NewRedis(client), func() { client.Close() }, nil
}

// loggingMiddleware logs plain HTTP requests. RPCs are logged by the
// connect interceptor, so this stays at debug level.
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms, Stokvel-Error-Kind")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
