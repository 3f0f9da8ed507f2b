package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pawmatch/internal/config"
	"github.com/kailas-cloud/pawmatch/internal/db"
	dbRedis "github.com/kailas-cloud/pawmatch/internal/db/redis"
	logpkg "github.com/kailas-cloud/pawmatch/internal/logger"
	"github.com/kailas-cloud/pawmatch/internal/metrics"
	"github.com/kailas-cloud/pawmatch/internal/repository/breedcache"
	"github.com/kailas-cloud/pawmatch/internal/repository/geocache"
	chiTransport "github.com/kailas-cloud/pawmatch/internal/transport/chi"
	"github.com/kailas-cloud/pawmatch/internal/transport/fetchapi"
	healthuc "github.com/kailas-cloud/pawmatch/internal/usecase/health"
	sessionuc "github.com/kailas-cloud/pawmatch/internal/usecase/session"
	"github.com/kailas-cloud/pawmatch/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting pawmatch server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("api_base_url", cfg.API.BaseURL),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.Strings("cache_addrs", cfg.Cache.Addrs),
	)

	// Register upstream metrics explicitly (no init())
	metrics.RegisterUpstreamMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := openCache(ctx, cfg.Cache, logger)
	if store != nil {
		defer store.Close()
	}

	// Every session gets its own client so upstream cookies never leak between users.
	newCatalog := func() (sessionuc.Catalog, error) {
		client, err := fetchapi.NewClient(&fetchapi.Config{
			BaseURL: cfg.API.BaseURL,
			Timeout: cfg.API.Timeout(),
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	var opts []sessionuc.Option
	if store != nil {
		locationTTL := time.Duration(cfg.Cache.LocationTTLSec) * time.Second
		breedsTTL := time.Duration(cfg.Cache.BreedsTTLSec) * time.Second
		opts = append(opts,
			sessionuc.WithGeocoderCache(func(g sessionuc.Geocoder) sessionuc.Geocoder {
				return geocache.New(g, store, locationTTL, metrics.CacheTotal, logger)
			}),
			sessionuc.WithBreedCache(func(b sessionuc.BreedSource) sessionuc.BreedSource {
				return breedcache.New(b, store, breedsTTL, metrics.CacheTotal, logger)
			}),
		)
	}

	sessions := sessionuc.NewManager(newCatalog, sessionuc.Config{
		IdleTimeout:   cfg.Session.IdleTimeout(),
		PageSize:      cfg.API.PageSize,
		SearchRetries: *cfg.API.SearchRetries,
		BreedsRetries: *cfg.API.BreedsRetries,
	}, logger, opts...)
	go sessions.Run(ctx, time.Duration(cfg.Session.SweepSec)*time.Second)

	// Health probes use their own anonymous client.
	probe, err := fetchapi.NewClient(&fetchapi.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout(),
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal("Failed to create catalog client", zap.Error(err))
	}
	// Pass nil interface (not typed nil pointer) when no cache is configured.
	var cachePinger healthuc.CachePinger
	if store != nil {
		cachePinger = store
	}
	healthSvc := healthuc.New(probe, cachePinger)

	server := chiTransport.NewServer(sessions, healthSvc, chiTransport.CookieConfig{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.SecureCookie,
		MaxAge: cfg.Session.IdleTimeout(),
	}, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully", zap.Int("open_sessions", sessions.Count()))
}

// openCache connects the shared cache. Returns nil when caching is disabled.
// Valkey speaks the Redis protocol, so both drivers share one store.
func openCache(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) db.Store {
	if !cfg.Enabled() {
		logger.Info("Shared cache disabled")
		return nil
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Addrs,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create cache store", zap.Error(err))
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Cache not ready", zap.Error(err))
	}
	logger.Info("Connected to cache", zap.String("driver", cfg.Driver))
	return store
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
