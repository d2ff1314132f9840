package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"registra/internal/activity"
	"registra/internal/auth"
	"registra/internal/auth/lockout"
	"registra/internal/enrichment"
	"registra/internal/identity"
	"registra/internal/platform/config"
	"registra/internal/platform/httpserver"
	"registra/internal/platform/logger"
	"registra/internal/platform/metrics"
	"registra/internal/platform/middleware"
	platformredis "registra/internal/platform/redis"
	"registra/internal/token"
	httptransport "registra/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "registra: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Stores: postgres when configured, in-memory otherwise.
	var (
		identities    identity.Store
		activityStore activity.Store
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		identities = identity.NewPostgresStore(pool)
		activityStore = activity.NewPostgresStore(pool)
		log.Info("using postgres stores")
	} else {
		memIdentities := identity.NewMemoryStore()
		identities = memIdentities
		activityStore = activity.NewMemoryStore(memIdentities)
		log.Warn("no database configured, using in-memory stores")
	}

	var geo enrichment.Locator = enrichment.NoopLocator{}
	if cfg.GeoDBPath != "" {
		geoip, err := enrichment.OpenGeoIP(cfg.GeoDBPath)
		if err != nil {
			return fmt.Errorf("open geoip database: %w", err)
		}
		defer geoip.Close()
		geo = geoip
	}

	lockoutPolicy := lockout.DefaultPolicy()
	var lockoutStore lockout.Store = lockout.NewMemoryStore(lockoutPolicy)
	if cfg.RedisURL != "" {
		redisClient, err := platformredis.New(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
		lockoutStore = lockout.NewRedisStore(redisClient.Client, lockoutPolicy)
		log.Info("redis lockout store enabled")
	}
	lockouts := lockout.NewService(lockoutStore, lockoutPolicy, log)

	recorderOpts := []activity.RecorderOption{activity.WithMetrics(m)}
	if len(cfg.KafkaBrokers) > 0 {
		mirror, err := activity.NewKafkaMirror(cfg.KafkaBrokers, cfg.KafkaTopic, log, m)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer mirror.Close()
		recorderOpts = append(recorderOpts, activity.WithMirror(mirror))
		log.Info("activity mirror enabled", "topic", cfg.KafkaTopic)
	}
	recorder := activity.NewRecorder(activityStore, geo, log, cfg.AuditQueueSize, cfg.AuditWorkers, recorderOpts...)

	tokens := token.NewService(cfg.AccessSecret, cfg.RefreshSecret)
	authService := auth.NewService(identities, tokens, recorder, lockouts, log, m)
	authHandler := auth.NewHandler(authService, log, cfg.Production)

	engine := activity.NewQueryEngine(activityStore, m)
	verifier := middleware.TokenVerifier(tokens)
	activityHandler := activity.NewHandler(engine, verifier, log, m)

	router := httptransport.NewRouter(log, authHandler, activityHandler)
	srv := httpserver.New(cfg.Addr, router, cfg.ReadHeaderTimeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		// Drain queued activity records before the stores go away.
		if err := recorder.Close(shutdownCtx); err != nil {
			log.Warn("recorder drain incomplete", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
