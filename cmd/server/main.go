package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"carebridge/internal/config"
	"carebridge/internal/db"
	carebridgegrpc "carebridge/internal/grpc"
	internalhttp "carebridge/internal/http"
	"carebridge/internal/identity"
	"carebridge/internal/jobs"
	"carebridge/internal/logging"
	"carebridge/internal/metrics"
	"carebridge/internal/repository"
	"carebridge/internal/repository/sqlite"
	"carebridge/internal/requests"
	"carebridge/internal/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// dataStore is what both store backends provide.
type dataStore interface {
	identity.UserStore
	requests.Store
}

func run() error {
	var (
		configFile  string
		envFile     string
		migrateOnly bool
	)
	flagSet := pflag.NewFlagSet("carebridge", pflag.ContinueOnError)
	flagSet.StringVar(&configFile, "config", "", "YAML config file (overrides CONFIG_FILE)")
	flagSet.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	flagSet.BoolVar(&migrateOnly, "migrate", false, "apply the database schema and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.LoadFiles(envFile, configFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := logging.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store        dataStore
		sessionStore session.Store
	)
	switch cfg.StoreBackend {
	case config.StorePostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("db connection failed: %w", err)
		}
		defer pool.Close()
		if err := db.NewStore(pool).Migrate(ctx); err != nil {
			return err
		}
		pgStore := repository.NewStore(pool)
		store = pgStore
		if cfg.SessionBackend == config.SessionPostgres {
			sessionStore = pgStore.Sessions()
		}
	default:
		sqliteStore, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.SQLitePath, Logger: logger})
		if err != nil {
			return err
		}
		defer func() {
			if err := sqliteStore.Close(); err != nil {
				logger.Error("sqlite close error", "error", err)
			}
		}()
		store = sqliteStore
		if cfg.SessionBackend == config.SessionSQLite {
			sessionStore = sqliteStore.Sessions()
		}
	}
	if migrateOnly {
		logger.Info("schema applied", "store", cfg.StoreBackend)
		return nil
	}

	switch cfg.SessionBackend {
	case config.SessionRedis:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error("redis close error", "error", err)
			}
		}()
		sessionStore = session.NewRedisStore(redisClient)
	case config.SessionMemory:
		sessionStore = session.NewMemoryStore()
	}

	m := metrics.New()
	users, err := identity.NewService(store, cfg.BcryptCost, logger)
	if err != nil {
		return fmt.Errorf("identity init failed: %w", err)
	}
	sessions := session.NewManager(sessionStore, cfg.SessionTTL, session.WithLogger(logger))
	reqs := requests.NewService(store, logger, requests.WithObserver(m.ObserveMutation))

	if pruner, ok := sessionStore.(session.Pruner); ok {
		jobs.StartSessionPruneJob(ctx, cfg.SessionPruneInterval, pruner, logger)
	}

	server := internalhttp.NewServer(cfg, users, sessions, reqs, m, logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("carebridge http listening", "addr", cfg.HTTPAddr, "store", cfg.StoreBackend, "sessions", cfg.SessionBackend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var grpcServer *carebridgegrpc.Server
	if cfg.GRPCAddr != "" {
		grpcServer, err = carebridgegrpc.NewServer(cfg.ServiceAuthToken, cfg.Development(), logger)
		if err != nil {
			return fmt.Errorf("grpc init failed: %w", err)
		}
		listener, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen error: %w", err)
		}
		go func() {
			logger.Info("carebridge grpc listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(listener); err != nil {
				errCh <- fmt.Errorf("grpc server error: %w", err)
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	if grpcServer != nil {
		grpcServer.Shutdown()
	}
	logger.Info("carebridge stopped")
	return serveErr
}
