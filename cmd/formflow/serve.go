package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/formflow"
	"github.com/aretw0/formflow/internal/cli"
	"github.com/aretw0/formflow/pkg/adapters/file"
	httpadapter "github.com/aretw0/formflow/pkg/adapters/http"
	"github.com/aretw0/formflow/pkg/adapters/loader"
	"github.com/aretw0/formflow/pkg/adapters/memory"
	"github.com/aretw0/formflow/pkg/adapters/redis"
	"github.com/aretw0/formflow/pkg/adapters/sqlstore"
	"github.com/aretw0/formflow/pkg/observability"
	"github.com/aretw0/formflow/pkg/persistence/middleware"
	"github.com/aretw0/formflow/pkg/ports"
	"github.com/aretw0/formflow/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// serveConfig is resolved from flags, falling back to FORMFLOW_* variables.
type serveConfig struct {
	Addr          string
	Store         string
	StoreDSN      string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SessionTTL    time.Duration
	EncryptionKey string
	Watch         bool
}

func resolveServeConfig(cmd *cobra.Command) serveConfig {
	return serveConfig{
		Addr:          stringFlag(cmd, "addr", "FORMFLOW_ADDR"),
		Store:         stringFlag(cmd, "store", "FORMFLOW_STORE"),
		StoreDSN:      stringFlag(cmd, "store-dsn", "FORMFLOW_STORE_DSN"),
		RedisAddr:     stringFlag(cmd, "redis-addr", "FORMFLOW_REDIS_ADDR"),
		RedisPassword: stringFlag(cmd, "redis-password", "FORMFLOW_REDIS_PASSWORD"),
		RedisDB:       intFlag(cmd, "redis-db", "FORMFLOW_REDIS_DB"),
		SessionTTL:    durationFlag(cmd, "session-ttl", "FORMFLOW_SESSION_TTL"),
		EncryptionKey: stringFlag(cmd, "encryption-key", "FORMFLOW_ENCRYPTION_KEY"),
		Watch:         boolFlag(cmd, "watch", "FORMFLOW_WATCH"),
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve <schema>",
	Short: "Serve form sessions over HTTP",
	Long: `Starts the JSON API for form sessions, with Prometheus metrics on /metrics.
Sessions are kept in the selected store: memory, file, redis, sqlite or postgres.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()
		return serve(sigCtx, args[0], resolveServeConfig(cmd), logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "Address to listen on (env FORMFLOW_ADDR)")
	serveCmd.Flags().String("store", "memory", "Session store: memory, file, redis, sqlite, postgres (env FORMFLOW_STORE)")
	serveCmd.Flags().String("store-dsn", "", "Directory for file, DSN for sqlite/postgres (env FORMFLOW_STORE_DSN)")
	serveCmd.Flags().String("redis-addr", "localhost:6379", "Redis address (env FORMFLOW_REDIS_ADDR)")
	serveCmd.Flags().String("redis-password", "", "Redis password (env FORMFLOW_REDIS_PASSWORD)")
	serveCmd.Flags().Int("redis-db", 0, "Redis database (env FORMFLOW_REDIS_DB)")
	serveCmd.Flags().Duration("session-ttl", 0, "Expire idle redis sessions after this long, 0 keeps them (env FORMFLOW_SESSION_TTL)")
	serveCmd.Flags().String("encryption-key", "", "Base64 AES-256 key to encrypt stored sessions (env FORMFLOW_ENCRYPTION_KEY)")
	serveCmd.Flags().BoolP("watch", "w", false, "Reload the schema when the file changes (env FORMFLOW_WATCH)")
}

func serve(ctx context.Context, schemaPath string, cfg serveConfig, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := observability.NewMetrics(reg)
	if err != nil {
		return err
	}

	src := loader.NewFile(schemaPath, loader.WithFileLogger(logger))
	def, err := src.Definition(ctx)
	if err != nil {
		return err
	}
	engine, err := formflow.New(def,
		formflow.WithLogger(logger),
		formflow.WithLifecycleHooks(observability.Combine(
			observability.LoggingHooks(logger),
			metrics.Hooks(),
		)),
	)
	if err != nil {
		return err
	}

	backend, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.close()

	store := backend.store
	if cfg.EncryptionKey != "" {
		key, err := middleware.ParseKey(cfg.EncryptionKey)
		if err != nil {
			return err
		}
		store = middleware.Chain(store, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}

	managerOpts := []session.Option{session.WithLogger(logger)}
	if backend.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(backend.locker))
	}
	mgr := session.NewManager(engine, store, managerOpts...)

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Mount("/", httpadapter.NewHandler(mgr, httpadapter.WithLogger(logger)))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", srv.Addr, "schema", schemaPath, "store", cfg.Store, "schema_version", engine.Schema().Version())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete in %v: %w", shutdownTimeout, err)
		}
		return nil
	})
	if cfg.Watch {
		w := loader.NewWatcher(src, engine.Reload,
			loader.WithLogger(logger),
			loader.WithResultHook(metrics.ObserveReload),
		)
		g.Go(func() error { return w.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

type storeBackend struct {
	store  ports.SessionStore
	locker ports.DistributedLocker
	close  func()
}

// openStore builds the session store named by cfg.Store. Redis also provides
// the distributed locker so replicas serialize answers per user.
func openStore(ctx context.Context, cfg serveConfig, logger *slog.Logger) (storeBackend, error) {
	noop := func() {}
	switch cfg.Store {
	case "", "memory":
		return storeBackend{store: memory.NewStore(), close: noop}, nil

	case "file":
		return storeBackend{store: file.New(cfg.StoreDSN), close: noop}, nil

	case "redis":
		var opts []redis.Option
		if cfg.SessionTTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.SessionTTL))
		}
		s := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts...)
		if err := s.Client().Ping(ctx).Err(); err != nil {
			_ = s.Close()
			return storeBackend{}, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return storeBackend{
			store:  s,
			locker: redis.NewLocker(s.Client(), "formflow:"),
			close:  func() { _ = s.Close() },
		}, nil

	case "sqlite", "postgres":
		dialect, err := sqlstore.ParseDialect(cfg.Store)
		if err != nil {
			return storeBackend{}, err
		}
		dsn := cfg.StoreDSN
		if dsn == "" && dialect == sqlstore.SQLite {
			dsn = ".formflow/sessions.db"
		}
		s, err := sqlstore.Open(ctx, dialect, dsn, sqlstore.WithLogger(logger))
		if err != nil {
			return storeBackend{}, err
		}
		return storeBackend{store: s, close: func() { _ = s.Close() }}, nil
	}
	return storeBackend{}, fmt.Errorf("unknown store %q", cfg.Store)
}
