package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/boardhub/tokenauth"
	"github.com/boardhub/tokenauth/auditsink"
	"github.com/boardhub/tokenauth/httpapi"
	"github.com/boardhub/tokenauth/internal/config"
	"github.com/boardhub/tokenauth/internal/logger"
	promexport "github.com/boardhub/tokenauth/metrics/export/prometheus"
	"github.com/boardhub/tokenauth/users"
)

const (
	devUserEmail = "dev@tokenauth.local"
	devUserName  = "dev"
)

func serveCmd(configPath *string) *cobra.Command {
	var (
		dev         bool
		devPassword string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Run the HTTP server.

With --dev the server uses an embedded Redis, an in-memory user directory
seeded with ` + devUserEmail + `, plain-HTTP cookies and a random signing
secret when none is configured.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, *configPath, dev, devPassword)
		},
	}
	cmd.Flags().BoolVar(&dev, "dev", false, "Run with embedded Redis and an in-memory user directory")
	cmd.Flags().StringVar(&devPassword, "dev-password", "dev-password-123", "Password of the seeded dev user")

	return cmd
}

func serve(ctx context.Context, configPath string, dev bool, devPassword string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dev {
		applyDevDefaults(cfg)
	}

	lg, err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		Dev:        cfg.Log.Dev,
		File:       cfg.Log.File,
		MaxAge:     cfg.Log.MaxAge,
		RotateTime: cfg.Log.RotateTime,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = lg.Sync() }()

	lg.Info("starting", zap.String("app", appName), zap.String("version", Version), zap.String("env", cfg.Env), zap.Bool("dev", dev))

	engineCfg, err := cfg.Engine()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// -------- REDIS --------
	var client redis.UniversalClient
	if dev {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start miniredis: %w", err)
		}
		defer mr.Close()
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		lg.Info("using embedded redis", zap.String("addr", mr.Addr()))
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	defer func() { _ = client.Close() }()

	// -------- USERS --------
	var provider tokenauth.UserProvider
	switch {
	case cfg.DB.DatabaseURL != "":
		dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		pg, err := users.NewPostgres(dbCtx, cfg.DB.DatabaseURL)
		cancel()
		if err != nil {
			return err
		}
		defer pg.Close()
		provider = pg
		lg.Info("postgres connected")
	case dev:
		provider = users.NewMemory()
	default:
		return errors.New("db.db_url (DATABASE_URL) is required outside --dev")
	}

	// -------- AUDIT --------
	sinks := tokenauth.MultiSink{auditsink.NewZapSink(lg)}
	if cfg.Audit.NATSURL != "" {
		ns, err := auditsink.Connect(cfg.Audit.NATSURL, cfg.Audit.NATSSubject, lg)
		if err != nil {
			return fmt.Errorf("connect NATS: %w", err)
		}
		defer func() { _ = ns.Close() }()
		sinks = append(sinks, ns)
		lg.Info("audit events published to NATS", zap.String("subject", cfg.Audit.NATSSubject))
	}

	engine, err := tokenauth.New().
		WithConfig(engineCfg).
		WithRedis(client).
		WithUserProvider(provider).
		WithAuditSink(sinks).
		WithLogger(lg).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	if mem, ok := provider.(*users.MemoryProvider); ok {
		if err := seedDevUser(engine, mem, devPassword); err != nil {
			return err
		}
		lg.Info("seeded dev user", zap.String("email", devUserEmail))
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = engine.Ping(pingCtx)
	cancel()
	if err != nil {
		// Requests will answer 503 until the store comes back.
		lg.Warn("session store not reachable", zap.Error(err))
	}

	// -------- HTTP --------
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		promexport.NewCollector(engine),
	)

	opts := httpapi.Options{
		Logger:     lg,
		Metrics:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		TrustProxy: cfg.HTTP.TrustProxy,
	}
	if cfg.OAuth.TrustForwarded {
		opts.Resolver = httpapi.ForwardedIdentity(cfg.OAuth.DefaultRole)
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           httpapi.NewRouter(engine, opts),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		lg.Info("http listen", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		lg.Info("shutdown requested")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http serve: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Warn("http shutdown", zap.Error(err))
	}

	lg.Info("stopped", zap.Uint64("audit_dropped", engine.AuditDropped()))
	return nil
}

func applyDevDefaults(cfg *config.Config) {
	cfg.Log.Dev = true
	cfg.Cookie.Secure = false
	cfg.Cookie.SameSite = "lax"
	if cfg.JWT.SigningMethod == "" || cfg.JWT.SigningMethod == "hs256" {
		if len(cfg.JWT.Secret) < 32 {
			cfg.JWT.Secret = randomSecret()
		}
	}
}

func randomSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func seedDevUser(engine *tokenauth.Engine, mem *users.MemoryProvider, password string) error {
	hash, err := engine.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash dev password: %w", err)
	}
	mem.Add(tokenauth.UserRecord{
		Subject:      devUserEmail,
		Username:     devUserName,
		Role:         "ROLE_USER",
		PasswordHash: hash,
	})
	return nil
}
