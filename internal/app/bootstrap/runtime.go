package bootstrap

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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/sponticoupon/claim-redemption-service/internal/adapters/cache"
	eventadapter "github.com/sponticoupon/claim-redemption-service/internal/adapters/events"
	httpadapter "github.com/sponticoupon/claim-redemption-service/internal/adapters/http"
	"github.com/sponticoupon/claim-redemption-service/internal/adapters/memory"
	metricsadapter "github.com/sponticoupon/claim-redemption-service/internal/adapters/metrics"
	"github.com/sponticoupon/claim-redemption-service/internal/adapters/postgres"
	"github.com/sponticoupon/claim-redemption-service/internal/adapters/security"
	"github.com/sponticoupon/claim-redemption-service/internal/application"
	"github.com/sponticoupon/claim-redemption-service/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	healthSrv  *health.Server
	outbox     *eventadapter.OutboxWorker
	cleanupFn  func()
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping claim redemption service",
		"service", cfg.ServiceID,
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
	)

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	fail := func(err error) (*Runtime, error) {
		cleanup()
		return nil, err
	}

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}
	cleanups = append(cleanups, func() { _ = sqlDB.Close() })

	if err := postgres.RunMigrations(ctx, db); err != nil {
		return fail(fmt.Errorf("run migrations: %w", err))
	}
	repos := postgres.NewRepositories(db)

	var redisClient *redis.Client
	var lockouts ports.LockoutStore
	if cfg.RedisURL != "" {
		redisClient, err = cacheadapter.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fail(fmt.Errorf("connect redis: %w", err))
		}
		cleanups = append(cleanups, func() { _ = redisClient.Close() })
		lockouts = cacheadapter.NewRedisLockoutStore(redisClient)
	} else {
		logger.Warn("REDIS_URL not set; human-code lockouts are tracked per process")
		lockouts = memory.NewLockoutStore()
	}

	tokens, err := newTokenVerifier(cfg, logger)
	if err != nil {
		return fail(err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			PublicBaseURL:        cfg.PublicBaseURL,
			ScanLockoutThreshold: cfg.ScanLockoutThreshold,
			ScanLockoutWindow:    cfg.ScanLockoutWindow,
			CredentialAttempts:   cfg.CredentialAttempts,
			NotifyTimeout:        cfg.NotifyTimeout,
		},
		Claims:      repos.Claims,
		Deals:       repos.Deals,
		Redemptions: repos.Redemptions,
		Vendors:     cacheadapter.NewCachedVendorRepository(repos.Vendors, cfg.VendorSecretCacheSize, cfg.VendorSecretCacheTTL),
		Lockouts:    lockouts,
		Credentials: security.NewCredentialGenerator(),
		Signatures:  security.NewHMACSignatureVerifier(),
		Notifier:    eventadapter.NewOutboxNotifier(repos.Outbox),
		Metrics:     metricsadapter.MustNew(registry),
	})

	ready := func(ctx context.Context) error {
		if err := sqlDB.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	}
	handler := httpadapter.NewHandler(svc, tokens, ready)
	router := httpadapter.NewRouter(handler, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		return fail(err)
	}
	if closer, ok := publisher.(interface{ Close() error }); ok {
		cleanups = append(cleanups, func() { _ = closer.Close() })
	}
	outbox := eventadapter.NewOutboxWorker(logger, repos.Outbox, publisher, eventadapter.OutboxWorkerConfig{
		Interval:   cfg.OutboxPollInterval,
		BatchSize:  cfg.OutboxBatchSize,
		ClaimTTL:   cfg.OutboxClaimTTL,
		MaxRetries: cfg.OutboxMaxRetries,
	})

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		healthSrv:  healthSrv,
		outbox:     outbox,
		cleanupFn:  cleanup,
	}, nil
}

func newTokenVerifier(cfg Config, logger *slog.Logger) (ports.TokenVerifier, error) {
	if cfg.JWTPublicKeyPEM != "" {
		verifier, err := security.NewJWTVerifier(cfg.JWTKeyID, cfg.JWTPublicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("init jwt verifier: %w", err)
		}
		return verifier, nil
	}
	signer, err := security.NewEphemeralJWTSigner(cfg.JWTKeyID)
	if err != nil {
		return nil, fmt.Errorf("init ephemeral jwt signer: %w", err)
	}
	logger.Warn("using ephemeral JWT key for local/dev runtime; set JWT_PUBLIC_KEY_PEM to accept externally issued tokens")
	return signer, nil
}

func newPublisher(cfg Config, logger *slog.Logger) (ports.EventPublisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Warn("KAFKA_BROKERS not set; vendor notifications are logged instead of published")
		return eventadapter.NewLoggingPublisher(logger), nil
	}
	publisher, err := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, map[string]string{
		ports.EventDepositConfirmed: cfg.KafkaTopicDepositConfirmed,
		ports.EventClaimRedeemed:    cfg.KafkaTopicClaimRedeemed,
	})
	if err != nil {
		return nil, fmt.Errorf("init kafka publisher: %w", err)
	}
	return publisher, nil
}

// RunAPI serves HTTP and gRPC health until a signal arrives or either
// server fails.
func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer r.cleanupFn()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", r.cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("listen gRPC: %w", err)
	}
	r.healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		r.logger.Info("grpc server started", "addr", lis.Addr().String())
		if err := r.grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		r.logger.Info("shutting down api")
		r.healthSrv.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := r.httpServer.Shutdown(shutdownCtx)
		r.grpcServer.GracefulStop()
		return err
	})

	if err := g.Wait(); err != nil {
		r.logger.Error("api stopped with error", "error", err)
		return err
	}
	return nil
}

// RunWorker drains the notification outbox until a signal arrives.
func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer r.cleanupFn()

	r.logger.Info("outbox worker started")
	if err := r.outbox.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
