package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/arklim/book-buyback/internal/core/domain"
	"github.com/arklim/book-buyback/internal/core/port"
	"github.com/arklim/book-buyback/internal/infra/carrier"
	"github.com/arklim/book-buyback/internal/infra/config"
	"github.com/arklim/book-buyback/internal/infra/database"
	"github.com/arklim/book-buyback/internal/infra/eventbus"
	kafkainfra "github.com/arklim/book-buyback/internal/infra/kafka"
	"github.com/arklim/book-buyback/internal/infra/logger"
	redisinfra "github.com/arklim/book-buyback/internal/infra/redis"
	"github.com/arklim/book-buyback/internal/infra/scheduler"
	"github.com/arklim/book-buyback/internal/infra/security"
	"github.com/arklim/book-buyback/internal/infra/telemetry"
	postgresrepo "github.com/arklim/book-buyback/internal/repository/postgres"
	redisrepo "github.com/arklim/book-buyback/internal/repository/redis"
	transportgrpc "github.com/arklim/book-buyback/internal/transport/grpc"
	grpcinterceptors "github.com/arklim/book-buyback/internal/transport/grpc/interceptors"
	"github.com/arklim/book-buyback/internal/transport/http/middleware"
	"github.com/arklim/book-buyback/internal/transport/http/routes"
	"github.com/arklim/book-buyback/internal/usecase"
)

// devJWTSecret signs tokens in development when no secret is configured.
const devJWTSecret = "book-buyback-development-secret"

type Application struct {
	cfg       *config.AppConfig
	engine    *gin.Engine
	logger    *zap.Logger
	telemetry *telemetry.Provider
	pool      *pgxpool.Pool
	redis     *redisinfra.Client
	producer  *kafkainfra.Producer
	consumer  *kafkainfra.ConsumerGroup
	grpc      *transportgrpc.Server
	grpcAddr  string
	expiry    *scheduler.ExpiryScheduler
}

func New(ctx context.Context, cfg *config.AppConfig) (_ *Application, err error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &Application{cfg: cfg, logger: log}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.telemetry, err = telemetry.Attach(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	registerer := a.telemetry.Registerer()

	a.pool, err = database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if cfg.Postgres.AutoMigrate {
		if err := postgresrepo.RunMigrations(a.pool); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	repos := postgresrepo.NewRepositories(a.pool)

	var (
		locker         port.EntityLocker
		rateLimitStore port.RateLimitStore
	)
	if cfg.Redis.Enabled {
		a.redis, err = redisinfra.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		if err := registerer.Register(a.redis.PoolCollector("")); err != nil {
			return nil, fmt.Errorf("register redis pool metrics: %w", err)
		}
		locker = redisrepo.NewEntityLocker(a.redis.Client(), redisrepo.LockerConfig{
			KeyPrefix: cfg.Redis.LockPrefix,
			TTL:       cfg.Redis.LockTTL,
		})
		window := cfg.RateLimit.WindowDuration
		if window <= 0 {
			window = time.Minute
		}
		rateLimitStore = redisrepo.NewRateLimitRepository(a.redis.Client(), redisrepo.SlidingWindowConfig{
			KeyPrefix: "books:rate-limit",
			TTL:       window * 2,
		})
	} else {
		log.Info("redis disabled, using in-process entity locks and no rate limiting")
		locker = usecase.NewLocalLocker()
	}

	busMetrics, err := eventbus.NewMetrics(eventbus.MetricsOptions{Registerer: registerer})
	if err != nil {
		return nil, fmt.Errorf("init event bus metrics: %w", err)
	}
	bus := eventbus.New(
		eventbus.WithLogger(log),
		eventbus.WithMetrics(busMetrics),
		eventbus.WithMaxDepth(cfg.EventBus.MaxDepth),
	)

	labels, err := carrier.NewLabelIssuer(cfg.Shipping.InboundCarrier, cfg.Shipping.LabelBaseURL, log)
	if err != nil {
		return nil, fmt.Errorf("init label issuer: %w", err)
	}

	authz := usecase.NewAuthorizationService(repos.Roles, repos.RoleAssignments, log)
	roleService := usecase.NewRoleService(repos.Roles, repos.RoleAssignments, bus, locker, log)
	estimateService := usecase.NewEstimateService(repos.Catalog, cfg.Estimate.Validity)
	purchaseRequests := usecase.NewPurchaseRequestService(repos.PurchaseRequests, estimateService, labels, bus, locker, log)
	appraisals := usecase.NewAppraisalService(repos.Appraisals, repos.PurchaseRequests, repos.Catalog, bus, locker, log)
	orders := usecase.NewOrderService(repos.Orders, repos.Catalog, bus, locker, cfg.Orders.HoldDuration, log)
	fulfillment := usecase.NewFulfillmentService(repos.Shipments, repos.Orders, carrier.NewTrackingURLs(nil), bus, locker, log)

	bus.Subscribe(domain.EventShipmentDelivered, orders.HandleShipmentDelivered)
	bus.Subscribe(domain.EventPurchaseRequestReceived, appraisals.HandlePurchaseRequestReceived)

	kafkainfra.Forward(bus, a.eventSink(), log)
	if err := a.initTrackingConsumer(fulfillment); err != nil {
		return nil, err
	}

	if cfg.App.SeedSystemRoles {
		created, err := roleService.SeedSystemRoles(ctx, usecase.DefaultSystemRoles())
		if err != nil {
			return nil, fmt.Errorf("seed system roles: %w", err)
		}
		if created > 0 {
			log.Info("seeded system roles", zap.Int("created", created))
		}
	}

	a.expiry, err = scheduler.NewExpiryScheduler(orders, cfg.Orders.ExpirySchedule, cfg.Orders.ExpiryBatch, log)
	if err != nil {
		return nil, fmt.Errorf("init expiry scheduler: %w", err)
	}

	verifier, err := a.tokenVerifier()
	if err != nil {
		return nil, fmt.Errorf("init token verifier: %w", err)
	}

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Registerer: registerer})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}
	grpcMetrics, err := grpcinterceptors.NewGRPCMetrics(grpcinterceptors.GRPCMetricsOptions{Registerer: registerer})
	if err != nil {
		return nil, fmt.Errorf("init grpc metrics: %w", err)
	}

	checks := map[string]transportgrpc.ReadinessCheck{"database": a.pool.Ping}
	deps := routes.Dependencies{
		Config:         cfg,
		Logger:         log,
		RateLimiter:    middleware.NewRateLimiter(rateLimitStore, log),
		Metrics:        httpMetrics,
		Verifier:       verifier,
		Authorizer:     authz,
		Database:       a.pool,
		MetricsHandler: a.telemetry.Handler(),
		Services: routes.ServiceSet{
			Roles:            roleService,
			Permissions:      authz,
			Appraisals:       appraisals,
			Shipments:        fulfillment,
			PurchaseRequests: purchaseRequests,
			Orders:           orders,
			Estimates:        estimateService,
		},
	}
	if a.redis != nil {
		deps.Cache = a.redis
		checks["redis"] = a.redis.HealthCheck
	}
	a.engine = routes.Register(deps)

	a.grpc = transportgrpc.NewServer(transportgrpc.ServerDependencies{
		Verifier: verifier,
		Logger:   log,
		Metrics:  grpcMetrics,
		Tracing:  a.telemetry.Tracing(),
		Checks:   checks,
	})
	a.grpcAddr = fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port)

	return a, nil
}

// eventSink selects the Kafka sink when a producer can be created, falling
// back to the logging stub otherwise.
func (a *Application) eventSink() port.EventSink {
	if !a.cfg.Kafka.Enabled || len(a.cfg.Kafka.Brokers) == 0 {
		a.logger.Info("kafka disabled, using stub event sink")
		return kafkainfra.NewStubSink(a.logger)
	}

	producer, err := kafkainfra.NewProducer(a.cfg.Kafka, a.logger)
	if err != nil {
		a.logger.Warn("failed to init kafka producer, using stub event sink", zap.Error(err))
		return kafkainfra.NewStubSink(a.logger)
	}
	a.producer = producer
	a.logger.Info("kafka event sink initialized", zap.Strings("brokers", a.cfg.Kafka.Brokers))
	return kafkainfra.NewEventSink(producer, a.cfg.App, a.logger)
}

func (a *Application) initTrackingConsumer(tracker kafkainfra.ShipmentTracker) error {
	kafkaCfg := a.cfg.Kafka
	if !kafkaCfg.Enabled || strings.TrimSpace(kafkaCfg.TrackingTopic) == "" {
		return nil
	}

	group, err := kafkainfra.NewConsumerGroup(kafkaCfg, kafkaCfg.ConsumerGroup, []string{kafkaCfg.TrackingTopic},
		kafkainfra.NewTrackingConsumer(tracker, a.logger), a.logger)
	if err != nil {
		return fmt.Errorf("init tracking consumer: %w", err)
	}
	a.consumer = group
	return nil
}

func (a *Application) tokenVerifier() (*security.TokenVerifier, error) {
	secret := a.cfg.JWT.Secret
	if strings.TrimSpace(secret) == "" && a.cfg.IsDevelopment() {
		a.logger.Warn("jwt.secret not set, using the development signing secret")
		secret = devJWTSecret
	}

	return security.NewTokenVerifier(security.TokenVerifierConfig{
		Secret:   secret,
		Issuer:   a.cfg.JWT.Issuer,
		Audience: a.cfg.JWT.Audience,
		TTL:      a.cfg.JWT.TTL,
	})
}

// Run serves HTTP and gRPC, runs the hold expiry schedule and the tracking
// consumer, and shuts everything down when ctx is cancelled or any of them fails.
func (a *Application) Run(ctx context.Context) error {
	defer a.close()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	lis, err := net.Listen("tcp", a.grpcAddr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("starting book buyback API",
			zap.String("env", a.cfg.App.Env),
			zap.String("address", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("run http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.logger.Info("starting gRPC server", zap.String("address", a.grpcAddr))
		if err := a.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("run grpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.grpc.MonitorReadiness(gctx, 15*time.Second)
		return nil
	})

	g.Go(func() error {
		return a.expiry.Run(gctx)
	})

	if a.consumer != nil {
		g.Go(func() error {
			a.logger.Info("starting tracking consumer", zap.String("topic", a.cfg.Kafka.TrackingTopic))
			return a.consumer.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()

		a.grpc.Stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		a.logger.Info("servers stopped")
		return nil
	})

	return g.Wait()
}

func (a *Application) close() {
	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Warn("close tracking consumer", zap.Error(err))
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("close kafka producer", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.telemetry != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("shutdown telemetry", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
