package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"licenseguard/backend/ai"
	"licenseguard/backend/internal/repository"
	"licenseguard/backend/internal/service"
	"licenseguard/backend/internal/storage"
	"licenseguard/backend/pkg/cache"
	"licenseguard/backend/pkg/config"
	"licenseguard/backend/pkg/health"
	"licenseguard/backend/pkg/jwt"
	"licenseguard/backend/pkg/lock"
	"licenseguard/backend/pkg/logger"
	"licenseguard/backend/pkg/resilience"
	"licenseguard/backend/shared/observability"
	sharedredis "licenseguard/backend/shared/redis"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Container holds all the dependencies for the application
type Container struct {
	Config   *config.Config
	DB       *gorm.DB
	Logger   *logger.Logger
	Registry *prometheus.Registry
	Redis    goredis.UniversalClient
	Locker   lock.Locker
	Engine   ai.Engine
	Breaker  *resilience.CircuitBreaker
	Archive  storage.ReportArchive
	Health   *health.Checker

	JWTService *jwt.Service
	// KnownUsers caches users confirmed by the auth middleware
	KnownUsers *cache.Cache

	UserService         *service.UserService
	ContentCheckService *service.ContentCheckService
	ChatService         *service.ChatService
	DashboardService    *service.DashboardService
	Retrier             *service.Retrier

	closers []func(context.Context) error
}

// Option overrides a dependency, mostly for tests
type Option func(*options)

type options struct {
	engine ai.Engine
}

// WithEngine replaces the configured analysis engine
func WithEngine(engine ai.Engine) Option {
	return func(o *options) { o.engine = engine }
}

// New creates a new dependency injection container
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, log *logger.Logger, opts ...Option) (*Container, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	c := &Container{
		Config:   cfg,
		DB:       db,
		Logger:   log,
		Registry: prometheus.NewRegistry(),
	}
	c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// must run before services create their instruments
	mp, err := observability.SetupMetrics(cfg.Observability.ServiceName, c.Registry)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, mp.Shutdown)

	if cfg.Observability.TracingEnabled {
		shutdown, err := observability.SetupTracing(cfg.Observability.ServiceName)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, shutdown)
	}

	c.Health = health.NewChecker(log, 30*time.Second)
	c.Health.RegisterDatabaseCheck(func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})

	if err := c.setupLocker(ctx); err != nil {
		c.Close(ctx)
		return nil, err
	}

	if err := c.setupEngine(o.engine); err != nil {
		c.Close(ctx)
		return nil, err
	}

	if err := c.setupArchive(ctx); err != nil {
		c.Close(ctx)
		return nil, err
	}

	c.JWTService = jwt.NewService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	c.KnownUsers = cache.NewCache(cfg.Cache.TTL, 10000)

	c.UserService = service.NewUserService(repository.NewGormUserRepository(db), c.JWTService, log)
	c.ContentCheckService = service.NewContentCheckService(
		repository.NewGormContentCheckRepository(db),
		c.Engine,
		c.Locker,
		c.Archive,
		service.ContentCheckOptions{
			AnalysisTimeout: cfg.Analysis.Timeout,
			RetryMinAge:     cfg.Retry.MinAge,
		},
		log,
	)
	c.ChatService = service.NewChatService(
		repository.NewGormChatRepository(db),
		c.Engine,
		c.Locker,
		service.ChatOptions{
			HistoryLimit:     cfg.Chat.HistoryLimit,
			ReplyTimeout:     cfg.Chat.ReplyTimeout,
			MaxMessageLength: cfg.Chat.MaxMessageLength,
		},
		log,
	)
	c.DashboardService = service.NewDashboardService(c.ContentCheckService)
	c.Retrier = service.NewRetrier(c.ContentCheckService, cfg.Retry.Interval, cfg.Retry.BatchSize, log)

	return c, nil
}

func (c *Container) setupLocker(ctx context.Context) error {
	if c.Config.Redis.URL == "" {
		c.Logger.Info("REDIS_URL not set, using in-process locks")
		c.Locker = lock.NewLocalLocker()
		return nil
	}

	client, err := sharedredis.NewClient(ctx, c.Config.Redis.URL)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	c.Redis = client
	c.closers = append(c.closers, func(context.Context) error { return client.Close() })
	c.Locker = lock.NewRedisLocker(client, "licenseguard:lock:", c.Config.Redis.LockTTL, c.Logger)

	c.Health.RegisterCheck("redis", true, func(ctx context.Context) (health.Status, string, error) {
		if err := sharedredis.Ping(ctx, client); err != nil {
			return health.StatusDown, "Redis unreachable", err
		}
		return health.StatusUp, "Redis connection is established", nil
	})
	return nil
}

func (c *Container) setupEngine(override ai.Engine) error {
	if override != nil {
		c.Engine = override
		return nil
	}

	guarded, err := ai.NewEngine(c.Config, c.Logger)
	if err != nil {
		return err
	}
	c.Engine = guarded
	c.Breaker = guarded.Breaker()

	c.Health.RegisterCheck("analysis_engine", false, func(ctx context.Context) (health.Status, string, error) {
		if c.Breaker.State() == resilience.StateOpen {
			return health.StatusDegraded, "Circuit open after repeated failures", nil
		}
		return health.StatusUp, "Circuit " + string(c.Breaker.State()), nil
	})
	return nil
}

func (c *Container) setupArchive(ctx context.Context) error {
	s := c.Config.Storage
	if !s.Enabled {
		c.Archive = storage.NopArchive{}
		return nil
	}

	archive, err := storage.NewMinioArchive(ctx, s.Endpoint, s.AccessKey, s.SecretKey, s.Bucket, s.UseSSL)
	if err != nil {
		return fmt.Errorf("connect to report storage: %w", err)
	}
	c.Archive = archive

	c.Health.RegisterCheck("report_storage", false, func(ctx context.Context) (health.Status, string, error) {
		if err := archive.Ping(ctx); err != nil {
			return health.StatusDegraded, "Report archive unreachable", err
		}
		return health.StatusUp, "Report archive reachable", nil
	})
	return nil
}

// Close releases everything the container opened, newest first
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
