package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	accountingapp "github.com/safee-analytics/odoo/internal/application/accounting"
	apikeyapp "github.com/safee-analytics/odoo/internal/application/apikey"
	appauth "github.com/safee-analytics/odoo/internal/application/auth"
	brandingapp "github.com/safee-analytics/odoo/internal/application/branding"
	businessapp "github.com/safee-analytics/odoo/internal/application/business"
	"github.com/safee-analytics/odoo/internal/application/dbmanager"
	"github.com/safee-analytics/odoo/internal/application/records"
	webhookapp "github.com/safee-analytics/odoo/internal/application/webhook"
	"github.com/safee-analytics/odoo/internal/domain/partner"
	"github.com/safee-analytics/odoo/internal/domain/shared"
	"github.com/safee-analytics/odoo/internal/infrastructure/auth"
	"github.com/safee-analytics/odoo/internal/infrastructure/cache"
	"github.com/safee-analytics/odoo/internal/infrastructure/config"
	"github.com/safee-analytics/odoo/internal/infrastructure/logger"
	"github.com/safee-analytics/odoo/internal/infrastructure/messaging"
	"github.com/safee-analytics/odoo/internal/infrastructure/migration"
	"github.com/safee-analytics/odoo/internal/infrastructure/odoo"
	"github.com/safee-analytics/odoo/internal/infrastructure/persistence"
	"github.com/safee-analytics/odoo/internal/infrastructure/persistence/models"
	"github.com/safee-analytics/odoo/internal/infrastructure/pgadmin"
	"github.com/safee-analytics/odoo/internal/infrastructure/printing"
	"github.com/safee-analytics/odoo/internal/infrastructure/session"
	"github.com/safee-analytics/odoo/internal/infrastructure/storage"
	"github.com/safee-analytics/odoo/internal/infrastructure/telemetry"
	"github.com/safee-analytics/odoo/internal/interfaces/http/handler"
	"github.com/safee-analytics/odoo/internal/interfaces/http/middleware"
	"github.com/safee-analytics/odoo/internal/interfaces/http/router"
	"github.com/safee-analytics/odoo/migrations"
)

const slowQueryThreshold = 200 * time.Millisecond

// app owns every long-lived collaborator of the server. closers run in
// reverse order on shutdown.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	metrics *telemetry.Metrics
	meters  *telemetry.MeterProvider

	odoo       *odoo.Client
	db         *persistence.Database
	redis      *redis.Client
	dispatcher *webhookapp.Dispatcher
	dbManager  *dbmanager.Service
	engine     *router.Engine

	closers []func(ctx context.Context) error
}

func (a *app) onClose(fn func(ctx context.Context) error) {
	a.closers = append(a.closers, fn)
}

func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.Error("Error during shutdown", zap.Error(err))
		}
	}
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log, metrics: telemetry.NewMetrics()}
	if err := a.initTelemetry(ctx); err != nil {
		a.close(ctx)
		return nil, err
	}
	if err := a.initStores(ctx); err != nil {
		a.close(ctx)
		return nil, err
	}
	if err := a.initServices(ctx); err != nil {
		a.close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *app) initTelemetry(ctx context.Context) error {
	tp, err := telemetry.NewTracerProvider(ctx, a.cfg.Telemetry, version, a.log)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	a.onClose(tp.Shutdown)

	mp, err := telemetry.NewMeterProvider(ctx, a.cfg.Telemetry, version, a.log)
	if err != nil {
		return fmt.Errorf("metrics export: %w", err)
	}
	a.meters = mp
	a.onClose(mp.Shutdown)

	profiler, err := telemetry.NewProfiler(a.cfg.Telemetry, a.log)
	if err != nil {
		return fmt.Errorf("profiling: %w", err)
	}
	a.onClose(func(context.Context) error { return profiler.Stop() })
	if profiler.Enabled() && tp.Enabled() {
		tp.EnableSpanProfiles()
	}
	return nil
}

func (a *app) initStores(ctx context.Context) error {
	cfg, log := a.cfg, a.log

	client, err := odoo.NewClient(cfg.Odoo.URL,
		odoo.WithTimeout(cfg.Odoo.Timeout),
		odoo.WithSkipTLSVerify(cfg.Odoo.SkipTLSVerify),
		odoo.WithLogger(log.Named("odoo")),
		odoo.WithObserver(a.metrics),
	)
	if err != nil {
		return fmt.Errorf("odoo client: %w", err)
	}
	a.odoo = client
	a.onClose(func(context.Context) error { return client.Close() })

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.GormLevel),
		logger.WithSlowThreshold(slowQueryThreshold))
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		return err
	}
	a.db = db
	a.onClose(func(context.Context) error { return db.Close() })
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	if _, err := telemetry.RegisterPoolMetrics(a.meters.Meter("odoo-gateway/persistence"), "gateway", func() (telemetry.PoolStats, error) {
		s, err := db.Stats()
		return telemetry.PoolStats{MaxOpen: s.MaxOpenConnections, InUse: s.InUse, Idle: s.Idle, WaitCount: s.WaitCount}, err
	}); err != nil {
		return fmt.Errorf("pool metrics: %w", err)
	}

	if cfg.Telemetry.DBTraceEnabled {
		tracing := telemetry.NewDBTracing(dbSystem(cfg.Database.Driver), slowQueryThreshold, log)
		if err := tracing.Register(db.DB); err != nil {
			return fmt.Errorf("database tracing: %w", err)
		}
	}

	if err := migrateStore(db, &cfg.Database, log); err != nil {
		return err
	}

	if cfg.Redis.Enabled {
		rdb, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			return err
		}
		a.redis = rdb
		a.onClose(func(context.Context) error { return rdb.Close() })
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}
	return nil
}

func dbSystem(driver string) string {
	if driver == "sqlite" {
		return "sqlite"
	}
	return "postgresql"
}

// migrateStore applies the embedded migrations on postgres through a
// dedicated connection, since closing the migrator closes its *sql.DB.
// sqlite stores are for development and get their tables from the models.
func migrateStore(db *persistence.Database, cfg *config.DatabaseConfig, log *zap.Logger) error {
	if cfg.Driver == "sqlite" {
		return db.DB.AutoMigrate(models.All()...)
	}
	sqlDB, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	m, err := migration.New(sqlDB, migrations.FS, log)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()
	return m.Up()
}

func (a *app) initServices(ctx context.Context) error {
	cfg, log := a.cfg, a.log

	sealer, err := session.NewSealer(cfg.Session.Key)
	if err != nil {
		return fmt.Errorf("session key: %w", err)
	}
	var (
		sessions       session.Store
		blacklist      auth.TokenBlacklist
		discoveryCache cache.DiscoveryCache
		idempotency    shared.IdempotencyStore
	)
	if a.redis != nil {
		sessions = session.NewRedisStore(a.redis, sealer)
		blacklist = auth.NewRedisTokenBlacklist(a.redis)
		discoveryCache = cache.NewFallbackDiscoveryCache(cache.NewRedisDiscoveryCache(a.redis), log)
		idempotency = cache.NewRedisIdempotencyStore(a.redis)
	} else {
		log.Warn("Redis disabled, sessions and revoked tokens are kept in memory")
		sessions = session.NewMemoryStore(sealer)
		blacklist = auth.NewInMemoryTokenBlacklist()
		discoveryCache = cache.NewInMemoryDiscoveryCache()
		keys := cache.NewInMemoryIdempotencyStore()
		a.onClose(func(context.Context) error { return keys.Close() })
		idempotency = keys
	}

	publisher := messaging.NewPublisher(cfg.Kafka, log)
	a.onClose(func(context.Context) error { return publisher.Close() })

	a.dispatcher = webhookapp.NewDispatcher(cfg.Webhook,
		webhookapp.WithDeliveryLog(persistence.NewGormWebhookDeliveryRepository(a.db.DB)),
		webhookapp.WithPublisher(publisher),
		webhookapp.WithMetrics(a.metrics),
		webhookapp.WithLogger(log.Named("webhook")),
	)
	a.dispatcher.Start()
	a.onClose(a.dispatcher.Stop)

	renderer := printing.PDFRenderer(printing.DisabledRenderer{})
	if cfg.Printing.Enabled {
		chrome := printing.NewChromedpRenderer(cfg.Printing, log.Named("printing"))
		a.onClose(func(context.Context) error { return chrome.Close() })
		renderer = chrome
	}
	acctOpts := []accountingapp.Option{accountingapp.WithRenderer(renderer)}
	if cfg.Storage.Enabled {
		store, err := storage.NewS3Store(&cfg.Storage,
			storage.WithLogger(log.Named("storage")),
			storage.WithPresignExpiration(cfg.Storage.PresignExpiration),
		)
		if err != nil {
			return fmt.Errorf("object storage: %w", err)
		}
		acctOpts = append(acctOpts, accountingapp.WithArtifactStore(store, cfg.Storage.PresignExpiration))
	}

	admin := pgadmin.New(cfg.OdooPostgres, pgadmin.WithLogger(log.Named("pgadmin")))
	a.onClose(func(context.Context) error { return admin.Close() })

	jwtService := auth.NewJWTService(cfg.JWT)
	authService := appauth.NewAuthService(a.odoo, jwtService, sessions, blacklist,
		cfg.Odoo.DefaultDB, cfg.Session.TTL, log.Named("auth"))
	keyService := apikeyapp.NewService(a.odoo, admin,
		persistence.NewGormAPIKeyRepository(a.db.DB), cfg.APIKey, log.Named("apikey"))

	recordService := records.NewService(a.odoo, log.Named("records"),
		records.WithNotifier(a.dispatcher),
		records.WithNamesOrder(partner.ParseNamesOrder(cfg.Odoo.NamesOrder)),
		records.WithNamesRequired(partner.ParseRequired(cfg.Odoo.NamesRequired)),
		records.WithDefaultLimit(cfg.Odoo.ListLimit),
	)
	discovery := records.NewDiscovery(a.odoo, discoveryCache, log.Named("discovery"))
	accounting := accountingapp.NewService(a.odoo, log.Named("accounting"), acctOpts...)
	business := businessapp.NewService(a.odoo, accounting, log.Named("business"))
	branding := brandingapp.NewService(a.odoo, log.Named("branding"))

	a.dbManager = dbmanager.NewService(cfg.DBManager, a.odoo, admin,
		persistence.NewGormDuplicationJobRepository(a.db.DB), a.dispatcher, a.metrics, log.Named("dbmanager"))
	if err := a.dbManager.Recover(ctx); err != nil {
		log.Warn("Failed to recover duplication jobs", zap.Error(err))
	}
	a.onClose(a.dbManager.Shutdown)

	a.engine = router.NewEngine(cfg, router.EngineDeps{
		Logger:  log,
		Metrics: a.metrics,
		Handlers: router.Handlers{
			Auth:       handler.NewAuthHandler(authService),
			APIKey:     handler.NewAPIKeyHandler(keyService),
			Records:    handler.NewRecordsHandler(recordService),
			Discovery:  handler.NewDiscoveryHandler(discovery),
			Accounting: handler.NewAccountingHandler(accounting),
			Business:   handler.NewBusinessHandler(business),
			Branding:   handler.NewBrandingHandler(branding),
			Webhook:    handler.NewWebhookHandler(a.dispatcher),
			DBManager:  handler.NewDBManagerHandler(a.dbManager),
			System:     handler.NewSystemHandler(cfg.App.Name, version, a.healthChecks()...),
		},
		Guards: router.Guards{
			Authenticate: middleware.Authenticate(middleware.AuthConfig{
				Tokens: authService,
				Keys:   keyService,
				Logger: log,
			}),
		},
		Idempotency: idempotency,
		Version:     version,
	})
	a.onClose(func(context.Context) error {
		a.engine.Close()
		return nil
	})
	return nil
}

func (a *app) healthChecks() []handler.HealthCheck {
	checks := []handler.HealthCheck{
		{Name: "database", Check: a.db.Ping},
		{Name: "odoo", Check: func(ctx context.Context) error {
			_, err := a.odoo.ServerVersion(ctx)
			return err
		}},
	}
	if a.redis != nil {
		checks = append(checks, handler.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		}})
	}
	return checks
}
