package app

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/stillmind/meditation-service/internal/config"
	"github.com/stillmind/meditation-service/internal/handler"
	"github.com/stillmind/meditation-service/internal/server"
	"github.com/stillmind/meditation-service/pkg/auth"
	"github.com/stillmind/meditation-service/pkg/content"
	"github.com/stillmind/meditation-service/pkg/entitlement"
	"github.com/stillmind/meditation-service/pkg/habit"
	"github.com/stillmind/meditation-service/pkg/player"
	"github.com/stillmind/meditation-service/pkg/purchase"
	"github.com/stillmind/meditation-service/pkg/store"
)

// App holds all application dependencies and manages the application lifecycle.
type App struct {
	cfg               *config.Config
	apiServer         *server.APIServer
	metricsServer     *server.MetricsServer
	redisClient       *redis.Client
	playerManager     *player.Manager
	shutdownTelemetry func(context.Context) error
}

// New creates and initializes a new application instance. Components are
// initialized in dependency order: Redis, stores, content catalog, purchase
// client, domain services, servers, telemetry.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logrus.Info("initializing application...")

	app := &App{cfg: cfg}

	if err := app.initRedis(ctx); err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	kv := store.NewRedisStore(app.redisClient, store.RedisStoreConfig{})

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %w", cfg.Timezone, err)
	}

	catalog, err := app.initCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init content catalog: %w", err)
	}

	purchaseClient := app.initPurchaseClient(ctx, kv)

	authService := auth.NewService(kv)
	habitTracker := habit.NewTracker(habit.NewRepository(kv), habit.TrackerConfig{Location: location})
	entitlementManager := entitlement.NewManager(kv, purchaseClient)
	app.playerManager = player.NewManager(habitTracker)

	h := handler.New(authService, catalog, app.playerManager, entitlementManager, habitTracker)

	app.apiServer = server.NewAPIServer(cfg.APIPort, h)
	if err := app.apiServer.Setup(); err != nil {
		return nil, fmt.Errorf("failed to setup API server: %w", err)
	}

	app.metricsServer = server.NewMetricsServer(cfg.MetricsPort, "/metrics")
	if err := app.metricsServer.Setup(); err != nil {
		return nil, fmt.Errorf("failed to setup metrics server: %w", err)
	}

	if cfg.OtelEnabled {
		shutdownTelemetry, err := server.SetupTelemetry(ctx, cfg.ServiceName, cfg.Environment, cfg.OtelEndpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to setup telemetry: %w", err)
		}
		app.shutdownTelemetry = shutdownTelemetry
	}

	logrus.Info("application initialized successfully")

	return app, nil
}

// initRedis initializes the Redis client, retrying the initial ping with
// exponential backoff.
func (a *App) initRedis(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:         a.cfg.RedisHost + ":" + a.cfg.RedisPort,
		Password:     a.cfg.RedisPassword,
		DB:           0, // use default DB
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	b := backoff.NewExponentialBackOff()
	maxRetries := backoff.WithMaxRetries(b, uint64(a.cfg.RedisMaxRetries))

	err := backoff.Retry(
		func() error {
			_, err := client.Ping(ctx).Result()
			if err != nil {
				logrus.Warnf("Redis connection failed: %v, retrying...", err)
				return err
			}
			return nil
		},
		maxRetries,
	)

	if err != nil {
		return err
	}

	a.redisClient = client
	logrus.Info("Redis client initialized")
	return nil
}

// initCatalog loads the bundled fallback list, then tries the remote catalog
// once at startup. Browsing works even when the content backend is down.
func (a *App) initCatalog(ctx context.Context) (*content.Source, error) {
	fallback, err := content.LoadFallbackCatalog(a.cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load fallback catalog from %s: %w", a.cfg.CatalogPath, err)
	}
	logrus.Infof("loaded %d fallback sessions from %s", len(fallback), a.cfg.CatalogPath)

	remote := content.NewRemoteCatalog(content.RemoteCatalogConfig{BaseURL: a.cfg.ContentBaseURL})
	catalog := content.NewSource(remote, fallback, content.SourceConfig{
		AssetBaseURL: a.cfg.AssetBaseURL,
	})
	catalog.Refresh(ctx)

	return catalog, nil
}

// initPurchaseClient probes the configured purchase backend and falls back to
// the demo client when it is unset or unreachable.
func (a *App) initPurchaseClient(ctx context.Context, kv store.Store) purchase.Client {
	remote, err := purchase.NewRemoteClient(purchase.RemoteClientConfig{
		BaseURL: a.cfg.PurchaseBaseURL,
		APIKey:  a.cfg.PurchaseAPIKey,
	})
	if err != nil {
		logrus.Warnf("purchase backend not configured, running in demo mode: %v", err)
		return a.newDemoClient(kv)
	}

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := remote.Ping(probeCtx); err != nil {
		logrus.Warnf("purchase backend unreachable, running in demo mode: %v", err)
		return a.newDemoClient(kv)
	}

	logrus.Info("purchase client initialized against remote backend")
	return remote
}

func (a *App) newDemoClient(kv store.Store) purchase.Client {
	return purchase.NewDemoClient(kv, purchase.DemoClientConfig{
		PurchaseDelay: time.Duration(a.cfg.DemoPurchaseDelayMs) * time.Millisecond,
	})
}
