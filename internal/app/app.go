package app

import (
	"context"
	"fmt"

	"github.com/johnrirwin/channelfeed/internal/auth"
	"github.com/johnrirwin/channelfeed/internal/cache"
	"github.com/johnrirwin/channelfeed/internal/config"
	"github.com/johnrirwin/channelfeed/internal/database"
	"github.com/johnrirwin/channelfeed/internal/httpapi"
	"github.com/johnrirwin/channelfeed/internal/logging"
	"github.com/johnrirwin/channelfeed/internal/query"
	"github.com/johnrirwin/channelfeed/internal/ratelimit"
	"github.com/johnrirwin/channelfeed/internal/threshold"
	"github.com/johnrirwin/channelfeed/internal/timeline"
)

// App holds all application dependencies
type App struct {
	Config         *config.Config
	Logger         *logging.Logger
	Cache          cache.Cache
	Source         query.DataSource
	Composer       *timeline.Composer
	AuthService    *auth.Service
	AuthMiddleware *auth.Middleware
	HTTPServer     *httpapi.Server
	db             *database.DB
	limiter        ratelimit.RateLimiter
}

// New creates and initializes a new App instance
func New(cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	app.Logger = logging.New(logging.ParseLevel(cfg.Logging.Level))
	app.Cache = app.initCache()

	if err := app.initSource(); err != nil {
		app.closeCache()
		return nil, err
	}

	app.initTimeline()
	app.initServers()

	return app, nil
}

// Run serves HTTP until the server stops
func (a *App) Run(ctx context.Context) error {
	a.Logger.Info("Starting HTTP server", logging.WithField("addr", a.Config.Server.HTTPAddr))
	return a.HTTPServer.Start(a.Config.Server.HTTPAddr)
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error("HTTP server shutdown error", logging.WithField("error", err.Error()))
		}
	}

	a.closeCache()

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Logger.Error("Database close error", logging.WithField("error", err.Error()))
		}
	}

	return nil
}

func (a *App) initCache() cache.Cache {
	switch a.Config.Cache.Backend {
	case "redis":
		a.Logger.Info("Using Redis threshold cache", logging.WithField("addr", a.Config.Cache.RedisAddr))
		redisCache, err := cache.NewRedis(cache.RedisConfig{
			Addr:   a.Config.Cache.RedisAddr,
			Prefix: a.Config.Cache.RedisPrefix,
		}, a.Config.Cache.TTL)
		if err != nil {
			a.Logger.Error("Failed to connect to Redis, falling back to memory cache", logging.WithField("error", err.Error()))
			a.initLimiter(nil)
			return cache.NewMemory(a.Config.Cache.TTL)
		}
		a.initLimiter(redisCache)
		return redisCache
	default:
		a.Logger.Info("Using in-memory threshold cache")
		a.initLimiter(nil)
		return cache.NewMemory(a.Config.Cache.TTL)
	}
}

// initLimiter shares request throttling through Redis when available
func (a *App) initLimiter(redisCache *cache.RedisCache) {
	interval := a.Config.Server.MinRequestInterval
	if interval <= 0 {
		return
	}
	if redisCache != nil {
		a.limiter = ratelimit.NewRedis(redisCache.Client(), a.Config.Cache.RedisPrefix+"ratelimit:", interval)
		a.Logger.Info("Using Redis for distributed request throttling")
		return
	}
	a.limiter = ratelimit.New(interval)
}

func (a *App) closeCache() {
	switch c := a.Cache.(type) {
	case *cache.MemoryCache:
		c.Stop()
	case *cache.RedisCache:
		if err := c.Close(); err != nil {
			a.Logger.Error("Redis close error", logging.WithField("error", err.Error()))
		}
	}
}

// initSource opens Postgres when a host is configured and falls back to the
// in-memory store otherwise
func (a *App) initSource() error {
	if a.Config.Database.Host == "" {
		a.Logger.Warn("No database host configured, serving from the in-memory store")
		a.Source = database.NewMemoryStore()
		return nil
	}

	dbConfig := database.DefaultConfig()
	dbConfig.Host = a.Config.Database.Host
	dbConfig.Port = a.Config.Database.Port
	dbConfig.User = a.Config.Database.User
	dbConfig.Password = a.Config.Database.Password
	dbConfig.Database = a.Config.Database.Database
	dbConfig.SSLMode = a.Config.Database.SSLMode

	db, err := database.New(dbConfig)
	if err != nil {
		return fmt.Errorf("connect to PostgreSQL: %w", err)
	}

	version, dirty, err := db.Migrate()
	if err != nil {
		db.Close()
		return fmt.Errorf("run migrations: %w", err)
	}
	a.Logger.Info("Connected to PostgreSQL", logging.WithFields(map[string]interface{}{
		"schema_version": version,
		"dirty":          dirty,
	}))

	a.db = db
	a.Source = database.NewPostgresSource(db.DB)
	return nil
}

func (a *App) initTimeline() {
	feed := a.Config.Feed

	thresholds := threshold.New(a.Source, a.Cache, a.Logger, feed.ThresholdTTL)
	channels := database.NewChannelStore(a.Source)
	builder := timeline.NewBuilder(thresholds, channels, timeline.BuilderConfig{
		SharerInteractionDays: feed.SharerInteractionDays,
		DefaultLanguage:       feed.DefaultLanguage,
	})
	seen := timeline.NewSeenTracker(a.Source, a.Logger)

	a.Composer = timeline.NewComposer(a.Source, builder, seen, timeline.Settings{
		ItemsPerPage:            feed.ItemsPerPage,
		ItemsPerPageMobile:      feed.ItemsPerPageMobile,
		MaxItemsPerPage:         feed.MaxItemsPerPage,
		MaxPostsPerAuthor:       feed.MaxPostsPerAuthor,
		MaxAuthorPostsCommunity: feed.MaxAuthorPostsCommunity,
		Community: timeline.CommunityPolicy{
			PageStyle:   feed.CommunityPageStyle,
			BlockPublic: feed.BlockPublic,
			SingleUser:  feed.SingleUser,
		},
	}, a.Logger)
}

func (a *App) initServers() {
	a.AuthService = auth.NewService(a.Config.Auth)
	if a.AuthService.Enabled() {
		a.AuthMiddleware = auth.NewMiddleware(a.AuthService)
		a.Logger.Info("Bearer token authentication enabled")
	} else {
		a.Logger.Warn("AUTH_JWT_SECRET not set, every request is anonymous")
	}

	feedAPI := httpapi.NewFeedAPI(
		a.Composer,
		database.NewViewerStore(a.Source),
		database.NewChannelStore(a.Source),
		a.AuthMiddleware,
		a.Config.Feed.CommunityNoSharer,
		a.Logger,
	)
	a.HTTPServer = httpapi.New(feedAPI, a.limiter, a.Config.Server.TrustProxy, a.Logger)
}
