package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/johnrirwin/channelfeed/internal/models"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Cache    CacheConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Auth     AuthConfig
	Feed     FeedConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr string
	// MinRequestInterval spaces feed requests per client address, 0 disables
	MinRequestInterval time.Duration
	// TrustProxy keys throttling on X-Forwarded-For, set only behind a proxy
	// that overwrites the header
	TrustProxy bool
}

// CacheConfig holds threshold cache configuration
type CacheConfig struct {
	Backend     string // "memory" or "redis"
	TTL         time.Duration
	RedisAddr   string
	RedisPrefix string
}

// DatabaseConfig holds PostgreSQL configuration. An empty Host runs the
// engine on the in-memory store.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// AuthConfig holds bearer token verification settings
type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
}

// FeedConfig holds the node-wide feed settings
type FeedConfig struct {
	ItemsPerPage            int
	ItemsPerPageMobile      int
	MaxItemsPerPage         int
	MaxPostsPerAuthor       float64
	MaxAuthorPostsCommunity float64
	SharerInteractionDays   int
	ThresholdTTL            time.Duration
	DefaultLanguage         string
	CommunityPageStyle      models.PageStyle
	BlockPublic             bool
	SingleUser              bool
	// CommunityNoSharer is the no_sharer default of community pages
	CommunityNoSharer bool
}

// Load parses the process flags and environment
func Load() (*Config, error) {
	return LoadFrom(os.Args[1:], os.Getenv)
}

// LoadFrom parses flags from args, then applies environment overrides read
// through getenv
func LoadFrom(args []string, getenv func(string) string) (*Config, error) {
	fs := flag.NewFlagSet("channelfeed", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	httpAddr := fs.String("http", ":8080", "HTTP server address")
	minInterval := fs.Duration("min-request-interval", 0, "Minimum delay between feed requests of one client, 0 disables")
	trustProxy := fs.Bool("trust-proxy", false, "Take the client address from X-Forwarded-For")
	cacheBackend := fs.String("cache-backend", "memory", "Threshold cache backend: memory or redis")
	cacheTTL := fs.Duration("cache-ttl", 30*time.Minute, "Default cache entry TTL")
	redisAddr := fs.String("redis-addr", "localhost:6379", "Redis server address")
	redisPrefix := fs.String("redis-prefix", "channelfeed:", "Redis key prefix")
	logLevel := fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	dbHost := fs.String("db-host", "", "PostgreSQL host, empty for the in-memory store")
	dbPort := fs.Int("db-port", 5432, "PostgreSQL port")
	dbUser := fs.String("db-user", "postgres", "PostgreSQL user")
	dbPassword := fs.String("db-password", "postgres", "PostgreSQL password")
	dbName := fs.String("db-name", "channelfeed", "PostgreSQL database name")
	dbSSLMode := fs.String("db-sslmode", "disable", "PostgreSQL SSL mode")
	perPage := fs.Int("items-per-page", 20, "Default items per page")
	perPageMobile := fs.Int("items-per-page-mobile", 20, "Default items per page on mobile")
	maxPerPage := fs.Int("max-items-per-page", 100, "Upper bound of any page size, request overrides included")
	maxPerAuthor := fs.Float64("channel-max-posts-per-author", 0, "Per-page share of one channel owner, 0 disables")
	maxCommunity := fs.Float64("community-max-author-posts", 0, "Per-page share of one community author, 0 disables")
	sharerDays := fs.Int("sharer-interaction-days", 90, "Interaction window of the sharers-of-sharers channel")
	thresholdTTL := fs.Duration("threshold-ttl", 30*time.Minute, "Threshold cache TTL")
	defaultLanguage := fs.String("default-language", "en", "Language used when a viewer has none")
	pageStyle := fs.String("community-page-style", "local", "Community page style: disabled, disabled-visitor, local, global, both")
	blockPublic := fs.Bool("block-public", false, "Hide every page from anonymous visitors")
	singleUser := fs.Bool("single-user", false, "Node serves a single account")
	communityNoSharer := fs.Bool("community-no-sharer", false, "Hide community items the viewer already holds")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	env := envReader{getenv: getenv}
	env.str("HTTP_ADDR", httpAddr)
	env.duration("MIN_REQUEST_INTERVAL", minInterval)
	env.boolean("TRUST_PROXY", trustProxy)
	env.str("CACHE_BACKEND", cacheBackend)
	env.duration("CACHE_TTL", cacheTTL)
	env.str("REDIS_ADDR", redisAddr)
	env.str("REDIS_PREFIX", redisPrefix)
	env.str("LOG_LEVEL", logLevel)
	env.str("DB_HOST", dbHost)
	env.integer("DB_PORT", dbPort)
	env.str("DB_USER", dbUser)
	env.str("DB_PASSWORD", dbPassword)
	env.str("DB_NAME", dbName)
	env.str("DB_SSLMODE", dbSSLMode)
	env.integer("FEED_ITEMS_PER_PAGE", perPage)
	env.integer("FEED_ITEMS_PER_PAGE_MOBILE", perPageMobile)
	env.integer("FEED_MAX_ITEMS_PER_PAGE", maxPerPage)
	env.float("CHANNEL_MAX_POSTS_PER_AUTHOR", maxPerAuthor)
	env.float("COMMUNITY_MAX_AUTHOR_POSTS", maxCommunity)
	env.integer("CHANNEL_SHARER_INTERACTION_DAYS", sharerDays)
	env.duration("THRESHOLD_TTL", thresholdTTL)
	env.str("DEFAULT_LANGUAGE", defaultLanguage)
	env.str("COMMUNITY_PAGE_STYLE", pageStyle)
	env.boolean("BLOCK_PUBLIC", blockPublic)
	env.boolean("SINGLE_USER", singleUser)
	env.boolean("COMMUNITY_NO_SHARER", communityNoSharer)
	if env.err != nil {
		return nil, env.err
	}

	style, ok := models.ParsePageStyle(*pageStyle)
	if !ok {
		return nil, fmt.Errorf("unknown community page style %q", *pageStyle)
	}
	if *maxPerPage < 1 {
		return nil, fmt.Errorf("max items per page must be positive, got %d", *maxPerPage)
	}
	if *cacheBackend != "memory" && *cacheBackend != "redis" {
		return nil, fmt.Errorf("unknown cache backend %q", *cacheBackend)
	}

	return &Config{
		Server: ServerConfig{
			HTTPAddr:           *httpAddr,
			MinRequestInterval: *minInterval,
			TrustProxy:         *trustProxy,
		},
		Cache: CacheConfig{
			Backend:     *cacheBackend,
			TTL:         *cacheTTL,
			RedisAddr:   *redisAddr,
			RedisPrefix: *redisPrefix,
		},
		Database: DatabaseConfig{
			Host:     *dbHost,
			Port:     *dbPort,
			User:     *dbUser,
			Password: *dbPassword,
			Database: *dbName,
			SSLMode:  *dbSSLMode,
		},
		Logging: LoggingConfig{Level: *logLevel},
		Auth: AuthConfig{
			JWTSecret:   getEnvOrDefault(getenv, "AUTH_JWT_SECRET", ""),
			JWTIssuer:   getEnvOrDefault(getenv, "AUTH_JWT_ISSUER", "channelfeed"),
			JWTAudience: getEnvOrDefault(getenv, "AUTH_JWT_AUDIENCE", "channelfeed-users"),
		},
		Feed: FeedConfig{
			ItemsPerPage:            *perPage,
			ItemsPerPageMobile:      *perPageMobile,
			MaxItemsPerPage:         *maxPerPage,
			MaxPostsPerAuthor:       *maxPerAuthor,
			MaxAuthorPostsCommunity: *maxCommunity,
			SharerInteractionDays:   *sharerDays,
			ThresholdTTL:            *thresholdTTL,
			DefaultLanguage:         *defaultLanguage,
			CommunityPageStyle:      style,
			BlockPublic:             *blockPublic,
			SingleUser:              *singleUser,
			CommunityNoSharer:       *communityNoSharer,
		},
	}, nil
}

func getEnvOrDefault(getenv func(string) string, key, defaultValue string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// envReader applies environment overrides and keeps the first parse error
type envReader struct {
	getenv func(string) string
	err    error
}

func (e *envReader) str(key string, dst *string) {
	if v := e.getenv(key); v != "" {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) {
	if v := e.getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) float(key string, dst *float64) {
	if v := e.getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = f
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v := e.getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = d
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	if v := e.getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = b
	}
}

func (e *envReader) fail(key string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid %s: %w", key, err)
	}
}
