package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/artfeed/internal/repository/rdb"
)

const (
	defaultAddress        = ":9090"
	defaultTimeout        = 30 * time.Second
	defaultCacheDB        = 0
	defaultBloomBitSize   = 10000000
	defaultFlushInterval  = 10 * time.Second
	defaultStreamBuffer   = 64
	defaultRetryAttempts  = 10
	defaultRetryBaseDelay = time.Second
	defaultRetryMaxDelay  = 5 * time.Minute
	defaultNamespace      = "artfeed"
	defaultInstallID      = "artfeed"

	RealtimeRedis    = "redis"
	RealtimePostgres = "postgres"
	RealtimeNone     = "none"
)

type Config struct {
	ServerAddress  string
	ContextTimeout time.Duration

	Database rdb.Config

	CacheAddr string
	CachePass string
	CacheDB   int

	BloomBitSize uint64

	LikesFlushInterval  time.Duration
	LikesStreamBuffer   int
	LikesRetryAttempts  int
	LikesRetryBaseDelay time.Duration
	LikesRetryMaxDelay  time.Duration

	// LikesInstallID names the durable pending queue and must survive restarts.
	LikesInstallID string
	// LikesInstanceID stamps the writes of this run on the change feed.
	LikesInstanceID string

	RealtimeSource  string
	RealtimeChannel string

	MetricsNamespace string
	LogLevel         string
	LogFormat        string
}

// LoadEnv reads a .env file into the environment if there is one
func LoadEnv(files ...string) {
	err := godotenv.Load(files...)
	if errors.Is(err, fs.ErrNotExist) {
		logrus.Info("no .env file found, using process environment")
		return
	}
	if err != nil {
		logrus.Warnf("failed to load .env file: %v", err)
	}
}

// Load builds the configuration from environment variables.
// Values that are missing or fail to parse fall back to their defaults.
func Load() Config {
	dialect := os.Getenv("DATABASE_DIALECT")
	if dialect == "" {
		dialect = rdb.DialectMySQL
	}

	c := Config{
		ServerAddress:  getString("SERVER_ADDRESS", defaultAddress),
		ContextTimeout: getSeconds("CONTEXT_TIMEOUT", defaultTimeout),
		Database: rdb.Config{
			Dialect: dialect,
			Host:    os.Getenv("DATABASE_HOST"),
			Port:    os.Getenv("DATABASE_PORT"),
			User:    os.Getenv("DATABASE_USER"),
			Pass:    os.Getenv("DATABASE_PASS"),
			Name:    os.Getenv("DATABASE_NAME"),
			SSLMode: os.Getenv("DATABASE_SSLMODE"),
		},
		CacheAddr: os.Getenv("CACHE_HOST") + ":" + os.Getenv("CACHE_PORT"),
		CachePass: os.Getenv("CACHE_PASS"),
		CacheDB:   getInt("CACHE_DB", defaultCacheDB),

		LikesFlushInterval:  getDuration("LIKES_FLUSH_INTERVAL", defaultFlushInterval),
		LikesInstallID:      os.Getenv("LIKES_INSTALL_ID"),
		LikesInstanceID:     os.Getenv("LIKES_INSTANCE_ID"),
		LikesStreamBuffer:   getInt("LIKES_STREAM_BUFFER", defaultStreamBuffer),
		LikesRetryAttempts:  getInt("LIKES_RETRY_MAX_ATTEMPTS", defaultRetryAttempts),
		LikesRetryBaseDelay: getDuration("LIKES_RETRY_BASE_DELAY", defaultRetryBaseDelay),
		LikesRetryMaxDelay:  getDuration("LIKES_RETRY_MAX_DELAY", defaultRetryMaxDelay),

		RealtimeSource:  getString("REALTIME_SOURCE", RealtimeRedis),
		RealtimeChannel: os.Getenv("REALTIME_CHANNEL"),

		MetricsNamespace: getString("METRICS_NAMESPACE", defaultNamespace),
		LogLevel:         getString("LOG_LEVEL", "info"),
		LogFormat:        getString("LOG_FORMAT", "text"),
	}

	bloomBitSize, err := strconv.ParseUint(os.Getenv("BLOOM_FILTER_SIZE"), 10, 64)
	if err != nil || bloomBitSize == 0 {
		logrus.Debug("failed to parse BLOOM_FILTER_SIZE, using default size")
		bloomBitSize = defaultBloomBitSize
	}
	c.BloomBitSize = bloomBitSize

	if c.LikesInstallID == "" {
		c.LikesInstallID = hostInstallID()
		logrus.Infof("LIKES_INSTALL_ID not set, using %s", c.LikesInstallID)
	}
	if c.LikesInstanceID == "" {
		c.LikesInstanceID = uuid.NewString()
		logrus.Infof("LIKES_INSTANCE_ID not set, using %s for this run", c.LikesInstanceID)
	}

	switch c.RealtimeSource {
	case RealtimeRedis, RealtimePostgres, RealtimeNone:
	default:
		logrus.Warnf("unknown REALTIME_SOURCE %q, realtime updates disabled", c.RealtimeSource)
		c.RealtimeSource = RealtimeNone
	}
	return c
}

// hostInstallID falls back to the host name, which is stable across restarts
// of a process on the same machine.
func hostInstallID() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		logrus.Warnf("failed to read host name, using %q as install id: %v", defaultInstallID, err)
		return defaultInstallID
	}
	return name
}

// ConfigureLogging applies LOG_LEVEL and LOG_FORMAT to the standard logger
func (c Config) ConfigureLogging() {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logrus.Warnf("invalid LOG_LEVEL %q, using info", c.LogLevel)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if c.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		logrus.Warnf("failed to parse %s, using default %d", key, def)
		return def
	}
	return v
}

// getSeconds reads a plain number of seconds
func getSeconds(key string, def time.Duration) time.Duration {
	n := getInt(key, -1)
	if n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		logrus.Warnf("failed to parse %s, using default %s", key, def)
		return def
	}
	return d
}
