package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guyuepp/artfeed/internal/repository/rdb"
)

var keys = []string{
	"SERVER_ADDRESS", "CONTEXT_TIMEOUT", "DATABASE_DIALECT", "DATABASE_HOST", "DATABASE_PORT",
	"CACHE_HOST", "CACHE_PORT", "CACHE_DB", "BLOOM_FILTER_SIZE",
	"LIKES_FLUSH_INTERVAL", "LIKES_INSTALL_ID", "LIKES_INSTANCE_ID", "LIKES_STREAM_BUFFER",
	"LIKES_RETRY_MAX_ATTEMPTS", "LIKES_RETRY_BASE_DELAY", "LIKES_RETRY_MAX_DELAY",
	"REALTIME_SOURCE", "REALTIME_CHANNEL", "METRICS_NAMESPACE", "LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	c := Load()
	assert.Equal(t, defaultAddress, c.ServerAddress)
	assert.Equal(t, defaultTimeout, c.ContextTimeout)
	assert.Equal(t, rdb.DialectMySQL, c.Database.Dialect)
	assert.EqualValues(t, defaultBloomBitSize, c.BloomBitSize)
	assert.Equal(t, defaultFlushInterval, c.LikesFlushInterval)
	assert.Equal(t, defaultStreamBuffer, c.LikesStreamBuffer)
	assert.Equal(t, defaultRetryAttempts, c.LikesRetryAttempts)
	assert.Equal(t, RealtimeRedis, c.RealtimeSource)
	assert.Equal(t, "artfeed", c.MetricsNamespace)

	_, err := uuid.Parse(c.LikesInstanceID)
	assert.NoError(t, err, "a random instance id is generated")
	assert.NotEmpty(t, c.LikesInstallID)
}

func TestLoadInstallIDIsStable(t *testing.T) {
	clearEnv(t)

	first, second := Load(), Load()
	assert.Equal(t, first.LikesInstallID, second.LikesInstallID)
	assert.NotEqual(t, first.LikesInstanceID, second.LikesInstanceID)

	host, err := os.Hostname()
	if err == nil && host != "" {
		assert.Equal(t, host, first.LikesInstallID)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_ADDRESS", ":8080")
	t.Setenv("CONTEXT_TIMEOUT", "5")
	t.Setenv("DATABASE_DIALECT", "postgres")
	t.Setenv("CACHE_HOST", "redis")
	t.Setenv("CACHE_PORT", "6379")
	t.Setenv("CACHE_DB", "2")
	t.Setenv("BLOOM_FILTER_SIZE", "4096")
	t.Setenv("LIKES_FLUSH_INTERVAL", "250ms")
	t.Setenv("LIKES_INSTALL_ID", "node-1")
	t.Setenv("LIKES_INSTANCE_ID", "inst-a")
	t.Setenv("LIKES_RETRY_MAX_ATTEMPTS", "0")
	t.Setenv("LIKES_RETRY_MAX_DELAY", "1m")
	t.Setenv("REALTIME_SOURCE", "postgres")

	c := Load()
	assert.Equal(t, ":8080", c.ServerAddress)
	assert.Equal(t, 5*time.Second, c.ContextTimeout)
	assert.Equal(t, rdb.DialectPostgres, c.Database.Dialect)
	assert.Equal(t, "redis:6379", c.CacheAddr)
	assert.Equal(t, 2, c.CacheDB)
	assert.EqualValues(t, 4096, c.BloomBitSize)
	assert.Equal(t, 250*time.Millisecond, c.LikesFlushInterval)
	assert.Equal(t, "node-1", c.LikesInstallID)
	assert.Equal(t, "inst-a", c.LikesInstanceID)
	assert.Equal(t, 0, c.LikesRetryAttempts)
	assert.Equal(t, time.Minute, c.LikesRetryMaxDelay)
	assert.Equal(t, RealtimePostgres, c.RealtimeSource)
}

func TestLoadFallsBackOnGarbage(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONTEXT_TIMEOUT", "soon")
	t.Setenv("CACHE_DB", "x")
	t.Setenv("LIKES_FLUSH_INTERVAL", "-3s")
	t.Setenv("REALTIME_SOURCE", "kafka")

	c := Load()
	assert.Equal(t, defaultTimeout, c.ContextTimeout)
	assert.Equal(t, defaultCacheDB, c.CacheDB)
	assert.Equal(t, defaultFlushInterval, c.LikesFlushInterval)
	assert.Equal(t, RealtimeNone, c.RealtimeSource)
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("REALTIME_CHANNEL=likes:test\n"), 0o600))
	// godotenv never overrides a variable that is already set, even to ""
	require.NoError(t, os.Unsetenv("REALTIME_CHANNEL"))

	LoadEnv(path)
	assert.Equal(t, "likes:test", Load().RealtimeChannel)

	LoadEnv(filepath.Join(t.TempDir(), "missing.env"))
}

func TestConfigureLogging(t *testing.T) {
	defer logrus.SetLevel(logrus.GetLevel())
	defer logrus.SetFormatter(&logrus.TextFormatter{})

	Config{LogLevel: "debug", LogFormat: "json"}.ConfigureLogging()
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)

	Config{LogLevel: "loud"}.ConfigureLogging()
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}
