package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "PORT", "KAFKA_ADDRS", "LOG_LEVEL", "HTTP_WRITE"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load(WithWriteTimeout(time.Minute), WithLogLevel(zapcore.DebugLevel))
	require.NoError(t, err)
	require.Equal(t, "localhost", cfg.Database.Host)
	require.Equal(t, 5432, cfg.Database.Port)
	require.Equal(t, "postgres", cfg.Database.Username)
	require.Equal(t, "postgres", cfg.Database.Password)
	require.Equal(t, "appdb", cfg.Database.NameDB)
	require.Equal(t, int32(10), cfg.Database.MaxConns)
	require.Equal(t, 5*time.Second, cfg.Database.ConnectTimeout)
	require.Equal(t, "3001", cfg.Server.Port)
	require.Equal(t, time.Minute, cfg.Server.WriteTimeout)
	require.Equal(t, 200*time.Millisecond, cfg.Server.ShutdownDelay)
	require.Equal(t, zapcore.DebugLevel, cfg.Log.LogLevel)
	require.False(t, cfg.Kafka.Enabled())
	require.Equal(t, "bookshelf.books", cfg.Kafka.Topic)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_NAME", "library")
	t.Setenv("PORT", "8080")
	t.Setenv("KAFKA_ADDRS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "db", cfg.Database.Host)
	require.Equal(t, 6543, cfg.Database.Port)
	require.Equal(t, "library", cfg.Database.NameDB)
	require.Equal(t, "8080", cfg.Server.Port)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Addrs)
	require.True(t, cfg.Kafka.Enabled())
}
