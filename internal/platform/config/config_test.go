package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MP_DATABASE_URL", "postgres://localhost/mp")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, time.Minute, cfg.Consolidation.Interval)
	assert.Equal(t, 100, cfg.Outbox.BatchSize)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"MP_DATABASE_URL=postgres://db/mp\nMP_KAFKA_BROKERS=k1:9092, k2:9092\nMP_OUTBOX_INTERVAL=250ms\n",
	), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("MP_DATABASE_URL")
		os.Unsetenv("MP_KAFKA_BROKERS")
		os.Unsetenv("MP_OUTBOX_INTERVAL")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://db/mp", cfg.Postgres.DSN)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 250*time.Millisecond, cfg.Outbox.Interval)
}

func TestLoadRejects(t *testing.T) {
	t.Run("missing database url", func(t *testing.T) {
		t.Setenv("MP_DATABASE_URL", "")
		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DSN")
	})

	t.Run("malformed duration", func(t *testing.T) {
		t.Setenv("MP_DATABASE_URL", "postgres://localhost/mp")
		t.Setenv("MP_CONSOLIDATION_INTERVAL", "soon")
		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MP_CONSOLIDATION_INTERVAL")
	})

	t.Run("unknown log level", func(t *testing.T) {
		t.Setenv("MP_DATABASE_URL", "postgres://localhost/mp")
		t.Setenv("MP_LOG_LEVEL", "loud")
		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Level")
	})

	t.Run("missing env file is ignored", func(t *testing.T) {
		t.Setenv("MP_DATABASE_URL", "postgres://localhost/mp")
		_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
		require.NoError(t, err)
	})
}
