package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "STORAGE_DRIVER", "KAFKA_BROKERS", "RETRY_BACKOFF", "S3_ENDPOINT", "DEFAULT_CURRENCY", "MAX_BULK_RANGE_DAYS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.Equal(t, 366, cfg.MaxBulkRangeDays)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.S3Enabled())
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "Postgres")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/roomledger")
	t.Setenv("POSTGRES_MAX_CONNS", "4")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("OUTBOX_POLL_INTERVAL", "2s")
	t.Setenv("S3_ENDPOINT", "localhost:9000")
	t.Setenv("S3_USE_SSL", "yes")
	t.Setenv("DEFAULT_CURRENCY", "eur")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.StorageDriver)
	assert.Equal(t, 4, cfg.PostgresMaxConns)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 2*time.Second, cfg.OutboxPollInterval)
	assert.True(t, cfg.S3UseSSL)
	assert.True(t, cfg.S3Enabled())
	assert.Equal(t, "localhost:9000", cfg.S3PublicEndpoint)
	assert.Equal(t, "EUR", cfg.DefaultCurrency)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "postgres without dsn", env: map[string]string{"STORAGE_DRIVER": "postgres", "POSTGRES_DSN": ""}},
		{name: "mongo without uri", env: map[string]string{"STORAGE_DRIVER": "mongo", "MONGO_URI": ""}},
		{name: "unknown driver", env: map[string]string{"STORAGE_DRIVER": "redis"}},
		{name: "bad duration", env: map[string]string{"IDEMP_TTL": "forever"}},
		{name: "bad backoff", env: map[string]string{"RETRY_BACKOFF": "1s,soon"}},
		{name: "bad int", env: map[string]string{"MAX_BULK_RANGE_DAYS": "many"}},
		{name: "zero range", env: map[string]string{"MAX_BULK_RANGE_DAYS": "0"}},
		{name: "bad bool", env: map[string]string{"S3_USE_SSL": "maybe"}},
		{name: "bad currency", env: map[string]string{"DEFAULT_CURRENCY": "EURO"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
