package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/pkg/config"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Cache.DefaultTTL)
	assert.Equal(t, 3, cfg.Ledger.MaxRetries)
	assert.Equal(t, 10*time.Millisecond, cfg.Ledger.RetryBackoff)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Empty(t, cfg.Kafka.InstanceID)
	assert.Zero(t, cfg.Reconcile.Interval)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestLoad_LeeVariablesDeEntorno(t *testing.T) {
	t.Setenv("STORE_DRIVER", "MEMORY")
	t.Setenv("CACHE_DEFAULT_TTL", "30s")
	t.Setenv("CACHE_TTL_RULES", "products=5s")
	t.Setenv("LEDGER_RETRY_BACKOFF", "25")
	t.Setenv("LEDGER_MAX_RETRIES", "5")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("KAFKA_INSTANCE_ID", "api-1")
	t.Setenv("RECONCILE_INTERVAL", "1h")
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 30*time.Second, cfg.Cache.DefaultTTL)
	assert.Equal(t, "products=5s", cfg.Cache.TTLRules)
	assert.Equal(t, 25*time.Millisecond, cfg.Ledger.RetryBackoff)
	assert.Equal(t, 5, cfg.Ledger.MaxRetries)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, "api-1", cfg.Kafka.InstanceID)
	assert.Equal(t, time.Hour, cfg.Reconcile.Interval)
	assert.Equal(t, 9090, cfg.HTTP.Port)
}

func TestLoad_DriverInvalido(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestDBConfig_DSNEscapaPassword(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss", DBName: "x", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss@db:5432/x?sslmode=disable", c.DSN())

	c.DatabaseURL = "postgres://otro"
	assert.Equal(t, "postgres://otro", c.ConnectionString())
}
