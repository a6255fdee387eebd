package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
server:
  addr: ":9090"
db:
  dsn: "postgres://localhost/test"
sweeps:
  order_grace_minutes: 20
  reservation_timeout_minutes: 45
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "postgres://localhost/test", cfg.DB.DSN)
	assert.Equal(t, 20*time.Minute, cfg.OrderGracePeriod())
	assert.Equal(t, 45*time.Minute, cfg.ReservationTimeout())
}

func TestLoadEnvOnly(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("SERVER_ADDR", ":8081")
	t.Setenv("DB_DSN", "postgres://localhost/envdb")
	t.Setenv("ASAAS_WEBHOOK_TOKEN", "tok")
	t.Setenv("ORDER_GRACE_MINUTES", "10")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.Server.Addr)
	assert.Equal(t, "postgres://localhost/envdb", cfg.DB.DSN)
	assert.Equal(t, "tok", cfg.Webhook.AsaasToken)
	assert.Equal(t, 10*time.Minute, cfg.OrderGracePeriod())
	// untouched windows fall back to defaults
	assert.Equal(t, 30*time.Minute, cfg.ReservationTimeout())
	assert.Equal(t, 5*time.Minute, cfg.OrderSweepInterval())
}

func TestLoadRequiresAddrAndDSN(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("SERVER_ADDR", "")
	t.Setenv("DB_DSN", "")

	_, err := Load("")
	require.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
server:
  addr: ":9090"
db:
  dsn: "postgres://localhost/filedb"
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	t.Setenv("DB_DSN", "postgres://localhost/envdb")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/envdb", cfg.DB.DSN)
}
