package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/livefire2015/ez-rent/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ezrent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "app:\n  env: dev\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.App.Env)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, "8.00", cfg.Billing.Defaults.ElectricUnitCost)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
database:
  dsn: "postgres://file/ezrent"
billing:
  fallback_to_defaults: true
  defaults:
    electric_unit_cost: "9.25"
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
`)
	t.Setenv("EZRENT_DATABASE_DSN", "postgres://env/ezrent")
	t.Setenv("EZRENT_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "postgres://env/ezrent", cfg.Database.DSN)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Billing.FallbackToDefaults)
	assert.Equal(t, "9.25", cfg.Billing.Defaults.AsSettings()[models.SettingElectricUnitCost])
	assert.Equal(t, "10", cfg.Billing.Defaults.AsSettings()[models.SettingBillDueDays])
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"kafka without brokers", "kafka:\n  enabled: true\n"},
		{"bad fallback rate", "billing:\n  fallback_to_defaults: true\n  defaults:\n    electric_unit_cost: \"cheap\"\n"},
		{"zero burst", "billing:\n  generate_burst: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
