package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := LoadConfig(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 70, cfg.Matching.ScoreThreshold)
	assert.Equal(t, 30, cfg.Matching.AntiDupWindowDays)
	assert.False(t, cfg.Outreach.Enabled)
	assert.Empty(t, cfg.Outreach.Allowlist)
	assert.Equal(t, 90*time.Second, cfg.Ingestion.AdapterTimeout)
	assert.Equal(t, 20, cfg.Ingestion.MaxErrorsPerAdapter)
	assert.True(t, cfg.Ingestion.BrowserHeadless)
	assert.Empty(t, cfg.Ingestion.BrowserExecPath)
	assert.False(t, cfg.RabbitMQ.Enabled)
	assert.Equal(t, "8080", cfg.HTTP.Port)
}

func TestLoadConfig_FromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "STORAGE_DRIVER=sqlite\n" +
		"MATCH_SCORE_THRESHOLD=80\n" +
		"OUTREACH_ENABLED=true\n" +
		"WHATSAPP_GATEWAY_URL=http://gateway.local\n" +
		"OUTREACH_ALLOWLIST= +39 333 1234567 , ,393471112222\n" +
		"ADAPTER_TIMEOUT=30\n" +
		"INTER_ADAPTER_DELAY=250ms\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	for _, k := range []string{"STORAGE_DRIVER", "MATCH_SCORE_THRESHOLD", "OUTREACH_ENABLED", "WHATSAPP_GATEWAY_URL", "OUTREACH_ALLOWLIST", "ADAPTER_TIMEOUT", "INTER_ADAPTER_DELAY"} {
		unsetForTest(t, k)
	}

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, StorageDriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, 80, cfg.Matching.ScoreThreshold)
	assert.True(t, cfg.Outreach.Enabled)
	assert.Equal(t, []string{"+39 333 1234567", "393471112222"}, cfg.Outreach.Allowlist)
	assert.Equal(t, 30*time.Second, cfg.Ingestion.AdapterTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Ingestion.InterAdapterDelay)
}

func TestLoadConfig_Validation(t *testing.T) {
	t.Run("postgres needs DATABASE_URL", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "postgres")
		t.Setenv("DATABASE_URL", "")
		_, err := LoadConfig(noEnvFile(t))
		assert.Error(t, err)
	})
	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "mongo")
		_, err := LoadConfig(noEnvFile(t))
		assert.Error(t, err)
	})
	t.Run("outreach needs gateway", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "memory")
		t.Setenv("OUTREACH_ENABLED", "true")
		t.Setenv("WHATSAPP_GATEWAY_URL", "")
		_, err := LoadConfig(noEnvFile(t))
		assert.Error(t, err)
	})
	t.Run("threshold range", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "memory")
		t.Setenv("MATCH_SCORE_THRESHOLD", "140")
		_, err := LoadConfig(noEnvFile(t))
		assert.Error(t, err)
	})
	t.Run("zero threshold is kept", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "memory")
		t.Setenv("MATCH_SCORE_THRESHOLD", "0")
		cfg, err := LoadConfig(noEnvFile(t))
		require.NoError(t, err)
		assert.Zero(t, cfg.Matching.ScoreThreshold)
	})
	t.Run("window must be positive", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "memory")
		t.Setenv("ANTI_DUP_WINDOW_DAYS", "0")
		_, err := LoadConfig(noEnvFile(t))
		assert.ErrorContains(t, err, "ANTI_DUP_WINDOW_DAYS")
	})
}

func TestEnvHelpers_FallBackOnGarbage(t *testing.T) {
	t.Setenv("X_INT", "abc")
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_DUR", "soon")
	assert.Equal(t, 5, getEnvAsInt("X_INT", 5))
	assert.True(t, getEnvAsBool("X_BOOL", true))
	assert.Equal(t, time.Minute, getEnvAsDuration("X_DUR", time.Minute))
}

// unsetForTest убирает переменную на время теста, чтобы её задал .env
func unsetForTest(t *testing.T, key string) {
	t.Helper()
	prev, had := os.LookupEnv(key)
	require.NoError(t, os.Unsetenv(key))
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, prev)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}
