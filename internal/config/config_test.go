package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "attendance_db", cfg.DBName)
	assert.False(t, cfg.IsLocalDev)
	assert.NotEmpty(t, cfg.EventsSQSQueueURL)
	assert.NotEmpty(t, cfg.ReviewSQSQueueURL)
	assert.NotEmpty(t, cfg.PolicyAPIURL)
	assert.NotEmpty(t, cfg.DashboardWebhookURL)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("IS_LOCAL_DEV", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.True(t, cfg.IsLocalDev)
}
