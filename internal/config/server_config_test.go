package config_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/brickbee/go-trade-vault/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintServiceEnv(t *testing.T) {
	config := config.DefaultServiceConfigFromEnv()
	_, err := json.MarshalIndent(config, "", "  ")

	if err != nil {
		t.Fatal(err)
	}
}

func TestDefaults(t *testing.T) {
	cfg := config.DefaultServiceConfigFromEnv()

	assert.Equal(t, time.Hour, cfg.Session.DefaultTTL)
	assert.Equal(t, 10*time.Minute, cfg.Session.RefreshWindow)
	assert.NotEmpty(t, cfg.Echo.ListenAddress)
	assert.NotEmpty(t, cfg.Backend.BaseURL)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("TRADEVAULT_SESSION_DEFAULT_TTL", "30m")
	t.Setenv("TRADEVAULT_ECHO_LISTEN_ADDRESS", ":9999")

	cfg := config.DefaultServiceConfigFromEnv()

	require.Equal(t, 30*time.Minute, cfg.Session.DefaultTTL)
	require.Equal(t, ":9999", cfg.Echo.ListenAddress)
}
