package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPopulatesDefaults(t *testing.T) {
	cfg := New()
	assert.Equal(t, Development, cfg.Env)
	assert.Equal(t, "CQCServer", cfg.ServiceName)
	assert.Equal(t, 13502, cfg.DefaultPort)
	assert.Equal(t, "CQCServerMainEvent", cfg.EventName)
	assert.Equal(t, 30*time.Second, cfg.RebindInterval)
}

func TestLoadRejectsUnknownEnvironment(t *testing.T) {
	t.Setenv("CQCSRV_ENV", "staging")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadReadsOverriddenPort(t *testing.T) {
	t.Setenv("CQCSRV_ENV", "testing")
	t.Setenv("CQCSRV_PORT", "20000")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 20000, cfg.DefaultPort)
	assert.Equal(t, Testing, cfg.Env)
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	t.Setenv("CQCSRV_ENV", "testing")
	t.Setenv("CQCSRV_REBIND_INTERVAL", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
}

func TestGetBoolEnvFallsBackOnGarbage(t *testing.T) {
	os.Setenv("CQCSRV_REQUIRES_LOGIN", "not-a-bool")
	defer os.Unsetenv("CQCSRV_REQUIRES_LOGIN")
	assert.False(t, getBoolEnv("CQCSRV_REQUIRES_LOGIN", false))
}
