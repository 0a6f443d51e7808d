package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "hierarchical", cfg.LayoutMode)
	assert.Equal(t, 800.0, cfg.Width)
	assert.Equal(t, 600.0, cfg.Height)
	assert.Empty(t, cfg.Namespaces)
	assert.Equal(t, ":5000", cfg.ListenAddr)
	assert.Equal(t, 30*time.Second, cfg.CacheMaxAge)
	assert.Equal(t, time.Minute, cfg.RefreshInterval)
	assert.Equal(t, 5*time.Minute, cfg.RedisTTL)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogPretty)
	assert.False(t, cfg.Animate)
	assert.Equal(t, 1.0, cfg.RefreshRateLimit)
	assert.Equal(t, 3, cfg.RefreshBurst)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("CLUSTERMAP_LAYOUT_MODE", "force")
	t.Setenv("CLUSTERMAP_WIDTH", "1024")
	t.Setenv("CLUSTERMAP_NAMESPACES", "default, kube-system")
	t.Setenv("CLUSTERMAP_REFRESH_INTERVAL", "15s")
	t.Setenv("CLUSTERMAP_ANIMATE", "true")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "force", cfg.LayoutMode)
	assert.Equal(t, 1024.0, cfg.Width)
	assert.Equal(t, 600.0, cfg.Height)
	assert.Equal(t, []string{"default", "kube-system"}, cfg.Namespaces)
	assert.Equal(t, 15*time.Second, cfg.RefreshInterval)
	assert.True(t, cfg.Animate)
}

func TestLoadFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("CLUSTERMAP_LAYOUT_MODE", "force")
	t.Setenv("CLUSTERMAP_LISTEN_ADDR", ":9000")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("layout-mode", "hierarchical", "")
	flags.String("listen-addr", ":5000", "")
	flags.Float64("height", 600, "")
	require.NoError(t, flags.Parse([]string{"--layout-mode=hierarchical", "--height=480"}))

	cfg, err := Load(flags)
	require.NoError(t, err)

	assert.Equal(t, "hierarchical", cfg.LayoutMode, "explicit flag wins")
	assert.Equal(t, ":9000", cfg.ListenAddr, "unset flag keeps the environment value")
	assert.Equal(t, 480.0, cfg.Height)
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]struct {
		key   string
		value string
	}{
		"zero width":        {key: "CLUSTERMAP_WIDTH", value: "0"},
		"negative height":   {key: "CLUSTERMAP_HEIGHT", value: "-1"},
		"zero interval":     {key: "CLUSTERMAP_REFRESH_INTERVAL", value: "0s"},
		"negative max age":  {key: "CLUSTERMAP_CACHE_MAX_AGE", value: "-5s"},
		"zero refresh rate": {key: "CLUSTERMAP_REFRESH_RATE_LIMIT", value: "0"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load(nil)
			assert.Error(t, err)
		})
	}
}
