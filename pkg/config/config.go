// Package config loads clustermap settings from defaults, CLUSTERMAP_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/ddl-r-abdulaziz/clustermap/pkg/k8s"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "CLUSTERMAP_"

// Keys.
const (
	KeyLayoutMode       = "layout_mode"
	KeyWidth            = "width"
	KeyHeight           = "height"
	KeyNamespaces       = "namespaces"
	KeyKubeconfig       = "kubeconfig"
	KeyListenAddr       = "listen_addr"
	KeyCacheMaxAge      = "cache_max_age"
	KeyRefreshInterval  = "refresh_interval"
	KeyRedisAddr        = "redis_addr"
	KeyRedisTTL         = "redis_ttl"
	KeyLogLevel         = "log_level"
	KeyLogPretty        = "log_pretty"
	KeyAnimate          = "animate"
	KeyRefreshRateLimit = "refresh_rate_limit"
	KeyRefreshBurst     = "refresh_burst"
)

var defaults = map[string]any{
	KeyLayoutMode:       "hierarchical",
	KeyWidth:            800.0,
	KeyHeight:           600.0,
	KeyNamespaces:       "",
	KeyKubeconfig:       "",
	KeyListenAddr:       ":5000",
	KeyCacheMaxAge:      "30s",
	KeyRefreshInterval:  "60s",
	KeyRedisAddr:        "",
	KeyRedisTTL:         "5m",
	KeyLogLevel:         "info",
	KeyLogPretty:        false,
	KeyAnimate:          false,
	KeyRefreshRateLimit: 1.0,
	KeyRefreshBurst:     3,
}

// Config holds the resolved settings.
type Config struct {
	// LayoutMode is passed to every render; "hierarchical" selects the grid layout.
	LayoutMode string
	Width      float64
	Height     float64
	Animate    bool

	Namespaces []string
	Kubeconfig string

	ListenAddr       string
	CacheMaxAge      time.Duration
	RefreshInterval  time.Duration
	RefreshRateLimit float64
	RefreshBurst     int

	RedisAddr string
	RedisTTL  time.Duration

	LogLevel  string
	LogPretty bool
}

// Load resolves the configuration. Only flags that were explicitly set
// override defaults and environment; flag names map to keys with dashes
// replaced by underscores. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		var err error
		flags.Visit(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if _, known := defaults[key]; !known || err != nil {
				return
			}
			err = k.Set(key, f.Value.String())
		})
		if err != nil {
			return nil, fmt.Errorf("failed to apply flags: %w", err)
		}
	}

	cfg := &Config{
		LayoutMode:       k.String(KeyLayoutMode),
		Width:            k.Float64(KeyWidth),
		Height:           k.Float64(KeyHeight),
		Animate:          k.Bool(KeyAnimate),
		Namespaces:       k8s.ParseNamespaces(k.String(KeyNamespaces)),
		Kubeconfig:       k.String(KeyKubeconfig),
		ListenAddr:       k.String(KeyListenAddr),
		CacheMaxAge:      k.Duration(KeyCacheMaxAge),
		RefreshInterval:  k.Duration(KeyRefreshInterval),
		RefreshRateLimit: k.Float64(KeyRefreshRateLimit),
		RefreshBurst:     k.Int(KeyRefreshBurst),
		RedisAddr:        k.String(KeyRedisAddr),
		RedisTTL:         k.Duration(KeyRedisTTL),
		LogLevel:         k.String(KeyLogLevel),
		LogPretty:        k.Bool(KeyLogPretty),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("canvas size must be positive, got %gx%g", c.Width, c.Height)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("%s must be positive", KeyRefreshInterval)
	}
	if c.CacheMaxAge < 0 {
		return fmt.Errorf("%s must not be negative", KeyCacheMaxAge)
	}
	if c.RefreshRateLimit <= 0 || c.RefreshBurst < 1 {
		return fmt.Errorf("refresh rate limit must be positive with a burst of at least 1")
	}
	return nil
}
