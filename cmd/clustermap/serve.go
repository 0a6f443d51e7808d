package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/ddl-r-abdulaziz/clustermap/pkg/cache"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/config"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/diagram"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/k8s"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve cluster data and the live diagram over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, log)
		},
	}

	flags := cmd.Flags()
	flags.String("listen-addr", ":5000", "address to listen on")
	flags.Duration("cache-max-age", 30*time.Second, "age after which cached cluster data is refetched on request")
	flags.Duration("refresh-interval", time.Minute, "background collection interval")
	flags.Float64("refresh-rate-limit", 1, "allowed manual cache refreshes per second")
	flags.Int("refresh-burst", 3, "manual cache refresh burst size")
	flags.String("redis-addr", "", "mirror the latest snapshot to this Redis server")
	flags.Duration("redis-ttl", 5*time.Minute, "expiry of the mirrored snapshot")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := k8s.NewClient(cfg.Kubeconfig)
	if err != nil {
		return fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	opts := []cache.InterrogatorOption{cache.WithNamespaces(cfg.Namespaces)}
	if cfg.RedisAddr != "" {
		mirror, rdb, err := cache.NewRedisMirror(ctx, cfg.RedisAddr, cfg.RedisTTL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rdb.Close()
		opts = append(opts, cache.WithMirror(mirror))
		log.Info().Str("addr", cfg.RedisAddr).Msg("Mirroring snapshots to Redis")
	}

	c := cache.New(log)
	interrogator := cache.NewInterrogator(client, c, cfg.RefreshInterval, log, opts...)
	interrogator.Start(ctx)
	defer interrogator.Stop()

	srv, err := server.New(c, interrogator, server.Config{
		CacheMaxAge: cfg.CacheMaxAge,
		Diagram: diagram.Options{
			Mode:   cfg.LayoutMode,
			Width:  cfg.Width,
			Height: cfg.Height,
		},
		RefreshLimit: rate.Limit(cfg.RefreshRateLimit),
		RefreshBurst: cfg.RefreshBurst,
	}, log)
	if err != nil {
		return err
	}
	return srv.Run(ctx, cfg.ListenAddr)
}
