package main

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"k8s.io/client-go/util/homedir"

	"github.com/ddl-r-abdulaziz/clustermap/pkg/config"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "clustermap",
		Short: "clustermap - Cluster Topology Map",
		Long: "Draws the namespaces and pods of a Kubernetes cluster as a grid or force-directed diagram.\n\n" +
			"Every flag can also be set with a CLUSTERMAP_ environment variable, e.g. CLUSTERMAP_LAYOUT_MODE=force.",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("kubeconfig", "", "path to the kubeconfig file (default ~/.kube/config, or in-cluster config when absent)")
	flags.String("namespaces", "", "comma-separated list of namespaces to scan (default all)")
	flags.String("layout-mode", "hierarchical", "diagram layout: hierarchical, or force for any other value")
	flags.Float64("width", 800, "canvas width")
	flags.Float64("height", 600, "canvas height")
	flags.Bool("animate", false, "run the force layout live instead of settling it up front")
	flags.String("log-level", "info", "log level")
	flags.Bool("log-pretty", false, "human-readable log output")

	root.AddCommand(newRenderCmd(), newServeCmd())
	return root
}

// setup resolves the configuration for cmd and builds the logger.
func setup(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if cfg.Kubeconfig == "" {
		cfg.Kubeconfig = defaultKubeconfig()
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogPretty, cmd.ErrOrStderr())
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, log, nil
}

// defaultKubeconfig returns ~/.kube/config when it exists, otherwise an empty
// path so the in-cluster config is used.
func defaultKubeconfig() string {
	home := homedir.HomeDir()
	if home == "" {
		return ""
	}
	path := filepath.Join(home, ".kube", "config")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
