package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/ddl-r-abdulaziz/clustermap/pkg/api"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/cluster"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/config"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/diagram"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/k8s"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/render"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/surface"
)

const (
	defaultOutputFile = "cluster-map.html"

	formatHTML = "html"
	formatJSON = "json"
	formatYAML = "yaml"

	settlePollInterval = 50 * time.Millisecond
)

type renderOptions struct {
	snapshot string
	server   string
	output   string
	format   string
}

func newRenderCmd() *cobra.Command {
	var opts renderOptions
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the cluster diagram to a file",
		Long: "Renders the cluster diagram from a snapshot file, a running clustermap server or the cluster itself,\n" +
			"and writes it as an HTML page or as placed geometry in JSON or YAML.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			return runRender(cmd.Context(), cfg, opts, log, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.snapshot, "snapshot", "", "read the cluster snapshot from a JSON or YAML file")
	flags.StringVar(&opts.server, "server", "", "fetch the cluster snapshot from a clustermap server URL")
	flags.StringVarP(&opts.output, "output", "o", defaultOutputFile, "output file path, - for stdout")
	flags.StringVar(&opts.format, "format", formatHTML, "output format: html, json or yaml")
	cmd.MarkFlagsMutuallyExclusive("snapshot", "server")
	return cmd
}

func runRender(ctx context.Context, cfg *config.Config, opts renderOptions, log zerolog.Logger, stdout io.Writer) error {
	switch opts.format {
	case formatHTML, formatJSON, formatYAML:
	default:
		return fmt.Errorf("unknown output format %q", opts.format)
	}

	svg := surface.NewSVG(cfg.Width, cfg.Height)
	engine := diagram.New(svg, log)
	defer engine.Stop()

	diagramOpts := diagram.Options{
		Mode:    cfg.LayoutMode,
		Width:   cfg.Width,
		Height:  cfg.Height,
		Animate: cfg.Animate,
	}

	var (
		result *diagram.Render
		source string
		err    error
	)
	if opts.server != "" {
		source = opts.server
		result, err = engine.FetchAndRender(ctx, api.NewClient(opts.server, log), diagramOpts)
	} else {
		var snap *cluster.Snapshot
		snap, source, err = loadSnapshot(ctx, cfg, opts, log)
		if err != nil {
			return err
		}
		result, err = engine.RenderClusterDiagram(ctx, snap, diagramOpts)
	}
	if err != nil {
		return fmt.Errorf("failed to render cluster diagram: %w", err)
	}

	if cfg.Animate {
		if err := waitSettled(ctx, result); err != nil {
			return err
		}
		engine.Stop()
	}

	data, err := encode(opts.format, svg, result, source)
	if err != nil {
		return fmt.Errorf("failed to encode %s output: %w", opts.format, err)
	}

	if opts.output == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(opts.output, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Fprintf(stdout, "Cluster map written to: %s\n", opts.output)
	return nil
}

// loadSnapshot reads the snapshot file when one is given and lists the
// cluster otherwise.
func loadSnapshot(ctx context.Context, cfg *config.Config, opts renderOptions, log zerolog.Logger) (*cluster.Snapshot, string, error) {
	if opts.snapshot != "" {
		snap, err := cluster.LoadFile(opts.snapshot)
		if err != nil {
			return nil, "", err
		}
		return snap, opts.snapshot, nil
	}

	client, err := k8s.NewClient(cfg.Kubeconfig)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create kubernetes client: %w", err)
	}
	log.Info().Strs("namespaces", cfg.Namespaces).Msg("Scanning namespaces")
	snap, err := client.GetSnapshot(ctx, cfg.Namespaces)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get cluster snapshot: %w", err)
	}
	log.Info().Int("pods", snap.PodCount).Int("deployments", snap.DeploymentCount).Msg("Cluster scanned")
	return snap, "cluster", nil
}

// waitSettled blocks until the running simulation of result comes to rest.
func waitSettled(ctx context.Context, result *diagram.Render) error {
	sim := result.Result.Simulation()
	if sim == nil {
		return nil
	}
	ticker := time.NewTicker(settlePollInterval)
	defer ticker.Stop()
	for !sim.Settled() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func encode(format string, svg *surface.SVG, result *diagram.Render, source string) ([]byte, error) {
	geometry := result.Geometry()
	switch format {
	case formatJSON:
		return json.MarshalIndent(geometry, "", "  ")
	case formatYAML:
		return yaml.Marshal(geometry)
	}

	renderer, err := render.NewHTMLRenderer()
	if err != nil {
		return nil, err
	}
	html, err := renderer.Render(render.Page{
		Geometry:    geometry,
		Drawing:     svg,
		Overlays:    svg.Overlays(),
		Source:      source,
		GeneratedAt: time.Now(),
	})
	if err != nil {
		return nil, err
	}
	return []byte(html), nil
}
