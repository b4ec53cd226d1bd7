// Command visu extracts field boundaries from KMZ/KML files or from the
// SENASA RENSPA registry and prints them as JSON or GeoJSON on stdout.
//
//	visu cuit 30-12345678-9 --geojson > campos.geojson
//	visu kmz lotes.kmz otros.kml
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Mica14-AgCode/VISU/internal/adapters/kml"
	"github.com/Mica14-AgCode/VISU/internal/adapters/senasa"
	"github.com/Mica14-AgCode/VISU/internal/core/domain"
	"github.com/Mica14-AgCode/VISU/internal/core/usecases"
	"github.com/Mica14-AgCode/VISU/internal/pkg/config"
	"github.com/Mica14-AgCode/VISU/internal/pkg/logging"
)

// cli carries what subcommands share. fields is built from config on
// first use unless a test injected one.
type cli struct {
	fields   *usecases.FieldService
	logger   *slog.Logger
	geoJSON  bool
	logLevel string

	// Registry default for --all when the flag is not given.
	includeInactive bool
}

func main() {
	// Ctrl-C ends a registry extraction early; the partial result is still printed.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(&cli{}).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:          "visu",
		Short:        "Extract agricultural field boundaries",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}
	root.PersistentFlags().BoolVar(&c.geoJSON, "geojson", false, "print a GeoJSON FeatureCollection instead of the extraction result")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "debug, info, warn or error (default from config)")

	root.AddCommand(newCuitCmd(c), newKmzCmd(c))
	return root
}

func (c *cli) setup() error {
	if c.fields != nil {
		if c.logger == nil {
			c.logger = slog.Default()
		}
		return nil
	}

	cfg, err := config.Load("visu-cli")
	if err != nil {
		return err
	}
	level := cfg.Log.Level
	if c.logLevel != "" {
		level = c.logLevel
	}
	// stdout is reserved for results.
	c.logger = logging.New(os.Stderr, level, "text")
	c.includeInactive = !cfg.Registry.ActiveOnly

	registry := senasa.NewClient(senasa.FromSettings(cfg.Registry), senasa.WithLogger(c.logger))

	c.fields = usecases.NewFieldService(registry, kml.NewReader(c.logger), nil, nil,
		usecases.WithFieldLogger(c.logger))
	return nil
}

// print writes fields as GeoJSON, or v as indented JSON.
func (c *cli) print(w io.Writer, v any, fields []domain.Field) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if c.geoJSON {
		v = domain.ToFeatureCollection(fields)
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
