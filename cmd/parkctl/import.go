package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/accessmaps/parks-api/internal/config"
	"github.com/accessmaps/parks-api/internal/geo"
	"github.com/accessmaps/parks-api/internal/ingest"
)

type importFlags struct {
	parks       string
	playgrounds string
	routes      string
	manifest    string
	dryRun      bool
}

// importPlan is the list of collections to reload and the geometry options to use.
type importPlan struct {
	entries  []ingest.ManifestEntry
	geometry geo.Options
}

func planImport(f importFlags, s *config.Settings) (importPlan, error) {
	plan := importPlan{
		geometry: geo.Options{PolygonBoundaries: s.Ingest.RoutePolygonBoundaries},
	}

	direct := f.parks != "" || f.playgrounds != "" || f.routes != ""
	switch {
	case f.manifest != "" && direct:
		return importPlan{}, fmt.Errorf("--manifest cannot be combined with --parks, --playgrounds or --routes")
	case f.manifest != "":
		m, err := ingest.LoadManifest(f.manifest)
		if err != nil {
			return importPlan{}, err
		}
		plan.entries = m.Entries()
		if m.RoutePolygonBoundaries != nil {
			plan.geometry.PolygonBoundaries = *m.RoutePolygonBoundaries
		}
	case direct:
		plan.entries = (&ingest.Manifest{Parks: f.parks, Playgrounds: f.playgrounds, Routes: f.routes}).Entries()
	default:
		return importPlan{}, fmt.Errorf("nothing to import: pass --parks, --playgrounds, --routes or --manifest")
	}
	return plan, nil
}

func importCommand(a *app) *cobra.Command {
	var f importFlags

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace collections with the features of GeoJSON or FlatGeobuf sources",
		Long: `Each named collection is replaced atomically with the accepted features of its
source. Sources are local .geojson/.json or .fgb files, or http(s) URLs.
Rejected features are listed in the printed report; a read or write failure
stops the import and leaves that collection as it was.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			plan, err := planImport(f, a.settings)
			if err != nil {
				return err
			}
			st, err := a.open()
			if err != nil {
				return err
			}

			pipeline := ingest.NewPipeline(st, ingest.Config{
				DefaultSource: a.settings.Ingest.DefaultSource,
				Geometry:      plan.geometry,
				DryRun:        f.dryRun,
			})
			opts := ingest.SourceOptions{
				HTTPTimeout:      a.settings.Ingest.HTTPTimeout,
				MaxDownloadBytes: a.settings.Ingest.MaxDownloadBytes,
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			for _, e := range plan.entries {
				src, err := ingest.OpenSource(e.Ref, opts)
				if err != nil {
					return fmt.Errorf("%s: %w", e.Kind, err)
				}
				report, err := pipeline.Reload(cmd.Context(), e.Kind, src)
				if err != nil {
					return fmt.Errorf("%s: %w", e.Kind, err)
				}
				if err := enc.Encode(report); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&f.parks, "parks", "", "source for the parks collection")
	cmd.Flags().StringVar(&f.playgrounds, "playgrounds", "", "source for the playgrounds collection")
	cmd.Flags().StringVar(&f.routes, "routes", "", "source for the walking_routes collection")
	cmd.Flags().StringVar(&f.manifest, "manifest", "", "YAML manifest naming a source per collection")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "normalize and report without writing")
	return cmd
}
