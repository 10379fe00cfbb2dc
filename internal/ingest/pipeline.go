package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/accessmaps/parks-api/internal/accessibility"
	apperrors "github.com/accessmaps/parks-api/internal/errors"
	"github.com/accessmaps/parks-api/internal/geo"
	"github.com/accessmaps/parks-api/internal/logger"
	"github.com/accessmaps/parks-api/internal/metrics"
	"github.com/accessmaps/parks-api/internal/store"
	"github.com/accessmaps/parks-api/internal/utils"
)

// ReasonMalformed marks a feature that could not be decoded at all.
const ReasonMalformed = "malformed_feature"

// Store is the write side of the feature store used by reloads.
type Store interface {
	ReplaceParks(ctx context.Context, rows []store.ParkRow) (store.ReplaceResult, error)
	ReplacePlaygrounds(ctx context.Context, rows []store.PlaygroundRow) (store.ReplaceResult, error)
	ReplaceRoutes(ctx context.Context, rows []store.RouteRow) (store.ReplaceResult, error)
}

type Config struct {
	// DefaultSource fills a playground's or route's source when the input has none.
	DefaultSource string
	Geometry      geo.Options
	// DryRun normalizes and reports without writing.
	DryRun bool
}

// Skip records one rejected feature.
type Skip struct {
	Index     int    `json:"index"`
	FeatureID string `json:"feature_id,omitempty"`
	Reason    string `json:"reason"`
	Detail    string `json:"detail,omitempty"`
}

// Err returns the skip as an ingest-row error carrying its index, feature id
// and reason as context.
func (s Skip) Err() error {
	msg := s.Reason
	if s.Detail != "" {
		msg += ": " + s.Detail
	}
	b := apperrors.Newf("feature %d rejected: %s", s.Index, msg).
		Category(apperrors.CategoryIngestRow).
		Context("index", s.Index).
		Context("reason", s.Reason)
	if s.FeatureID != "" {
		b = b.Context("feature_id", s.FeatureID)
	}
	return b.Build()
}

// ReloadReport summarizes one collection reload.
type ReloadReport struct {
	RunID         string   `json:"run_id"`
	Collection    geo.Kind `json:"collection"`
	Source        string   `json:"source"`
	DryRun        bool     `json:"dry_run,omitempty"`
	Read          int      `json:"read"`
	Inserted      int      `json:"inserted"`
	Skipped       int      `json:"skipped"`
	Skips         []Skip   `json:"skips"`
	Replaced      int64    `json:"replaced"`
	IssuesRemoved int64    `json:"issues_removed"`
	DurationMS    int64    `json:"duration_ms"`
}

// Pipeline normalizes features and hands them to the store.
type Pipeline struct {
	store Store
	cfg   Config
	log   *slog.Logger
}

func NewPipeline(s Store, cfg Config) *Pipeline {
	if cfg.DefaultSource == "" {
		cfg.DefaultSource = "OSM"
	}
	return &Pipeline{store: s, cfg: cfg, log: logger.Module("ingest")}
}

// WithGeometryOptions returns a copy of p using opts for normalization.
func (p *Pipeline) WithGeometryOptions(opts geo.Options) *Pipeline {
	cp := *p
	cp.cfg.Geometry = opts
	return &cp
}

// WithDryRun returns a copy of p that writes nothing when dryRun is set.
func (p *Pipeline) WithDryRun(dryRun bool) *Pipeline {
	cp := *p
	cp.cfg.DryRun = dryRun
	return &cp
}

// Reload replaces the kind collection with the accepted features of src.
// Per-feature problems are reported as skips; a source or store failure is
// returned and leaves the stored collection untouched.
func (p *Pipeline) Reload(ctx context.Context, kind geo.Kind, src FeatureSource) (ReloadReport, error) {
	start := time.Now()
	report := ReloadReport{
		RunID:      uuid.NewString(),
		Collection: kind,
		Source:     src.Name(),
		DryRun:     p.cfg.DryRun,
		Skips:      []Skip{},
	}
	ctx = utils.WithRunID(ctx, report.RunID)
	log := p.log.With("run_id", report.RunID, "collection", kind, "source", report.Source)

	features, err := src.Features(ctx)
	if err != nil {
		log.Error("failed to read source", "error", err)
		return report, err
	}
	report.Read = len(features)

	var result store.ReplaceResult
	switch kind {
	case geo.KindPark:
		rows := collect(p, kind, features, &report, p.parkRow)
		result, err = p.write(ctx, len(rows), func() (store.ReplaceResult, error) { return p.store.ReplaceParks(ctx, rows) })
	case geo.KindPlayground:
		rows := collect(p, kind, features, &report, p.playgroundRow)
		result, err = p.write(ctx, len(rows), func() (store.ReplaceResult, error) { return p.store.ReplacePlaygrounds(ctx, rows) })
	case geo.KindRoute:
		rows := collect(p, kind, features, &report, p.routeRow)
		result, err = p.write(ctx, len(rows), func() (store.ReplaceResult, error) { return p.store.ReplaceRoutes(ctx, rows) })
	default:
		return report, apperrors.ValidationError("unknown collection %q", kind)
	}

	report.DurationMS = time.Since(start).Milliseconds()
	metrics.ReloadDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	metrics.ReloadFeatures.WithLabelValues(string(kind), "skipped").Add(float64(report.Skipped))

	if err != nil {
		metrics.ReloadFeatures.WithLabelValues(string(kind), "failed").Add(float64(report.Read - report.Skipped))
		log.Error("reload failed, previous collection kept", "error", err)
		return report, err
	}

	report.Inserted = result.Inserted
	report.Replaced = result.Replaced
	report.IssuesRemoved = result.IssuesRemoved
	metrics.ReloadFeatures.WithLabelValues(string(kind), "inserted").Add(float64(report.Inserted))

	log.Info("reload finished",
		"read", report.Read,
		"inserted", report.Inserted,
		"skipped", report.Skipped,
		"replaced", report.Replaced,
		"issues_removed", report.IssuesRemoved,
		"dry_run", report.DryRun,
		"duration_ms", report.DurationMS,
	)
	return report, nil
}

func (p *Pipeline) write(ctx context.Context, n int, replace func() (store.ReplaceResult, error)) (store.ReplaceResult, error) {
	if err := ctx.Err(); err != nil {
		return store.ReplaceResult{}, err
	}
	if p.cfg.DryRun {
		return store.ReplaceResult{Inserted: n}, nil
	}
	return replace()
}

// collect normalizes every feature and builds rows, recording skips in report.
func collect[R any](p *Pipeline, kind geo.Kind, features []RawFeature, report *ReloadReport,
	build func(orb.Geometry, map[string]any) R) []R {
	rows := make([]R, 0, len(features))
	for _, f := range features {
		if f.Err != nil {
			reason := ReasonMalformed
			if errors.Is(f.Err, errUnsupportedType) {
				reason = string(geo.ReasonUnsupportedGeometry)
			}
			p.skip(report, f, reason, f.Err.Error())
			continue
		}

		g, err := geo.Normalize(kind, f.Geometry, p.cfg.Geometry)
		if err != nil {
			var rej *geo.Rejection
			if errors.As(err, &rej) {
				p.skip(report, f, string(rej.Reason), rej.Detail)
			} else {
				p.skip(report, f, ReasonMalformed, err.Error())
			}
			continue
		}

		props := f.Properties
		if props == nil {
			props = map[string]any{}
		}
		rows = append(rows, build(g.Geom, props))
	}
	return rows
}

func (p *Pipeline) skip(report *ReloadReport, f RawFeature, reason, detail string) {
	sk := Skip{
		Index:     f.Index,
		FeatureID: f.ID,
		Reason:    reason,
		Detail:    detail,
	}
	report.Skipped++
	report.Skips = append(report.Skips, sk)
	p.log.Debug("feature skipped", "feature_id", f.ID, "reason", reason, "error", sk.Err())
}

func (p *Pipeline) parkRow(g orb.Geometry, props map[string]any) store.ParkRow {
	mp := g.(orb.MultiPolygon)
	row := store.ParkRow{
		Name:     propStringOr(props, nameAliases, defaultParkName),
		Category: propStringPtr(props, categoryAliases),
		Geom:     mp,
	}
	area, ok := propFloat(props, areaAliases)
	if !ok || area < 0 {
		area = geo.AreaHectares(mp)
	}
	row.AreaHa = &area
	return row
}

func (p *Pipeline) playgroundRow(g orb.Geometry, props map[string]any) store.PlaygroundRow {
	return store.PlaygroundRow{
		Name:   propStringOr(props, nameAliases, defaultPlaygroundName),
		Source: propStringOr(props, sourceAliases, p.cfg.DefaultSource),
		Geom:   g.(orb.Point),
	}
}

// routeRow derives is_accessible from surface and smoothness; an
// is_accessible property in the input is ignored.
func (p *Pipeline) routeRow(g orb.Geometry, props map[string]any) store.RouteRow {
	surface := propStringPtr(props, surfaceAliases)
	smoothness := propStringPtr(props, smoothnessAliases)

	var s, sm string
	if surface != nil {
		s = *surface
	}
	if smoothness != nil {
		sm = *smoothness
	}

	return store.RouteRow{
		Name:       propStringOr(props, routeNameAliases, defaultRouteName),
		Source:     propStringOr(props, sourceAliases, p.cfg.DefaultSource),
		Surface:    surface,
		Smoothness: smoothness,
		Access:     accessibility.Classify(s, sm),
		Geom:       g.(orb.LineString),
	}
}
