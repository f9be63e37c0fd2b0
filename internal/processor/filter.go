// Package processor filters GeoJSON feature collections against a bounding
// box and writes the result to disk.
package processor

import (
	"errors"
	"fmt"
	"os"

	"github.com/woozymasta/zipfilter/internal/config"
	"github.com/woozymasta/zipfilter/internal/geo"

	"github.com/rs/zerolog/log"
)

// Errors reported in strict mode.
var (
	ErrNoFeatures = errors.New("document has no features member")
	ErrNoGeometry = errors.New("feature has no geometry")
)

// Options controls how FilterFile filters and encodes a collection.
type Options struct {
	Format    string
	Popup     []config.PopupField
	Indent    int
	Precision int
	Minify    bool
	Strict    bool
}

// OptionsFromConfig copies the filter settings out of a configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Format:    cfg.Format,
		Popup:     cfg.Popup,
		Indent:    cfg.Indent,
		Precision: cfg.Precision,
		Minify:    cfg.Minify,
		Strict:    cfg.Strict,
	}
}

// Stats counts what happened to the input features.
type Stats struct {
	Total    int // features read
	Kept     int // intersecting, written to the output
	Skipped  int // without geometry
	Disjoint int // geometry outside the box
}

// FileResult is the outcome of a successful FilterFile run.
type FileResult struct {
	Collection *geo.FeatureCollection
	Stats      Stats
}

// FilterFile loads the collection at in, keeps the features intersecting box,
// and saves them to out. Nothing is written to out when any step fails.
func FilterFile(in, out string, box geo.BoundingBox, opts Options) (*FileResult, error) {
	data, err := os.ReadFile(in)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	fc, err := geo.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", in, err)
	}

	log.Debug().
		Str("input", in).
		Int("features", len(fc.Features)).
		Msg("Input loaded")

	filtered, stats, err := Filter(fc, box, opts.Popup, opts.Strict)
	if err != nil {
		return nil, err
	}

	body, err := Encode(filtered, opts)
	if err != nil {
		return nil, fmt.Errorf("encode output: %w", err)
	}

	if err := saveGeoJSON(out, body); err != nil {
		return nil, fmt.Errorf("save %s: %w", out, err)
	}

	return &FileResult{Collection: filtered, Stats: stats}, nil
}

// Filter returns a new collection holding the features of fc whose geometry
// intersects box, in input order. Retained features are annotated in place
// with the popup fields. Features without geometry are skipped unless strict
// is set, in which case they are an error, as is a missing features member.
// Properties are only decoded for retained features.
func Filter(fc *geo.FeatureCollection, box geo.BoundingBox, popup []config.PopupField, strict bool) (*geo.FeatureCollection, Stats, error) {
	stats := Stats{Total: len(fc.Features)}

	if strict && !fc.HasFeatures {
		return nil, stats, ErrNoFeatures
	}

	kept := make([]geo.Feature, 0)
	for i := range fc.Features {
		feature := &fc.Features[i]

		if !feature.HasGeometry() {
			if strict {
				return nil, stats, fmt.Errorf("feature %d: %w", i, ErrNoGeometry)
			}
			stats.Skipped++
			log.Trace().Int("feature", i).Msg("Feature without geometry skipped")
			continue
		}

		g, err := feature.Geometry()
		if err != nil {
			return nil, stats, fmt.Errorf("feature %d: %w", i, err)
		}

		if !box.Intersects(g) {
			stats.Disjoint++
			continue
		}

		if err := feature.DecodeProperties(); err != nil {
			return nil, stats, fmt.Errorf("feature %d: %w", i, err)
		}
		annotate(feature, popup)
		kept = append(kept, *feature)
	}

	stats.Kept = len(kept)
	return geo.NewFeatureCollection(kept...), stats, nil
}

// annotate copies each popup source value, or its default when the source
// key is absent, into the popup key. All sources are read before any key is
// written.
func annotate(feature *geo.Feature, fields []config.PopupField) {
	values := make([]any, len(fields))
	for i, f := range fields {
		v, ok := feature.Properties[f.From]
		if !ok {
			v = f.Default
		}
		values[i] = v
	}

	if feature.Properties == nil {
		feature.Properties = map[string]any{}
	}
	for i, f := range fields {
		feature.SetProperty(f.To, values[i])
	}
}
