// Package config handles configuration loading and shared data structures.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/woozymasta/zipfilter/internal/geo"

	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Defaults matching the published Bay Area dataset.
const (
	DefaultInput        = "./public/ALLZipCodes.geojson"
	DefaultOutput       = "./public/BayAreaZipCodes.geojson"
	DefaultIndent       = 2
	DefaultPreviewWidth = 1024
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the root configuration file structure.
type Config struct {
	Input   string       `yaml:"input,omitempty"`
	Output  string       `yaml:"output,omitempty"`
	Format  string       `yaml:"format,omitempty"`
	Region  Region       `yaml:"region"`
	Popup   []PopupField `yaml:"popup,omitempty"`
	Preview Preview      `yaml:"preview,omitempty"`
	Indent  int          `yaml:"indent,omitempty"`
	// significant digits kept for numbers when minifying, 0 keeps all
	Precision int  `yaml:"precision,omitempty"`
	Minify    bool `yaml:"minify,omitempty"`
	Strict    bool `yaml:"strict,omitempty"`
}

// Region is the named bounding box features are filtered against.
type Region struct {
	Name string    `yaml:"name,omitempty"`
	BBox []float64 `yaml:"bbox,flow"` // [minx, miny, maxx, maxy]
}

// PopupField copies a source property into a popup display property of every
// retained feature, falling back to Default when the source is absent.
type PopupField struct {
	From    string `yaml:"from"`
	To      string `yaml:"to"`
	Default string `yaml:"default"`
}

// Preview configures the optional WebP rendering of retained features.
type Preview struct {
	Path  string `yaml:"path,omitempty"`
	Width int    `yaml:"width,omitempty"`
}

// DefaultPopup returns the ZIP code and region name popup fields.
func DefaultPopup() []PopupField {
	return []PopupField{
		{From: "GEOID", To: "popup_zip_code", Default: "Unknown ZIP Code"},
		{From: "NAMELSAD", To: "popup_region_name", Default: "Unknown Region"},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Input:  DefaultInput,
		Output: DefaultOutput,
		Format: FormatJSON,
		Indent: DefaultIndent,
		Region: Region{
			Name: geo.BayArea.Name,
			BBox: geo.BayArea.Slice(),
		},
		Popup:   DefaultPopup(),
		Preview: Preview{Width: DefaultPreviewWidth},
	}
}

// Load reads and parses the YAML configuration file from the specified path.
// Values missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for values the filter cannot work with.
func (c *Config) Validate() error {
	switch c.Format {
	case FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, c.Format)
	}

	if c.Indent < 0 {
		return fmt.Errorf("%w: indent must be >= 0", ErrInvalidConfig)
	}
	if c.Precision < 0 {
		return fmt.Errorf("%w: precision must be >= 0", ErrInvalidConfig)
	}
	if c.Preview.Width < 0 {
		return fmt.Errorf("%w: preview width must be >= 0", ErrInvalidConfig)
	}

	if _, err := c.Region.BoundingBox(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	for i, f := range c.Popup {
		if f.From == "" || f.To == "" {
			return fmt.Errorf("%w: popup field %d needs both from and to", ErrInvalidConfig, i)
		}
	}

	return nil
}

// BoundingBox builds the region's box.
func (r Region) BoundingBox() (geo.BoundingBox, error) {
	if len(r.BBox) != 4 {
		return geo.BoundingBox{}, fmt.Errorf("%w: bbox needs 4 values, got %d", geo.ErrInvalidBoundingBox, len(r.BBox))
	}

	return geo.NewBoundingBox(r.Name, r.BBox[0], r.BBox[1], r.BBox[2], r.BBox[3])
}
