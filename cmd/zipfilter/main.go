package main

import (
	"errors"
	"os"

	"github.com/woozymasta/zipfilter/internal/config"
	"github.com/woozymasta/zipfilter/internal/geo"
	"github.com/woozymasta/zipfilter/internal/logger"
	"github.com/woozymasta/zipfilter/internal/preview"
	"github.com/woozymasta/zipfilter/internal/processor"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile   string `short:"c" long:"config"        env:"CONFIG_FILE"   description:"Path to configuration file (optional)"`
	Input        string `short:"i" long:"in"            env:"INPUT_FILE"    description:"Input GeoJSON file (default ./public/ALLZipCodes.geojson)"`
	Output       string `short:"o" long:"out"           env:"OUTPUT_FILE"   description:"Output GeoJSON file (default ./public/BayAreaZipCodes.geojson)"`
	BBox         string `short:"b" long:"bbox"          env:"BBOX"          description:"Bounding box as minx,miny,maxx,maxy (default Bay Area)"`
	Format       string `short:"f" long:"format"        env:"OUTPUT_FORMAT" description:"Output format" choice:"json" choice:"yaml"`
	Indent       int    `long:"indent"                  env:"INDENT"        description:"JSON/YAML indent width, 0 for compact JSON" default:"-1"`
	Precision    int    `long:"precision"               env:"PRECISION"     description:"Significant digits kept for numbers when minifying"`
	Minify       bool   `short:"m" long:"minify"        description:"Minify JSON output"`
	Strict       bool   `short:"s" long:"strict"        description:"Fail on a missing features member or features without geometry"`
	Preview      string `long:"preview"                 env:"PREVIEW_FILE"  description:"Also render retained polygons to this WebP file"`
	PreviewWidth int    `long:"preview-width"           env:"PREVIEW_WIDTH" description:"Preview width in pixels"`
}

func main() {
	envErr := godotenv.Load()

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		log.Warn().Err(envErr).Msg("Failed to load .env file")
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	box, err := cfg.Region.BoundingBox()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid bounding box")
	}

	log.Debug().
		Str("input", cfg.Input).
		Str("output", cfg.Output).
		Str("region", cfg.Region.Name).
		Stringer("bbox", box).
		Str("format", cfg.Format).
		Msg("Starting filter")

	// A failed run is reported but does not change the exit status.
	res, err := processor.FilterFile(cfg.Input, cfg.Output, box, processor.OptionsFromConfig(cfg))
	if err != nil {
		log.Error().
			Err(err).
			Str("input", cfg.Input).
			Str("output", cfg.Output).
			Msg("Failed to filter GeoJSON")
		return
	}

	log.Info().
		Str("output", cfg.Output).
		Int("total", res.Stats.Total).
		Int("kept", res.Stats.Kept).
		Int("skipped", res.Stats.Skipped).
		Int("disjoint", res.Stats.Disjoint).
		Msg("Filtered GeoJSON saved")

	if cfg.Preview.Path == "" {
		return
	}

	if err := savePreview(cfg.Preview, res.Collection, box); err != nil {
		log.Error().Err(err).Str("path", cfg.Preview.Path).Msg("Failed to render preview")
		return
	}

	log.Info().Str("path", cfg.Preview.Path).Msg("Preview saved")
}

// loadConfig starts from the built-in defaults, applies the config file if
// one is given, then the command line.
func loadConfig(opts Options) (*config.Config, error) {
	cfg := config.Default()
	if opts.ConfigFile != "" {
		loaded, err := config.Load(opts.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if opts.Input != "" {
		cfg.Input = opts.Input
	}
	if opts.Output != "" {
		cfg.Output = opts.Output
	}
	if opts.BBox != "" {
		box, err := geo.ParseBoundingBox(opts.BBox)
		if err != nil {
			return nil, err
		}
		cfg.Region = config.Region{Name: "custom", BBox: box.Slice()}
	}
	if opts.Format != "" {
		cfg.Format = opts.Format
	}
	if opts.Indent >= 0 {
		cfg.Indent = opts.Indent
	}
	if opts.Precision > 0 {
		cfg.Precision = opts.Precision
	}
	if opts.Preview != "" {
		cfg.Preview.Path = opts.Preview
	}
	if opts.PreviewWidth > 0 {
		cfg.Preview.Width = opts.PreviewWidth
	}
	cfg.Minify = cfg.Minify || opts.Minify
	cfg.Strict = cfg.Strict || opts.Strict

	return cfg, cfg.Validate()
}

func savePreview(p config.Preview, fc *geo.FeatureCollection, box geo.BoundingBox) error {
	f, err := os.Create(p.Path)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Error().Err(closeErr).Str("path", p.Path).Msg("Failed to close file")
		}
	}()

	opts := preview.DefaultOptions()
	opts.Width = p.Width

	return preview.Render(f, fc, box, opts)
}
