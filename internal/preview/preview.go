// Package preview renders the polygons of a feature collection into a WebP
// image covering a bounding box.
package preview

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/woozymasta/zipfilter/internal/geo"

	"github.com/chai2010/webp"
	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

const (
	defaultWidth = 1024
	maxSide      = 8192
)

// ErrEmptyBox is returned for boxes without area.
var ErrEmptyBox = errors.New("preview: bounding box has no area")

// Options configures the rendering.
type Options struct {
	Width      int // image width in pixels, height follows the box aspect
	Fill       color.RGBA
	Background color.RGBA
}

// DefaultOptions returns a translucent blue fill over white.
func DefaultOptions() Options {
	return Options{
		Width:      defaultWidth,
		Fill:       color.RGBA{R: 0x1f, G: 0x6f, B: 0xb4, A: 0x99},
		Background: color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	}
}

// Render draws fc and writes it to w as lossless WebP.
func Render(w io.Writer, fc *geo.FeatureCollection, box geo.BoundingBox, opts Options) error {
	img, err := Draw(fc, box, opts)
	if err != nil {
		return err
	}

	return webp.Encode(w, img, &webp.Options{Lossless: true})
}

// Draw rasterizes the polygon and multipolygon geometries of fc onto an image
// of the box in Web Mercator. Other geometry types are ignored.
func Draw(fc *geo.FeatureCollection, box geo.BoundingBox, opts Options) (*image.RGBA, error) {
	proj, err := newProjection(box, opts.Width)
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, proj.width, proj.height))
	xdraw.Draw(img, img.Bounds(), image.NewUniform(opts.Background), image.Point{}, xdraw.Src)

	fill := image.NewUniform(opts.Fill)
	z := vector.NewRasterizer(proj.width, proj.height)

	drawn := 0
	for i, f := range fc.Features {
		g, err := f.Geometry()
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}

		for _, p := range polygons(g) {
			z.Reset(proj.width, proj.height)
			for _, ring := range p {
				proj.trace(z, ring)
			}
			z.Draw(img, img.Bounds(), fill, image.Point{})
			drawn++
		}
	}

	log.Debug().
		Int("width", proj.width).
		Int("height", proj.height).
		Int("polygons", drawn).
		Msg("Preview rasterized")

	return img, nil
}

func polygons(g orb.Geometry) []orb.Polygon {
	switch g := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{g}
	case orb.MultiPolygon:
		return g
	case orb.Collection:
		var out []orb.Polygon
		for _, c := range g {
			out = append(out, polygons(c)...)
		}
		return out
	}
	return nil
}

type projection struct {
	x0, x1, y0, y1 float64 // Mercator extent of the box
	width, height  int
}

func newProjection(box geo.BoundingBox, width int) (projection, error) {
	if width <= 0 {
		width = defaultWidth
	}
	width = min(width, maxSide)

	p := projection{
		x0:    geo.MercatorX(box.Bound.Min[0]),
		x1:    geo.MercatorX(box.Bound.Max[0]),
		y0:    geo.MercatorY(box.Bound.Min[1]),
		y1:    geo.MercatorY(box.Bound.Max[1]),
		width: width,
	}

	if p.x1 <= p.x0 || p.y1 <= p.y0 {
		return projection{}, ErrEmptyBox
	}

	h := math.Round(float64(width) * (p.y1 - p.y0) / (p.x1 - p.x0))
	p.height = int(max(1, min(h, maxSide)))

	return p, nil
}

func (p projection) point(pt orb.Point) (float32, float32) {
	x := (geo.MercatorX(pt[0]) - p.x0) / (p.x1 - p.x0) * float64(p.width)
	y := (p.y1 - geo.MercatorY(pt[1])) / (p.y1 - p.y0) * float64(p.height)
	return float32(x), float32(y)
}

func (p projection) trace(z *vector.Rasterizer, ring orb.Ring) {
	if len(ring) < 3 {
		return
	}

	z.MoveTo(p.point(ring[0]))
	for _, pt := range ring[1:] {
		z.LineTo(p.point(pt))
	}
	z.ClosePath()
}
