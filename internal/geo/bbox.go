package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// ErrInvalidBoundingBox is returned for boxes with non-finite or inverted
// coordinates.
var ErrInvalidBoundingBox = errors.New("invalid bounding box")

// BayArea is the San Francisco Bay Area in WGS84 degrees.
var BayArea = MustBoundingBox("San Francisco Bay Area", -123.1, 36.9, -121.5, 38.6)

// BoundingBox is an axis-aligned lon/lat rectangle. It is immutable once built
// and safe to share between callers.
type BoundingBox struct {
	Name  string
	Bound orb.Bound
}

// NewBoundingBox validates the corners and builds a box.
func NewBoundingBox(name string, minX, minY, maxX, maxY float64) (BoundingBox, error) {
	for _, v := range []float64{minX, minY, maxX, maxY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return BoundingBox{}, fmt.Errorf("%w: coordinate %v is not finite", ErrInvalidBoundingBox, v)
		}
	}
	if minX > maxX || minY > maxY {
		return BoundingBox{}, fmt.Errorf("%w: min (%v, %v) exceeds max (%v, %v)", ErrInvalidBoundingBox, minX, minY, maxX, maxY)
	}

	return BoundingBox{
		Name: name,
		Bound: orb.Bound{
			Min: orb.Point{minX, minY},
			Max: orb.Point{maxX, maxY},
		},
	}, nil
}

// MustBoundingBox is like NewBoundingBox but panics on invalid input.
func MustBoundingBox(name string, minX, minY, maxX, maxY float64) BoundingBox {
	b, err := NewBoundingBox(name, minX, minY, maxX, maxY)
	if err != nil {
		panic(err)
	}
	return b
}

// ParseBoundingBox parses "minx,miny,maxx,maxy".
func ParseBoundingBox(s string) (BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("%w: want minx,miny,maxx,maxy, got %q", ErrInvalidBoundingBox, s)
	}

	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("%w: %v", ErrInvalidBoundingBox, err)
		}
		v[i] = f
	}

	return NewBoundingBox("", v[0], v[1], v[2], v[3])
}

// Slice returns the box as [minx, miny, maxx, maxy].
func (b BoundingBox) Slice() []float64 {
	return []float64{b.Bound.Min[0], b.Bound.Min[1], b.Bound.Max[0], b.Bound.Max[1]}
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.Bound.Min[0], b.Bound.Min[1], b.Bound.Max[0], b.Bound.Max[1])
}
