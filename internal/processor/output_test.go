package processor

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/woozymasta/zipfilter/internal/config"
	"github.com/woozymasta/zipfilter/internal/geo"

	. "gopkg.in/check.v1"
	"gopkg.in/yaml.v3"
)

type OutputSuite struct {
	fc *geo.FeatureCollection
}

var _ = Suite(&OutputSuite{})

func (s *OutputSuite) SetUpTest(c *C) {
	fc, err := geo.UnmarshalFeatureCollection([]byte(`{"features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[-122.4194155,37.7749295]},"properties":{"GEOID":"94103","ALAND":2000000}}
	]}`))
	c.Assert(err, IsNil)
	s.fc = fc
}

func (s *OutputSuite) TestIndent(c *C) {
	data, err := Encode(s.fc, Options{Format: config.FormatJSON, Indent: 4})
	c.Assert(err, IsNil)
	c.Assert(strings.HasPrefix(string(data), "{\n    \"type\": \"FeatureCollection\""), Equals, true)
}

func (s *OutputSuite) TestCompact(c *C) {
	data, err := Encode(s.fc, Options{Format: config.FormatJSON})
	c.Assert(err, IsNil)
	c.Assert(strings.Contains(string(data), "\n"), Equals, false)
	c.Assert(strings.Contains(string(data), `"ALAND":2000000`), Equals, true)
}

func (s *OutputSuite) TestMinify(c *C) {
	data, err := Encode(s.fc, Options{Format: config.FormatJSON, Indent: 2, Minify: true})
	c.Assert(err, IsNil)
	c.Assert(strings.Contains(string(data), "\n"), Equals, false)
	c.Assert(strings.Contains(string(data), `"GEOID":"94103"`), Equals, true)

	_, err = geo.UnmarshalFeatureCollection(data)
	c.Assert(err, IsNil)
}

func (s *OutputSuite) TestYAML(c *C) {
	data, err := Encode(s.fc, Options{Format: config.FormatYAML, Indent: 2})
	c.Assert(err, IsNil)

	var doc struct {
		Type     string `yaml:"type"`
		Features []struct {
			Geometry struct {
				Coordinates []float64 `yaml:"coordinates"`
			} `yaml:"geometry"`
			Properties map[string]any `yaml:"properties"`
		} `yaml:"features"`
	}
	c.Assert(yaml.Unmarshal(data, &doc), IsNil)
	c.Assert(doc.Type, Equals, "FeatureCollection")
	c.Assert(doc.Features, HasLen, 1)
	c.Assert(doc.Features[0].Geometry.Coordinates, DeepEquals, []float64{-122.4194155, 37.7749295})
	c.Assert(doc.Features[0].Properties["GEOID"], Equals, "94103")

	// coordinate pairs stay inline
	c.Assert(strings.Contains(string(data), "[-122.4194155, 37.7749295]"), Equals, true)
}

func (s *OutputSuite) TestSaveCreatesDirectories(c *C) {
	path := filepath.Join(c.MkDir(), "a", "b", "out.geojson")
	c.Assert(saveGeoJSON(path, []byte("{}")), IsNil)

	data, err := os.ReadFile(path)
	c.Assert(err, IsNil)
	c.Assert(string(data), Equals, "{}")

	info, err := os.Stat(path)
	c.Assert(err, IsNil)
	c.Assert(info.Mode().Perm(), Equals, os.FileMode(0644))
}

func (s *OutputSuite) TestSaveFailureLeavesNoTemp(c *C) {
	dir := c.MkDir()
	target := filepath.Join(dir, "out.geojson")
	c.Assert(os.Mkdir(target, 0755), IsNil)
	c.Assert(os.WriteFile(filepath.Join(target, "keep"), nil, 0644), IsNil)

	c.Assert(saveGeoJSON(target, []byte("{}")), NotNil)

	entries, err := os.ReadDir(dir)
	c.Assert(err, IsNil)
	c.Assert(entries, HasLen, 1)
}
