package processor

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/woozymasta/zipfilter/internal/config"
	"github.com/woozymasta/zipfilter/internal/geo"

	"github.com/rs/zerolog/log"
	"github.com/tdewolff/minify/v2"
	jsonmin "github.com/tdewolff/minify/v2/json"
	"gopkg.in/yaml.v3"
)

const mimeGeoJSON = "application/geo+json"

// Encode serializes the collection in the configured format.
func Encode(fc *geo.FeatureCollection, opts Options) ([]byte, error) {
	data, err := geo.Marshal(fc)
	if err != nil {
		return nil, err
	}

	if opts.Format == config.FormatYAML {
		return toYAML(data, opts.Indent)
	}

	if opts.Minify {
		m := minify.New()
		m.Add(mimeGeoJSON, &jsonmin.Minifier{Precision: opts.Precision})
		return m.Bytes(mimeGeoJSON, data)
	}

	if opts.Indent <= 0 {
		return data, nil
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", strings.Repeat(" ", opts.Indent)); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// toYAML re-reads the JSON document as a YAML node tree so key order is kept,
// then switches collections to block style. Sequences of scalars such as
// coordinate pairs stay inline.
func toYAML(data []byte, indent int) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	blockStyle(&doc)

	if indent < 2 {
		indent = 2
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(indent)
	if err := enc.Encode(&doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func blockStyle(n *yaml.Node) {
	switch n.Kind {
	case yaml.MappingNode:
		n.Style &^= yaml.FlowStyle
	case yaml.SequenceNode:
		if !scalarsOnly(n) {
			n.Style &^= yaml.FlowStyle
		}
	}

	for _, c := range n.Content {
		blockStyle(c)
	}
}

func scalarsOnly(n *yaml.Node) bool {
	for _, c := range n.Content {
		if c.Kind != yaml.ScalarNode {
			return false
		}
	}
	return len(n.Content) > 0
}

// saveGeoJSON writes data to a temporary file next to path and renames it
// into place, so readers never see a partial file.
func saveGeoJSON(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()

	defer func() {
		if err == nil {
			return
		}
		if rmErr := os.Remove(tmp); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Error().Err(rmErr).Str("path", tmp).Msg("Failed to remove temporary file")
		}
	}()

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp, 0644); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}
