// Package geo handles GeoJSON documents, bounding boxes and the geometric
// tests run against them.
package geo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const (
	typeFeatureCollection = "FeatureCollection"
	typeFeature           = "Feature"

	memberType       = "type"
	memberFeatures   = "features"
	memberGeometry   = "geometry"
	memberProperties = "properties"
)

var (
	// ErrNotObject is returned when a document or feature is not a JSON object.
	ErrNotObject = errors.New("not a JSON object")
	// ErrInvalidFeatures is returned for a "features" member that is not an array.
	ErrInvalidFeatures = errors.New("features must be an array")
	// ErrInvalidProperties is returned when a feature carries a "properties"
	// member that is not a JSON object.
	ErrInvalidProperties = errors.New("feature properties must be an object")
)

// FeatureCollection represents a collection of geographic features.
// It follows the standard GeoJSON structure.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`

	// HasFeatures is false when the decoded document had no "features" member.
	HasFeatures bool `json:"-"`
}

// NewFeatureCollection builds a collection of features with the type tag set.
func NewFeatureCollection(features ...Feature) *FeatureCollection {
	if features == nil {
		features = []Feature{}
	}
	return &FeatureCollection{
		Type:        typeFeatureCollection,
		Features:    features,
		HasFeatures: true,
	}
}

// UnmarshalFeatureCollection decodes a GeoJSON document. The document must be
// an object. A missing "features" member yields an empty collection, an
// explicit null does not.
func UnmarshalFeatureCollection(data []byte) (*FeatureCollection, error) {
	_, members, err := decodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("document: %w", err)
	}

	fc := &FeatureCollection{Type: typeFeatureCollection, Features: []Feature{}}

	raw, ok := members[memberFeatures]
	if !ok {
		return fc, nil
	}
	if isNull(raw) {
		return nil, fmt.Errorf("%w, got null", ErrInvalidFeatures)
	}

	fc.HasFeatures = true
	if err := json.Unmarshal(raw, &fc.Features); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}

	return fc, nil
}

// MarshalJSON always emits the FeatureCollection type tag and a non-null
// features array.
func (fc FeatureCollection) MarshalJSON() ([]byte, error) {
	features := fc.Features
	if features == nil {
		features = []Feature{}
	}

	return Marshal(struct {
		Type     string    `json:"type"`
		Features []Feature `json:"features"`
	}{
		Type:     typeFeatureCollection,
		Features: features,
	})
}

// Feature is a single GeoJSON feature. Members other than "properties" are
// kept as raw JSON so ids, bboxes and foreign members survive a round trip,
// and members and properties are written back in the order they were read.
//
// Properties stay undecoded until DecodeProperties is called.
type Feature struct {
	Members    map[string]json.RawMessage
	Properties geojson.Properties

	keys     []string
	propKeys []string
	rawProps json.RawMessage
}

// NewFeature builds a feature from an orb geometry and a property set.
func NewFeature(g orb.Geometry, props geojson.Properties) (Feature, error) {
	f := Feature{
		Members:    map[string]json.RawMessage{memberType: json.RawMessage(`"` + typeFeature + `"`)},
		Properties: props,
		keys:       []string{memberType},
	}

	if g != nil {
		raw, err := Marshal(geojson.NewGeometry(g))
		if err != nil {
			return Feature{}, err
		}
		f.Members[memberGeometry] = raw
		f.keys = append(f.keys, memberGeometry)
	}
	f.keys = append(f.keys, memberProperties)

	return f, nil
}

// UnmarshalJSON decodes a feature object, rejecting anything else.
func (f *Feature) UnmarshalJSON(data []byte) error {
	keys, members, err := decodeObject(data)
	if err != nil {
		return fmt.Errorf("feature: %w", err)
	}

	raw := members[memberProperties]
	delete(members, memberProperties)

	*f = Feature{Members: members, keys: keys, rawProps: raw}
	return nil
}

// DecodeProperties decodes the properties member read from disk. Values keep
// their exact numeric text. A null or missing member leaves Properties nil.
// Calling it again is a no-op.
func (f *Feature) DecodeProperties() error {
	raw := f.rawProps
	if raw == nil {
		return nil
	}
	if isNull(raw) {
		f.rawProps = nil
		return nil
	}

	keys, members, err := decodeObject(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProperties, err)
	}

	props := make(geojson.Properties, len(members))
	for k, v := range members {
		dec := json.NewDecoder(bytes.NewReader(v))
		dec.UseNumber()
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidProperties, err)
		}
		props[k] = value
	}

	f.Properties = props
	f.propKeys = keys
	f.rawProps = nil
	return nil
}

// SetProperty sets a property, appending new keys after the existing ones.
func (f *Feature) SetProperty(key string, value any) {
	if f.Properties == nil {
		f.Properties = geojson.Properties{}
	}
	if _, ok := f.Properties[key]; !ok && !slices.Contains(f.propKeys, key) {
		f.propKeys = append(f.propKeys, key)
	}
	f.Properties[key] = value
}

// MarshalJSON writes the preserved members together with the current
// properties, in their original order. Keys added directly to the maps
// follow in sorted order.
func (f Feature) MarshalJSON() ([]byte, error) {
	keys := orderedKeys(f.keys, f.Members, memberProperties)
	if !slices.Contains(keys, memberProperties) {
		keys = append(keys, memberProperties)
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, k); err != nil {
			return nil, err
		}

		if k != memberProperties {
			buf.Write(f.Members[k])
			continue
		}

		if err := f.writeProperties(&buf); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func (f Feature) writeProperties(buf *bytes.Buffer) error {
	if f.Properties == nil {
		if f.rawProps != nil {
			buf.Write(f.rawProps)
		} else {
			buf.WriteString("null")
		}
		return nil
	}

	buf.WriteByte('{')
	for i, k := range orderedKeys(f.propKeys, map[string]any(f.Properties), "") {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(buf, k); err != nil {
			return err
		}
		v, err := Marshal(f.Properties[k])
		if err != nil {
			return fmt.Errorf("property %q: %w", k, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')

	return nil
}

// HasGeometry reports whether the feature carries a non-empty geometry member.
func (f Feature) HasGeometry() bool {
	return !isEmpty(f.Members[memberGeometry])
}

// Geometry parses the geometry member into an orb geometry.
// It returns nil without an error when the feature has no geometry.
func (f Feature) Geometry() (orb.Geometry, error) {
	if !f.HasGeometry() {
		return nil, nil
	}

	g, err := geojson.UnmarshalGeometry(f.Members[memberGeometry])
	if err != nil {
		return nil, fmt.Errorf("decode geometry: %w", err)
	}

	return g.Geometry(), nil
}

// Marshal encodes v as compact JSON without escaping &, < and >.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// decodeObject splits a JSON object into its members, recording key order.
// A repeated key keeps its first position and its last value.
func decodeObject(data []byte) ([]string, map[string]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, nil, ErrNotObject
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}

	var keys []string
	members := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected token %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, err
		}

		if _, seen := members[key]; !seen {
			keys = append(keys, key)
		}
		members[key] = raw
	}

	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	if rest := bytes.TrimSpace(data[dec.InputOffset():]); len(rest) > 0 {
		return nil, nil, errors.New("unexpected data after object")
	}

	return keys, members, nil
}

// orderedKeys returns the known keys still present in m (or equal to keep),
// followed by the remaining keys of m in sorted order.
func orderedKeys[V any](known []string, m map[string]V, keep string) []string {
	out := make([]string, 0, len(m)+1)
	listed := make(map[string]bool, len(known))
	for _, k := range known {
		if _, ok := m[k]; ok || (keep != "" && k == keep) {
			out = append(out, k)
			listed[k] = true
		}
	}

	var rest []string
	for k := range m {
		if !listed[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)

	return append(out, rest...)
}

func writeKey(buf *bytes.Buffer, key string) error {
	k, err := Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	return nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// isEmpty reports whether raw is absent or a JSON value that reads as empty:
// null, false, zero, "", [] or {}.
func isEmpty(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if isNull(raw) {
		return true
	}

	switch raw[0] {
	case '{', '[':
		rest := bytes.TrimSpace(raw[1:])
		return len(rest) == 1 && (rest[0] == '}' || rest[0] == ']')
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}

	switch v := v.(type) {
	case bool:
		return !v
	case float64:
		return v == 0
	case string:
		return v == ""
	}

	return false
}
