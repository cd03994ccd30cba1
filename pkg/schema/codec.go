package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// IsJSON reports whether name is read as JSON. Every other name is YAML.
func IsJSON(name string) bool {
	return strings.ToLower(filepath.Ext(name)) == ".json"
}

// Unmarshal decodes a document, choosing the format from the extension of name.
// Unknown fields are rejected.
func Unmarshal(name string, data []byte) (ZoneDocument, error) {
	var doc ZoneDocument
	if IsJSON(name) {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return ZoneDocument{}, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		return doc, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return ZoneDocument{}, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return doc, nil
}

// Marshal encodes doc in the format implied by the extension of name.
func Marshal(name string, doc ZoneDocument) ([]byte, error) {
	if IsJSON(name) {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a document from a generic map, such as frontmatter or a
// decoded config section. Scalars are converted loosely, so a YAML
// "day: '5'" still reads as 5.
func Decode(raw map[string]any) (ZoneDocument, error) {
	var doc ZoneDocument
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &doc,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return ZoneDocument{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return ZoneDocument{}, fmt.Errorf("failed to decode zone document: %w", err)
	}
	return doc, nil
}

// Map is the inverse of Decode.
func (d ZoneDocument) Map() (map[string]any, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
