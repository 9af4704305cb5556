package rag

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadSeedFile reads a JSON (.json) or YAML (.yaml/.yml) seed file.
// The metadata source of every item is the file's base name.
func LoadSeedFile(path string) ([]SeedItem, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	source := filepath.Base(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseSeedYAML(raw, source)
	case ".json", "":
		return ParseSeedJSON(raw, source)
	default:
		return nil, invalid("seed", "unsupported seed file type %q", filepath.Ext(path))
	}
}

// ParseSeedJSON parses a JSON array of seed records. Object records keep
// their key order in the stored text.
func ParseSeedJSON(raw []byte, source string) ([]SeedItem, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		if len(trimmed) > 0 && !json.Valid(trimmed) {
			return nil, invalid("seed", "malformed JSON")
		}
		return nil, notArray()
	}
	var records []json.RawMessage
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, invalid("seed", "malformed JSON: %v", err)
	}

	items := make([]SeedItem, 0, len(records))
	for i, rec := range records {
		var v any
		dec := json.NewDecoder(bytes.NewReader(rec))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil {
			return nil, invalid("seed", "item %d: %v", i, err)
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, rec); err != nil {
			return nil, invalid("seed", "item %d: %v", i, err)
		}
		item, err := seedItem(i, v, compact.String(), source)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// ParseSeedYAML parses a YAML sequence of seed records.
func ParseSeedYAML(raw []byte, source string) ([]SeedItem, error) {
	var root any
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, invalid("seed", "malformed YAML: %v", err)
	}
	records, ok := root.([]any)
	if !ok {
		return nil, notArray()
	}

	items := make([]SeedItem, 0, len(records))
	for i, v := range records {
		var text string
		if s, ok := v.(string); ok {
			text = s
		} else {
			b, err := json.Marshal(v)
			if err != nil {
				return nil, invalid("seed", "item %d: %v", i, err)
			}
			text = string(b)
		}
		item, err := seedItem(i, v, text, source)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// seedItem shapes one record:
//   - a string is stored as-is;
//   - {text, metadata?} stores text with the given metadata;
//   - any other value is stored as its JSON text, tagged with its topic.
//
// source and index are added to metadata unless already present.
func seedItem(index int, v any, jsonText, source string) (SeedItem, error) {
	md := Metadata{}
	var text string

	switch x := v.(type) {
	case nil:
		return SeedItem{}, invalid("seed", "item %d is null", index)
	case string:
		text = x
	case map[string]any:
		if t, ok := x["text"].(string); ok && isTextRecord(x) {
			text = t
			if m, ok := x["metadata"].(map[string]any); ok {
				for k, mv := range m {
					md[k] = normalizeNumber(mv)
				}
			}
		} else {
			text = jsonText
			if topic, ok := x["topic"].(string); ok {
				md["topic"] = topic
			}
		}
	default:
		text = jsonText
	}

	if _, ok := md["source"]; !ok {
		md["source"] = source
	}
	if _, ok := md["index"]; !ok {
		md["index"] = index
	}
	return SeedItem{Text: text, Metadata: md}, nil
}

// isTextRecord reports whether m only carries the {text, metadata} keys.
func isTextRecord(m map[string]any) bool {
	for k := range m {
		if k != "text" && k != "metadata" {
			return false
		}
	}
	if raw, ok := m["metadata"]; ok {
		if _, isMap := raw.(map[string]any); !isMap {
			return false
		}
	}
	return true
}

// normalizeNumber turns json.Number into int64 or float64 so metadata
// round-trips through the stores as a plain JSON number.
func normalizeNumber(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

func notArray() error {
	return &ValidationError{Field: "seed", Reason: "root must be an array", Err: ErrInvalidSeed}
}
