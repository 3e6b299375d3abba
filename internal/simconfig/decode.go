package simconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atvirokodosprendimai/gprcatalog/internal/domain"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrFileNotFound is returned by LoadFile for a missing path.
var ErrFileNotFound = errors.New("config file not found")

// ParseFormat accepts "json", "yaml" and "yml"; anything else is JSON.
func ParseFormat(raw string) Format {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yaml", "yml", "application/yaml", "application/x-yaml", "text/yaml":
		return FormatYAML
	}
	return FormatJSON
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) Format {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Parse decodes and validates a document. Decoding problems and rule
// violations are both reported as *domain.SchemaViolationError.
func Parse(data []byte, format Format) (Document, error) {
	doc, err := Decode(data, format)
	if err != nil {
		return Document{}, err
	}
	if err := Validate(&doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Decode fills defaults and converts the document without validating it.
// YAML is normalized to JSON first so both formats share the same decoding
// and defaults.
func Decode(data []byte, format Format) (Document, error) {
	if format == FormatYAML {
		converted, err := yamlToJSON(data)
		if err != nil {
			return Document{}, err
		}
		data = converted
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Document{}, domain.Violate("", "document is empty")
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			field := typeErr.Field
			if field == "" {
				field = "(root)"
			}
			return Document{}, domain.Violate(field, "expected %s, got %s", typeErr.Type.String(), typeErr.Value)
		}
		return Document{}, domain.Violate("", "invalid JSON: %v", err)
	}
	return doc, nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, domain.Violate("", "invalid YAML: %v", err)
	}
	normalized, err := normalizeYAML(raw)
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(normalized)
	if err != nil {
		return nil, domain.Violate("", "unsupported YAML value: %v", err)
	}
	return out, nil
}

// normalizeYAML converts map[any]any nodes, which encoding/json cannot
// marshal, into map[string]any.
func normalizeYAML(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			n, err := normalizeYAML(item)
			if err != nil {
				return nil, err
			}
			t[k] = n
		}
		return t, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			n, err := normalizeYAML(item)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(k)] = n
		}
		return out, nil
	case []any:
		for i, item := range t {
			n, err := normalizeYAML(item)
			if err != nil {
				return nil, err
			}
			t[i] = n
		}
		return t, nil
	}
	return v, nil
}

// LoadFile reads and validates a document from disk.
func LoadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Document{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return Document{}, err
	}
	return Parse(data, FormatFromPath(path))
}

// Encode renders doc in the requested format.
func Encode(doc Document, format Format) ([]byte, error) {
	if format == FormatYAML {
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
	return json.MarshalIndent(doc, "", "  ")
}
