package dag

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

// ParseInput decodes a DagInput. format is "json", "yaml" or empty to sniff:
// documents starting with '{' are JSON.
func ParseInput(data []byte, format string) (DagInput, error) {
	var in DagInput
	format = strings.ToLower(format)
	if format == "" {
		format = "yaml"
		if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
			format = "json"
		}
	}

	switch format {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&in); err != nil {
			return in, fmt.Errorf("dag: parsing json: %w", err)
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&in); err != nil {
			return in, fmt.Errorf("dag: parsing yaml: %w", err)
		}
	default:
		return in, fmt.Errorf("dag: unsupported format %q", format)
	}
	return in, nil
}

// LoadInput reads a DagInput file. The extension picks the format; other
// extensions are sniffed.
func LoadInput(path string) (DagInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DagInput{}, err
	}
	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if format != "json" && format != "yaml" && format != "yml" {
		format = ""
	}
	in, err := ParseInput(data, format)
	if err != nil {
		return in, fmt.Errorf("dag: loading %s: %w", path, err)
	}
	return in, nil
}
