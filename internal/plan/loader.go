package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	rferrors "github.com/felixgeelhaar/runeforge/internal/errors"
	"github.com/felixgeelhaar/runeforge/internal/schema"
)

// Format is an output encoding for plans.
type Format string

// Supported formats
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a --format value.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(value)) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported format %q: must be json or yaml", value)
	}
}

// FormatForPath guesses the format from a file extension, defaulting to JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Encode renders a plan. JSON output is indented and ends with a newline.
func Encode(p *StackPlan, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		data, err := yaml.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("marshal plan: %w", err)
		}
		return data, nil
	case FormatJSON, "":
		data, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal plan: %w", err)
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// Parse decodes a plan from JSON or YAML and checks it against the schema.
func Parse(data []byte) (*StackPlan, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal plan: %w", err)
	}

	generic, err := schema.ToGeneric(raw)
	if err != nil {
		return nil, fmt.Errorf("unmarshal plan: %w", err)
	}
	if err := schema.ValidatePlan(generic); err != nil {
		return nil, rferrors.NewPlanSchemaError(err)
	}

	// re-encode raw rather than generic so large integer seeds stay exact
	canonical, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal plan: %w", err)
	}
	var p StackPlan
	if err := json.Unmarshal(canonical, &p); err != nil {
		return nil, fmt.Errorf("unmarshal plan: %w", err)
	}
	return &p, nil
}

// LoadFile reads a plan from a JSON or YAML file
func LoadFile(path string) (*StackPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, rferrors.NewFileNotFoundError(path)
		}
		return nil, fmt.Errorf("read plan file: %w", err)
	}
	return Parse(data)
}

// SaveFile writes a plan to path, creating parent directories. An empty
// format is chosen from the file extension.
func SaveFile(p *StackPlan, path string, format Format) error {
	if format == "" {
		format = FormatForPath(path)
	}
	data, err := Encode(p, format)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return rferrors.NewFileWriteError(path, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return rferrors.NewFileWriteError(path, err)
	}
	return nil
}
