package rules

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	rferrors "github.com/felixgeelhaar/runeforge/internal/errors"
)

//go:embed builtin/rules.yaml
var builtinRules embed.FS

// BuiltinSource is the Source of the embedded default table.
const BuiltinSource = "builtin"

// ProjectFile is the rules file looked up in the working directory.
const ProjectFile = "runeforge.rules.yaml"

// Parse decodes a YAML rules table and loads it. Unknown fields are rejected
// so that typos in flag names do not silently disable a filter.
func Parse(data []byte, source string) (*Repository, error) {
	cfg, err := Decode(data, source)
	if err != nil {
		return nil, err
	}
	repo, err := Load(*cfg)
	if err != nil {
		return nil, err
	}
	repo.source = source
	return repo, nil
}

// Decode reads a YAML rules table without validating it.
func Decode(data []byte, source string) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, rferrors.NewRulesUnmarshalError(source, err)
	}
	return &cfg, nil
}

// LoadFile reads and loads a rules table from a YAML file.
func LoadFile(path string) (*Repository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, rferrors.NewRulesNotFoundError(path)
		}
		return nil, rferrors.Wrap(rferrors.ErrCodeFileReadFailed, fmt.Sprintf("failed to read %s", path), err)
	}
	return Parse(data, path)
}

// Default loads the embedded default rules table.
func Default() (*Repository, error) {
	data, err := BuiltinYAML()
	if err != nil {
		return nil, err
	}
	return Parse(data, BuiltinSource)
}

// BuiltinYAML returns the embedded default table as written.
func BuiltinYAML() ([]byte, error) {
	data, err := builtinRules.ReadFile("builtin/rules.yaml")
	if err != nil {
		return nil, fmt.Errorf("read builtin rules: %w", err)
	}
	return data, nil
}

// Resolve picks the rules table for an invocation.
//
// Resolution order (highest to lowest precedence):
// 1. An explicit path (--rules flag or RUNEFORGE_RULES)
// 2. Project-level table (./runeforge.rules.yaml)
// 3. User-level table (~/.runeforge/rules.yaml)
// 4. Built-in table (embedded in binary)
//
// Tables are not merged; the first one found wins.
func Resolve(explicit, projectDir, userDir string) (*Repository, error) {
	if explicit != "" {
		return LoadFile(explicit)
	}

	candidates := []string{}
	if projectDir != "" {
		candidates = append(candidates, filepath.Join(projectDir, ProjectFile))
	}
	if userDir != "" {
		candidates = append(candidates, filepath.Join(userDir, "rules.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	return Default()
}
