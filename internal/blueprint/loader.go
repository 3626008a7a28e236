package blueprint

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	rferrors "github.com/felixgeelhaar/runeforge/internal/errors"
	"github.com/felixgeelhaar/runeforge/internal/schema"
)

// Repository defines the interface for loading and saving Blueprint files.
type Repository interface {
	// Load reads and validates a Blueprint from a file
	Load(path string) (*Blueprint, error)

	// Save writes a Blueprint to a file as YAML
	Save(bp *Blueprint, path string) error
}

// FileRepository implements Repository for file-based storage
type FileRepository struct{}

// NewFileRepository creates a new file-based blueprint repository
func NewFileRepository() *FileRepository {
	return &FileRepository{}
}

// Load reads a Blueprint from a YAML or JSON file
func (r *FileRepository) Load(path string) (*Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, rferrors.NewBlueprintNotFoundError(path)
		}
		return nil, rferrors.Wrap(rferrors.ErrCodeFileReadFailed, fmt.Sprintf("failed to read %s", path), err)
	}
	return Parse(data, path)
}

// Save writes a Blueprint to a YAML file
func (r *FileRepository) Save(bp *Blueprint, path string) error {
	if err := bp.Validate(); err != nil {
		return rferrors.NewBlueprintInvalidError(err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	data, err := yaml.Marshal(bp)
	if err != nil {
		return fmt.Errorf("marshal blueprint: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return rferrors.NewFileWriteError(path, err)
	}
	return nil
}

// Parse decodes a Blueprint from YAML or JSON bytes, checks it against the
// Blueprint schema, applies domain validation and normalises set fields.
// source is only used in error messages.
func Parse(data []byte, source string) (*Blueprint, error) {
	// yaml.v3 also accepts JSON documents
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, rferrors.NewBlueprintUnmarshalError(source, err)
	}

	if err := schema.ValidateBlueprint(raw); err != nil {
		return nil, rferrors.NewBlueprintSchemaError(err)
	}

	var bp Blueprint
	if err := yaml.Unmarshal(data, &bp); err != nil {
		return nil, rferrors.NewBlueprintUnmarshalError(source, err)
	}

	if err := bp.Validate(); err != nil {
		return nil, rferrors.NewBlueprintInvalidError(err)
	}

	bp.normalize()
	return &bp, nil
}

// Default instance for package-level functions
var defaultRepository = NewFileRepository()

// LoadFile reads a Blueprint using the default repository.
func LoadFile(path string) (*Blueprint, error) {
	return defaultRepository.Load(path)
}

// Compile-time verification that FileRepository implements Repository
var _ Repository = (*FileRepository)(nil)
