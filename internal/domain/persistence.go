package domain

import "fmt"

// Persistence is the storage model a project asks for or a database offers.
// This is a value object that enforces valid persistence values.
type Persistence string

// Valid persistence modes
const (
	PersistenceKV   Persistence = "kv"   // key/value access only
	PersistenceSQL  Persistence = "sql"  // relational access only
	PersistenceBoth Persistence = "both" // both access models
)

// NewPersistence creates a new Persistence value object with validation
func NewPersistence(value string) (Persistence, error) {
	p := Persistence(value)
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p, nil
}

// Validate checks if the persistence mode is valid
func (p Persistence) Validate() error {
	switch p {
	case PersistenceKV, PersistenceSQL, PersistenceBoth:
		return nil
	default:
		return fmt.Errorf("invalid persistence %q: must be kv, sql, or both", string(p))
	}
}

// String returns the string representation
func (p Persistence) String() string {
	return string(p)
}

// Satisfies reports whether an offering of p covers the requested mode.
// kv is covered by kv and both, sql by sql and both, both only by both.
func (p Persistence) Satisfies(requested Persistence) bool {
	if requested == "" {
		return true
	}
	if p == PersistenceBoth {
		return true
	}
	return p == requested
}
