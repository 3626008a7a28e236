// Package schema validates blueprint and plan documents against the embedded
// OpenAPI component schemas.
package schema

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

// Component names in the embedded document
const (
	Blueprint = "Blueprint"
	StackPlan = "StackPlan"
)

//go:embed runeforge.yaml
var document []byte

var loadDocument = sync.OnceValues(func() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(document)
	if err != nil {
		return nil, fmt.Errorf("load schema document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid schema document: %w", err)
	}
	return doc, nil
})

// Document returns the raw embedded OpenAPI document.
func Document() []byte {
	out := make([]byte, len(document))
	copy(out, document)
	return out
}

// Validate checks value against the named component schema. value may be any
// JSON-marshalable Go value; it is normalised to the generic JSON form first.
// All violations are reported, not only the first.
func Validate(component string, value any) error {
	doc, err := loadDocument()
	if err != nil {
		return err
	}

	if doc.Components == nil {
		return fmt.Errorf("schema document has no components")
	}
	ref, ok := doc.Components.Schemas[component]
	if !ok || ref.Value == nil {
		return fmt.Errorf("unknown schema component %q", component)
	}

	generic, err := ToGeneric(value)
	if err != nil {
		return err
	}

	return ref.Value.VisitJSON(generic,
		openapi3.MultiErrors(),
		openapi3.SetSchemaErrorMessageCustomizer(shortMessage),
	)
}

// shortMessage renders a schema error as "/json/pointer: reason" without the
// schema dump the library appends by default.
func shortMessage(err *openapi3.SchemaError) string {
	if err.Origin != nil {
		return ""
	}
	reason := err.Reason
	if reason == "" {
		reason = fmt.Sprintf("doesn't match schema %q", err.SchemaField)
	}
	pointer := "/" + strings.Join(err.JSONPointer(), "/")
	return pointer + ": " + reason
}

// ValidateBlueprint checks a blueprint document.
func ValidateBlueprint(value any) error {
	return Validate(Blueprint, value)
}

// ValidatePlan checks a stack plan document.
func ValidatePlan(value any) error {
	return Validate(StackPlan, value)
}

// ToGeneric converts v into the map[string]any / []any / float64 shape that
// encoding/json produces, which is what the schema visitor understands.
func ToGeneric(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return generic, nil
}
