package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Blueprint errors (BLUEPRINT-001 to BLUEPRINT-099)
	ErrCodeBlueprintNotFound  ErrorCode = "BLUEPRINT-001"
	ErrCodeBlueprintInvalid   ErrorCode = "BLUEPRINT-002"
	ErrCodeBlueprintUnmarshal ErrorCode = "BLUEPRINT-003"
	ErrCodeBlueprintSchema    ErrorCode = "BLUEPRINT-004"

	// Rules errors (RULES-001 to RULES-099)
	ErrCodeRulesNotFound  ErrorCode = "RULES-001"
	ErrCodeRulesInvalid   ErrorCode = "RULES-002"
	ErrCodeRulesUnmarshal ErrorCode = "RULES-003"

	// Selection errors (SELECT-001 to SELECT-099)
	ErrCodeNoEligibleCandidate ErrorCode = "SELECT-001"
	ErrCodeSelectionCancelled  ErrorCode = "SELECT-002"

	// Plan errors (PLAN-001 to PLAN-099)
	ErrCodePlanInvariant ErrorCode = "PLAN-001"
	ErrCodePlanSchema    ErrorCode = "PLAN-002"
	ErrCodePlanMarshal   ErrorCode = "PLAN-003"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileNotFound    ErrorCode = "IO-001"
	ErrCodeFileReadFailed  ErrorCode = "IO-002"
	ErrCodeFileWriteFailed ErrorCode = "IO-003"

	// HTTP request errors (REQUEST-001 to REQUEST-099)
	ErrCodeInvalidSeed    ErrorCode = "REQUEST-001"
	ErrCodeBodyTooLarge   ErrorCode = "REQUEST-002"
	ErrCodeBodyReadFailed ErrorCode = "REQUEST-003"

	// Archive errors (ARCHIVE-001 to ARCHIVE-099)
	ErrCodeArchiveOpen  ErrorCode = "ARCHIVE-001"
	ErrCodeArchiveWrite ErrorCode = "ARCHIVE-002"
	ErrCodeArchiveQuery ErrorCode = "ARCHIVE-003"
	ErrCodePlanNotFound ErrorCode = "ARCHIVE-004"
)

// Category returns the part of the code before the dash, e.g. "PLAN".
func (c ErrorCode) Category() string {
	s := string(c)
	if i := strings.IndexByte(s, '-'); i >= 0 {
		return s[:i]
	}
	return s
}

// RuneforgeError represents an enhanced error with code, suggestions, and documentation
type RuneforgeError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *RuneforgeError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)

	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			fmt.Fprintf(&b, "\n  • %s", suggestion)
		}
	}

	if e.DocsURL != "" {
		fmt.Fprintf(&b, "\n\nDocumentation: %s", e.DocsURL)
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *RuneforgeError) Unwrap() error {
	return e.Cause
}

// New creates a new RuneforgeError
func New(code ErrorCode, message string) *RuneforgeError {
	return &RuneforgeError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new RuneforgeError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *RuneforgeError {
	return &RuneforgeError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *RuneforgeError) WithSuggestion(suggestion string) *RuneforgeError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *RuneforgeError) WithSuggestions(suggestions ...string) *RuneforgeError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *RuneforgeError) WithDocs(url string) *RuneforgeError {
	e.DocsURL = url
	return e
}

// CodeOf returns the code of the outermost RuneforgeError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var re *RuneforgeError
	if stderrors.As(err, &re) {
		return re.Code, true
	}
	return "", false
}

// HasCode reports whether any RuneforgeError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var re *RuneforgeError
		if !stderrors.As(err, &re) {
			return false
		}
		if re.Code == code {
			return true
		}
		err = re.Cause
	}
	return false
}

// Common error constructors for frequently used errors

const docsBase = "https://github.com/felixgeelhaar/runeforge"

// NewBlueprintNotFoundError creates a blueprint file not found error
func NewBlueprintNotFoundError(path string) *RuneforgeError {
	return New(ErrCodeBlueprintNotFound, fmt.Sprintf("blueprint file not found: %s", path)).
		WithSuggestion("Run 'runeforge blueprint new' to create a blueprint").
		WithSuggestion("Check if the file path is correct").
		WithDocs(docsBase + "#blueprint")
}

// NewBlueprintInvalidError creates a blueprint validation error
func NewBlueprintInvalidError(cause error) *RuneforgeError {
	return Wrap(ErrCodeBlueprintInvalid, "invalid blueprint", cause).
		WithSuggestion("Run 'runeforge validate blueprint <file>' to see validation errors").
		WithDocs(docsBase + "#blueprint")
}

// NewBlueprintUnmarshalError creates a blueprint parse error
func NewBlueprintUnmarshalError(path string, cause error) *RuneforgeError {
	return Wrap(ErrCodeBlueprintUnmarshal, fmt.Sprintf("failed to parse blueprint: %s", path), cause).
		WithSuggestion("Check the file syntax; both YAML and JSON are accepted")
}

// NewBlueprintSchemaError creates a blueprint schema mismatch error
func NewBlueprintSchemaError(cause error) *RuneforgeError {
	return Wrap(ErrCodeBlueprintSchema, "blueprint does not match schema", cause).
		WithSuggestion("Compare the file against 'runeforge blueprint new' output").
		WithDocs(docsBase + "#blueprint")
}

// NewRulesNotFoundError creates a rules file not found error
func NewRulesNotFoundError(path string) *RuneforgeError {
	return New(ErrCodeRulesNotFound, fmt.Sprintf("rules file not found: %s", path)).
		WithSuggestion("Omit --rules to use the built-in rules table").
		WithSuggestion("Run 'runeforge rules show' to print the built-in table as a starting point")
}

// NewConfigError creates a malformed rules table error
func NewConfigError(cause error) *RuneforgeError {
	return Wrap(ErrCodeRulesInvalid, "invalid rules table", cause).
		WithSuggestion("Run 'runeforge rules check --rules <file>' to list every problem").
		WithSuggestion("Weights must sum to 1.0 and every candidate needs quality, slo, cost, security, ops").
		WithDocs(docsBase + "#rules")
}

// NewRulesUnmarshalError creates a rules parse error
func NewRulesUnmarshalError(path string, cause error) *RuneforgeError {
	return Wrap(ErrCodeRulesUnmarshal, fmt.Sprintf("failed to parse rules: %s", path), cause).
		WithSuggestion("Check the YAML syntax of the rules table")
}

// NewNoEligibleCandidateError creates a selection failure error
func NewNoEligibleCandidateError(cause error) *RuneforgeError {
	return Wrap(ErrCodeNoEligibleCandidate, "no eligible candidate", cause).
		WithSuggestion("Relax region_allow, persistence, compliance or monthly_cost_usd_max").
		WithSuggestion("Run 'runeforge explain -f <file>' to see why each candidate was rejected")
}

// NewSelectionCancelledError wraps a context error that stopped a selection
func NewSelectionCancelledError(cause error) *RuneforgeError {
	return Wrap(ErrCodeSelectionCancelled, "selection cancelled", cause)
}

// NewPlanInvariantError creates an output invariant violation error
func NewPlanInvariantError(details string) *RuneforgeError {
	return New(ErrCodePlanInvariant, fmt.Sprintf("plan invariant violated: %s", details)).
		WithSuggestion("This is a defect in the selection engine; please report it with the blueprint and seed")
}

// NewPlanSchemaError creates a plan schema failure error
func NewPlanSchemaError(cause error) *RuneforgeError {
	return Wrap(ErrCodePlanSchema, "plan does not match schema", cause).
		WithSuggestion("This is a defect in the selection engine; please report it with the blueprint and seed")
}

// NewFileNotFoundError creates a file not found error
func NewFileNotFoundError(path string) *RuneforgeError {
	return New(ErrCodeFileNotFound, fmt.Sprintf("file not found: %s", path)).
		WithSuggestion("Check if the file path is correct").
		WithSuggestion("Verify the file exists and you have read permissions")
}

// NewFileWriteError creates an output write error
func NewFileWriteError(path string, cause error) *RuneforgeError {
	return Wrap(ErrCodeFileWriteFailed, fmt.Sprintf("failed to write %s", path), cause).
		WithSuggestion("Check that the target directory exists and is writable")
}

// NewArchiveOpenError creates an error for an archive that cannot be opened
func NewArchiveOpenError(path string, cause error) *RuneforgeError {
	return Wrap(ErrCodeArchiveOpen, fmt.Sprintf("failed to open plan archive: %s", path), cause).
		WithSuggestions(
			"Check that the archive directory exists and is writable",
			"Pass --archive with a different path, or omit it to skip archiving",
		)
}

// NewArchiveWriteError creates an error for a plan that could not be archived
func NewArchiveWriteError(cause error) *RuneforgeError {
	return Wrap(ErrCodeArchiveWrite, "failed to archive plan", cause)
}

// NewArchiveQueryError creates an error for a failed archive read
func NewArchiveQueryError(cause error) *RuneforgeError {
	return Wrap(ErrCodeArchiveQuery, "failed to query plan archive", cause)
}

// NewPlanNotFoundError creates an error for an unknown archived plan
func NewPlanNotFoundError(hash string) *RuneforgeError {
	return New(ErrCodePlanNotFound, fmt.Sprintf("no archived plan matches %s", hash)).
		WithSuggestion("Run 'runeforge history' to list archived plan hashes")
}
