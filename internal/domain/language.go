package domain

import (
	"fmt"
	"strings"
)

// Language identifies a programming language toolchain.
type Language string

// Languages a blueprint can lock a plan to
const (
	LanguageRust Language = "rust"
	LanguageGo   Language = "go"
	LanguageTS   Language = "ts"
	LanguageNone Language = "none" // polyglot
)

var languageAliases = map[string]Language{
	"typescript": LanguageTS,
	"javascript": LanguageTS,
	"js":         LanguageTS,
	"node":       LanguageTS,
	"golang":     LanguageGo,
}

// NormalizeLanguage lowercases a language label and folds known aliases,
// so "TypeScript" and "ts" compare equal.
func NormalizeLanguage(value string) Language {
	v := strings.ToLower(strings.TrimSpace(value))
	if alias, ok := languageAliases[v]; ok {
		return alias
	}
	return Language(v)
}

// NewLanguageMode parses a single-language mode value.
// The empty string is accepted and means polyglot.
func NewLanguageMode(value string) (Language, error) {
	if strings.TrimSpace(value) == "" {
		return LanguageNone, nil
	}
	l := NormalizeLanguage(value)
	if err := l.ValidateMode(); err != nil {
		return "", err
	}
	return l, nil
}

// ValidateMode checks that the language is an allowed single-language mode
func (l Language) ValidateMode() error {
	switch l {
	case LanguageRust, LanguageGo, LanguageTS, LanguageNone, "":
		return nil
	default:
		return fmt.Errorf("invalid single_language_mode %q: must be rust, go, ts, or none", string(l))
	}
}

// IsLocked reports whether the mode pins the plan to one language
func (l Language) IsLocked() bool {
	return l != "" && l != LanguageNone
}

// String returns the string representation
func (l Language) String() string {
	return string(l)
}
