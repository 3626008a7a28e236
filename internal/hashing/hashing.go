// Package hashing provides the content hashes that make plans reproducible.
//
// Hash digests are "sha256:<hex>" strings computed over canonical JSON: object keys
// sorted, no insignificant whitespace, numbers written exactly as encoding/json
// renders them. Two values with the same content always hash the same regardless of
// struct field order or the textual format they were decoded from.
package hashing

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/zeebo/blake3"
)

const (
	sha256Prefix = "sha256:"
	blake3Prefix = "blake3:"
)

// Hash returns the hex-encoded SHA-256 digest of data, prefixed "sha256:".
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return sha256Prefix + hex.EncodeToString(sum[:])
}

// HashValue canonicalizes v and hashes the result.
func HashValue(v any) (string, error) {
	canonical, err := Canonicalize(v)
	if err != nil {
		return "", fmt.Errorf("canonicalize value: %w", err)
	}
	return Hash(canonical), nil
}

// Fingerprint returns a blake3 digest of data, prefixed "blake3:".
// Used for cache and archive identities that are not part of a plan.
func Fingerprint(data []byte) string {
	hasher := blake3.New()
	_, _ = hasher.Write(data)
	return blake3Prefix + hex.EncodeToString(hasher.Sum(nil))
}

// Canonicalize returns the canonical JSON encoding of v.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, generic); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeCanonical walks a decoded JSON tree and writes it with sorted object keys.
func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeScalar(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil

	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil

	case json.Number:
		buf.WriteString(val.String())
		return nil

	default:
		return writeScalar(buf, val)
	}
}

func writeScalar(buf *bytes.Buffer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal scalar: %w", err)
	}
	buf.Write(b)
	return nil
}
