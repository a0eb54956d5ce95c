package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// DedupeKey computes the content hash identifying one (type, params) pair.
// The hash input is the type name, a null byte, then the canonical JSON
// encoding of the parameters. The null separator prevents a crafted
// (name, params) pair from colliding with a different pair whose
// concatenation yields the same byte string.
func DedupeKey(typeName string, params any) (string, error) {
	canonical, err := CanonicalJSON(params)
	if err != nil {
		return "", err
	}

	hash := sha256.New()
	hash.Write([]byte(typeName))
	hash.Write([]byte{0})
	hash.Write([]byte(canonical))
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// CanonicalJSON encodes a value as JSON with object keys sorted
// recursively and no insignificant whitespace, so that equal values
// always produce equal encodings.
func CanonicalJSON(value any) (string, error) {
	// Round-trip through encoding/json so that structs, RawMessage and
	// decoded values all normalize to the same representation
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return "", err
	}

	var builder strings.Builder
	if err := canonicalize(&builder, decoded); err != nil {
		return "", err
	}
	return builder.String(), nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func canonicalize(w *strings.Builder, value any) error {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		w.WriteByte('{')
		for i, key := range keys {
			if i > 0 {
				w.WriteByte(',')
			}
			data, err := json.Marshal(key)
			if err != nil {
				return err
			}
			w.Write(data)
			w.WriteByte(':')
			if err := canonicalize(w, v[key]); err != nil {
				return err
			}
		}
		w.WriteByte('}')
	case []any:
		w.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				w.WriteByte(',')
			}
			if err := canonicalize(w, item); err != nil {
				return err
			}
		}
		w.WriteByte(']')
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("canonical encoding: %w", err)
		}
		w.Write(data)
	}
	return nil
}
