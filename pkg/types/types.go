package types

import (
	"regexp"
	"strings"
	"time"
)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

var (
	reIdentifier = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)
	reNumeric    = regexp.MustCompile(`^[0-9]+$`)
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// IsIdentifier returns true when the value is a valid identifier, which
// starts with a letter and contains only letters, digits and underscores.
func IsIdentifier(value string) bool {
	return reIdentifier.MatchString(value)
}

// IsNumeric returns true when the value consists only of digits.
func IsNumeric(value string) bool {
	return reNumeric.MatchString(value)
}

// IsSingleQuoted returns true when the value is wrapped in single quotes.
func IsSingleQuoted(value string) bool {
	return len(value) >= 2 && strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'")
}

// IsDoubleQuoted returns true when the value is wrapped in double quotes.
func IsDoubleQuoted(value string) bool {
	return len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`)
}

// Quote returns the value wrapped in single quotes, with embedded single
// quotes doubled, suitable for a SQL string literal.
func Quote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// DoubleQuote returns the value wrapped in double quotes, with embedded
// double quotes doubled, suitable for a SQL identifier.
func DoubleQuote(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

// JoinPath joins path elements with single slashes between them.
func JoinPath(elem ...string) string {
	parts := make([]string, 0, len(elem))
	for _, e := range elem {
		if e = strings.Trim(e, "/"); e != "" {
			parts = append(parts, e)
		}
	}
	return "/" + strings.Join(parts, "/")
}

////////////////////////////////////////////////////////////////////////////////
// POINTER CONVERSIONS

// Ptr returns a pointer to the value.
func Ptr[T any](v T) *T {
	return &v
}

// PtrString dereferences a string pointer, returning the empty string for nil.
func PtrString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// PtrUint64 dereferences a uint64 pointer, returning zero for nil.
func PtrUint64(v *uint64) uint64 {
	if v == nil {
		return 0
	}
	return *v
}

// PtrInt64 dereferences an int64 pointer, returning zero for nil.
func PtrInt64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

// PtrBool dereferences a bool pointer, returning false for nil.
func PtrBool(v *bool) bool {
	if v == nil {
		return false
	}
	return *v
}

// PtrTime dereferences a time pointer, returning the zero time for nil.
func PtrTime(v *time.Time) time.Time {
	if v == nil {
		return time.Time{}
	}
	return *v
}
