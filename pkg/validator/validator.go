package validator

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Rule is a JSON-schema-like rule document. A rule validates a single value;
// object values carry nested rules under Properties, array values under Items.
type Rule struct {
	Type                 string           `json:"type,omitempty"`
	Required             bool             `json:"required,omitempty"`
	MinLength            *uint64          `json:"minLength,omitempty"`
	MaxLength            *uint64          `json:"maxLength,omitempty"`
	Minimum              *float64         `json:"minimum,omitempty"`
	Maximum              *float64         `json:"maximum,omitempty"`
	Enum                 []any            `json:"enum,omitempty"`
	Pattern              string           `json:"pattern,omitempty"`
	Properties           map[string]*Rule `json:"properties,omitempty"`
	AdditionalProperties *bool            `json:"additionalProperties,omitempty"`
	Items                *Rule            `json:"items,omitempty"`
	MinItems             *uint64          `json:"minItems,omitempty"`
	MaxItems             *uint64          `json:"maxItems,omitempty"`
}

// Violation is one failed check for one field.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Violations is the complete set of failed checks for a value.
type Violations []Violation

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	// Patterns above this length are rejected outright
	MaxPatternLength = 512
)

var (
	patternCache sync.Map // pattern string -> *regexp.Regexp
)

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// ParseRule parses a rule document from JSON. Returns an error when the
// document is not well-formed; the individual checks fail lazily at
// first use against a real value.
func ParseRule(data []byte) (*Rule, error) {
	var rule Rule
	if err := json.Unmarshal(data, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

///////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (v Violation) String() string {
	return v.Field + ": " + v.Message
}

func (v Violations) Error() string {
	str := make([]string, len(v))
	for i, violation := range v {
		str[i] = violation.String()
	}
	return strings.Join(str, "; ")
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Validate checks a value against a rule and returns all violations.
// The field argument prefixes violation field paths. A nil value is
// treated as absent: it violates only a required rule.
func Validate(field string, value any, rule *Rule) Violations {
	if rule == nil {
		return nil
	}
	if value == nil {
		if rule.Required {
			return Violations{{Field: field, Message: "required"}}
		}
		return nil
	}
	return validate(field, value, rule)
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func validate(field string, value any, rule *Rule) Violations {
	var violations Violations

	// Type check first. A wrong type short-circuits the type-specific
	// checks, but enum is still evaluated below.
	typeOk := true
	if rule.Type != "" {
		if !checkType(value, rule.Type) {
			violations = append(violations, Violation{field, fmt.Sprintf("expected type %q", rule.Type)})
			typeOk = false
		}
	}

	// Enum
	if len(rule.Enum) > 0 && !containsValue(rule.Enum, value) {
		violations = append(violations, Violation{field, "not one of the allowed values"})
	}

	if !typeOk {
		return violations
	}

	// String checks
	if str, ok := value.(string); ok {
		if rule.MinLength != nil && uint64(len(str)) < *rule.MinLength {
			violations = append(violations, Violation{field, fmt.Sprintf("shorter than %d characters", *rule.MinLength)})
		}
		if rule.MaxLength != nil && uint64(len(str)) > *rule.MaxLength {
			violations = append(violations, Violation{field, fmt.Sprintf("longer than %d characters", *rule.MaxLength)})
		}
		if rule.Pattern != "" {
			if re, err := compilePattern(rule.Pattern); err != nil {
				violations = append(violations, Violation{field, "invalid pattern"})
			} else if !re.MatchString(str) {
				violations = append(violations, Violation{field, "does not match pattern"})
			}
		}
	}

	// Numeric checks
	if num, ok := asNumber(value); ok {
		if rule.Minimum != nil && num < *rule.Minimum {
			violations = append(violations, Violation{field, fmt.Sprintf("less than minimum %v", *rule.Minimum)})
		}
		if rule.Maximum != nil && num > *rule.Maximum {
			violations = append(violations, Violation{field, fmt.Sprintf("greater than maximum %v", *rule.Maximum)})
		}
	}

	// Object checks
	if obj, ok := value.(map[string]any); ok {
		for key, prop := range rule.Properties {
			child := joinField(field, key)
			if v, exists := obj[key]; exists {
				violations = append(violations, validate(child, v, prop)...)
			} else if prop != nil && prop.Required {
				violations = append(violations, Violation{child, "required"})
			}
		}
		if rule.AdditionalProperties != nil && !*rule.AdditionalProperties {
			for key := range obj {
				if _, exists := rule.Properties[key]; !exists {
					violations = append(violations, Violation{joinField(field, key), "unknown property"})
				}
			}
		}
	}

	// Array checks
	if arr, ok := value.([]any); ok {
		if rule.MinItems != nil && uint64(len(arr)) < *rule.MinItems {
			violations = append(violations, Violation{field, fmt.Sprintf("fewer than %d items", *rule.MinItems)})
		}
		if rule.MaxItems != nil && uint64(len(arr)) > *rule.MaxItems {
			violations = append(violations, Violation{field, fmt.Sprintf("more than %d items", *rule.MaxItems)})
		}
		if rule.Items != nil {
			for i, item := range arr {
				violations = append(violations, validate(fmt.Sprintf("%s[%d]", field, i), item, rule.Items)...)
			}
		}
	}

	return violations
}

func checkType(value any, typ string) bool {
	switch typ {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "number":
		_, ok := asNumber(value)
		return ok
	case "integer":
		num, ok := asNumber(value)
		return ok && num == math.Trunc(num)
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	}
	return false
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, true
		}
	}
	return 0, false
}

func containsValue(enum []any, value any) bool {
	for _, e := range enum {
		if equalValue(e, value) {
			return true
		}
	}
	return false
}

// equalValue compares scalars, treating all numeric types as float64
func equalValue(a, b any) bool {
	if na, ok := asNumber(a); ok {
		if nb, ok := asNumber(b); ok {
			return na == nb
		}
		return false
	}
	return a == b
}

// compilePattern compiles a regular expression, rejecting patterns over
// MaxPatternLength and caching compiled patterns for reuse across requests.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if len(pattern) > MaxPatternLength {
		return nil, fmt.Errorf("pattern exceeds %d bytes", MaxPatternLength)
	}
	if cached, ok := patternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patternCache.Store(pattern, re)
	return re, nil
}

func joinField(field, key string) string {
	if field == "" {
		return key
	}
	return field + "." + key
}
