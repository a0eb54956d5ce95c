package validator_test

import (
	"encoding/json"
	"testing"

	// Packages
	validator "github.com/mutablelogic/go-httpqueue/pkg/validator"
	assert "github.com/stretchr/testify/assert"
)

func mustRule(t *testing.T, doc string) *validator.Rule {
	t.Helper()
	rule, err := validator.ParseRule([]byte(doc))
	assert.NoError(t, err)
	return rule
}

func decode(t *testing.T, doc string) any {
	t.Helper()
	var value any
	assert.NoError(t, json.Unmarshal([]byte(doc), &value))
	return value
}

func Test_Validator_001(t *testing.T) {
	assert := assert.New(t)

	t.Run("TypeString", func(t *testing.T) {
		rule := mustRule(t, `{"type": "string"}`)
		assert.Empty(validator.Validate("msg", "hi", rule))
		violations := validator.Validate("msg", float64(123), rule)
		assert.Len(violations, 1)
		assert.Equal("msg", violations[0].Field)
	})

	t.Run("TypeInteger", func(t *testing.T) {
		rule := mustRule(t, `{"type": "integer"}`)
		assert.Empty(validator.Validate("n", float64(5), rule))
		assert.NotEmpty(validator.Validate("n", float64(5.5), rule))
		assert.NotEmpty(validator.Validate("n", "5", rule))
	})

	t.Run("TypeNumberBooleanArrayObject", func(t *testing.T) {
		assert.Empty(validator.Validate("v", float64(1.5), mustRule(t, `{"type": "number"}`)))
		assert.Empty(validator.Validate("v", true, mustRule(t, `{"type": "boolean"}`)))
		assert.Empty(validator.Validate("v", []any{}, mustRule(t, `{"type": "array"}`)))
		assert.Empty(validator.Validate("v", map[string]any{}, mustRule(t, `{"type": "object"}`)))
	})

	t.Run("Required", func(t *testing.T) {
		rule := mustRule(t, `{"type": "string", "required": true}`)
		assert.NotEmpty(validator.Validate("msg", nil, rule))
		assert.Empty(validator.Validate("msg", "hi", rule))
	})

	t.Run("AbsentOptional", func(t *testing.T) {
		rule := mustRule(t, `{"type": "string"}`)
		assert.Empty(validator.Validate("msg", nil, rule))
	})
}

func Test_Validator_002(t *testing.T) {
	assert := assert.New(t)

	t.Run("Bounds", func(t *testing.T) {
		rule := mustRule(t, `{"type": "integer", "minimum": 1, "maximum": 10}`)
		assert.Empty(validator.Validate("n", float64(5), rule))
		assert.NotEmpty(validator.Validate("n", float64(0), rule))
		assert.NotEmpty(validator.Validate("n", float64(11), rule))
	})

	t.Run("Length", func(t *testing.T) {
		rule := mustRule(t, `{"type": "string", "minLength": 2, "maxLength": 4}`)
		assert.Empty(validator.Validate("s", "abc", rule))
		assert.NotEmpty(validator.Validate("s", "a", rule))
		assert.NotEmpty(validator.Validate("s", "abcde", rule))
	})

	t.Run("Enum", func(t *testing.T) {
		rule := mustRule(t, `{"enum": ["asc", "desc"]}`)
		assert.Empty(validator.Validate("order", "asc", rule))
		assert.NotEmpty(validator.Validate("order", "up", rule))
	})

	t.Run("EnumNumeric", func(t *testing.T) {
		rule := mustRule(t, `{"enum": [1, 2, 3]}`)
		assert.Empty(validator.Validate("n", float64(2), rule))
		assert.NotEmpty(validator.Validate("n", float64(4), rule))
	})

	t.Run("Pattern", func(t *testing.T) {
		rule := mustRule(t, `{"type": "string", "pattern": "^[a-z]+$"}`)
		assert.Empty(validator.Validate("s", "abc", rule))
		assert.NotEmpty(validator.Validate("s", "ABC", rule))
	})

	t.Run("PatternTooLong", func(t *testing.T) {
		pattern := make([]byte, validator.MaxPatternLength+1)
		for i := range pattern {
			pattern[i] = 'a'
		}
		violations := validator.Validate("s", "a", &validator.Rule{Pattern: string(pattern)})
		assert.Len(violations, 1)
		assert.Equal("invalid pattern", violations[0].Message)
	})
}

func Test_Validator_003(t *testing.T) {
	assert := assert.New(t)

	t.Run("NestedProperties", func(t *testing.T) {
		rule := mustRule(t, `{
			"type": "object",
			"properties": {
				"msg": {"type": "string", "required": true},
				"count": {"type": "integer", "minimum": 0}
			}
		}`)
		assert.Empty(validator.Validate("", decode(t, `{"msg": "hi", "count": 3}`), rule))

		violations := validator.Validate("", decode(t, `{"count": -1}`), rule)
		assert.Len(violations, 2)
	})

	t.Run("AdditionalProperties", func(t *testing.T) {
		rule := mustRule(t, `{
			"type": "object",
			"properties": {"msg": {"type": "string"}},
			"additionalProperties": false
		}`)
		assert.Empty(validator.Validate("", decode(t, `{"msg": "hi"}`), rule))

		violations := validator.Validate("", decode(t, `{"msg": "hi", "extra": 1}`), rule)
		assert.Len(violations, 1)
		assert.Equal("extra", violations[0].Field)
	})

	t.Run("Items", func(t *testing.T) {
		rule := mustRule(t, `{
			"type": "array",
			"items": {"type": "integer"},
			"minItems": 1,
			"maxItems": 3
		}`)
		assert.Empty(validator.Validate("a", decode(t, `[1, 2]`), rule))
		assert.NotEmpty(validator.Validate("a", decode(t, `[]`), rule))
		assert.NotEmpty(validator.Validate("a", decode(t, `[1, 2, 3, 4]`), rule))

		violations := validator.Validate("a", decode(t, `[1, "x"]`), rule)
		assert.Len(violations, 1)
		assert.Equal("a[1]", violations[0].Field)
	})

	t.Run("AllViolationsCollected", func(t *testing.T) {
		rule := mustRule(t, `{
			"type": "object",
			"properties": {
				"a": {"type": "string", "required": true},
				"b": {"type": "integer", "required": true},
				"c": {"type": "string", "minLength": 5}
			}
		}`)
		violations := validator.Validate("", decode(t, `{"c": "x"}`), rule)
		assert.Len(violations, 3)
	})
}
