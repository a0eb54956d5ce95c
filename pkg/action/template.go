package action

import (
	"fmt"
	"regexp"
	"time"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Params is the merged request parameter bag, keyed by source then by
// parameter name.
type Params map[string]map[string]any

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

// Template tokens: {{source.key}}, {{source.key:default}} and {{NOW}}
var (
	reToken = regexp.MustCompile(`\{\{([a-z]+)\.([A-Za-z0-9_.-]+)(?::([^{}]*))?\}\}|\{\{NOW\}\}`)
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Get returns a parameter by source and name.
func (p Params) Get(source, key string) (any, bool) {
	values, ok := p[source]
	if !ok {
		return nil, false
	}
	value, ok := values[key]
	return value, ok
}

// Set sets a parameter for a source, creating the source when needed.
func (p Params) Set(source, key string, value any) {
	if _, ok := p[source]; !ok {
		p[source] = make(map[string]any)
	}
	p[source][key] = value
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// resolve walks a configuration value, replacing template tokens with
// request data. Returns false when a token has no value and no default,
// so that optional clauses can be omitted.
func resolve(value any, params Params) (any, bool) {
	switch v := value.(type) {
	case string:
		return resolveString(v, params)
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, elem := range v {
			resolved, ok := resolve(elem, params)
			if !ok {
				return nil, false
			}
			result[key] = resolved
		}
		return result, true
	case []any:
		result := make([]any, 0, len(v))
		for _, elem := range v {
			resolved, ok := resolve(elem, params)
			if !ok {
				return nil, false
			}
			result = append(result, resolved)
		}
		return result, true
	default:
		return value, true
	}
}

// resolveString resolves tokens in one string. A string which is
// exactly one token keeps the type of the underlying value; otherwise
// tokens are interpolated into the string.
func resolveString(value string, params Params) (any, bool) {
	match := reToken.FindStringSubmatchIndex(value)
	if match == nil {
		return value, true
	}

	// The whole string is one token
	if match[0] == 0 && match[1] == len(value) {
		return resolveToken(value, params)
	}

	// Interpolate each token into the string
	var missing bool
	interpolated := reToken.ReplaceAllStringFunc(value, func(token string) string {
		resolved, ok := resolveToken(token, params)
		if !ok {
			missing = true
			return ""
		}
		return fmt.Sprint(resolved)
	})
	if missing {
		return nil, false
	}
	return interpolated, true
}

// resolveToken resolves one {{...}} token
func resolveToken(token string, params Params) (any, bool) {
	if token == "{{NOW}}" {
		return time.Now().UTC(), true
	}

	match := reToken.FindStringSubmatch(token)
	if match == nil || match[1] == "" {
		return nil, false
	}
	source, key := match[1], match[2]
	if value, ok := params.Get(source, key); ok {
		return value, true
	}

	// Fall back to the default, when one is declared
	if hasDefault(token) {
		return match[3], true
	}
	return nil, false
}

// hasDefault reports whether a token declares a default, including an
// empty one
func hasDefault(token string) bool {
	match := reToken.FindStringSubmatchIndex(token)
	if match == nil {
		return false
	}
	// Submatch 3 is the default; its start offset is -1 when absent
	return match[6] != -1
}
