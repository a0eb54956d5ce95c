// Package action interprets stored endpoint action configurations. A
// configuration describes one database operation (or names a custom
// handler) with request data substituted through template tokens, and
// is executed as a parameterized statement. Identifiers which become
// part of the statement text (tables, columns, join types, operators)
// are checked against whitelists, and every resolved value is passed
// as a bound parameter.
package action

import (
	"encoding/json"
	"strings"

	// Packages
	pg "github.com/mutablelogic/go-httpqueue/pkg/pg"
	schema "github.com/mutablelogic/go-httpqueue/pkg/queue/schema"
	types "github.com/mutablelogic/go-httpqueue/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Action is a parsed, validated action configuration.
type Action struct {
	Type   string
	Config Config
}

type Config struct {
	// query
	Table         string         `json:"table,omitempty"`
	Joins         []Join         `json:"joins,omitempty"`
	Select        []string       `json:"select,omitempty"`
	Where         map[string]any `json:"where,omitempty"`
	WhereOptional map[string]any `json:"where_optional,omitempty"`
	Order         string         `json:"order,omitempty"`
	Limit         *uint64        `json:"limit,omitempty"`
	Offset        *uint64        `json:"offset,omitempty"`
	Single        bool           `json:"single,omitempty"`

	// insert
	Fields         map[string]any `json:"fields,omitempty"`
	ReturnInsertId bool           `json:"return_insert_id,omitempty"`

	// update
	Set map[string]any `json:"set,omitempty"`

	// delete
	SoftDelete *SoftDelete `json:"soft_delete,omitempty"`

	// custom
	Handler string         `json:"handler,omitempty"`
	Static  map[string]any `json:"config,omitempty"`
}

type Join struct {
	Type  string `json:"type,omitempty"`
	Table string `json:"table,omitempty"`
	Left  string `json:"left,omitempty"`
	Right string `json:"right,omitempty"`
}

// SoftDelete marks a row deleted by setting a column, instead of
// removing the row.
type SoftDelete struct {
	Column string `json:"column,omitempty"`
	Value  any    `json:"value,omitempty"`
}

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

// Join types which may appear in a configuration
var joinTypes = map[string]string{
	"inner": "INNER JOIN",
	"left":  "LEFT JOIN",
	"right": "RIGHT JOIN",
	"full":  "FULL JOIN",
}

// Comparison operators which may appear in a where value
var operators = map[string]string{
	"=":      "=",
	"!=":     "<>",
	"<":      "<",
	">":      ">",
	"<=":     "<=",
	">=":     ">=",
	"LIKE":   "LIKE",
	"IN":     "= ANY",
	"NOT IN": "<> ALL",
}

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// Parse decodes and validates an action configuration. A configuration
// error is reported without detail, as the configuration is not the
// caller's to see.
func Parse(actionType string, data json.RawMessage) (*Action, error) {
	action := &Action{Type: actionType}

	if !schema.IsActionType(actionType) {
		return nil, errConfig("unrecognized action type")
	}
	if len(data) > 0 {
		decoder := json.NewDecoder(strings.NewReader(string(data)))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&action.Config); err != nil {
			return nil, errConfig("malformed action configuration")
		}
	}

	// Validate the structural parts
	switch actionType {
	case schema.ActionQuery:
		if err := identifier(action.Config.Table); err != nil {
			return nil, err
		}
		for _, col := range action.Config.Select {
			if err := identifier(col); err != nil {
				return nil, err
			}
		}
		for _, join := range action.Config.Joins {
			if _, ok := joinTypes[strings.ToLower(join.Type)]; !ok {
				return nil, errConfig("unrecognized join type")
			}
			if err := identifier(join.Table); err != nil {
				return nil, err
			}
			if err := identifier(join.Left); err != nil {
				return nil, err
			}
			if err := identifier(join.Right); err != nil {
				return nil, err
			}
		}
		if action.Config.Order != "" {
			if _, _, err := orderExpr(action.Config.Order); err != nil {
				return nil, err
			}
		}
		if err := whereConfig(action.Config.Where); err != nil {
			return nil, err
		}
		if err := whereConfig(action.Config.WhereOptional); err != nil {
			return nil, err
		}
	case schema.ActionInsert:
		if err := identifier(action.Config.Table); err != nil {
			return nil, err
		}
		if len(action.Config.Fields) == 0 {
			return nil, errConfig("insert requires fields")
		}
		for field := range action.Config.Fields {
			if err := identifier(field); err != nil {
				return nil, err
			}
		}
	case schema.ActionUpdate:
		if err := identifier(action.Config.Table); err != nil {
			return nil, err
		}
		if len(action.Config.Set) == 0 {
			return nil, errConfig("update requires a set map")
		}
		for field := range action.Config.Set {
			if err := identifier(field); err != nil {
				return nil, err
			}
		}
		if len(action.Config.Where) == 0 {
			return nil, errConfig("update requires a where map")
		}
		if err := whereConfig(action.Config.Where); err != nil {
			return nil, err
		}
	case schema.ActionDelete:
		if err := identifier(action.Config.Table); err != nil {
			return nil, err
		}
		if len(action.Config.Where) == 0 {
			return nil, errConfig("delete requires a where map")
		}
		if err := whereConfig(action.Config.Where); err != nil {
			return nil, err
		}
		if soft := action.Config.SoftDelete; soft != nil {
			if err := identifier(soft.Column); err != nil {
				return nil, err
			}
		}
	case schema.ActionCustom:
		if action.Config.Handler == "" {
			return nil, errConfig("custom requires a handler name")
		}
	}

	// Return success
	return action, nil
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Handler returns the named custom handler, or an empty string.
func (a *Action) Handler() string {
	if a.Type != schema.ActionCustom {
		return ""
	}
	return a.Config.Handler
}

// Static returns the static configuration forwarded to a custom
// handler.
func (a *Action) Static() map[string]any {
	return a.Config.Static
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// errConfig marks a configuration as broken. The message is logged
// server-side but not returned to the caller.
func errConfig(message string) error {
	return pg.ErrInternalError.With(message)
}

// identifier checks a structural name before it is placed in a
// statement
func identifier(name string) error {
	if !types.IsIdentifier(name) {
		return errConfig("invalid identifier in action configuration")
	}
	return nil
}

// orderExpr splits an order expression into a column and a direction
func orderExpr(order string) (string, string, error) {
	parts := strings.Fields(order)
	direction := "ASC"
	switch len(parts) {
	case 1:
		// column only
	case 2:
		switch strings.ToUpper(parts[1]) {
		case "ASC":
			direction = "ASC"
		case "DESC":
			direction = "DESC"
		default:
			return "", "", errConfig("invalid order direction")
		}
	default:
		return "", "", errConfig("invalid order expression")
	}
	if err := identifier(parts[0]); err != nil {
		return "", "", err
	}
	return parts[0], direction, nil
}

// whereConfig validates the structural parts of a where map
func whereConfig(where map[string]any) error {
	for column, value := range where {
		if err := identifier(column); err != nil {
			return err
		}
		if _, op, ok := opValue(value); ok {
			if _, exists := operators[op]; !exists {
				return errConfig("unrecognized comparison operator")
			}
		}
	}
	return nil
}

// opValue unpacks a {"op": ..., "value": ...} comparison, returning
// false when the value is a plain comparand
func opValue(value any) (any, string, bool) {
	comparison, ok := value.(map[string]any)
	if !ok {
		return nil, "", false
	}
	op, ok := comparison["op"].(string)
	if !ok {
		return nil, "", false
	}
	return comparison["value"], op, true
}
