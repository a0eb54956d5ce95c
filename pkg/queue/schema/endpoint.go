package schema

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	// Packages
	pg "github.com/mutablelogic/go-httpqueue/pkg/pg"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Endpoint is a route definition stored in the database. The dispatcher
// loads the active set and routes requests against it.
type Endpoint struct {
	Id           uint64          `json:"id,omitempty"`
	Method       string          `json:"method,omitempty"`
	Path         string          `json:"path,omitempty"`
	ActionType   string          `json:"action_type,omitempty"`
	ActionConfig json.RawMessage `json:"action_config,omitempty"`
	RequiresAuth bool            `json:"requires_auth"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    *time.Time      `json:"created_at,omitempty"`
	UpdatedAt    *time.Time      `json:"updated_at,omitempty"`
}

// ValidationRule constrains one request parameter of an endpoint.
type ValidationRule struct {
	Id         uint64          `json:"id,omitempty"`
	EndpointId uint64          `json:"endpoint_id,omitempty"`
	Parameter  string          `json:"parameter,omitempty"`
	Source     string          `json:"source,omitempty"`
	Rule       json.RawMessage `json:"rule,omitempty"`
	Message    *string         `json:"message,omitempty"`
}

type EndpointListRequest struct {
	// When true, inactive endpoints are included
	All bool `json:"all,omitempty"`
}

type EndpointList struct {
	Count uint64     `json:"count"`
	Body  []Endpoint `json:"body,omitempty"`
}

type ValidationRuleListRequest struct {
	EndpointId uint64 `json:"endpoint_id,omitempty"`
}

type ValidationRuleList struct {
	Count uint64           `json:"count"`
	Body  []ValidationRule `json:"body,omitempty"`
}

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (e Endpoint) String() string {
	return stringify(e)
}

func (r ValidationRule) String() string {
	return stringify(r)
}

////////////////////////////////////////////////////////////////////////////////
// READER

func (e *Endpoint) Scan(row pg.Row) error {
	return row.Scan(&e.Id, &e.Method, &e.Path, &e.ActionType, &e.ActionConfig, &e.RequiresAuth, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
}

// EndpointList
func (l *EndpointList) Scan(row pg.Row) error {
	var endpoint Endpoint
	if err := endpoint.Scan(row); err != nil {
		return err
	}
	l.Body = append(l.Body, endpoint)
	return nil
}

// EndpointListCount
func (l *EndpointList) ScanCount(row pg.Row) error {
	return row.Scan(&l.Count)
}

func (r *ValidationRule) Scan(row pg.Row) error {
	return row.Scan(&r.Id, &r.EndpointId, &r.Parameter, &r.Source, &r.Rule, &r.Message)
}

// ValidationRuleList
func (l *ValidationRuleList) Scan(row pg.Row) error {
	var rule ValidationRule
	if err := rule.Scan(row); err != nil {
		return err
	}
	l.Body = append(l.Body, rule)
	return nil
}

// ValidationRuleListCount
func (l *ValidationRuleList) ScanCount(row pg.Row) error {
	return row.Scan(&l.Count)
}

////////////////////////////////////////////////////////////////////////////////
// SELECTOR

func (l EndpointListRequest) Select(bind *pg.Bind, op pg.Op) (string, error) {
	if l.All {
		bind.Set("where", "")
	} else {
		bind.Set("where", `WHERE "is_active"`)
	}

	switch op {
	case pg.List:
		return bind.Replace("${httpqueue.endpoint_list}"), nil
	default:
		return "", pg.ErrInternalError.Withf("unsupported EndpointListRequest operation %q", op)
	}
}

func (l ValidationRuleListRequest) Select(bind *pg.Bind, op pg.Op) (string, error) {
	if l.EndpointId == 0 {
		bind.Set("where", "")
	} else {
		bind.Set("where", `WHERE "endpoint_id" = `+bind.Set("endpoint_id", l.EndpointId))
	}

	switch op {
	case pg.List:
		return bind.Replace("${httpqueue.rule_list}"), nil
	default:
		return "", pg.ErrInternalError.Withf("unsupported ValidationRuleListRequest operation %q", op)
	}
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// PathSegments splits an endpoint path into its segments, with the
// leading slash removed. An empty path returns an empty slice.
func (e Endpoint) PathSegments() []string {
	path := strings.Trim(e.Path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// Valid returns an error when the definition cannot be routed.
func (e Endpoint) Valid() error {
	switch e.Method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		// ok
	default:
		return pg.ErrBadParameter.Withf("invalid method: %q", e.Method)
	}
	if !strings.HasPrefix(e.Path, "/") {
		return pg.ErrBadParameter.Withf("invalid path: %q", e.Path)
	}
	if !IsActionType(e.ActionType) {
		return pg.ErrBadParameter.Withf("invalid action_type: %q", e.ActionType)
	}
	return nil
}
