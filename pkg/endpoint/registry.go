// Package endpoint routes requests against endpoint definitions stored
// in the database. The active set is cached for a short period, which
// is safe because the core never mutates endpoint rows.
package endpoint

import (
	"context"
	"strings"
	"sync"
	"time"

	// Packages
	action "github.com/mutablelogic/go-httpqueue/pkg/action"
	pg "github.com/mutablelogic/go-httpqueue/pkg/pg"
	queue "github.com/mutablelogic/go-httpqueue/pkg/queue"
	schema "github.com/mutablelogic/go-httpqueue/pkg/queue/schema"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

type Registry struct {
	sync.RWMutex
	manager *queue.Manager
	ttl     time.Duration
	loaded  time.Time
	routes  []route
}

type route struct {
	endpoint schema.Endpoint
	segments []string
	action   *action.Action
	err      error
	rules    []schema.ValidationRule
}

// Match is a routed request: the endpoint, its parsed action, its
// validation rules and the values bound to :name path segments.
type Match struct {
	Endpoint   schema.Endpoint
	Action     *action.Action
	Rules      []schema.ValidationRule
	PathParams map[string]string
}

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

// How long a loaded endpoint set is served before reloading
const DefaultTTL = 15 * time.Second

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// NewRegistry returns a registry over the manager's endpoint store.
// A zero ttl uses the default.
func NewRegistry(manager *queue.Manager, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		manager: manager,
		ttl:     ttl,
	}
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Match routes a method and path to an endpoint, binding :name path
// segments. When several patterns match, the one with the most literal
// segments wins. An unknown or inactive path reports not found.
func (r *Registry) Match(ctx context.Context, method, path string) (*Match, error) {
	routes, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	segments := splitPath(path)
	var best *route
	var bestScore = -1
	var bestParams map[string]string
	for i := range routes {
		candidate := &routes[i]
		if candidate.endpoint.Method != method {
			continue
		}
		score, params, ok := match(candidate.segments, segments)
		if !ok {
			continue
		}
		if score > bestScore {
			best, bestScore, bestParams = candidate, score, params
		}
	}
	if best == nil {
		return nil, pg.ErrNotFound.Withf("no endpoint for %s %s", method, path)
	}

	// A broken stored configuration surfaces when the route is used
	if best.err != nil {
		return nil, best.err
	}

	// Return success
	return &Match{
		Endpoint:   best.endpoint,
		Action:     best.action,
		Rules:      best.rules,
		PathParams: bestParams,
	}, nil
}

// Invalidate discards the cached endpoint set.
func (r *Registry) Invalidate() {
	r.Lock()
	defer r.Unlock()
	r.loaded = time.Time{}
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// load returns the cached routes, reloading from the store when stale
func (r *Registry) load(ctx context.Context) ([]route, error) {
	r.RLock()
	if !r.loaded.IsZero() && time.Since(r.loaded) < r.ttl {
		routes := r.routes
		r.RUnlock()
		return routes, nil
	}
	r.RUnlock()

	r.Lock()
	defer r.Unlock()

	// Another request may have reloaded while we waited for the lock
	if !r.loaded.IsZero() && time.Since(r.loaded) < r.ttl {
		return r.routes, nil
	}

	// Only active endpoints are routable
	endpoints, err := r.manager.ListEndpoints(ctx, schema.EndpointListRequest{})
	if err != nil {
		return nil, err
	}
	rules, err := r.manager.ListValidationRules(ctx, schema.ValidationRuleListRequest{})
	if err != nil {
		return nil, err
	}

	// Group the rules by endpoint
	grouped := make(map[uint64][]schema.ValidationRule, len(endpoints.Body))
	for _, rule := range rules.Body {
		grouped[rule.EndpointId] = append(grouped[rule.EndpointId], rule)
	}

	routes := make([]route, 0, len(endpoints.Body))
	for _, endpoint := range endpoints.Body {
		entry := route{
			endpoint: endpoint,
			segments: endpoint.PathSegments(),
			rules:    grouped[endpoint.Id],
		}
		if err := endpoint.Valid(); err != nil {
			entry.err = pg.ErrInternalError.With("invalid endpoint definition")
		} else {
			entry.action, entry.err = action.Parse(endpoint.ActionType, endpoint.ActionConfig)
		}
		routes = append(routes, entry)
	}

	r.routes = routes
	r.loaded = time.Now()
	return routes, nil
}

// match binds a pattern against path segments, scoring by the number
// of literal segments matched
func match(pattern, segments []string) (int, map[string]string, bool) {
	if len(pattern) != len(segments) {
		return 0, nil, false
	}
	score := 0
	params := make(map[string]string)
	for i, part := range pattern {
		if strings.HasPrefix(part, ":") {
			params[strings.TrimPrefix(part, ":")] = segments[i]
		} else if part == segments[i] {
			score++
		} else {
			return 0, nil, false
		}
	}
	return score, params, true
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
