package queue

import (
	"context"

	// Packages
	schema "github.com/mutablelogic/go-httpqueue/pkg/queue/schema"
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// ListEndpoints returns the stored endpoint definitions. By default
// only active endpoints are returned.
func (m *Manager) ListEndpoints(ctx context.Context, req schema.EndpointListRequest) (*schema.EndpointList, error) {
	var list schema.EndpointList
	if err := m.conn.List(ctx, &list, req); err != nil {
		return nil, err
	}
	return &list, nil
}

// ListValidationRules returns the stored validation rules, optionally
// for a single endpoint.
func (m *Manager) ListValidationRules(ctx context.Context, req schema.ValidationRuleListRequest) (*schema.ValidationRuleList, error) {
	var list schema.ValidationRuleList
	if err := m.conn.List(ctx, &list, req); err != nil {
		return nil, err
	}
	return &list, nil
}
