package queue

import (
	"context"

	// Packages
	schema "github.com/mutablelogic/go-httpqueue/pkg/queue/schema"
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// RegisterTaskType inserts a task type, or replaces the version and
// parameter schema when the name is already registered. The response
// reports which of the two happened.
func (m *Manager) RegisterTaskType(ctx context.Context, meta schema.TaskTypeMeta) (*schema.TaskTypeWithCreated, error) {
	var tasktype schema.TaskTypeWithCreated
	if err := m.conn.Insert(ctx, &tasktype, meta); err != nil {
		return nil, err
	}
	return &tasktype, nil
}

// GetTaskType returns a task type by name.
func (m *Manager) GetTaskType(ctx context.Context, name string) (*schema.TaskType, error) {
	var tasktype schema.TaskType
	if err := m.conn.Get(ctx, &tasktype, schema.TaskTypeName(name)); err != nil {
		return nil, err
	}
	return &tasktype, nil
}

// DeactivateTaskType marks a task type inactive. Existing tasks keep
// their reference, and no new tasks of the type can be created.
func (m *Manager) DeactivateTaskType(ctx context.Context, name string) (*schema.TaskType, error) {
	var tasktype schema.TaskType
	if err := m.conn.Delete(ctx, &tasktype, schema.TaskTypeName(name)); err != nil {
		return nil, err
	}
	return &tasktype, nil
}

// ListTaskTypes returns registered task types, with the total count.
func (m *Manager) ListTaskTypes(ctx context.Context, req schema.TaskTypeListRequest) (*schema.TaskTypeList, error) {
	list := schema.TaskTypeList{TaskTypeListRequest: req}
	if err := m.conn.List(ctx, &list, req); err != nil {
		return nil, err
	}
	return &list, nil
}
