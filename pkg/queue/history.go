package queue

import (
	"context"

	// Packages
	schema "github.com/mutablelogic/go-httpqueue/pkg/queue/schema"
	ref "github.com/mutablelogic/go-server/pkg/ref"
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// ListTaskHistory returns the recorded status transitions for a task,
// oldest first.
func (m *Manager) ListTaskHistory(ctx context.Context, req schema.TaskTransitionListRequest) (*schema.TaskTransitionList, error) {
	list := schema.TaskTransitionList{TaskTransitionListRequest: req}
	if err := m.conn.List(ctx, &list, req); err != nil {
		return nil, err
	}
	return &list, nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// appendHistory records a status transition. The history is an audit
// trail, so a failure here is logged and does not fail the transition
// which has already committed.
func (m *Manager) appendHistory(ctx context.Context, transition schema.TaskTransition) {
	var result schema.TaskTransition
	if err := m.conn.Insert(ctx, &result, transition); err != nil {
		if log := ref.Log(ctx); log != nil {
			log.With("task_id", transition.TaskId).Print(ctx, "failed to append task history: ", err)
		}
	}
}
