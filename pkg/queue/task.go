package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	// Packages
	pg "github.com/mutablelogic/go-httpqueue/pkg/pg"
	schema "github.com/mutablelogic/go-httpqueue/pkg/queue/schema"
	types "github.com/mutablelogic/go-httpqueue/pkg/types"
	validator "github.com/mutablelogic/go-httpqueue/pkg/validator"
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// CreateTask validates the parameters against the task type's schema
// and inserts a pending task. When a task with the same content hash
// already exists, that task is returned instead, with the deduplicated
// flag set, so repeated identical submissions are idempotent.
func (m *Manager) CreateTask(ctx context.Context, meta schema.TaskMeta) (*schema.TaskWithDeduplicated, error) {
	// The task type must exist and be active
	tasktype, err := m.GetTaskType(ctx, meta.Type)
	if err != nil {
		return nil, err
	} else if !tasktype.IsActive {
		return nil, pg.ErrNotFound.Withf("task type %q is not active", tasktype.Name)
	}

	// Decode the parameters
	var params any
	if len(meta.Params) == 0 {
		meta.Params = json.RawMessage(`{}`)
	}
	if err := json.Unmarshal(meta.Params, &params); err != nil {
		return nil, pg.ErrBadParameter.With("params is not well-formed JSON")
	}

	// Validate the parameters against the type's schema. The schema
	// document is only checked for well-formed JSON at registration,
	// so a broken one surfaces here
	rule, err := validator.ParseRule(tasktype.ParamSchema)
	if err != nil {
		return nil, pg.ErrInternalError.Withf("invalid param_schema for task type %q", tasktype.Name)
	}
	if violations := validator.Validate("params", params, rule); len(violations) > 0 {
		return nil, pg.ErrBadParameter.With(violations.Error())
	}

	// Content hash over the type name and canonical parameters
	key, err := schema.DedupeKey(tasktype.Name, params)
	if err != nil {
		return nil, err
	}

	var task schema.TaskWithDeduplicated
	if err := m.conn.Tx(ctx, func(conn pg.Conn) error {
		// Return the existing task when the hash is already present
		if err := conn.Get(ctx, &task.Task, schema.TaskDedupeKey(key)); err == nil {
			task.Deduplicated = true
			return nil
		} else if !errors.Is(err, pg.ErrNotFound) {
			return err
		}

		// Insert. The statement is ON CONFLICT DO NOTHING on the hash, so
		// a concurrent duplicate returns no row rather than aborting the
		// transaction, and we fall back to the winner's row
		if err := conn.With("type_id", tasktype.Id, "dedupe_key", key).Insert(ctx, &task.Task, meta); errors.Is(err, pg.ErrNotFound) {
			if err := conn.Get(ctx, &task.Task, schema.TaskDedupeKey(key)); err != nil {
				return err
			}
			task.Deduplicated = true
			return nil
		} else {
			return err
		}
	}); err != nil {
		return nil, err
	}

	// Record the creation
	if !task.Deduplicated {
		m.appendHistory(ctx, schema.TaskTransition{
			TaskId:    task.Id,
			NewStatus: schema.TaskPending,
		})
	}

	// Return success
	return &task, nil
}

// ClaimTask exclusively assigns the best pending task of a type to a
// worker. A task which has been claimed for longer than the claim
// timeout is treated as stalled, and is eligible again. Returns
// ErrNotFound when no task is available.
func (m *Manager) ClaimTask(ctx context.Context, req schema.TaskClaim) (*schema.Task, error) {
	var task schema.TaskWithPrevStatus
	if err := m.conn.Tx(ctx, func(conn pg.Conn) error {
		return conn.Get(ctx, &task, req)
	}); errors.Is(err, pg.ErrNotFound) {
		return nil, pg.ErrNotFound.With("no task available")
	} else if err != nil {
		return nil, err
	}

	// Record the transition
	m.appendHistory(ctx, schema.TaskTransition{
		TaskId:     task.Id,
		PrevStatus: types.Ptr(task.PrevStatus),
		NewStatus:  schema.TaskClaimed,
		Actor:      task.ClaimedBy,
	})

	// Return success
	return &task.Task, nil
}

// CompleteTask reports the outcome of a claimed task. Only the worker
// which holds the claim may report. On success the task completes; on
// failure it returns to pending until the attempt bound is reached,
// after which it fails permanently.
func (m *Manager) CompleteTask(ctx context.Context, req schema.TaskResult) (*schema.Task, error) {
	worker := strings.TrimSpace(req.Worker)
	if worker == "" {
		return nil, pg.ErrBadParameter.With("missing worker_id")
	}

	var task schema.Task
	var prev string
	if err := m.conn.Tx(ctx, func(conn pg.Conn) error {
		// Lock the row for the duration of the transaction
		if err := conn.Update(ctx, &task, schema.TaskId(req.Id), nil); err != nil {
			return err
		}
		prev = task.Status

		// Only a claimed task can be completed
		switch task.Status {
		case schema.TaskClaimed:
			// ok
		case schema.TaskPending:
			return pg.ErrBadParameter.With("task is not claimed")
		default:
			return pg.ErrConflict.Withf("task is %s", task.Status)
		}

		// Only the claiming worker can complete
		if task.ClaimedBy == nil || *task.ClaimedBy != worker {
			return pg.ErrForbidden.With("task is claimed by another worker")
		}

		// Apply the transition
		switch {
		case req.Success:
			var result any
			if len(req.Result) > 0 {
				result = string(req.Result)
			}
			if err := conn.With("tid", task.Id, "result", result).Exec(ctx, "${httpqueue.task_complete}"); err != nil {
				return err
			}
		case task.Attempts < schema.MaxTaskAttempts:
			if err := conn.With("tid", task.Id, "error", req.Error).Exec(ctx, "${httpqueue.task_retry}"); err != nil {
				return err
			}
		default:
			if err := conn.With("tid", task.Id, "error", req.Error).Exec(ctx, "${httpqueue.task_fail}"); err != nil {
				return err
			}
		}

		// Re-read the task in its final state
		return conn.Get(ctx, &task, schema.TaskId(req.Id))
	}); err != nil {
		return nil, err
	}

	// Record the transition
	m.appendHistory(ctx, schema.TaskTransition{
		TaskId:     task.Id,
		PrevStatus: types.Ptr(prev),
		NewStatus:  task.Status,
		Actor:      types.Ptr(worker),
	})

	// Return success
	return &task, nil
}

// GetTask returns a task by id.
func (m *Manager) GetTask(ctx context.Context, id uint64) (*schema.Task, error) {
	var task schema.Task
	if err := m.conn.Get(ctx, &task, schema.TaskId(id)); err != nil {
		return nil, err
	}
	return &task, nil
}

// ListTasks returns tasks, optionally filtered by status and type name,
// most recent first.
func (m *Manager) ListTasks(ctx context.Context, req schema.TaskListRequest) (*schema.TaskList, error) {
	list := schema.TaskList{TaskListRequest: req}
	if err := m.conn.List(ctx, &list, req); err != nil {
		return nil, err
	}
	return &list, nil
}

// TaskStats returns the task count per (type, status) bucket.
func (m *Manager) TaskStats(ctx context.Context) ([]schema.TaskStatus, error) {
	var resp schema.TaskStatusResponse
	if err := m.conn.List(ctx, &resp, schema.TaskStatusRequest{}); err != nil {
		return nil, err
	}
	return resp.Body, nil
}
