package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	// Packages
	pg "github.com/mutablelogic/go-httpqueue/pkg/pg"
	schema "github.com/mutablelogic/go-httpqueue/pkg/queue/schema"
	version "github.com/mutablelogic/go-httpqueue/pkg/version"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// HandlerRequest is the merged parameter bag and static configuration
// forwarded to a custom handler.
type HandlerRequest struct {
	Params map[string]any
	Config map[string]any
}

// HandlerResponse is a custom handler's outcome.
type HandlerResponse struct {
	Status  int
	Message string
	Data    any
}

// HandlerFunc is a named custom handler.
type HandlerFunc func(context.Context, *HandlerRequest) (*HandlerResponse, error)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Handlers returns the custom handlers the manager provides, keyed by
// the name an action configuration refers to.
func (m *Manager) Handlers() map[string]HandlerFunc {
	return map[string]HandlerFunc{
		"register_task_type": m.handleRegisterTaskType,
		"get_task_type":      m.handleGetTaskType,
		"list_task_types":    m.handleListTaskTypes,
		"create_task":        m.handleCreateTask,
		"claim_task":         m.handleClaimTask,
		"complete_task":      m.handleCompleteTask,
		"get_task":           m.handleGetTask,
		"list_tasks":         m.handleListTasks,
		"health":             m.handleHealth,
	}
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (m *Manager) handleRegisterTaskType(ctx context.Context, req *HandlerRequest) (*HandlerResponse, error) {
	meta := schema.TaskTypeMeta{
		Name:    paramString(req.Params, "name"),
		Version: paramString(req.Params, "version"),
	}
	if raw, err := paramJSON(req.Params, "param_schema"); err != nil {
		return nil, err
	} else {
		meta.ParamSchema = raw
	}

	tasktype, err := m.RegisterTaskType(ctx, meta)
	if err != nil {
		return nil, err
	}

	// Report whether the registration inserted or replaced
	if tasktype.Created {
		return &HandlerResponse{Status: http.StatusCreated, Message: "created", Data: tasktype.TaskType}, nil
	}
	return &HandlerResponse{Status: http.StatusOK, Message: "updated", Data: tasktype.TaskType}, nil
}

func (m *Manager) handleGetTaskType(ctx context.Context, req *HandlerRequest) (*HandlerResponse, error) {
	tasktype, err := m.GetTaskType(ctx, paramString(req.Params, "name"))
	if err != nil {
		return nil, err
	}
	return &HandlerResponse{Status: http.StatusOK, Data: tasktype}, nil
}

func (m *Manager) handleListTaskTypes(ctx context.Context, req *HandlerRequest) (*HandlerResponse, error) {
	var list schema.TaskTypeListRequest
	if err := paramOffsetLimit(req.Params, &list.OffsetLimit); err != nil {
		return nil, err
	}
	response, err := m.ListTaskTypes(ctx, list)
	if err != nil {
		return nil, err
	}
	return &HandlerResponse{Status: http.StatusOK, Data: response}, nil
}

func (m *Manager) handleCreateTask(ctx context.Context, req *HandlerRequest) (*HandlerResponse, error) {
	meta := schema.TaskMeta{
		Type: paramString(req.Params, "type"),
	}
	if raw, err := paramJSON(req.Params, "params"); err != nil {
		return nil, err
	} else {
		meta.Params = raw
	}
	if priority, ok, err := paramInt64(req.Params, "priority"); err != nil {
		return nil, err
	} else if ok {
		meta.Priority = &priority
	}

	task, err := m.CreateTask(ctx, meta)
	if err != nil {
		return nil, err
	}
	if task.Deduplicated {
		return &HandlerResponse{Status: http.StatusOK, Message: "deduplicated", Data: task}, nil
	}
	return &HandlerResponse{Status: http.StatusCreated, Message: "created", Data: task}, nil
}

func (m *Manager) handleClaimTask(ctx context.Context, req *HandlerRequest) (*HandlerResponse, error) {
	claim := schema.TaskClaim{
		Worker:      paramString(req.Params, "worker_id"),
		TypePattern: paramString(req.Params, "type_pattern"),
		SortBy:      paramString(req.Params, "sort_by"),
		SortOrder:   paramString(req.Params, "sort_order"),
	}
	if id, ok, err := paramUint64(req.Params, "task_type_id"); err != nil {
		return nil, err
	} else if ok {
		claim.TypeId = id
	}

	task, err := m.ClaimTask(ctx, claim)
	if err != nil {
		return nil, err
	}
	return &HandlerResponse{Status: http.StatusOK, Message: "claimed", Data: task}, nil
}

func (m *Manager) handleCompleteTask(ctx context.Context, req *HandlerRequest) (*HandlerResponse, error) {
	result := schema.TaskResult{
		Worker: paramString(req.Params, "worker_id"),
		Error:  paramString(req.Params, "error"),
	}
	if id, ok, err := paramUint64(req.Params, "id"); err != nil {
		return nil, err
	} else if ok {
		result.Id = id
	}
	if success, ok, err := paramBool(req.Params, "success"); err != nil {
		return nil, err
	} else if ok {
		result.Success = success
	}
	if raw, err := paramJSON(req.Params, "result"); err != nil {
		return nil, err
	} else {
		result.Result = raw
	}

	task, err := m.CompleteTask(ctx, result)
	if err != nil {
		return nil, err
	}
	return &HandlerResponse{Status: http.StatusOK, Message: task.Status, Data: task}, nil
}

func (m *Manager) handleGetTask(ctx context.Context, req *HandlerRequest) (*HandlerResponse, error) {
	id, ok, err := paramUint64(req.Params, "id")
	if err != nil {
		return nil, err
	} else if !ok {
		return nil, pg.ErrBadParameter.With("missing task id")
	}

	task, err := m.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	return &HandlerResponse{Status: http.StatusOK, Data: task}, nil
}

func (m *Manager) handleListTasks(ctx context.Context, req *HandlerRequest) (*HandlerResponse, error) {
	list := schema.TaskListRequest{
		Status: paramString(req.Params, "status"),
		Type:   paramString(req.Params, "type"),
	}
	if err := paramOffsetLimit(req.Params, &list.OffsetLimit); err != nil {
		return nil, err
	}
	response, err := m.ListTasks(ctx, list)
	if err != nil {
		return nil, err
	}
	return &HandlerResponse{Status: http.StatusOK, Data: response}, nil
}

func (m *Manager) handleHealth(ctx context.Context, req *HandlerRequest) (*HandlerResponse, error) {
	// The store must be reachable for the service to be healthy
	if err := m.conn.Exec(ctx, "SELECT 1"); err != nil {
		return nil, pg.ErrInternalError.With("database is not reachable")
	}
	return &HandlerResponse{Status: http.StatusOK, Data: map[string]any{
		"status":    "ok",
		"namespace": m.namespace,
		"version":   version.Version(),
	}}, nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS - PARAMETERS

func paramString(params map[string]any, key string) string {
	if value, ok := params[key]; ok && value != nil {
		return fmt.Sprint(value)
	}
	return ""
}

func paramUint64(params map[string]any, key string) (uint64, bool, error) {
	value, ok := params[key]
	if !ok || value == nil {
		return 0, false, nil
	}
	switch v := value.(type) {
	case float64:
		if v < 0 || v != float64(uint64(v)) {
			return 0, false, pg.ErrBadParameter.Withf("invalid value for %q", key)
		}
		return uint64(v), true, nil
	case int64:
		if v < 0 {
			return 0, false, pg.ErrBadParameter.Withf("invalid value for %q", key)
		}
		return uint64(v), true, nil
	case uint64:
		return v, true, nil
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, false, pg.ErrBadParameter.Withf("invalid value for %q", key)
		}
		return parsed, true, nil
	}
	return 0, false, pg.ErrBadParameter.Withf("invalid value for %q", key)
}

func paramInt64(params map[string]any, key string) (int64, bool, error) {
	value, ok := params[key]
	if !ok || value == nil {
		return 0, false, nil
	}
	switch v := value.(type) {
	case float64:
		if v != float64(int64(v)) {
			return 0, false, pg.ErrBadParameter.Withf("invalid value for %q", key)
		}
		return int64(v), true, nil
	case int64:
		return v, true, nil
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false, pg.ErrBadParameter.Withf("invalid value for %q", key)
		}
		return parsed, true, nil
	}
	return 0, false, pg.ErrBadParameter.Withf("invalid value for %q", key)
}

func paramBool(params map[string]any, key string) (bool, bool, error) {
	value, ok := params[key]
	if !ok || value == nil {
		return false, false, nil
	}
	switch v := value.(type) {
	case bool:
		return v, true, nil
	case string:
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return false, false, pg.ErrBadParameter.Withf("invalid value for %q", key)
		}
		return parsed, true, nil
	}
	return false, false, pg.ErrBadParameter.Withf("invalid value for %q", key)
}

func paramJSON(params map[string]any, key string) (json.RawMessage, error) {
	value, ok := params[key]
	if !ok || value == nil {
		return nil, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, pg.ErrBadParameter.Withf("invalid value for %q", key)
	}
	return json.RawMessage(data), nil
}

func paramOffsetLimit(params map[string]any, offsetlimit *pg.OffsetLimit) error {
	if offset, ok, err := paramUint64(params, "offset"); err != nil {
		return err
	} else if ok {
		offsetlimit.Offset = offset
	}
	if limit, ok, err := paramUint64(params, "limit"); err != nil {
		return err
	} else if ok {
		offsetlimit.Limit = &limit
	}
	return nil
}
