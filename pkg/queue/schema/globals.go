package schema

import (
	"encoding/json"
	"time"
)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	SchemaName       = "httpqueue"
	DefaultNamespace = "httpqueue"

	// Maximum number of claim attempts before a task fails permanently
	MaxTaskAttempts = 3

	// A claimed task older than this becomes eligible for reclaim
	ClaimTimeout = 5 * time.Minute

	// Default list page sizes
	TaskListLimit     = 100
	TaskTypeListLimit = 100
	HistoryListLimit  = 100
)

// Task statuses
const (
	TaskPending   = "pending"
	TaskClaimed   = "claimed"
	TaskCompleted = "completed"
	TaskFailed    = "failed"
)

// Actions which an endpoint definition may perform
const (
	ActionQuery  = "query"
	ActionInsert = "insert"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionCustom = "custom"
)

// Sources from which request parameters are drawn
const (
	SourcePath   = "path"
	SourceQuery  = "query"
	SourceBody   = "body"
	SourceHeader = "header"
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// IsTaskStatus returns true for a recognized task status.
func IsTaskStatus(status string) bool {
	switch status {
	case TaskPending, TaskClaimed, TaskCompleted, TaskFailed:
		return true
	}
	return false
}

// IsActionType returns true for a recognized endpoint action type.
func IsActionType(action string) bool {
	switch action {
	case ActionQuery, ActionInsert, ActionUpdate, ActionDelete, ActionCustom:
		return true
	}
	return false
}

// IsSource returns true for a recognized parameter source.
func IsSource(source string) bool {
	switch source {
	case SourcePath, SourceQuery, SourceBody, SourceHeader:
		return true
	}
	return false
}

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func stringify[T any](v T) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err.Error()
	}
	return string(data)
}
