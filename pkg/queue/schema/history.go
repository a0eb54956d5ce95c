package schema

import (
	"time"

	// Packages
	pg "github.com/mutablelogic/go-httpqueue/pkg/pg"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// TaskTransition is one recorded task status change.
type TaskTransition struct {
	Id         uint64     `json:"id,omitempty"`
	TaskId     uint64     `json:"task_id,omitempty"`
	PrevStatus *string    `json:"prev_status,omitempty"`
	NewStatus  string     `json:"new_status,omitempty"`
	Actor      *string    `json:"actor,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

type TaskTransitionListRequest struct {
	pg.OffsetLimit
	TaskId uint64 `json:"task_id,omitempty"`
}

type TaskTransitionList struct {
	TaskTransitionListRequest
	Count uint64           `json:"count"`
	Body  []TaskTransition `json:"body,omitempty"`
}

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (t TaskTransition) String() string {
	return stringify(t)
}

func (l TaskTransitionList) String() string {
	return stringify(l)
}

////////////////////////////////////////////////////////////////////////////////
// READER

func (t *TaskTransition) Scan(row pg.Row) error {
	return row.Scan(&t.Id, &t.TaskId, &t.PrevStatus, &t.NewStatus, &t.Actor, &t.CreatedAt)
}

// TaskTransitionList
func (l *TaskTransitionList) Scan(row pg.Row) error {
	var transition TaskTransition
	if err := transition.Scan(row); err != nil {
		return err
	}
	l.Body = append(l.Body, transition)
	return nil
}

// TaskTransitionListCount
func (l *TaskTransitionList) ScanCount(row pg.Row) error {
	return row.Scan(&l.Count)
}

////////////////////////////////////////////////////////////////////////////////
// WRITER

func (t TaskTransition) Insert(bind *pg.Bind) (string, error) {
	if t.TaskId == 0 {
		return "", pg.ErrBadParameter.With("missing task_id")
	}
	if t.NewStatus == "" {
		return "", pg.ErrBadParameter.With("missing new_status")
	} else if !IsTaskStatus(t.NewStatus) {
		return "", pg.ErrBadParameter.Withf("invalid new_status: %q", t.NewStatus)
	}
	bind.Set("task_id", t.TaskId)
	bind.Set("prev_status", t.PrevStatus)
	bind.Set("new_status", t.NewStatus)
	bind.Set("actor", t.Actor)
	return bind.Replace("${httpqueue.history_insert}"), nil
}

func (t TaskTransition) Update(bind *pg.Bind) error {
	return pg.ErrNotImplemented.With("history is append-only")
}

////////////////////////////////////////////////////////////////////////////////
// SELECTOR

func (l TaskTransitionListRequest) Select(bind *pg.Bind, op pg.Op) (string, error) {
	if l.TaskId == 0 {
		return "", pg.ErrBadParameter.With("missing task_id")
	}
	bind.Set("task_id", l.TaskId)
	l.OffsetLimit.Bind(bind, HistoryListLimit)

	switch op {
	case pg.List:
		return bind.Replace("${httpqueue.history_list}"), nil
	default:
		return "", pg.ErrInternalError.Withf("unsupported TaskTransitionListRequest operation %q", op)
	}
}
