package schema

import (
	"encoding/json"
	"strings"
	"time"

	// Packages
	pg "github.com/mutablelogic/go-httpqueue/pkg/pg"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

type TaskId uint64

// TaskMeta is the request to create a task of a named type.
type TaskMeta struct {
	Type     string          `json:"type,omitempty" arg:"" help:"Task type name"`
	Params   json.RawMessage `json:"params,omitempty" help:"Task parameters (JSON)"`
	Priority *int64          `json:"priority,omitempty" help:"Claim priority (higher first)"`
}

// TaskClaim is the request to exclusively claim the next eligible task.
type TaskClaim struct {
	Worker      string `json:"worker_id,omitempty" help:"Worker identifier"`
	TypeId      uint64 `json:"task_type_id,omitempty" help:"Task type id"`
	TypePattern string `json:"type_pattern,omitempty" help:"LIKE pattern on the type name"`
	SortBy      string `json:"sort_by,omitempty" help:"Sort field"`
	SortOrder   string `json:"sort_order,omitempty" help:"Sort order (asc or desc)"`
}

// TaskResult is the request to report the outcome of a claimed task.
type TaskResult struct {
	Id      uint64          `json:"task_id,omitempty"`
	Worker  string          `json:"worker_id,omitempty"`
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type Task struct {
	Id           uint64          `json:"id,omitempty"`
	TypeId       uint64          `json:"type_id,omitempty"`
	TypeName     string          `json:"type,omitempty"`
	Status       string          `json:"status,omitempty"`
	Params       json.RawMessage `json:"params,omitempty"`
	DedupeKey    string          `json:"dedupe_key,omitempty"`
	ClaimedBy    *string         `json:"claimed_by,omitempty"`
	ClaimedAt    *time.Time      `json:"claimed_at,omitempty"`
	Attempts     uint64          `json:"attempts"`
	Priority     int64           `json:"priority"`
	Result       json.RawMessage `json:"result,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	CreatedAt    *time.Time      `json:"created_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// TaskWithDeduplicated reports whether a create returned an existing task.
type TaskWithDeduplicated struct {
	Task
	Deduplicated bool `json:"deduplicated"`
}

// TaskWithPrevStatus is a claimed task together with the status it held
// before the claim, which is recorded in the task history.
type TaskWithPrevStatus struct {
	Task
	PrevStatus string `json:"-"`
}

// TaskDedupeKey selects a task by its content hash.
type TaskDedupeKey string

type TaskListRequest struct {
	pg.OffsetLimit
	Status string `json:"status,omitempty" help:"Filter by status"`
	Type   string `json:"type,omitempty" help:"Filter by type name"`
}

type TaskList struct {
	TaskListRequest
	Count uint64 `json:"count"`
	Body  []Task `json:"body,omitempty"`
}

// TaskStatus is one (type, status) bucket with its task count.
type TaskStatus struct {
	Type   string `json:"type"`
	Status string `json:"status"`
	Count  uint64 `json:"count"`
}

type TaskStatusRequest struct{}

type TaskStatusResponse struct {
	Body []TaskStatus `json:"body,omitempty"`
}

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

// Fields a claim may sort candidates by
var claimSortFields = map[string]string{
	"created_at": `"created_at"`,
	"priority":   `"priority"`,
	"id":         `"id"`,
	"attempts":   `"attempts"`,
}

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (t Task) String() string {
	return stringify(t)
}

func (t TaskMeta) String() string {
	return stringify(t)
}

func (t TaskWithDeduplicated) String() string {
	return stringify(t)
}

func (t TaskList) String() string {
	return stringify(t)
}

////////////////////////////////////////////////////////////////////////////////
// READER

func (t *TaskId) Scan(row pg.Row) error {
	var id *uint64
	if err := row.Scan(&id); err != nil {
		return err
	}
	if id != nil {
		*t = TaskId(*id)
	}
	return nil
}

func (t *Task) Scan(row pg.Row) error {
	return row.Scan(&t.Id, &t.TypeId, &t.TypeName, &t.Status, &t.Params, &t.DedupeKey, &t.ClaimedBy, &t.ClaimedAt, &t.Attempts, &t.Priority, &t.Result, &t.ErrorMessage, &t.CreatedAt, &t.CompletedAt)
}

func (t *TaskWithPrevStatus) Scan(row pg.Row) error {
	return row.Scan(&t.Id, &t.TypeId, &t.TypeName, &t.Status, &t.Params, &t.DedupeKey, &t.ClaimedBy, &t.ClaimedAt, &t.Attempts, &t.Priority, &t.Result, &t.ErrorMessage, &t.CreatedAt, &t.CompletedAt, &t.PrevStatus)
}

// TaskList
func (l *TaskList) Scan(row pg.Row) error {
	var task Task
	if err := task.Scan(row); err != nil {
		return err
	}
	l.Body = append(l.Body, task)
	return nil
}

// TaskListCount
func (l *TaskList) ScanCount(row pg.Row) error {
	return row.Scan(&l.Count)
}

// TaskStatus
func (s *TaskStatus) Scan(row pg.Row) error {
	return row.Scan(&s.Type, &s.Status, &s.Count)
}

// TaskStatusResponse
func (l *TaskStatusResponse) Scan(row pg.Row) error {
	var status TaskStatus
	if err := status.Scan(row); err != nil {
		return err
	}
	l.Body = append(l.Body, status)
	return nil
}

////////////////////////////////////////////////////////////////////////////////
// WRITER

// Insert a pending task. The type_id and dedupe_key bind vars are set by
// the manager, which has already resolved and validated the task type.
func (t TaskMeta) Insert(bind *pg.Bind) (string, error) {
	if !bind.Has("type_id") {
		return "", pg.ErrInternalError.With("missing type_id")
	}
	if !bind.Has("dedupe_key") {
		return "", pg.ErrInternalError.With("missing dedupe_key")
	}

	// Params
	if len(t.Params) == 0 {
		bind.Set("params", "{}")
	} else {
		bind.Set("params", string(t.Params))
	}

	// Priority
	if t.Priority != nil {
		bind.Set("priority", *t.Priority)
	} else {
		bind.Set("priority", int64(0))
	}

	return bind.Replace("${httpqueue.task_insert}"), nil
}

func (t TaskMeta) Update(bind *pg.Bind) error {
	return pg.ErrNotImplemented.With("tasks are immutable once created")
}

////////////////////////////////////////////////////////////////////////////////
// SELECTOR

func (t TaskDedupeKey) Select(bind *pg.Bind, op pg.Op) (string, error) {
	if t == "" {
		return "", pg.ErrBadParameter.With("missing dedupe key")
	}
	bind.Set("dedupe_key", string(t))

	switch op {
	case pg.Get:
		return bind.Replace("${httpqueue.task_by_dedupe}"), nil
	default:
		return "", pg.ErrInternalError.Withf("unsupported TaskDedupeKey operation %q", op)
	}
}

func (t TaskId) Select(bind *pg.Bind, op pg.Op) (string, error) {
	if t == 0 {
		return "", pg.ErrBadParameter.With("missing task id")
	}
	bind.Set("tid", uint64(t))

	switch op {
	case pg.Get:
		return bind.Replace("${httpqueue.task_get}"), nil
	case pg.Update:
		// Lock the row for the remainder of the transaction
		return bind.Replace("${httpqueue.task_lock}"), nil
	default:
		return "", pg.ErrInternalError.Withf("unsupported TaskId operation %q", op)
	}
}

func (t TaskClaim) Select(bind *pg.Bind, op pg.Op) (string, error) {
	// Worker is required
	if worker := strings.TrimSpace(t.Worker); worker == "" {
		return "", pg.ErrBadParameter.With("missing worker_id")
	} else {
		bind.Set("worker", worker)
	}

	// Type id is required, so that one poller cannot accidentally
	// starve every other task type
	if t.TypeId == 0 {
		return "", pg.ErrBadParameter.With("missing task_type_id")
	} else {
		bind.Set("type_id", t.TypeId)
	}

	// Optional LIKE pattern on the type name
	if pattern := strings.TrimSpace(t.TypePattern); pattern != "" {
		bind.Set("type_pattern", pattern)
		bind.Set("typefilter", `AND "type_id" IN (SELECT "id" FROM ${"ns"}."tasktype" WHERE "name" LIKE @type_pattern)`)
	} else {
		bind.Set("typefilter", "")
	}

	// Sort field and direction are structural, so whitelist both
	sort, ok := claimSortFields[valueOr(t.SortBy, "created_at")]
	if !ok {
		return "", pg.ErrBadParameter.Withf("invalid sort_by: %q", t.SortBy)
	}
	switch strings.ToLower(valueOr(t.SortOrder, "asc")) {
	case "asc":
		bind.Set("order", sort+" ASC")
	case "desc":
		bind.Set("order", sort+" DESC")
	default:
		return "", pg.ErrBadParameter.Withf("invalid sort_order: %q", t.SortOrder)
	}

	// Claim timeout for reclaiming stalled tasks
	bind.Set("timeout_secs", ClaimTimeout.Seconds())

	switch op {
	case pg.Get:
		return bind.Replace("${httpqueue.task_claim}"), nil
	default:
		return "", pg.ErrInternalError.Withf("unsupported TaskClaim operation %q", op)
	}
}

func (l TaskListRequest) Select(bind *pg.Bind, op pg.Op) (string, error) {
	// Bind parameters
	var where []string
	if l.Status != "" {
		if !IsTaskStatus(l.Status) {
			return "", pg.ErrBadParameter.Withf("invalid status: %q", l.Status)
		}
		where = append(where, `t."status" = `+bind.Set("status", l.Status))
	}
	if l.Type != "" {
		where = append(where, `tt."name" = `+bind.Set("type", l.Type))
	}
	if len(where) == 0 {
		bind.Set("where", "")
	} else {
		bind.Set("where", "WHERE "+strings.Join(where, " AND "))
	}
	l.OffsetLimit.Bind(bind, TaskListLimit)

	switch op {
	case pg.List:
		return bind.Replace("${httpqueue.task_list}"), nil
	default:
		return "", pg.ErrInternalError.Withf("unsupported TaskListRequest operation %q", op)
	}
}

func (l TaskStatusRequest) Select(bind *pg.Bind, op pg.Op) (string, error) {
	switch op {
	case pg.List:
		return bind.Replace("${httpqueue.task_stats}"), nil
	default:
		return "", pg.ErrInternalError.Withf("unsupported TaskStatusRequest operation %q", op)
	}
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func valueOr(value, def string) string {
	if value = strings.TrimSpace(value); value == "" {
		return def
	}
	return value
}
