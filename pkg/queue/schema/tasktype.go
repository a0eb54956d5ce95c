package schema

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	// Packages
	pg "github.com/mutablelogic/go-httpqueue/pkg/pg"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

type TaskTypeName string

type TaskTypeMeta struct {
	Name        string          `json:"name,omitempty" arg:"" help:"Task type name"`
	Version     string          `json:"version,omitempty" help:"Task type version"`
	ParamSchema json.RawMessage `json:"param_schema,omitempty" help:"Parameter schema (JSON)"`
}

type TaskType struct {
	Id uint64 `json:"id,omitempty"`
	TaskTypeMeta
	IsActive  bool       `json:"is_active"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// TaskTypeWithCreated reports whether an upsert inserted a new row.
type TaskTypeWithCreated struct {
	TaskType
	Created bool `json:"created"`
}

type TaskTypeListRequest struct {
	pg.OffsetLimit
}

type TaskTypeList struct {
	TaskTypeListRequest
	Count uint64     `json:"count"`
	Body  []TaskType `json:"body,omitempty"`
}

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

var (
	reTypeName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_.-]{0,127}$`)
)

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (t TaskType) String() string {
	return stringify(t)
}

func (t TaskTypeMeta) String() string {
	return stringify(t)
}

func (t TaskTypeList) String() string {
	return stringify(t)
}

////////////////////////////////////////////////////////////////////////////////
// READER

func (t *TaskType) Scan(row pg.Row) error {
	return row.Scan(&t.Id, &t.Name, &t.Version, &t.ParamSchema, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
}

func (t *TaskTypeWithCreated) Scan(row pg.Row) error {
	return row.Scan(&t.Id, &t.Name, &t.Version, &t.ParamSchema, &t.IsActive, &t.CreatedAt, &t.UpdatedAt, &t.Created)
}

// TaskTypeList
func (l *TaskTypeList) Scan(row pg.Row) error {
	var tasktype TaskType
	if err := tasktype.Scan(row); err != nil {
		return err
	}
	l.Body = append(l.Body, tasktype)
	return nil
}

// TaskTypeListCount
func (l *TaskTypeList) ScanCount(row pg.Row) error {
	return row.Scan(&l.Count)
}

////////////////////////////////////////////////////////////////////////////////
// WRITER

func (t TaskTypeMeta) Insert(bind *pg.Bind) (string, error) {
	// Name is required
	if name, err := TaskTypeName(t.Name).typeName(); err != nil {
		return "", err
	} else {
		bind.Set("name", name)
	}

	// Version defaults to "1"
	if version := strings.TrimSpace(t.Version); version == "" {
		bind.Set("version", "1")
	} else {
		bind.Set("version", version)
	}

	// Schema must be well-formed JSON; the rules inside fail lazily at
	// first use against a real task's params
	if len(t.ParamSchema) == 0 {
		bind.Set("param_schema", "{}")
	} else if !json.Valid(t.ParamSchema) {
		return "", pg.ErrBadParameter.With("param_schema is not well-formed JSON")
	} else {
		bind.Set("param_schema", string(t.ParamSchema))
	}

	return bind.Replace("${httpqueue.tasktype_upsert}"), nil
}

func (t TaskTypeMeta) Update(bind *pg.Bind) error {
	return pg.ErrNotImplemented.With("task types are replaced by re-registration")
}

////////////////////////////////////////////////////////////////////////////////
// SELECTOR

func (t TaskTypeName) Select(bind *pg.Bind, op pg.Op) (string, error) {
	// Set type name
	if name, err := t.typeName(); err != nil {
		return "", err
	} else {
		bind.Set("name", name)
	}

	switch op {
	case pg.Get:
		return bind.Replace("${httpqueue.tasktype_get}"), nil
	case pg.Delete:
		// Task types are never hard-deleted, only deactivated
		return bind.Replace("${httpqueue.tasktype_deactivate}"), nil
	default:
		return "", pg.ErrInternalError.Withf("unsupported TaskTypeName operation %q", op)
	}
}

func (l TaskTypeListRequest) Select(bind *pg.Bind, op pg.Op) (string, error) {
	l.OffsetLimit.Bind(bind, TaskTypeListLimit)

	switch op {
	case pg.List:
		return bind.Replace("${httpqueue.tasktype_list}"), nil
	default:
		return "", pg.ErrInternalError.Withf("unsupported TaskTypeListRequest operation %q", op)
	}
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// Normalize and check a task type name
func (t TaskTypeName) typeName() (string, error) {
	if name := strings.TrimSpace(string(t)); name == "" {
		return "", pg.ErrBadParameter.With("missing task type name")
	} else if !reTypeName.MatchString(name) {
		return "", pg.ErrBadParameter.Withf("invalid task type name: %q", name)
	} else {
		return name, nil
	}
}
