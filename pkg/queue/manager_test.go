package queue_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	// Packages
	pg "github.com/mutablelogic/go-httpqueue/pkg/pg"
	queue "github.com/mutablelogic/go-httpqueue/pkg/queue"
	schema "github.com/mutablelogic/go-httpqueue/pkg/queue/schema"
	test "github.com/mutablelogic/go-httpqueue/pkg/test"
	types "github.com/mutablelogic/go-httpqueue/pkg/types"
	assert "github.com/stretchr/testify/assert"
)

///////////////////////////////////////////////////////////////////////////////
// HELPERS

// newManager returns a manager over a fresh schema. Skips the test
// when no database is configured.
func newManager(t *testing.T) *queue.Manager {
	t.Helper()
	conn := test.NewConn(t, nil)
	ctx := context.Background()
	if err := conn.Exec(ctx, `DROP SCHEMA IF EXISTS "httpqueue_test" CASCADE`); err != nil {
		t.Fatal(err)
	}
	manager, err := queue.New(ctx, conn, "httpqueue_test")
	if err != nil {
		t.Fatal(err)
	}
	return manager
}

// registerType registers a task type and returns its identifier
func registerType(t *testing.T, manager *queue.Manager, name string, params string) uint64 {
	t.Helper()
	meta := schema.TaskTypeMeta{Name: name}
	if params != "" {
		meta.ParamSchema = json.RawMessage(params)
	}
	tasktype, err := manager.RegisterTaskType(context.Background(), meta)
	if err != nil {
		t.Fatal(err)
	}
	return tasktype.Id
}

///////////////////////////////////////////////////////////////////////////////
// TESTS

func Test_Manager_001(t *testing.T) {
	assert := assert.New(t)
	conn := test.NewConn(t, nil)
	ctx := context.TODO()

	t.Run("New", func(t *testing.T) {
		manager, err := queue.New(ctx, conn, "httpqueue_test")
		assert.NoError(err)
		assert.NotNil(manager)
		assert.Equal("httpqueue_test", manager.Namespace())
	})

	t.Run("NilConnection", func(t *testing.T) {
		_, err := queue.New(ctx, nil, "httpqueue_test")
		assert.ErrorIs(err, pg.ErrBadParameter)
	})

	t.Run("BadNamespace", func(t *testing.T) {
		_, err := queue.New(ctx, conn, "not a namespace")
		assert.ErrorIs(err, pg.ErrBadParameter)
	})

	t.Run("Idempotent", func(t *testing.T) {
		// Creating the schema twice is not an error
		_, err := queue.New(ctx, conn, "httpqueue_test")
		assert.NoError(err)
	})
}

func Test_ManagerTaskType_001(t *testing.T) {
	assert := assert.New(t)
	manager := newManager(t)
	ctx := context.TODO()

	t.Run("Register", func(t *testing.T) {
		tasktype, err := manager.RegisterTaskType(ctx, schema.TaskTypeMeta{Name: "email.send"})
		assert.NoError(err)
		assert.True(tasktype.Created)
		assert.Equal("email.send", tasktype.Name)
		assert.Equal("1", tasktype.Version)
		assert.True(tasktype.IsActive)
	})

	t.Run("Reregister", func(t *testing.T) {
		tasktype, err := manager.RegisterTaskType(ctx, schema.TaskTypeMeta{Name: "email.send", Version: "2"})
		assert.NoError(err)
		assert.False(tasktype.Created)
		assert.Equal("2", tasktype.Version)
	})

	t.Run("Get", func(t *testing.T) {
		tasktype, err := manager.GetTaskType(ctx, "email.send")
		assert.NoError(err)
		assert.Equal("email.send", tasktype.Name)
	})

	t.Run("GetNotFound", func(t *testing.T) {
		_, err := manager.GetTaskType(ctx, "no.such.type")
		assert.ErrorIs(err, pg.ErrNotFound)
	})

	t.Run("Deactivate", func(t *testing.T) {
		tasktype, err := manager.DeactivateTaskType(ctx, "email.send")
		assert.NoError(err)
		assert.False(tasktype.IsActive)

		// Reactivated by re-registration
		reregistered, err := manager.RegisterTaskType(ctx, schema.TaskTypeMeta{Name: "email.send"})
		assert.NoError(err)
		assert.True(reregistered.IsActive)
	})

	t.Run("List", func(t *testing.T) {
		registerType(t, manager, "report.generate", "")
		list, err := manager.ListTaskTypes(ctx, schema.TaskTypeListRequest{})
		assert.NoError(err)
		assert.Equal(uint64(2), list.Count)
	})
}

func Test_ManagerTask_001(t *testing.T) {
	assert := assert.New(t)
	manager := newManager(t)
	ctx := context.TODO()
	registerType(t, manager, "email.send", `{
		"type": "object",
		"properties": {"to": {"type": "string", "required": true}}
	}`)

	t.Run("Create", func(t *testing.T) {
		task, err := manager.CreateTask(ctx, schema.TaskMeta{
			Type:   "email.send",
			Params: json.RawMessage(`{"to": "alice@example.com"}`),
		})
		assert.NoError(err)
		assert.False(task.Deduplicated)
		assert.Equal(schema.TaskPending, task.Status)
		assert.Equal("email.send", task.TypeName)
		assert.Len(task.DedupeKey, 64)
	})

	t.Run("Deduplicated", func(t *testing.T) {
		// Key order does not matter for the content hash
		task, err := manager.CreateTask(ctx, schema.TaskMeta{
			Type:   "email.send",
			Params: json.RawMessage(`{"to":"alice@example.com"}`),
		})
		assert.NoError(err)
		assert.True(task.Deduplicated)
	})

	t.Run("DistinctParams", func(t *testing.T) {
		task, err := manager.CreateTask(ctx, schema.TaskMeta{
			Type:   "email.send",
			Params: json.RawMessage(`{"to": "bob@example.com"}`),
		})
		assert.NoError(err)
		assert.False(task.Deduplicated)
	})

	t.Run("UnknownType", func(t *testing.T) {
		_, err := manager.CreateTask(ctx, schema.TaskMeta{Type: "no.such.type"})
		assert.ErrorIs(err, pg.ErrNotFound)
	})

	t.Run("InactiveType", func(t *testing.T) {
		registerType(t, manager, "old.type", "")
		_, err := manager.DeactivateTaskType(ctx, "old.type")
		assert.NoError(err)
		_, err = manager.CreateTask(ctx, schema.TaskMeta{Type: "old.type"})
		assert.ErrorIs(err, pg.ErrNotFound)
	})

	t.Run("SchemaViolation", func(t *testing.T) {
		_, err := manager.CreateTask(ctx, schema.TaskMeta{
			Type:   "email.send",
			Params: json.RawMessage(`{"to": 42}`),
		})
		assert.ErrorIs(err, pg.ErrBadParameter)
	})

	t.Run("MalformedParams", func(t *testing.T) {
		_, err := manager.CreateTask(ctx, schema.TaskMeta{
			Type:   "email.send",
			Params: json.RawMessage(`{not json`),
		})
		assert.ErrorIs(err, pg.ErrBadParameter)
	})

	t.Run("List", func(t *testing.T) {
		list, err := manager.ListTasks(ctx, schema.TaskListRequest{Status: schema.TaskPending})
		assert.NoError(err)
		assert.Equal(uint64(2), list.Count)
	})
}

func Test_ManagerTask_002(t *testing.T) {
	assert := assert.New(t)
	manager := newManager(t)
	ctx := context.TODO()
	registerType(t, manager, "email.send", "")

	// Identical submissions racing each other all resolve to one task,
	// with exactly one caller seeing it as newly created
	t.Run("ConcurrentCreate", func(t *testing.T) {
		var created, deduplicated atomic.Uint32
		var wg sync.WaitGroup
		ids := make([]uint64, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				task, err := manager.CreateTask(ctx, schema.TaskMeta{
					Type:   "email.send",
					Params: json.RawMessage(`{"to": "alice@example.com"}`),
				})
				if !assert.NoError(err) {
					return
				}
				ids[i] = task.Id
				if task.Deduplicated {
					deduplicated.Add(1)
				} else {
					created.Add(1)
				}
			}(i)
		}
		wg.Wait()
		assert.Equal(uint32(1), created.Load())
		assert.Equal(uint32(7), deduplicated.Load())
		for _, id := range ids {
			assert.Equal(ids[0], id)
		}
	})
}

func Test_ManagerClaim_001(t *testing.T) {
	assert := assert.New(t)
	manager := newManager(t)
	ctx := context.TODO()
	typeId := registerType(t, manager, "email.send", "")

	created, err := manager.CreateTask(ctx, schema.TaskMeta{
		Type:   "email.send",
		Params: json.RawMessage(`{"to": "alice@example.com"}`),
	})
	assert.NoError(err)

	t.Run("Claim", func(t *testing.T) {
		task, err := manager.ClaimTask(ctx, schema.TaskClaim{Worker: "worker-1", TypeId: typeId})
		assert.NoError(err)
		assert.Equal(created.Id, task.Id)
		assert.Equal(schema.TaskClaimed, task.Status)
		assert.Equal("worker-1", types.PtrString(task.ClaimedBy))
		assert.NotNil(task.ClaimedAt)
		assert.Equal(uint64(1), task.Attempts)
	})

	t.Run("Exhausted", func(t *testing.T) {
		// The only task is claimed, so there is nothing to hand out
		_, err := manager.ClaimTask(ctx, schema.TaskClaim{Worker: "worker-2", TypeId: typeId})
		assert.ErrorIs(err, pg.ErrNotFound)
	})

	t.Run("MissingWorker", func(t *testing.T) {
		_, err := manager.ClaimTask(ctx, schema.TaskClaim{TypeId: typeId})
		assert.ErrorIs(err, pg.ErrBadParameter)
	})
}

func Test_ManagerClaim_002(t *testing.T) {
	assert := assert.New(t)
	manager := newManager(t)
	ctx := context.TODO()
	typeId := registerType(t, manager, "email.send", "")

	_, err := manager.CreateTask(ctx, schema.TaskMeta{
		Type:   "email.send",
		Params: json.RawMessage(`{"to": "alice@example.com"}`),
	})
	assert.NoError(err)

	// A single task is handed to exactly one of the competing workers
	t.Run("Concurrent", func(t *testing.T) {
		var claimed, missed atomic.Uint32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(worker string) {
				defer wg.Done()
				if _, err := manager.ClaimTask(ctx, schema.TaskClaim{Worker: worker, TypeId: typeId}); err == nil {
					claimed.Add(1)
				} else {
					missed.Add(1)
				}
			}("worker-" + string(rune('a'+i)))
		}
		wg.Wait()
		assert.Equal(uint32(1), claimed.Load())
		assert.Equal(uint32(7), missed.Load())
	})
}

func Test_ManagerClaim_003(t *testing.T) {
	assert := assert.New(t)
	manager := newManager(t)
	ctx := context.TODO()
	lowId := registerType(t, manager, "email.send", "")
	registerType(t, manager, "report.generate", "")

	low, err := manager.CreateTask(ctx, schema.TaskMeta{
		Type:     "email.send",
		Params:   json.RawMessage(`{"to": "alice@example.com"}`),
		Priority: types.Ptr(int64(1)),
	})
	assert.NoError(err)
	high, err := manager.CreateTask(ctx, schema.TaskMeta{
		Type:     "email.send",
		Params:   json.RawMessage(`{"to": "bob@example.com"}`),
		Priority: types.Ptr(int64(10)),
	})
	assert.NoError(err)
	_, err = manager.CreateTask(ctx, schema.TaskMeta{Type: "report.generate"})
	assert.NoError(err)

	t.Run("PriorityOrder", func(t *testing.T) {
		task, err := manager.ClaimTask(ctx, schema.TaskClaim{
			Worker: "worker-1", TypeId: lowId, SortBy: "priority", SortOrder: "desc",
		})
		assert.NoError(err)
		assert.Equal(high.Id, task.Id)
	})

	t.Run("TypeIsolation", func(t *testing.T) {
		// Claiming one type never hands out another type's tasks
		task, err := manager.ClaimTask(ctx, schema.TaskClaim{Worker: "worker-1", TypeId: lowId})
		assert.NoError(err)
		assert.Equal(low.Id, task.Id)

		_, err = manager.ClaimTask(ctx, schema.TaskClaim{Worker: "worker-1", TypeId: lowId})
		assert.ErrorIs(err, pg.ErrNotFound)
	})
}

func Test_ManagerComplete_001(t *testing.T) {
	assert := assert.New(t)
	manager := newManager(t)
	ctx := context.TODO()
	typeId := registerType(t, manager, "email.send", "")

	created, err := manager.CreateTask(ctx, schema.TaskMeta{
		Type:   "email.send",
		Params: json.RawMessage(`{"to": "alice@example.com"}`),
	})
	assert.NoError(err)

	t.Run("NotClaimed", func(t *testing.T) {
		_, err := manager.CompleteTask(ctx, schema.TaskResult{Id: created.Id, Worker: "worker-1", Success: true})
		assert.ErrorIs(err, pg.ErrBadParameter)
	})

	_, err = manager.ClaimTask(ctx, schema.TaskClaim{Worker: "worker-1", TypeId: typeId})
	assert.NoError(err)

	t.Run("WrongWorker", func(t *testing.T) {
		_, err := manager.CompleteTask(ctx, schema.TaskResult{Id: created.Id, Worker: "worker-2", Success: true})
		assert.ErrorIs(err, pg.ErrForbidden)
	})

	t.Run("Success", func(t *testing.T) {
		task, err := manager.CompleteTask(ctx, schema.TaskResult{
			Id:      created.Id,
			Worker:  "worker-1",
			Success: true,
			Result:  json.RawMessage(`{"message_id": "abc"}`),
		})
		assert.NoError(err)
		assert.Equal(schema.TaskCompleted, task.Status)
		assert.NotNil(task.CompletedAt)
		assert.JSONEq(`{"message_id": "abc"}`, string(task.Result))

		// The claim is kept for audit
		assert.Equal("worker-1", types.PtrString(task.ClaimedBy))
	})

	t.Run("Terminal", func(t *testing.T) {
		_, err := manager.CompleteTask(ctx, schema.TaskResult{Id: created.Id, Worker: "worker-1", Success: true})
		assert.ErrorIs(err, pg.ErrConflict)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := manager.CompleteTask(ctx, schema.TaskResult{Id: created.Id + 1000, Worker: "worker-1", Success: true})
		assert.ErrorIs(err, pg.ErrNotFound)
	})
}

func Test_ManagerRetry_001(t *testing.T) {
	assert := assert.New(t)
	manager := newManager(t)
	ctx := context.TODO()
	typeId := registerType(t, manager, "email.send", "")

	created, err := manager.CreateTask(ctx, schema.TaskMeta{
		Type:   "email.send",
		Params: json.RawMessage(`{"to": "alice@example.com"}`),
	})
	assert.NoError(err)

	// Fail the task until the attempt bound is reached
	for attempt := uint64(1); attempt <= schema.MaxTaskAttempts; attempt++ {
		claimed, err := manager.ClaimTask(ctx, schema.TaskClaim{Worker: "worker-1", TypeId: typeId})
		assert.NoError(err)
		assert.Equal(attempt, claimed.Attempts)

		task, err := manager.CompleteTask(ctx, schema.TaskResult{
			Id:     created.Id,
			Worker: "worker-1",
			Error:  "smtp timeout",
		})
		assert.NoError(err)
		if attempt < schema.MaxTaskAttempts {
			// Requeued, with the claim cleared
			assert.Equal(schema.TaskPending, task.Status)
			assert.Nil(task.ClaimedBy)
			assert.Nil(task.ClaimedAt)
			assert.Equal("smtp timeout", types.PtrString(task.ErrorMessage))
		} else {
			// Permanently failed
			assert.Equal(schema.TaskFailed, task.Status)
			assert.NotNil(task.CompletedAt)
		}
	}

	t.Run("NoLongerClaimable", func(t *testing.T) {
		_, err := manager.ClaimTask(ctx, schema.TaskClaim{Worker: "worker-1", TypeId: typeId})
		assert.ErrorIs(err, pg.ErrNotFound)
	})
}

func Test_ManagerHistory_001(t *testing.T) {
	assert := assert.New(t)
	manager := newManager(t)
	ctx := context.TODO()
	typeId := registerType(t, manager, "email.send", "")

	created, err := manager.CreateTask(ctx, schema.TaskMeta{
		Type:   "email.send",
		Params: json.RawMessage(`{"to": "alice@example.com"}`),
	})
	assert.NoError(err)
	_, err = manager.ClaimTask(ctx, schema.TaskClaim{Worker: "worker-1", TypeId: typeId})
	assert.NoError(err)
	_, err = manager.CompleteTask(ctx, schema.TaskResult{Id: created.Id, Worker: "worker-1", Success: true})
	assert.NoError(err)

	t.Run("Transitions", func(t *testing.T) {
		history, err := manager.ListTaskHistory(ctx, schema.TaskTransitionListRequest{TaskId: created.Id})
		assert.NoError(err)
		if assert.Equal(uint64(3), history.Count) {
			assert.Equal(schema.TaskPending, history.Body[0].NewStatus)
			assert.Equal(schema.TaskClaimed, history.Body[1].NewStatus)
			assert.Equal(schema.TaskPending, types.PtrString(history.Body[1].PrevStatus))
			assert.Equal(schema.TaskCompleted, history.Body[2].NewStatus)
			assert.Equal("worker-1", types.PtrString(history.Body[2].Actor))
		}
	})

	t.Run("MissingTask", func(t *testing.T) {
		_, err := manager.ListTaskHistory(ctx, schema.TaskTransitionListRequest{})
		assert.ErrorIs(err, pg.ErrBadParameter)
	})
}

func Test_ManagerEndpoint_001(t *testing.T) {
	assert := assert.New(t)
	manager := newManager(t)
	ctx := context.TODO()

	t.Run("Seeded", func(t *testing.T) {
		endpoints, err := manager.ListEndpoints(ctx, schema.EndpointListRequest{})
		assert.NoError(err)
		assert.Equal(uint64(10), endpoints.Count)
	})

	t.Run("Rules", func(t *testing.T) {
		rules, err := manager.ListValidationRules(ctx, schema.ValidationRuleListRequest{})
		assert.NoError(err)
		assert.NotZero(rules.Count)
	})
}

func Test_ManagerStats_001(t *testing.T) {
	assert := assert.New(t)
	manager := newManager(t)
	ctx := context.TODO()
	registerType(t, manager, "email.send", "")

	_, err := manager.CreateTask(ctx, schema.TaskMeta{
		Type:   "email.send",
		Params: json.RawMessage(`{"to": "alice@example.com"}`),
	})
	assert.NoError(err)

	t.Run("Stats", func(t *testing.T) {
		stats, err := manager.TaskStats(ctx)
		assert.NoError(err)
		if assert.Len(stats, 1) {
			assert.Equal("email.send", stats[0].Type)
			assert.Equal(schema.TaskPending, stats[0].Status)
			assert.Equal(uint64(1), stats[0].Count)
		}
	})
}

func Test_ManagerReclaim_001(t *testing.T) {
	assert := assert.New(t)
	manager := newManager(t)
	ctx := context.TODO()
	typeId := registerType(t, manager, "email.send", "")

	created, err := manager.CreateTask(ctx, schema.TaskMeta{
		Type:   "email.send",
		Params: json.RawMessage(`{"to": "alice@example.com"}`),
	})
	assert.NoError(err)
	_, err = manager.ClaimTask(ctx, schema.TaskClaim{Worker: "worker-1", TypeId: typeId})
	assert.NoError(err)

	// Age the claim beyond the timeout window
	err = manager.Conn().Exec(ctx, `UPDATE ${"ns"}."task" SET "claimed_at" = NOW() - INTERVAL '1 hour' WHERE "id" = `+fmt.Sprint(created.Id))
	assert.NoError(err)

	t.Run("Reclaim", func(t *testing.T) {
		task, err := manager.ClaimTask(ctx, schema.TaskClaim{Worker: "worker-2", TypeId: typeId})
		assert.NoError(err)
		assert.Equal(created.Id, task.Id)
		assert.Equal("worker-2", types.PtrString(task.ClaimedBy))
		assert.Equal(uint64(2), task.Attempts)
	})

	t.Run("OriginalClaimantRejected", func(t *testing.T) {
		_, err := manager.CompleteTask(ctx, schema.TaskResult{Id: created.Id, Worker: "worker-1", Success: true})
		assert.ErrorIs(err, pg.ErrForbidden)
	})
}
