package schema_test

import (
	"strings"
	"testing"

	// Packages
	pg "github.com/mutablelogic/go-httpqueue/pkg/pg"
	schema "github.com/mutablelogic/go-httpqueue/pkg/queue/schema"
	sql "github.com/mutablelogic/go-httpqueue/pkg/queue/sql"
	assert "github.com/stretchr/testify/assert"
)

///////////////////////////////////////////////////////////////////////////////
// HELPERS

// newBind returns a bind populated with the named queries and schema
// name, the way the queue manager sets its connection up
func newBind(t *testing.T) *pg.Bind {
	t.Helper()
	bind := pg.NewBind("ns", schema.SchemaName)
	for _, src := range []string{sql.Queries, sql.Objects} {
		queries, err := pg.NewQueries(strings.NewReader(src))
		if !assert.NoError(t, err) {
			t.FailNow()
		}
		for _, key := range queries.Keys() {
			bind.Set(key, queries.Get(key))
		}
	}
	return bind
}

///////////////////////////////////////////////////////////////////////////////
// TESTS

func Test_TaskType_001(t *testing.T) {
	assert := assert.New(t)

	t.Run("InsertDefaults", func(t *testing.T) {
		bind := newBind(t)
		query, err := schema.TaskTypeMeta{Name: "email.send"}.Insert(bind)
		assert.NoError(err)
		assert.NotContains(query, "${")
		assert.Equal("1", bind.Get("version"))
		assert.Equal("{}", bind.Get("param_schema"))
	})

	t.Run("InsertBadName", func(t *testing.T) {
		for _, name := range []string{"", "  ", "1email", "email send", strings.Repeat("x", 200)} {
			_, err := schema.TaskTypeMeta{Name: name}.Insert(newBind(t))
			assert.Error(err, "name %q", name)
		}
	})

	t.Run("InsertBadSchema", func(t *testing.T) {
		_, err := schema.TaskTypeMeta{Name: "email.send", ParamSchema: []byte(`{not json`)}.Insert(newBind(t))
		assert.Error(err)
	})

	t.Run("Get", func(t *testing.T) {
		query, err := schema.TaskTypeName("email.send").Select(newBind(t), pg.Get)
		assert.NoError(err)
		assert.NotContains(query, "${")
		assert.Contains(query, `"name" = @name`)
	})

	t.Run("Delete", func(t *testing.T) {
		// Deactivates rather than removing the row
		query, err := schema.TaskTypeName("email.send").Select(newBind(t), pg.Delete)
		assert.NoError(err)
		assert.Contains(query, "UPDATE")
		assert.Contains(query, `"is_active"`)
	})

	t.Run("UnsupportedOp", func(t *testing.T) {
		_, err := schema.TaskTypeName("email.send").Select(newBind(t), pg.Update)
		assert.Error(err)
	})
}

func Test_Task_001(t *testing.T) {
	assert := assert.New(t)

	t.Run("InsertRequiresResolvedType", func(t *testing.T) {
		_, err := schema.TaskMeta{Type: "email.send"}.Insert(newBind(t))
		assert.Error(err)
	})

	t.Run("InsertDefaults", func(t *testing.T) {
		bind := newBind(t)
		bind.Set("type_id", uint64(1))
		bind.Set("dedupe_key", strings.Repeat("0", 64))
		query, err := schema.TaskMeta{Type: "email.send"}.Insert(bind)
		assert.NoError(err)
		assert.NotContains(query, "${")
		assert.Contains(query, `ON CONFLICT ("dedupe_key") DO NOTHING`)
		assert.Equal("{}", bind.Get("params"))
		assert.Equal(int64(0), bind.Get("priority"))
	})

	t.Run("Immutable", func(t *testing.T) {
		assert.Error(schema.TaskMeta{}.Update(newBind(t)))
	})

	t.Run("Get", func(t *testing.T) {
		query, err := schema.TaskId(42).Select(newBind(t), pg.Get)
		assert.NoError(err)
		assert.NotContains(query, "${")
		assert.Contains(query, `t."id" = @tid`)
	})

	t.Run("GetMissingId", func(t *testing.T) {
		_, err := schema.TaskId(0).Select(newBind(t), pg.Get)
		assert.Error(err)
	})

	t.Run("Lock", func(t *testing.T) {
		query, err := schema.TaskId(42).Select(newBind(t), pg.Update)
		assert.NoError(err)
		assert.Contains(query, "FOR UPDATE")
	})

	t.Run("ByDedupe", func(t *testing.T) {
		query, err := schema.TaskDedupeKey(strings.Repeat("a", 64)).Select(newBind(t), pg.Get)
		assert.NoError(err)
		assert.Contains(query, `"dedupe_key" = @dedupe_key`)
	})
}

func Test_TaskClaim_001(t *testing.T) {
	assert := assert.New(t)

	t.Run("MissingWorker", func(t *testing.T) {
		_, err := schema.TaskClaim{TypeId: 1}.Select(newBind(t), pg.Get)
		assert.Error(err)
	})

	t.Run("MissingType", func(t *testing.T) {
		_, err := schema.TaskClaim{Worker: "worker-1"}.Select(newBind(t), pg.Get)
		assert.Error(err)
	})

	t.Run("Defaults", func(t *testing.T) {
		bind := newBind(t)
		query, err := schema.TaskClaim{Worker: "worker-1", TypeId: 1}.Select(bind, pg.Get)
		assert.NoError(err)
		assert.NotContains(query, "${")
		assert.Contains(query, "SKIP LOCKED")
		assert.Contains(query, `"created_at" ASC`)
		assert.NotContains(query, "LIKE")
	})

	t.Run("TypePattern", func(t *testing.T) {
		bind := newBind(t)
		query, err := schema.TaskClaim{Worker: "worker-1", TypeId: 1, TypePattern: "email.%"}.Select(bind, pg.Get)
		assert.NoError(err)
		assert.NotContains(query, "${")
		assert.Contains(query, `LIKE @type_pattern`)
		assert.Equal("email.%", bind.Get("type_pattern"))
	})

	t.Run("SortDesc", func(t *testing.T) {
		query, err := schema.TaskClaim{Worker: "worker-1", TypeId: 1, SortBy: "priority", SortOrder: "desc"}.Select(newBind(t), pg.Get)
		assert.NoError(err)
		assert.Contains(query, `"priority" DESC`)
	})

	t.Run("SortByNotWhitelisted", func(t *testing.T) {
		_, err := schema.TaskClaim{Worker: "worker-1", TypeId: 1, SortBy: `id"; DROP TABLE task; --`}.Select(newBind(t), pg.Get)
		assert.Error(err)
	})

	t.Run("BadSortOrder", func(t *testing.T) {
		_, err := schema.TaskClaim{Worker: "worker-1", TypeId: 1, SortOrder: "sideways"}.Select(newBind(t), pg.Get)
		assert.Error(err)
	})
}

func Test_TaskList_001(t *testing.T) {
	assert := assert.New(t)

	t.Run("NoFilters", func(t *testing.T) {
		bind := newBind(t)
		query, err := schema.TaskListRequest{}.Select(bind, pg.List)
		assert.NoError(err)
		assert.NotContains(query, "${")
		assert.NotContains(query, "WHERE")
	})

	t.Run("StatusFilter", func(t *testing.T) {
		query, err := schema.TaskListRequest{Status: schema.TaskPending}.Select(newBind(t), pg.List)
		assert.NoError(err)
		assert.Contains(query, `t."status" = @status`)
	})

	t.Run("BadStatus", func(t *testing.T) {
		_, err := schema.TaskListRequest{Status: "limbo"}.Select(newBind(t), pg.List)
		assert.Error(err)
	})

	t.Run("BothFilters", func(t *testing.T) {
		query, err := schema.TaskListRequest{Status: schema.TaskFailed, Type: "email.send"}.Select(newBind(t), pg.List)
		assert.NoError(err)
		assert.Contains(query, `t."status" = @status AND tt."name" = @type`)
	})
}

func Test_History_001(t *testing.T) {
	assert := assert.New(t)

	t.Run("Insert", func(t *testing.T) {
		bind := newBind(t)
		query, err := schema.TaskTransition{TaskId: 1, NewStatus: schema.TaskClaimed}.Insert(bind)
		assert.NoError(err)
		assert.NotContains(query, "${")
		assert.Contains(query, "INSERT INTO")
	})

	t.Run("InsertMissingTask", func(t *testing.T) {
		_, err := schema.TaskTransition{NewStatus: schema.TaskClaimed}.Insert(newBind(t))
		assert.Error(err)
	})

	t.Run("InsertMissingStatus", func(t *testing.T) {
		_, err := schema.TaskTransition{TaskId: 1}.Insert(newBind(t))
		assert.Error(err)
	})

	t.Run("AppendOnly", func(t *testing.T) {
		assert.Error(schema.TaskTransition{}.Update(newBind(t)))
	})

	t.Run("List", func(t *testing.T) {
		query, err := schema.TaskTransitionListRequest{TaskId: 1}.Select(newBind(t), pg.List)
		assert.NoError(err)
		assert.Contains(query, `"task_id" = @task_id`)
	})

	t.Run("ListMissingTask", func(t *testing.T) {
		_, err := schema.TaskTransitionListRequest{}.Select(newBind(t), pg.List)
		assert.Error(err)
	})
}

func Test_Endpoint_001(t *testing.T) {
	assert := assert.New(t)

	t.Run("Valid", func(t *testing.T) {
		endpoint := schema.Endpoint{Method: "GET", Path: "/task/:id", ActionType: schema.ActionQuery}
		assert.NoError(endpoint.Valid())
		assert.Equal([]string{"task", ":id"}, endpoint.PathSegments())
	})

	t.Run("BadMethod", func(t *testing.T) {
		assert.Error(schema.Endpoint{Method: "FETCH", Path: "/task", ActionType: schema.ActionQuery}.Valid())
	})

	t.Run("BadPath", func(t *testing.T) {
		assert.Error(schema.Endpoint{Method: "GET", Path: "task", ActionType: schema.ActionQuery}.Valid())
	})

	t.Run("BadAction", func(t *testing.T) {
		assert.Error(schema.Endpoint{Method: "GET", Path: "/task", ActionType: "yolo"}.Valid())
	})

	t.Run("ListActive", func(t *testing.T) {
		query, err := schema.EndpointListRequest{}.Select(newBind(t), pg.List)
		assert.NoError(err)
		assert.Contains(query, `WHERE "is_active"`)
	})

	t.Run("ListAll", func(t *testing.T) {
		query, err := schema.EndpointListRequest{All: true}.Select(newBind(t), pg.List)
		assert.NoError(err)
		assert.NotContains(query, "WHERE")
	})

	t.Run("RulesForEndpoint", func(t *testing.T) {
		query, err := schema.ValidationRuleListRequest{EndpointId: 3}.Select(newBind(t), pg.List)
		assert.NoError(err)
		assert.Contains(query, `"endpoint_id" = @endpoint_id`)
	})
}

func Test_Schema_001(t *testing.T) {
	assert := assert.New(t)

	// Every schema object must expand fully with only the schema
	// name bound
	t.Run("ObjectsExpand", func(t *testing.T) {
		queries, err := pg.NewQueries(strings.NewReader(sql.Objects))
		assert.NoError(err)
		bind := newBind(t)
		for _, key := range queries.Keys() {
			assert.NotContains(bind.Replace("${"+key+"}"), "${", key)
		}
	})
}
