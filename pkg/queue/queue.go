package queue

import (
	"context"
	"strings"

	// Packages
	pg "github.com/mutablelogic/go-httpqueue/pkg/pg"
	schema "github.com/mutablelogic/go-httpqueue/pkg/queue/schema"
	sql "github.com/mutablelogic/go-httpqueue/pkg/queue/sql"
	types "github.com/mutablelogic/go-httpqueue/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Manager provides task types, tasks and endpoint definitions on top of
// a database connection. All statements run against one schema, so
// several managers with different namespaces can share a database.
type Manager struct {
	conn      pg.Conn
	namespace string
}

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New creates the schema objects for the namespace, and returns a
// manager bound to it.
func New(ctx context.Context, conn pg.PoolConn, namespace string) (*Manager, error) {
	self := new(Manager)
	if conn == nil {
		return nil, pg.ErrBadParameter.With("missing connection")
	}

	// Check namespace
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = schema.DefaultNamespace
	}
	if !types.IsIdentifier(namespace) {
		return nil, pg.ErrBadParameter.Withf("invalid namespace: %q", namespace)
	} else {
		self.namespace = namespace
	}

	// Parse the named statements
	queries, err := pg.NewQueries(strings.NewReader(sql.Queries))
	if err != nil {
		return nil, err
	}
	objects, err := pg.NewQueries(strings.NewReader(sql.Objects))
	if err != nil {
		return nil, err
	}

	// Bind the statements and the namespace
	self.conn = conn.WithQueries(queries, objects).With("ns", self.namespace)

	// Create the schema objects, in order
	if err := self.conn.Tx(ctx, func(conn pg.Conn) error {
		for _, key := range objects.Keys() {
			if err := conn.Exec(ctx, "${"+key+"}"); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	// Return success
	return self, nil
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Namespace returns the schema name the manager is bound to.
func (m *Manager) Namespace() string {
	return m.namespace
}

// Conn returns the bound connection, for callers which need to compose
// operations with the manager's namespace and statements.
func (m *Manager) Conn() pg.Conn {
	return m.conn
}
