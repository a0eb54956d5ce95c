package action

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	// Packages
	pgx "github.com/jackc/pgx/v5"
	pg "github.com/mutablelogic/go-httpqueue/pkg/pg"
	schema "github.com/mutablelogic/go-httpqueue/pkg/queue/schema"
	types "github.com/mutablelogic/go-httpqueue/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// rowset reads arbitrary rows as column name to value maps.
type rowset struct {
	rows []map[string]any
}

// affected counts returned rows without reading them.
type affected uint64

// insertId reads the identifier returned by an insert.
type insertId uint64

// selectorFunc adapts a closure to the pg.Selector contract.
type selectorFunc func(*pg.Bind, pg.Op) (string, error)

// writerFunc adapts a closure to the pg.Writer contract.
type writerFunc func(*pg.Bind) (string, error)

// args allocates uniquely-named bound parameters on a bind.
type args struct {
	bind *pg.Bind
	n    int
}

////////////////////////////////////////////////////////////////////////////////
// READER

func (r *rowset) Scan(row pg.Row) error {
	rows, ok := row.(pgx.Rows)
	if !ok {
		return pg.ErrInternalError.With("expected a row cursor")
	}
	values, err := rows.Values()
	if err != nil {
		return err
	}
	fields := rows.FieldDescriptions()
	record := make(map[string]any, len(values))
	for i, field := range fields {
		record[field.Name] = values[i]
	}
	r.rows = append(r.rows, record)
	return nil
}

func (a *affected) Scan(pg.Row) error {
	*a++
	return nil
}

func (i *insertId) Scan(row pg.Row) error {
	return row.Scan((*uint64)(i))
}

////////////////////////////////////////////////////////////////////////////////
// WRITER

func (fn writerFunc) Insert(bind *pg.Bind) (string, error) {
	return fn(bind)
}

func (fn writerFunc) Update(*pg.Bind) error {
	return pg.ErrNotImplemented
}

////////////////////////////////////////////////////////////////////////////////
// SELECTOR

func (fn selectorFunc) Select(bind *pg.Bind, op pg.Op) (string, error) {
	return fn(bind, op)
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Execute runs the action against the connection with the request
// parameters, returning rows, an inserted identifier or an affected
// count. Custom actions are dispatched by the caller, not here.
func (a *Action) Execute(ctx context.Context, conn pg.Conn, params Params) (any, error) {
	switch a.Type {
	case schema.ActionQuery:
		return a.execQuery(ctx, conn, params)
	case schema.ActionInsert:
		return a.execInsert(ctx, conn, params)
	case schema.ActionUpdate:
		return a.execUpdate(ctx, conn, params)
	case schema.ActionDelete:
		return a.execDelete(ctx, conn, params)
	}
	return nil, errConfig("action cannot be executed")
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (a *Action) execQuery(ctx context.Context, conn pg.Conn, params Params) (any, error) {
	sel := selectorFunc(func(bind *pg.Bind, op pg.Op) (string, error) {
		args := &args{bind: bind}
		var sql strings.Builder

		// Select list
		sql.WriteString("SELECT ")
		if len(a.Config.Select) == 0 {
			sql.WriteString("*")
		} else {
			cols := make([]string, len(a.Config.Select))
			for i, col := range a.Config.Select {
				cols[i] = types.DoubleQuote(col)
			}
			sql.WriteString(strings.Join(cols, ", "))
		}
		sql.WriteString(" FROM " + tableRef(a.Config.Table))

		// Joins, on the main table's column
		for _, join := range a.Config.Joins {
			sql.WriteString(" " + joinTypes[strings.ToLower(join.Type)] + " " + tableRef(join.Table))
			sql.WriteString(" ON " + types.DoubleQuote(a.Config.Table) + "." + types.DoubleQuote(join.Left))
			sql.WriteString(" = " + types.DoubleQuote(join.Table) + "." + types.DoubleQuote(join.Right))
		}

		// Where
		where, err := a.whereClause(args, params)
		if err != nil {
			return "", err
		}
		if where != "" {
			sql.WriteString(" " + where)
		}

		// Order, limit, offset
		if a.Config.Order != "" {
			column, direction, err := orderExpr(a.Config.Order)
			if err != nil {
				return "", err
			}
			sql.WriteString(" ORDER BY " + types.DoubleQuote(column) + " " + direction)
		}
		if a.Config.Limit != nil {
			sql.WriteString(fmt.Sprintf(" LIMIT %d", *a.Config.Limit))
		}
		if a.Config.Offset != nil {
			sql.WriteString(fmt.Sprintf(" OFFSET %d", *a.Config.Offset))
		}

		return sql.String(), nil
	})

	var rs rowset
	if a.Config.Single {
		if err := conn.Get(ctx, &rs, sel); err != nil {
			return nil, err
		}
		return rs.rows[0], nil
	}
	if err := conn.List(ctx, &rs, sel); err != nil {
		return nil, err
	}
	if rs.rows == nil {
		rs.rows = []map[string]any{}
	}
	return rs.rows, nil
}

func (a *Action) execInsert(ctx context.Context, conn pg.Conn, params Params) (any, error) {
	writer := writerFunc(func(bind *pg.Bind) (string, error) {
		args := &args{bind: bind}
		columns := make([]string, 0, len(a.Config.Fields))
		values := make([]string, 0, len(a.Config.Fields))
		for _, field := range sortedKeys(a.Config.Fields) {
			resolved, ok := resolve(a.Config.Fields[field], params)
			if !ok {
				return "", pg.ErrBadParameter.Withf("missing value for %q", field)
			}
			columns = append(columns, types.DoubleQuote(field))
			values = append(values, args.add(resolved))
		}
		sql := "INSERT INTO " + tableRef(a.Config.Table) +
			" (" + strings.Join(columns, ", ") + ") VALUES (" + strings.Join(values, ", ") + ")"
		if a.Config.ReturnInsertId {
			sql += ` RETURNING "id"`
		} else {
			sql += " RETURNING 1"
		}
		return sql, nil
	})

	if a.Config.ReturnInsertId {
		var id insertId
		if err := conn.Insert(ctx, &id, writer); err != nil {
			return nil, err
		}
		return map[string]any{"id": uint64(id)}, nil
	}
	var n affected
	if err := conn.Insert(ctx, &n, writer); err != nil {
		return nil, err
	}
	return map[string]any{"affected": uint64(n)}, nil
}

func (a *Action) execUpdate(ctx context.Context, conn pg.Conn, params Params) (any, error) {
	sel := selectorFunc(func(bind *pg.Bind, op pg.Op) (string, error) {
		args := &args{bind: bind}
		assignments := make([]string, 0, len(a.Config.Set))
		for _, field := range sortedKeys(a.Config.Set) {
			resolved, ok := resolve(a.Config.Set[field], params)
			if !ok {
				return "", pg.ErrBadParameter.Withf("missing value for %q", field)
			}
			assignments = append(assignments, types.DoubleQuote(field)+" = "+args.add(resolved))
		}
		where, err := a.whereClause(args, params)
		if err != nil {
			return "", err
		}
		return "UPDATE " + tableRef(a.Config.Table) + " SET " + strings.Join(assignments, ", ") +
			" " + where + " RETURNING 1", nil
	})

	// Fails closed, so that a no-op is distinguishable from success
	var n affected
	if err := conn.Update(ctx, &n, sel, nil); errors.Is(err, pg.ErrNotFound) {
		return nil, pg.ErrNotFound.With("no rows matched")
	} else if err != nil {
		return nil, err
	}
	return map[string]any{"affected": uint64(n)}, nil
}

func (a *Action) execDelete(ctx context.Context, conn pg.Conn, params Params) (any, error) {
	sel := selectorFunc(func(bind *pg.Bind, op pg.Op) (string, error) {
		args := &args{bind: bind}
		where, err := a.whereClause(args, params)
		if err != nil {
			return "", err
		}
		if soft := a.Config.SoftDelete; soft != nil {
			resolved, ok := resolve(soft.Value, params)
			if !ok {
				return "", pg.ErrBadParameter.Withf("missing value for %q", soft.Column)
			}
			return "UPDATE " + tableRef(a.Config.Table) + " SET " +
				types.DoubleQuote(soft.Column) + " = " + args.add(resolved) +
				" " + where + " RETURNING 1", nil
		}
		return "DELETE FROM " + tableRef(a.Config.Table) + " " + where + " RETURNING 1", nil
	})

	var n affected
	if err := conn.Delete(ctx, &n, sel); err != nil && !errors.Is(err, pg.ErrNotFound) {
		return nil, err
	}
	return map[string]any{"affected": uint64(n)}, nil
}

// whereClause builds the AND-combined filter. A required key with no
// value is a request error; an optional key with no value is omitted.
func (a *Action) whereClause(args *args, params Params) (string, error) {
	var clauses []string
	for _, column := range sortedKeys(a.Config.Where) {
		clause, ok, err := comparison(args, column, a.Config.Where[column], params)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", pg.ErrBadParameter.Withf("missing value for %q", column)
		}
		clauses = append(clauses, clause)
	}
	for _, column := range sortedKeys(a.Config.WhereOptional) {
		clause, ok, err := comparison(args, column, a.Config.WhereOptional[column], params)
		if err != nil {
			return "", err
		}
		if ok {
			clauses = append(clauses, clause)
		}
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), nil
}

// comparison builds one filter term. Returns false when the comparand
// resolves to no value.
func comparison(args *args, column string, value any, params Params) (string, bool, error) {
	op := "="
	if comparand, operator, ok := opValue(value); ok {
		value = comparand
		op = operator
	}
	sqlOp, ok := operators[op]
	if !ok {
		return "", false, errConfig("unrecognized comparison operator")
	}

	resolved, ok := resolve(value, params)
	if !ok {
		return "", false, nil
	}

	switch op {
	case "IN", "NOT IN":
		list, ok := resolved.([]any)
		if !ok {
			return "", false, pg.ErrBadParameter.Withf("value for %q is not a list", column)
		}
		return types.DoubleQuote(column) + " " + sqlOp + " (" + args.add(list) + ")", true, nil
	default:
		return types.DoubleQuote(column) + " " + sqlOp + " " + args.add(resolved), true, nil
	}
}

// add allocates the next bound parameter
func (a *args) add(value any) string {
	key := fmt.Sprintf("a%d", a.n)
	a.n++
	return a.bind.Set(key, value)
}

// tableRef schema-qualifies a table name. The schema itself is a
// substitution variable bound on the connection.
func tableRef(table string) string {
	return `${"ns"}.` + types.DoubleQuote(table)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
