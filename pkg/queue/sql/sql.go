// Package sql embeds the schema objects and named statements for the
// queue. Objects are executed once at startup, in order, and statements
// are referenced by name from the schema types.
package sql

import (
	_ "embed"
)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

//go:embed objects.sql
var Objects string

//go:embed queries.sql
var Queries string
