// Package httphandler serves the stored endpoint definitions over
// HTTP. All routing is data-driven: a single dispatcher consults the
// endpoint registry, so adding an endpoint row adds a route. The only
// fixed route is the prometheus metrics endpoint.
package httphandler

import (
	"net/http"

	// Packages
	endpoint "github.com/mutablelogic/go-httpqueue/pkg/endpoint"
	queue "github.com/mutablelogic/go-httpqueue/pkg/queue"
	types "github.com/mutablelogic/go-httpqueue/pkg/types"
)

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Register registers the dispatcher and the metrics handler on the
// router with the given path prefix. The manager must be non-nil.
func Register(router *http.ServeMux, prefix string, manager *queue.Manager, registry *endpoint.Registry) *Dispatcher {
	if manager == nil {
		panic("manager is nil")
	}
	if registry == nil {
		registry = endpoint.NewRegistry(manager, 0)
	}

	RegisterMetricsHandler(router, prefix, manager)

	// Mount the dispatcher on the subtree below the prefix
	dispatcher := NewDispatcher(manager, registry)
	router.Handle(prefixPath(prefix)+"/", http.StripPrefix(prefixPath(prefix), dispatcher))
	return dispatcher
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func joinPath(prefix, path string) string {
	return types.JoinPath(prefix, path)
}

// prefixPath returns the prefix to strip before dispatching, without a
// trailing slash
func prefixPath(prefix string) string {
	joined := types.JoinPath("/", prefix)
	if joined == "/" {
		return ""
	}
	return joined
}
