package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	// Packages
	action "github.com/mutablelogic/go-httpqueue/pkg/action"
	endpoint "github.com/mutablelogic/go-httpqueue/pkg/endpoint"
	queue "github.com/mutablelogic/go-httpqueue/pkg/queue"
	schema "github.com/mutablelogic/go-httpqueue/pkg/queue/schema"
	validator "github.com/mutablelogic/go-httpqueue/pkg/validator"
	server "github.com/mutablelogic/go-server"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	logger "github.com/mutablelogic/go-server/pkg/logger"
	ref "github.com/mutablelogic/go-server/pkg/ref"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Dispatcher serves requests by routing them through the endpoint
// registry, validating declared parameters, and executing the matched
// action.
type Dispatcher struct {
	manager  *queue.Manager
	registry *endpoint.Registry
	handlers map[string]queue.HandlerFunc
	log      server.Logger
}

// Ensure interfaces are satisfied
var _ http.Handler = (*Dispatcher)(nil)

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// NewDispatcher returns a dispatcher over the manager's endpoints and
// custom handlers.
func NewDispatcher(manager *queue.Manager, registry *endpoint.Registry) *Dispatcher {
	return &Dispatcher{
		manager:  manager,
		registry: registry,
		handlers: manager.Handlers(),
		log:      logger.New(os.Stdout, logger.Text, false),
	}
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Route the request
	matched, err := d.registry.Match(ctx, r.Method, r.URL.Path)
	if err != nil {
		_ = d.error(w, r, err)
		return
	}

	// Gather path, query, body and header parameters
	params, err := d.params(r, matched)
	if err != nil {
		_ = d.error(w, r, err)
		return
	}

	// Validate declared parameters, collecting every failure
	violations, err := d.validate(matched.Rules, params)
	if err != nil {
		_ = d.error(w, r, err)
		return
	}
	if len(violations) > 0 {
		_ = writeError(w, http.StatusBadRequest, violations.Error())
		return
	}

	// Dispatch to a custom handler, or execute the database action
	if handler := matched.Action.Handler(); handler != "" {
		d.dispatch(w, r, handler, matched, params)
		return
	}
	data, err := matched.Action.Execute(ctx, d.manager.Conn(), params)
	if err != nil {
		_ = d.error(w, r, err)
		return
	}
	_ = writeSuccess(w, http.StatusOK, "", data)
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// dispatch forwards the merged parameter bag to a named custom handler
func (d *Dispatcher) dispatch(w http.ResponseWriter, r *http.Request, name string, matched *endpoint.Match, params action.Params) {
	handler, ok := d.handlers[name]
	if !ok {
		d.logger(r).With("handler", name).Print(r.Context(), "unknown custom handler")
		_ = writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	response, err := handler(r.Context(), &queue.HandlerRequest{
		Params: merge(params),
		Config: matched.Action.Static(),
	})
	if err != nil {
		_ = d.error(w, r, err)
		return
	}
	_ = writeSuccess(w, response.Status, response.Message, response.Data)
}

// params collects request data by source. Headers are only read for
// parameters a validation rule declares.
func (d *Dispatcher) params(r *http.Request, matched *endpoint.Match) (action.Params, error) {
	params := action.Params{}
	for key, value := range matched.PathParams {
		params.Set(schema.SourcePath, key, value)
	}
	for key := range r.URL.Query() {
		params.Set(schema.SourceQuery, key, r.URL.Query().Get(key))
	}
	for _, rule := range matched.Rules {
		if rule.Source == schema.SourceHeader {
			if value := r.Header.Get(rule.Parameter); value != "" {
				params.Set(schema.SourceHeader, rule.Parameter, value)
			}
		}
	}

	// Body must be a JSON object when present
	if r.Body != nil && r.ContentLength != 0 {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, httpresponse.ErrBadRequest.With("body is not a JSON object")
		}
		for key, value := range body {
			params.Set(schema.SourceBody, key, value)
		}
	}

	// Return success
	return params, nil
}

// validate runs every declared rule, coercing string sources to the
// rule's type first, and collects all violations before rejecting
func (d *Dispatcher) validate(rules []schema.ValidationRule, params action.Params) (validator.Violations, error) {
	var violations validator.Violations
	for _, rule := range rules {
		parsed, err := validator.ParseRule(rule.Rule)
		if err != nil {
			return nil, httpresponse.ErrInternalError.With("invalid validation rule")
		}

		// Path, query and header values arrive as strings
		value, ok := params.Get(rule.Source, rule.Parameter)
		if ok && rule.Source != schema.SourceBody {
			if coerced, err := coerce(value, parsed.Type); err == nil {
				value = coerced
				params.Set(rule.Source, rule.Parameter, coerced)
			}
		}
		if !ok {
			value = nil
		}

		if failures := validator.Validate(rule.Parameter, value, parsed); len(failures) > 0 {
			// A custom message replaces the rule's failures
			if rule.Message != nil && *rule.Message != "" {
				violations = append(violations, validator.Violation{
					Field:   rule.Parameter,
					Message: *rule.Message,
				})
			} else {
				violations = append(violations, failures...)
			}
		}
	}
	return violations, nil
}

// error maps an error to an envelope, suppressing internal detail
func (d *Dispatcher) error(w http.ResponseWriter, r *http.Request, err error) error {
	status := errStatus(err)
	if status >= http.StatusInternalServerError {
		d.logger(r).Print(r.Context(), err)
		return writeError(w, status, "internal error")
	}
	return writeError(w, status, err.Error())
}

func (d *Dispatcher) logger(r *http.Request) server.Logger {
	if log := ref.Log(r.Context()); log != nil {
		return log
	}
	return d.log
}

// errStatus returns the HTTP status carried by an error, or 500
func errStatus(err error) int {
	var httpErr httpresponse.Err
	if errors.As(err, &httpErr) {
		if code := int(httpErr); code >= 400 {
			return code
		}
	}
	return http.StatusInternalServerError
}

// merge flattens the parameter bag for a custom handler. Body values
// are overridden by query values, which are overridden by path values.
func merge(params action.Params) map[string]any {
	flat := make(map[string]any)
	for _, source := range []string{schema.SourceHeader, schema.SourceBody, schema.SourceQuery, schema.SourcePath} {
		for key, value := range params[source] {
			flat[key] = value
		}
	}
	return flat
}

// coerce converts a string value to the declared rule type
func coerce(value any, typ string) (any, error) {
	str, ok := value.(string)
	if !ok {
		return value, nil
	}
	switch typ {
	case "integer", "number":
		parsed, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return nil, err
		}
		return parsed, nil
	case "boolean":
		parsed, err := strconv.ParseBool(str)
		if err != nil {
			return nil, err
		}
		return parsed, nil
	}
	return value, nil
}
