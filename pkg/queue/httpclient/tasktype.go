package httpclient

import (
	"context"

	// Packages
	client "github.com/mutablelogic/go-client"
	schema "github.com/mutablelogic/go-httpqueue/pkg/queue/schema"
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// RegisterTaskType registers or replaces a task type (POST /type).
func (c *Client) RegisterTaskType(ctx context.Context, meta schema.TaskTypeMeta) (*schema.TaskType, error) {
	req, err := client.NewJSONRequest(meta)
	if err != nil {
		return nil, err
	}

	// Perform request
	var response envelope[schema.TaskType]
	if err := c.DoWithContext(ctx, req, &response, client.OptPath("type")); err != nil {
		return nil, err
	}

	// Return the response
	return &response.Data, nil
}

// GetTaskType returns a task type by name (GET /type/{name}).
func (c *Client) GetTaskType(ctx context.Context, name string) (*schema.TaskType, error) {
	req := client.NewRequest()

	// Perform request
	var response envelope[schema.TaskType]
	if err := c.DoWithContext(ctx, req, &response, client.OptPath("type", name)); err != nil {
		return nil, err
	}

	// Return the response
	return &response.Data, nil
}

// ListTaskTypes returns registered task types (GET /type).
func (c *Client) ListTaskTypes(ctx context.Context, opts ...Opt) (*schema.TaskTypeList, error) {
	req := client.NewRequest()

	// Apply options
	opt, err := applyOpts(opts...)
	if err != nil {
		return nil, err
	}

	// Perform request
	var response envelope[schema.TaskTypeList]
	if err := c.DoWithContext(ctx, req, &response, client.OptPath("type"), client.OptQuery(opt.Values)); err != nil {
		return nil, err
	}

	// Return the response
	return &response.Data, nil
}
