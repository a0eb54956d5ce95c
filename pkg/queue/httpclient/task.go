package httpclient

import (
	"context"
	"fmt"

	// Packages
	client "github.com/mutablelogic/go-client"
	schema "github.com/mutablelogic/go-httpqueue/pkg/queue/schema"
)

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// CreateTask creates a task, or returns the existing one when an
// identical task already exists (POST /task).
func (c *Client) CreateTask(ctx context.Context, meta schema.TaskMeta) (*schema.TaskWithDeduplicated, error) {
	req, err := client.NewJSONRequest(meta)
	if err != nil {
		return nil, err
	}

	// Perform request
	var response envelope[schema.TaskWithDeduplicated]
	if err := c.DoWithContext(ctx, req, &response, client.OptPath("task")); err != nil {
		return nil, err
	}

	// Return the response
	return &response.Data, nil
}

// ClaimTask claims the next available task of a type for a worker
// (POST /task/claim). Returns an error when no task is available.
func (c *Client) ClaimTask(ctx context.Context, claim schema.TaskClaim) (*schema.Task, error) {
	req, err := client.NewJSONRequest(claim)
	if err != nil {
		return nil, err
	}

	// Perform request
	var response envelope[schema.Task]
	if err := c.DoWithContext(ctx, req, &response, client.OptPath("task", "claim")); err != nil {
		return nil, err
	}

	// Return the response
	return &response.Data, nil
}

// CompleteTask reports the outcome of a claimed task
// (POST /task/{id}/complete).
func (c *Client) CompleteTask(ctx context.Context, result schema.TaskResult) (*schema.Task, error) {
	req, err := client.NewJSONRequest(result)
	if err != nil {
		return nil, err
	}

	// Perform request
	var response envelope[schema.Task]
	if err := c.DoWithContext(ctx, req, &response, client.OptPath("task", fmt.Sprint(result.Id), "complete")); err != nil {
		return nil, err
	}

	// Return the response
	return &response.Data, nil
}

// GetTask returns a task by id (GET /task/{id}).
func (c *Client) GetTask(ctx context.Context, id uint64) (*schema.Task, error) {
	req := client.NewRequest()

	// Perform request
	var response envelope[schema.Task]
	if err := c.DoWithContext(ctx, req, &response, client.OptPath("task", fmt.Sprint(id))); err != nil {
		return nil, err
	}

	// Return the response
	return &response.Data, nil
}

// ListTasks returns tasks, with optional status and type filters
// (GET /task).
func (c *Client) ListTasks(ctx context.Context, opts ...Opt) (*schema.TaskList, error) {
	req := client.NewRequest()

	// Apply options
	opt, err := applyOpts(opts...)
	if err != nil {
		return nil, err
	}

	// Perform request
	var response envelope[schema.TaskList]
	if err := c.DoWithContext(ctx, req, &response, client.OptPath("task"), client.OptQuery(opt.Values)); err != nil {
		return nil, err
	}

	// Return the response
	return &response.Data, nil
}

// GetTaskHistory returns the recorded status transitions for a task
// (GET /task/{id}/history).
func (c *Client) GetTaskHistory(ctx context.Context, id uint64) ([]map[string]any, error) {
	req := client.NewRequest()

	// Perform request
	var response envelope[[]map[string]any]
	if err := c.DoWithContext(ctx, req, &response, client.OptPath("task", fmt.Sprint(id), "history")); err != nil {
		return nil, err
	}

	// Return the response
	return response.Data, nil
}

// Health checks the service and its database connection (GET /health).
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	req := client.NewRequest()

	// Perform request
	var response envelope[map[string]any]
	if err := c.DoWithContext(ctx, req, &response, client.OptPath("health")); err != nil {
		return nil, err
	}

	// Return the response
	return response.Data, nil
}
