package main

import (
	"encoding/json"
	"fmt"

	// Packages
	httpclient "github.com/mutablelogic/go-httpqueue/pkg/queue/httpclient"
	schema "github.com/mutablelogic/go-httpqueue/pkg/queue/schema"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type TaskCommands struct {
	Tasks        ListTasksCommand    `cmd:"" name:"tasks" help:"List tasks with optional filters." group:"TASK"`
	CreateTask   CreateTaskCommand   `cmd:"" name:"create-task" help:"Create a task." group:"TASK"`
	ClaimTask    ClaimTaskCommand    `cmd:"" name:"claim-task" help:"Claim the next available task of a type." group:"TASK"`
	CompleteTask CompleteTaskCommand `cmd:"" name:"complete-task" help:"Report the outcome of a claimed task." group:"TASK"`
	GetTask      GetTaskCommand      `cmd:"" name:"task" help:"Get a task by id." group:"TASK"`
}

type ListTasksCommand struct {
	Status string `name:"status" help:"Filter by status (pending, claimed, completed, failed)"`
	Type   string `name:"type" help:"Filter by type name"`
	Offset uint64 `name:"offset" help:"Pagination offset" default:"0"`
	Limit  uint64 `name:"limit" help:"Pagination limit" default:"100"`
}

type CreateTaskCommand struct {
	Type     string `arg:"" name:"type" help:"Task type name"`
	Params   string `name:"params" help:"Task parameters (JSON)"`
	Priority *int64 `name:"priority" help:"Claim priority (higher first)"`
}

type ClaimTaskCommand struct {
	TypeId uint64 `arg:"" name:"type-id" help:"Task type id"`
	Worker string `arg:"" name:"worker" help:"Worker identifier"`
	SortBy string `name:"sort-by" help:"Sort field (created_at, priority, id, attempts)"`
	Order  string `name:"order" help:"Sort order (asc, desc)"`
}

type CompleteTaskCommand struct {
	Id     uint64 `arg:"" name:"id" help:"Task id"`
	Worker string `arg:"" name:"worker" help:"Worker identifier"`
	Result string `name:"result" help:"Result payload (JSON)"`
	Error  string `name:"error" help:"Error message - marks the task as failed"`
}

type GetTaskCommand struct {
	Id      uint64 `arg:"" name:"id" help:"Task id"`
	History bool   `name:"history" help:"Print the task's status transitions"`
}

///////////////////////////////////////////////////////////////////////////////
// COMMANDS

func (cmd *ListTasksCommand) Run(ctx *Globals) error {
	client, err := ctx.Client()
	if err != nil {
		return err
	}

	// Build options
	opts := []httpclient.Opt{
		httpclient.WithStatus(cmd.Status),
		httpclient.WithType(cmd.Type),
		httpclient.WithOffsetLimit(cmd.Offset, &cmd.Limit),
	}

	// List tasks
	tasks, err := client.ListTasks(ctx.ctx, opts...)
	if err != nil {
		return err
	}

	// Print
	fmt.Println(tasks)
	return nil
}

func (cmd *CreateTaskCommand) Run(ctx *Globals) error {
	client, err := ctx.Client()
	if err != nil {
		return err
	}

	// Parse params
	var params json.RawMessage
	if cmd.Params != "" {
		if !json.Valid([]byte(cmd.Params)) {
			return fmt.Errorf("invalid params JSON: %q", cmd.Params)
		}
		params = json.RawMessage(cmd.Params)
	}

	// Create the task
	task, err := client.CreateTask(ctx.ctx, schema.TaskMeta{
		Type:     cmd.Type,
		Params:   params,
		Priority: cmd.Priority,
	})
	if err != nil {
		return err
	}

	// Print
	fmt.Println(task)
	return nil
}

func (cmd *ClaimTaskCommand) Run(ctx *Globals) error {
	client, err := ctx.Client()
	if err != nil {
		return err
	}

	// Claim the task
	task, err := client.ClaimTask(ctx.ctx, schema.TaskClaim{
		Worker:    cmd.Worker,
		TypeId:    cmd.TypeId,
		SortBy:    cmd.SortBy,
		SortOrder: cmd.Order,
	})
	if err != nil {
		return err
	}

	// Print
	fmt.Println(task)
	return nil
}

func (cmd *CompleteTaskCommand) Run(ctx *Globals) error {
	client, err := ctx.Client()
	if err != nil {
		return err
	}

	// Parse result
	var result json.RawMessage
	if cmd.Result != "" {
		if !json.Valid([]byte(cmd.Result)) {
			return fmt.Errorf("invalid result JSON: %q", cmd.Result)
		}
		result = json.RawMessage(cmd.Result)
	}

	// Report the outcome
	task, err := client.CompleteTask(ctx.ctx, schema.TaskResult{
		Id:      cmd.Id,
		Worker:  cmd.Worker,
		Success: cmd.Error == "",
		Result:  result,
		Error:   cmd.Error,
	})
	if err != nil {
		return err
	}

	// Print
	fmt.Println(task)
	return nil
}

func (cmd *GetTaskCommand) Run(ctx *Globals) error {
	client, err := ctx.Client()
	if err != nil {
		return err
	}

	// Get the task
	task, err := client.GetTask(ctx.ctx, cmd.Id)
	if err != nil {
		return err
	}
	fmt.Println(task)

	// Optionally print the history
	if cmd.History {
		history, err := client.GetTaskHistory(ctx.ctx, cmd.Id)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(history, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	}
	return nil
}
