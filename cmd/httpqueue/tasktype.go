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

type TaskTypeCommands struct {
	TaskTypes        ListTaskTypesCommand    `cmd:"" name:"types" help:"List registered task types." group:"TYPE"`
	RegisterTaskType RegisterTaskTypeCommand `cmd:"" name:"register-type" help:"Register or replace a task type." group:"TYPE"`
	GetTaskType      GetTaskTypeCommand      `cmd:"" name:"type" help:"Get a task type by name." group:"TYPE"`
}

type ListTaskTypesCommand struct {
	Offset uint64 `name:"offset" help:"Pagination offset" default:"0"`
	Limit  uint64 `name:"limit" help:"Pagination limit" default:"100"`
}

type RegisterTaskTypeCommand struct {
	Name    string `arg:"" name:"name" help:"Task type name"`
	Version string `name:"type-version" help:"Task type version"`
	Schema  string `name:"schema" help:"Parameter schema (JSON)"`
}

type GetTaskTypeCommand struct {
	Name string `arg:"" name:"name" help:"Task type name"`
}

///////////////////////////////////////////////////////////////////////////////
// COMMANDS

func (cmd *ListTaskTypesCommand) Run(ctx *Globals) error {
	client, err := ctx.Client()
	if err != nil {
		return err
	}

	// List task types
	types, err := client.ListTaskTypes(ctx.ctx, httpclient.WithOffsetLimit(cmd.Offset, &cmd.Limit))
	if err != nil {
		return err
	}

	// Print
	fmt.Println(types)
	return nil
}

func (cmd *RegisterTaskTypeCommand) Run(ctx *Globals) error {
	client, err := ctx.Client()
	if err != nil {
		return err
	}

	// Parse the parameter schema
	var paramSchema json.RawMessage
	if cmd.Schema != "" {
		if !json.Valid([]byte(cmd.Schema)) {
			return fmt.Errorf("invalid schema JSON: %q", cmd.Schema)
		}
		paramSchema = json.RawMessage(cmd.Schema)
	}

	// Register the task type
	tasktype, err := client.RegisterTaskType(ctx.ctx, schema.TaskTypeMeta{
		Name:        cmd.Name,
		Version:     cmd.Version,
		ParamSchema: paramSchema,
	})
	if err != nil {
		return err
	}

	// Print
	fmt.Println(tasktype)
	return nil
}

func (cmd *GetTaskTypeCommand) Run(ctx *Globals) error {
	client, err := ctx.Client()
	if err != nil {
		return err
	}

	// Get the task type
	tasktype, err := client.GetTaskType(ctx.ctx, cmd.Name)
	if err != nil {
		return err
	}

	// Print
	fmt.Println(tasktype)
	return nil
}
