package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	// Packages
	uuid "github.com/google/uuid"
	httpclient "github.com/mutablelogic/go-httpqueue/pkg/queue/httpclient"
	schema "github.com/mutablelogic/go-httpqueue/pkg/queue/schema"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type WorkerCommands struct {
	RunWorker RunWorkerCommand `cmd:"" name:"worker" help:"Poll for tasks of a type and echo them." group:"WORKER"`
}

// RunWorkerCommand polls for tasks, prints their parameters and
// reports them as completed. Useful for exercising a queue.
type RunWorkerCommand struct {
	TypeId   uint64        `arg:"" name:"type-id" help:"Task type id"`
	Worker   string        `name:"worker" help:"Worker identifier (generated when empty)"`
	Interval time.Duration `name:"interval" help:"Poll interval when idle" default:"1s"`
}

///////////////////////////////////////////////////////////////////////////////
// COMMANDS

func (cmd *RunWorkerCommand) Run(ctx *Globals) error {
	client, err := ctx.Client()
	if err != nil {
		return err
	}

	// Generate a worker identifier when none given
	worker := cmd.Worker
	if worker == "" {
		worker = "worker-" + uuid.NewString()
	}
	fmt.Println("polling as", worker)

	// Claim and complete until the context is cancelled
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.ctx.Done():
			return nil
		case <-timer.C:
			if err := cmd.poll(ctx.ctx, client, worker); err != nil {
				return err
			}
			timer.Reset(cmd.Interval)
		}
	}
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (cmd *RunWorkerCommand) poll(ctx context.Context, client *httpclient.Client, worker string) error {
	task, err := client.ClaimTask(ctx, schema.TaskClaim{
		Worker: worker,
		TypeId: cmd.TypeId,
	})
	if isNotFound(err) {
		// No task available, remain idle
		return nil
	} else if err != nil {
		return err
	}
	fmt.Println("claimed", task)

	// Echo the task parameters back as the result
	completed, err := client.CompleteTask(ctx, schema.TaskResult{
		Id:      task.Id,
		Worker:  worker,
		Success: true,
		Result:  task.Params,
	})
	if err != nil {
		return err
	}
	fmt.Println("completed", completed)

	// Return success
	return nil
}

// isNotFound reports whether a client error carries a not found status
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), fmt.Sprint(http.StatusNotFound)) || strings.Contains(err.Error(), http.StatusText(http.StatusNotFound))
}
