// Package httpclient provides a typed Go client for consuming the
// task queue REST API.
//
// Create a client with:
//
//	client, err := httpclient.New("http://localhost:8080/api/v1")
//	if err != nil {
//	   panic(err)
//	}
//
// Register a task type and create a task:
//
//	tasktype, err := client.RegisterTaskType(ctx, schema.TaskTypeMeta{Name: "resize"})
//	task, err := client.CreateTask(ctx, schema.TaskMeta{Type: "resize"})
//
// Claim and complete tasks from a worker:
//
//	task, err := client.ClaimTask(ctx, schema.TaskClaim{Worker: "worker-1", TypeId: tasktype.Id})
//	_, err = client.CompleteTask(ctx, schema.TaskResult{Id: task.Id, Worker: "worker-1", Success: true})
package httpclient
