package queue

import "context"

// JobType defines the type of asynchronous job
type JobType string

const (
	JobTypeDispatchCall JobType = "dispatch_call" // Place the outbound call for a pending task
)

// Job is an asynchronous work item carried over the bus.
type Job struct {
	Type   JobType `json:"type"`
	TaskID string  `json:"task_id"`
}

// Bus defines the interface for the dispatch bus
type Bus interface {
	Publish(ctx context.Context, job Job) error
	Subscribe(ctx context.Context, handler func(Job)) error
}

// DispatchNotifier adapts the bus to the task service's fire-and-forget
// notification hook.
type DispatchNotifier struct {
	bus Bus
}

func NewDispatchNotifier(bus Bus) *DispatchNotifier {
	return &DispatchNotifier{bus: bus}
}

func (n *DispatchNotifier) NotifyDispatch(ctx context.Context, taskID string) error {
	return n.bus.Publish(ctx, Job{Type: JobTypeDispatchCall, TaskID: taskID})
}
