package command

import "context"

// ICommandService triggers remote commands on registered workers
type ICommandService interface {
	// Trigger invokes a named command on a worker and returns the worker's
	// textual result
	Trigger(ctx context.Context, workerName, command string) (string, error)
}
