package errs

import "errors"

var (
	WorkerNotFound  = errors.New("worker not found")
	WorkerNotAlive  = errors.New("worker is not alive")
	CommandRequired = errors.New("command is required")
)
