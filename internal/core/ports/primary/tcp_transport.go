package primary

import (
	"context"
	"net"

	"gitlab.com/quantport.net/internal/tcp/defs"
)

// RequestHandler defines an interface for handling one kind of control-channel
// request. The server writes the returned reply as the single answer line; a
// non-nil error means the handler could not produce an answer and the
// connection should be dropped.
type RequestHandler interface {
	HandleRequest(ctx context.Context, conn net.Conn, req defs.ControlRequest, workerName *string) (defs.Reply, error)
}

// CommandInvoker delivers a command invocation to a worker's dispatch endpoint
// and returns the worker's textual result.
type CommandInvoker interface {
	Invoke(ctx context.Context, addr string, command string) (string, error)
}
