package publishers

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/quantport.net/internal/core/ports/primary"
	"gitlab.com/quantport.net/internal/tcp"
)

var _ primary.CommandInvoker = (*CommandPublisher)(nil)

// CommandPublisher delivers command invocations to a worker's dispatch
// endpoint. Each invocation is a fresh connection carrying one command line
// and one result line.
type CommandPublisher struct {
	Logger  primary.Logger
	Timeout time.Duration
}

func NewCommandPublisher(logger primary.Logger, timeout time.Duration) *CommandPublisher {
	return &CommandPublisher{
		Logger:  logger,
		Timeout: timeout,
	}
}

// Invoke sends a command line to the dispatch endpoint at addr and returns
// the worker's textual result.
func (p *CommandPublisher) Invoke(ctx context.Context, addr string, command string) (string, error) {
	dialCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	ch, err := tcp.DialReqChannel(dialCtx, addr)
	if err != nil {
		p.Logger.Error("Failed to reach worker dispatch endpoint", "addr", addr, "error", err)
		return "", fmt.Errorf("failed to reach worker at %s: %w", addr, err)
	}
	defer ch.Close()

	result, err := ch.RequestRaw(command, p.Timeout)
	if err != nil {
		p.Logger.Error("Command invocation failed", "addr", addr, "command", command, "error", err)
		return "", fmt.Errorf("command %s failed: %w", command, err)
	}

	p.Logger.Info("Command delivered", "addr", addr, "command", command)
	return result, nil
}
