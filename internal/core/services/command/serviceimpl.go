package command

import (
	"context"
	"fmt"
	"strconv"

	"gitlab.com/quantport.net/internal/core/ports/primary"
	"gitlab.com/quantport.net/internal/core/services/registry"
	"gitlab.com/quantport.net/internal/static/errs"
	"gitlab.com/quantport.net/internal/tcp/defs"
)

var _ ICommandService = &CommandService{}

// CommandService implements the ICommandService interface
type CommandService struct {
	registrySvc registry.IRegistryService
	invoker     primary.CommandInvoker
	logger      primary.Logger
}

// NewCommandService creates a new command service
func NewCommandService(registrySvc registry.IRegistryService, invoker primary.CommandInvoker, logger primary.Logger) *CommandService {
	return &CommandService{
		registrySvc: registrySvc,
		invoker:     invoker,
		logger:      logger,
	}
}

// Trigger invokes a named command on a worker
func (s *CommandService) Trigger(ctx context.Context, workerName, command string) (string, error) {
	if command == "" {
		return "", errs.CommandRequired
	}

	worker, err := s.registrySvc.GetWorker(ctx, workerName)
	if err != nil {
		s.logger.Error("Failed to resolve worker", "worker", workerName, "error", err)
		return "", fmt.Errorf("failed to resolve worker: %w", err)
	}
	if worker == nil {
		return "", errs.WorkerNotFound
	}
	if !worker.IsAlive {
		return "", errs.WorkerNotAlive
	}

	result, err := s.invoker.Invoke(ctx, worker.CommandAddr(), command)
	if err != nil {
		s.logger.Error("Command invocation failed", "worker", workerName, "command", command, "error", err)
		return "", fmt.Errorf("failed to invoke %s on %s: %w", command, workerName, err)
	}

	// A worker answers a command it does not expose with a coded line
	if n, convErr := strconv.Atoi(result); convErr == nil && n < 0 {
		code := defs.Code(n)
		s.logger.Warn("Worker refused command", "worker", workerName, "command", command, "code", n)
		return "", fmt.Errorf("worker %s refused command %s: %s", workerName, command, code.Message(workerName))
	}

	s.logger.Info("Command completed", "worker", workerName, "command", command)
	return result, nil
}
