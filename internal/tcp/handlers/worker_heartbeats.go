package handlers

import (
	"context"
	"net"

	"gitlab.com/quantport.net/internal/core/ports/primary"
	"gitlab.com/quantport.net/internal/core/services/registry"
	"gitlab.com/quantport.net/internal/tcp/defs"
)

var _ primary.RequestHandler = (*WorkerHeartbeatHandler)(nil)

// WorkerHeartbeatHandler handles worker heartbeat requests
type WorkerHeartbeatHandler struct {
	RegistryService registry.IRegistryService
	Logger          primary.Logger
}

// HandleRequest implements the RequestHandler interface
func (h *WorkerHeartbeatHandler) HandleRequest(ctx context.Context, conn net.Conn, req defs.ControlRequest, workerName *string) (defs.Reply, error) {
	code, err := h.RegistryService.Heartbeat(ctx, req.Name)
	if err != nil {
		h.Logger.Error("Failed to process heartbeat", "name", req.Name, "error", err)
		return defs.Reply{}, err
	}

	if code != defs.Succeeded {
		h.Logger.Warn("Heartbeat refused", "name", req.Name, "reason", code.Message(req.Name))
		return defs.CodeReply(code), nil
	}

	h.Logger.Debug("Worker heartbeat received", "name", req.Name)
	return defs.CodeReply(defs.Succeeded), nil
}
