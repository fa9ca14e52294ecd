package handlers

import (
	"context"
	"net"

	"gitlab.com/quantport.net/internal/core/ports/primary"
	"gitlab.com/quantport.net/internal/core/services/registry"
	"gitlab.com/quantport.net/internal/tcp/connectionmanager"
	"gitlab.com/quantport.net/internal/tcp/defs"
)

// Implementation of request handlers
// Each handler deals with one specific request kind

var _ primary.RequestHandler = (*WorkerRegistrationHandler)(nil)

// WorkerRegistrationHandler handles worker registration requests
type WorkerRegistrationHandler struct {
	RegistryService registry.IRegistryService
	ConnectionMgr   *connectionmanager.ConnectionManager
	Logger          primary.Logger
}

// HandleRequest implements the RequestHandler interface
func (h *WorkerRegistrationHandler) HandleRequest(ctx context.Context, conn net.Conn, req defs.ControlRequest, workerName *string) (defs.Reply, error) {
	host := remoteHost(conn)
	h.Logger.Info("Worker registration received", "name", req.Name, "ports", req.RequiredPorts, "host", host)

	basePort, code, err := h.RegistryService.RegisterWorker(ctx, req.Name, req.RequiredPorts, host)
	if err != nil {
		h.Logger.Error("Failed to register worker", "name", req.Name, "error", err)
		return defs.Reply{}, err
	}

	if code != defs.Succeeded {
		h.Logger.Warn("Registration rejected", "name", req.Name, "reason", code.Message(req.Name))
		return defs.CodeReply(code), nil
	}

	// Track the control connection under the admitted name
	*workerName = req.Name
	h.ConnectionMgr.RegisterWorker(req.Name, conn)

	h.Logger.Info("Worker registered", "name", req.Name, "basePort", basePort)
	return defs.ValueReply(basePort), nil
}

// remoteHost extracts the peer address without its ephemeral port.
func remoteHost(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}
