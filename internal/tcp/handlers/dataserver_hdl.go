package handlers

import (
	"context"
	"net"

	"gitlab.com/quantport.net/internal/core/ports/primary"
	"gitlab.com/quantport.net/internal/core/services/registry"
	"gitlab.com/quantport.net/internal/tcp/defs"
)

var _ primary.RequestHandler = (*DataServerAnnounceHandler)(nil)
var _ primary.RequestHandler = (*DataServerLookupHandler)(nil)

// DataServerAnnounceHandler handles data server announcements. A data feed
// worker announces the broker it serves and the port it publishes on.
type DataServerAnnounceHandler struct {
	RegistryService registry.IRegistryService
	Logger          primary.Logger
}

// HandleRequest implements the RequestHandler interface
func (h *DataServerAnnounceHandler) HandleRequest(ctx context.Context, conn net.Conn, req defs.ControlRequest, workerName *string) (defs.Reply, error) {
	h.Logger.Info("Data server announcement received", "name", req.Name, "broker", req.Broker, "port", req.Port)

	code, err := h.RegistryService.AnnounceDataServer(ctx, req.Name, req.Broker, req.Port)
	if err != nil {
		h.Logger.Error("Failed to record data server", "name", req.Name, "error", err)
		return defs.Reply{}, err
	}

	if code != defs.Succeeded {
		h.Logger.Warn("Data server announcement refused", "name", req.Name, "reason", code.Message(req.Name))
	}
	return defs.CodeReply(code), nil
}

// DataServerLookupHandler answers directory queries for the data server of a
// broker. The success payload is the data server's publish port.
type DataServerLookupHandler struct {
	RegistryService registry.IRegistryService
	Logger          primary.Logger
}

// HandleRequest implements the RequestHandler interface
func (h *DataServerLookupHandler) HandleRequest(ctx context.Context, conn net.Conn, req defs.ControlRequest, workerName *string) (defs.Reply, error) {
	h.Logger.Debug("Data server lookup", "name", req.Name, "broker", req.Broker)

	port, code, err := h.RegistryService.LookupDataServer(ctx, req.Broker)
	if err != nil {
		h.Logger.Error("Failed to look up data server", "broker", req.Broker, "error", err)
		return defs.Reply{}, err
	}

	if code != defs.Succeeded {
		return defs.CodeReply(code), nil
	}
	return defs.ValueReply(port), nil
}
