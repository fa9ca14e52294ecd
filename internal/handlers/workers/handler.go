package workers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"gitlab.com/quantport.net/internal/core/ports/primary"
	"gitlab.com/quantport.net/internal/core/services/command"
	"gitlab.com/quantport.net/internal/core/services/registry"
	"gitlab.com/quantport.net/internal/domain"
	"gitlab.com/quantport.net/internal/handlers"
	"gitlab.com/quantport.net/internal/static/errs"
	"gitlab.com/quantport.net/internal/tcp/defs"
)

// WorkerHandler handles worker API requests
type WorkerHandler struct {
	registryService registry.IRegistryService
	commandService  command.ICommandService
	logger          primary.Logger
}

// NewWorkerHandler creates a new worker handler
func NewWorkerHandler(
	registryService registry.IRegistryService,
	commandService command.ICommandService,
	logger primary.Logger,
) *WorkerHandler {
	return &WorkerHandler{
		registryService: registryService,
		commandService:  commandService,
		logger:          logger,
	}
}

// RegisterRoutes registers the API routes for WorkerHandler. Mutating routes
// go through the JWT middleware, listing stays open.
func (h *WorkerHandler) RegisterRoutes(router *mux.Router, mw *handlers.MiddlewareProvider) {
	router.HandleFunc("/api/workers", h.GetWorkers).Methods("GET")
	router.Handle("/api/workers/{name}/command",
		mw.JWTMiddleware(http.HandlerFunc(h.TriggerCommand))).Methods("POST")
	router.Handle("/api/workers/{name}",
		mw.JWTMiddleware(http.HandlerFunc(h.DeregisterWorker))).Methods("DELETE")
}

// GetWorkers handles registry listing requests
func (h *WorkerHandler) GetWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.registryService.ListWorkers(r.Context())
	if err != nil {
		h.logger.Error("Failed to get workers", "error", err)
		http.Error(w, "Failed to get workers", http.StatusInternalServerError)
		return
	}

	handlers.ResponseWithJson(w, http.StatusOK, map[string][]*domain.WorkerRecord{"workers": workers})
}

// TriggerCommand forwards a command invocation to a worker's command channel
// and relays the result
func (h *WorkerHandler) TriggerCommand(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	workerName := vars["name"]

	var req TriggerCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request", "error", err)
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	result, err := h.commandService.Trigger(r.Context(), workerName, req.Command)
	if err != nil {
		switch {
		case errors.Is(err, errs.CommandRequired):
			handlers.ResponseError(w, "Command is required", http.StatusBadRequest)
		case errors.Is(err, errs.WorkerNotFound):
			handlers.ResponseError(w, "Worker not found", http.StatusNotFound)
		case errors.Is(err, errs.WorkerNotAlive):
			handlers.ResponseError(w, "Worker is not alive", http.StatusConflict)
		default:
			h.logger.Error("Failed to trigger command", "worker", workerName, "command", req.Command, "error", err)
			handlers.ResponseError(w, "Failed to trigger command", http.StatusBadGateway)
		}
		return
	}

	handlers.ResponseWithJson(w, http.StatusOK, TriggerCommandResponse{
		Worker:  workerName,
		Command: req.Command,
		Result:  result,
	})
}

// DeregisterWorker removes a worker from the registry
func (h *WorkerHandler) DeregisterWorker(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	workerName := vars["name"]

	code, err := h.registryService.DeregisterWorker(r.Context(), workerName)
	if err != nil {
		h.logger.Error("Failed to deregister worker", "worker", workerName, "error", err)
		http.Error(w, "Failed to deregister worker", http.StatusInternalServerError)
		return
	}
	if code != defs.Succeeded {
		handlers.ResponseError(w, code.Message(workerName), http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
