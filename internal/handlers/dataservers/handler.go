package dataservers

import (
	"net/http"

	"github.com/gorilla/mux"

	"gitlab.com/quantport.net/internal/core/services/registry"
	"gitlab.com/quantport.net/internal/domain"
	"gitlab.com/quantport.net/internal/global/logger"
	"gitlab.com/quantport.net/internal/handlers"
)

type ApiHandler struct {
	RegistryService registry.IRegistryService
}

func NewHandler(registryService registry.IRegistryService) *ApiHandler {
	return &ApiHandler{
		RegistryService: registryService,
	}
}

func (api *ApiHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/dataservers", api.GetDataServers).Methods("GET")
}

func (api *ApiHandler) GetDataServers(w http.ResponseWriter, r *http.Request) {
	servers, err := api.RegistryService.ListDataServers(r.Context())
	if err != nil {
		logger.Error("Failed to list data servers", "error", err)
		http.Error(w, "Failed to get data servers", http.StatusInternalServerError)
		return
	}

	handlers.ResponseWithJson(w, http.StatusOK, map[string][]*domain.DataServerRecord{"dataservers": servers})
}
