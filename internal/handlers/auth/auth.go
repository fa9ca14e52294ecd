package auth

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"gitlab.com/quantport.net/internal/config"
	"gitlab.com/quantport.net/internal/core/ports/primary"
	"gitlab.com/quantport.net/internal/global/logger"
	"gitlab.com/quantport.net/internal/handlers/response"
)

// Handler exchanges the operator admin key for a bearer token. The token is
// what the mutating API routes accept.
type Handler struct {
	apiCfg       *config.APICfg
	tokenService primary.TokenService
}

func NewHandler(apiCfg *config.APICfg, tokenService primary.TokenService) *Handler {
	return &Handler{
		apiCfg:       apiCfg,
		tokenService: tokenService,
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/auth/token", h.IssueToken).Methods("POST")
}

type TokenRequest struct {
	Key string `json:"key"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// IssueToken handles operator token requests
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("Failed to decode token request", "error", err)
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	// An unset admin key disables token issuance outright.
	if h.apiCfg.AdminKey == "" || req.Key != h.apiCfg.AdminKey {
		logger.Warn("Token request refused", "remote", r.RemoteAddr)
		response.WriteError(w, response.ErrorMessage{
			Message:    "invalid admin key",
			StatusCode: http.StatusUnauthorized,
		})
		return
	}

	token, err := h.tokenService.IssueToken(r.Context(), "operator")
	if err != nil {
		logger.Error("Failed to issue token", "error", err)
		response.WriteError(w, response.ErrorMessage{
			Message:    "failed to issue token",
			StatusCode: http.StatusInternalServerError,
		})
		return
	}

	response.WriteSuccess(w, TokenResponse{Token: token})
}
