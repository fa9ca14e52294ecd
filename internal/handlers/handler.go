package handlers

import (
	"encoding/json"
	"net/http"

	"gitlab.com/quantport.net/internal/global/logger"
)

// ResponseWithJson writes data as a JSON body with the given status.
func ResponseWithJson(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// ResponseError writes a JSON error envelope.
func ResponseError(w http.ResponseWriter, message string, code int) {
	ResponseWithJson(w, code, map[string]string{"error": message})
}
