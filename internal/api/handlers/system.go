package handlers

import (
	"database/sql"
	"net/http"

	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/database"
)

// SystemHandler handles system-related HTTP requests
type SystemHandler struct {
	db *sql.DB
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db *sql.DB) *SystemHandler {
	return &SystemHandler{db: db}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status"`
	Cache  string `json:"cache"`
	Error  string `json:"error,omitempty"`
}

// Health checks the health of the service and price cache connectivity.
// The cache being down degrades pricing to memory-only but does not make
// the service unhealthy for analysis, so this reports both states.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := database.HealthCheck(h.db); err != nil {
		response := HealthResponse{
			Status: "degraded",
			Cache:  "disconnected",
			Error:  err.Error(),
		}
		respondJSON(w, http.StatusOK, response)
		return
	}

	response := HealthResponse{
		Status: "healthy",
		Cache:  "connected",
	}
	respondJSON(w, http.StatusOK, response)
}
