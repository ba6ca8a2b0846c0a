package api

import (
	"net/http"

	"github.com/meganoshop/megano-server/internal/http/response"
)

// HealthResponse reports server health status.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, HealthResponse{Status: "healthy"}, s.logger)
}
