package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vitos/paper_wallet/internal/domain"
	"go.uber.org/zap"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps engine errors onto HTTP statuses. Persistence failures are
// the only 500s.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidOrder):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrPositionNotFound):
		status = http.StatusNotFound
	default:
		s.logger.Error("Request failed", zap.Error(err))
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeResult answers 200 for an executed operation and 422 for a business
// rejection, with the engine's message either way.
func (s *Server) writeResult(w http.ResponseWriter, res domain.Result) {
	status := http.StatusOK
	if !res.OK {
		status = http.StatusUnprocessableEntity
	}
	s.writeJSON(w, status, res)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}
