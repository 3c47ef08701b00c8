package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/meltforce/liftcoach/internal/apperr"
	"github.com/meltforce/liftcoach/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

// writeError maps err onto a status code and an {"error": ...} body.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		rl  *apperr.RateLimitExceededError
		ext *apperr.ExternalServiceError
	)
	switch {
	case apperr.IsValidation(err):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, session.ErrNoSession):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &rl):
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":     err.Error(),
			"remaining": rl.Remaining,
			"limit":     rl.Limit,
			"reset_at":  rl.ResetAt.Format(time.RFC3339),
		})
	case errors.As(err, &ext):
		s.log.Warn("external service failed", "service", ext.Service, "error", ext.Err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	case errors.Is(err, session.ErrInvalidTransition), errors.Is(err, session.ErrSessionExists):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		s.log.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
