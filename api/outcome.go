package api

import (
	"context"
	"errors"
	"net/http"

	"museum/solver"
)

// SolveOutcome maps a solve error to its metric label, HTTP status and
// client message.
func SolveOutcome(err error) (result string, status int, msg string) {
	switch {
	case err == nil:
		return "ok", http.StatusOK, ""
	case errors.Is(err, solver.ErrStateLimit):
		return "state_limit", http.StatusUnprocessableEntity, "roster too large to solve"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout", http.StatusServiceUnavailable, "solve timed out"
	case errors.Is(err, context.Canceled):
		return "canceled", http.StatusServiceUnavailable, "solve canceled"
	}
	return "error", http.StatusInternalServerError, err.Error()
}
