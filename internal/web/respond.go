package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/conorfennell/knolsched/internal/domain"
	"github.com/conorfennell/knolsched/internal/sched"
)

// badRequest marks errors caused by the request itself.
type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

type errorBody struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	var br badRequest
	switch {
	case errors.As(err, &br),
		errors.Is(err, sched.ErrInvalidRating),
		errors.Is(err, sched.ErrInvalidDueSpec):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, sched.ErrDeckNotFound):
		return http.StatusNotFound
	case errors.Is(err, sched.ErrNotFiltered),
		errors.Is(err, sched.ErrFilteredDeckEmpty),
		errors.Is(err, sched.ErrInvalidQueue),
		errors.Is(err, sched.ErrReviewLogConflict):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		s.respond(w, status, errorBody{Error: "internal server error"})
		return
	}
	s.log.Debug("request rejected", "path", r.URL.Path, "status", status, "err", err)
	s.respond(w, status, errorBody{Error: err.Error()})
}

func (s *Server) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("failed to write response", "err", err)
	}
}
