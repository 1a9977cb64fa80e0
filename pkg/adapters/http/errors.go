package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/aretw0/lettergraph/pkg/domain"
)

// statusClientClosed is used when the caller went away mid-evaluation.
const statusClientClosed = 499

// ErrorBody is the error envelope of every failed call. ID appears in the
// server log next to the cause.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	ID       string           `json:"id"`
	Code     string           `json:"code"`
	Message  string           `json:"message"`
	Problems []domain.Problem `json:"problems,omitempty"`
}

func asGraphError(err error) (*domain.GraphError, bool) {
	var ge *domain.GraphError
	ok := errors.As(err, &ge)
	return ge, ok
}

// classify maps an engine error to a status and a stable code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrGraphNotFound):
		return http.StatusNotFound, "graph_not_found"
	case errors.Is(err, domain.ErrGraph):
		return http.StatusUnprocessableEntity, "invalid_graph"
	case errors.Is(err, domain.ErrCancelled), errors.Is(err, context.Canceled):
		return statusClientClosed, "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "timeout"
	}
	return http.StatusInternalServerError, "internal"
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	detail := ErrorDetail{ID: uuid.NewString(), Code: code, Message: err.Error()}
	if ge, ok := asGraphError(err); ok {
		detail.Problems = ge.Problems
	}
	if status == http.StatusInternalServerError {
		detail.Message = http.StatusText(status)
		s.logger.Error("request failed", "error_id", detail.ID, "path", r.URL.Path, "err", err)
	} else {
		s.logger.Warn("request rejected", "error_id", detail.ID, "path", r.URL.Path, "code", code, "err", err)
	}
	s.respond(w, status, ErrorBody{Error: detail})
}
