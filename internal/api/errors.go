package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/datadetective/academy/internal/catalog"
	"github.com/datadetective/academy/internal/gateway"
	"github.com/datadetective/academy/internal/hints"
	"github.com/datadetective/academy/internal/sandbox"
	"github.com/datadetective/academy/internal/session"
)

// errNoSession is returned when the browser has no open challenge.
var errNoSession = errors.New("no challenge is open; open one first")

// errorResponse is the JSON error document.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// badRequest marks malformed requests.
type badRequest struct{ err error }

func (e *badRequest) Error() string { return e.err.Error() }
func (e *badRequest) Unwrap() error { return e.err }

// classify maps an error onto an HTTP status and a stable kind.
func classify(err error) (int, string) {
	var (
		bad       *badRequest
		notFound  *catalog.NotFoundError
		refused   *session.SubmissionRefusedError
		aborted   *session.ValidationAbortedError
		remote    *gateway.RemoteError
		recording *hints.RecordingError
		initErr   *sandbox.InitializationError
	)

	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, session.ErrEmptyQuery):
		return http.StatusBadRequest, "empty_query"
	case errors.As(err, &notFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, errNoSession), errors.Is(err, session.ErrClosed):
		return http.StatusConflict, "no_session"
	case errors.As(err, &refused):
		return http.StatusConflict, "submission_refused"
	case errors.Is(err, session.ErrSubmissionInFlight):
		return http.StatusConflict, "submission_in_flight"
	case errors.Is(err, session.ErrValidationSuperseded):
		return http.StatusConflict, "superseded"
	case errors.Is(err, hints.ErrAllHintsRevealed):
		return http.StatusConflict, "hints_exhausted"
	case errors.Is(err, hints.ErrUnlockInProgress):
		return http.StatusConflict, "hint_unlock_in_progress"
	case errors.Is(err, session.ErrNoReference), errors.Is(err, session.ErrNoSubmissionTarget):
		return http.StatusUnprocessableEntity, "not_checkable"
	case errors.As(err, &aborted):
		return http.StatusUnprocessableEntity, "validation_aborted"
	case errors.As(err, &remote), errors.As(err, &recording):
		return http.StatusBadGateway, "remote"
	case errors.As(err, &initErr):
		return http.StatusServiceUnavailable, "engine_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "kind", kind, "error", err)
	} else {
		s.logger.Debug("request refused", "method", r.Method, "path", r.URL.Path, "kind", kind, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}
