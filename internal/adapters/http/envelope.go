package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"leadtracker/internal/domain/contest"
	"leadtracker/internal/domain/lead"
)

// envelope is the response body of every action.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeEnvelope(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error("response_encode_failed", "error", err)
	}
}

// paramError reports a missing or malformed request parameter.
type paramError struct {
	name   string
	reason string // "missing" or "invalid"
}

func (e *paramError) Error() string {
	if e.reason == "missing" {
		return "Missing " + e.name
	}
	return "Invalid " + e.name
}

func missingParam(name string) error { return &paramError{name: name, reason: "missing"} }
func invalidParam(name string) error { return &paramError{name: name, reason: "invalid"} }

// validationErrors are domain errors whose text is safe to show users as is.
var validationErrors = []error{
	lead.ErrEmptyLoanCode,
	lead.ErrEmptyApplicationID,
	lead.ErrEmptyMobileNumber,
	lead.ErrInvalidStatus,
	contest.ErrEmptyName,
	contest.ErrInvalidDate,
	contest.ErrNoSlabs,
	contest.ErrInvalidTarget,
	contest.ErrInvalidIncentive,
	contest.ErrRangeTooLong,
}

// classify maps an action error onto a status code and a user-facing message.
// Unrecognised errors are internal: logged in full, reported generically.
func classify(err error) (int, string) {
	var dup *lead.DuplicateError
	var unknown *UnknownActionError
	var param *paramError

	switch {
	case errors.As(err, &dup):
		return http.StatusConflict, dup.Error()
	case errors.Is(err, lead.ErrVerificationFailed):
		return http.StatusConflict, "Record verification failed"
	case errors.Is(err, lead.ErrNotFound):
		return http.StatusNotFound, "Record not found"
	case errors.Is(err, contest.ErrNotFound):
		return http.StatusNotFound, "Contest not found"
	case errors.Is(err, lead.ErrInvalidSearchType):
		return http.StatusBadRequest, "Invalid search type"
	case errors.As(err, &unknown):
		return http.StatusBadRequest, "Invalid action"
	case errors.As(err, &param):
		return http.StatusBadRequest, param.Error()
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return http.StatusBadRequest, err.Error()
		}
	}

	slog.Error("internal_error", "error", err.Error())
	return http.StatusInternalServerError, "Internal server error"
}

// writeError writes the failure envelope for err.
func writeError(w http.ResponseWriter, err error) {
	status, msg := classify(err)
	writeEnvelope(w, status, envelope{Message: msg})
}
