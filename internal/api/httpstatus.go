// Package api wires the authorization and credential core into a thin
// HTTP demonstration server: chi-routed handlers, middleware stack, and
// the mapping from corerr.Kind / model.Decision to HTTP status codes.
// This mapping lives here, not in the core packages, so internal/credential
// and internal/decision stay transport-agnostic.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/taskforge/authcore/internal/corerr"
	"github.com/taskforge/authcore/internal/model"
)

// errorBody is the wire shape for every failed response.
type errorBody struct {
	Error string `json:"error"`
	Detail any   `json:"detail,omitempty"`
}

// WriteError maps a corerr.Error (or any error, defensively, to internal)
// to an HTTP status and writes a uniform JSON body.
func WriteError(w http.ResponseWriter, err error) {
	var cerr *corerr.Error
	if !errors.As(err, &cerr) {
		cerr = corerr.Internal(err)
	}

	status, detail := statusFor(cerr)
	writeJSON(w, status, errorBody{Error: string(cerr.Kind), Detail: detail})
}

func statusFor(e *corerr.Error) (int, any) {
	switch e.Kind {
	case corerr.KindUnauthorized, corerr.KindTheftDetected:
		return http.StatusUnauthorized, nil
	case corerr.KindForbidden:
		detail := map[string]any{"reason": e.Reason}
		if e.RequiredTier != "" {
			detail["required_tier"] = e.RequiredTier
		}
		if e.Feature != "" {
			detail["feature"] = e.Feature
		}
		return http.StatusForbidden, detail
	case corerr.KindConflict:
		return http.StatusConflict, nil
	case corerr.KindValidation:
		return http.StatusUnprocessableEntity, map[string]any{"field": e.Field, "rule": e.Rule}
	case corerr.KindNotFound:
		return http.StatusNotFound, nil
	case corerr.KindThrottled:
		return http.StatusTooManyRequests, map[string]any{"retry_after_seconds": e.RetryAfterSeconds}
	default:
		return http.StatusInternalServerError, nil
	}
}

// WriteDecisionDenied maps a Denied model.Decision directly to its HTTP
// response, without requiring the caller to round-trip it through a
// corerr.Error first.
func WriteDecisionDenied(w http.ResponseWriter, d model.Decision) {
	detail := map[string]any{"reason": d.Reason}
	if d.RequiredTier != "" {
		detail["required_tier"] = d.RequiredTier
	}
	if d.Feature != "" {
		detail["feature"] = d.Feature
	}
	writeJSON(w, http.StatusForbidden, errorBody{Error: string(corerr.KindForbidden), Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
