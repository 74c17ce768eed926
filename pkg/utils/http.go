package utils

import (
	"encoding/json"
	"net/http"

	"parley/pkg/apperr"
)

// JSONError writes a taxonomy error as a JSON response. Unknown errors are
// reported as INTERNAL without leaking the cause text.
func JSONError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	code := apperr.CodeOf(err)
	w.WriteHeader(StatusFor(code))
	msg := err.Error()
	if code == apperr.CodeUnknown {
		code = apperr.CodeInternal
		msg = "internal error"
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"code": string(code), "error": msg})
}

// JSONErrorStatus writes a plain error message with an explicit status.
func JSONErrorStatus(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// JSONWrite writes the provided value as JSON with the given status code.
func JSONWrite(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	return json.NewEncoder(w).Encode(v)
}

// StatusFor maps a taxonomy code onto an HTTP status.
func StatusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeInvalidArgument:
		return http.StatusBadRequest
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeForbidden:
		return http.StatusForbidden
	case apperr.CodeInvalidState:
		return http.StatusConflict
	case apperr.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
