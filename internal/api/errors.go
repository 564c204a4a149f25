package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"

	"github.com/nerrad567/telemetry-core/internal/validate"
)

// Fixed response messages shared by several handlers.
const (
	msgUnauthorized   = "Unauthorized"
	msgForbiddenRole  = "Unauthorized, you do not have the correct role for this action."
	msgInternalError  = "Internal server error"
	msgInvalidJSON    = "The request body must be a JSON object."
	msgBodyTooLarge   = "The request body is too large."
	msgDeviceNotFound = "Device not found"
	msgDeviceInactive = "Device is inactive"
	msgEmailTaken     = "The email has already been taken."
)

// Message is the body of every non-validation response.
type Message struct {
	Message string `json:"message"`
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeMessage writes {"message": msg} with the given status.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Message{Message: msg})
}

// writeValidation writes a 422 with the field-keyed messages.
func writeValidation(w http.ResponseWriter, errs validate.Errors) {
	writeJSON(w, http.StatusUnprocessableEntity, errs)
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeMessage(w, http.StatusBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeMessage(w, http.StatusNotFound, message)
}

// writeUnauthorized writes the 401 response used for every authentication failure.
func writeUnauthorized(w http.ResponseWriter) {
	writeMessage(w, http.StatusUnauthorized, msgUnauthorized)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeMessage(w, http.StatusForbidden, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter) {
	writeMessage(w, http.StatusInternalServerError, msgInternalError)
}

// decodeJSON reads a JSON object from the request body into v. On failure it
// writes the 400 response itself and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeMessage(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
	case errors.Is(err, io.EOF):
		writeBadRequest(w, msgInvalidJSON)
	default:
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			kind := "string"
			if typeErr.Type != nil && typeErr.Type.Kind() == reflect.Float64 {
				kind = "number"
			}
			errs := validate.Errors{}
			errs.WrongType(typeErr.Field, kind)
			writeValidation(w, errs)
			return false
		}
		writeBadRequest(w, msgInvalidJSON)
	}
	return false
}
