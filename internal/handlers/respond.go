package handlers

import (
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/HammerMeetNail/cotravels/internal/logging"
	"github.com/HammerMeetNail/cotravels/internal/services"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxJSONBodyBytes = 1 << 20

// ErrorResponse is the body of every 4xx response.
type ErrorResponse struct {
	Errors []string `json:"errors"`
}

// MessageResponse is the body of 5xx responses and of plain acknowledgements.
type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, messages ...string) {
	if status >= http.StatusInternalServerError {
		msg := "Internal server error"
		if len(messages) > 0 {
			msg = messages[0]
		}
		writeJSON(w, status, MessageResponse{Message: msg})
		return
	}
	if messages == nil {
		messages = []string{http.StatusText(status)}
	}
	writeJSON(w, status, ErrorResponse{Errors: messages})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, MessageResponse{Message: message})
}

// decodeJSON reads a bounded JSON body into dst. Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func statusForKind(kind services.Kind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError maps a service error onto the response. Failures that
// are not part of the error taxonomy are logged and hidden from the caller.
func writeServiceError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	kind := services.KindOf(err)
	status := statusForKind(kind)

	if status >= http.StatusInternalServerError {
		fields := logging.Fields{
			"operation": operation,
			"kind":      string(kind),
			"error":     err.Error(),
		}
		if user := GetUserFromContext(r.Context()); user != nil {
			fields["user_id"] = user.ID.String()
		}
		logging.Error("Request failed", fields)

		if kind == services.KindIntegrity {
			writeError(w, status, "Data integrity violation")
			return
		}
		writeError(w, status, "Internal server error")
		return
	}

	var verr *services.ValidationError
	if errors.As(err, &verr) {
		writeError(w, status, verr.Messages()...)
		return
	}
	writeError(w, status, services.Message(err))
}
