package web

// errors.go provides unified error response handling for the web layer.
//
// Every failed request logs the technical error with its request id and
// answers with an ErrorResponse built from importer.MapError. The status
// code follows the error code category.

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/JonMunkholm/tripimport/internal/importer"
	"github.com/JonMunkholm/tripimport/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

var (
	rateLimitedMessage = importer.UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}
	historyDisabledMessage = importer.UserMessage{
		Message: "Import history is not enabled",
		Action:  "Configure DATABASE_URL to keep import history",
		Code:    "HIST001",
	}
	importNotFoundMessage = importer.UserMessage{
		Message: "Import not found",
		Action:  "Check the import id",
		Code:    "HIST002",
	}
)

// statusFor maps a user message code to an HTTP status.
func statusFor(code string) int {
	switch {
	case strings.HasPrefix(code, "CSV"):
		return http.StatusUnprocessableEntity
	case code == "FILE001":
		return http.StatusRequestEntityTooLarge
	case code == "FILE004":
		return http.StatusBadRequest
	case code == "UPL002":
		return http.StatusServiceUnavailable
	case code == "UPL004":
		return http.StatusBadRequest
	case code == "UPL005":
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the mapped user message with the status
// derived from its code.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	userMsg := importer.MapError(err)
	statusCode := statusFor(userMsg.Code)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	respondErrorJSON(w, userMsg, statusCode)
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg importer.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// respondBadRequest writes a 400 for malformed query parameters.
func respondBadRequest(w http.ResponseWriter, message, action string) {
	respondErrorJSON(w, importer.UserMessage{
		Message: message,
		Action:  action,
		Code:    "REQ001",
	}, http.StatusBadRequest)
}
