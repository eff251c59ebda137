package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/dom/chatbot-web/internal/api/response"
	"github.com/dom/chatbot-web/internal/domain"
	"github.com/dom/chatbot-web/internal/idempotency"
	"github.com/dom/chatbot-web/internal/service"
)

// writeServiceError maps service and store errors to HTTP status codes. Only
// unexpected errors are logged; their cause is not echoed to the client.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	status, cause := http.StatusInternalServerError, "internal server error"

	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrPasswordTooLong),
		errors.Is(err, domain.ErrEmptyMessage):
		status, cause = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrUserNotRegistered),
		errors.Is(err, service.ErrPermissionDenied),
		errors.Is(err, service.ErrInvalidToken):
		status, cause = http.StatusUnauthorized, err.Error()
	case errors.Is(err, service.ErrIncorrectPassword):
		status, cause = http.StatusForbidden, err.Error()
	case errors.Is(err, service.ErrUserAlreadyRegistered), errors.Is(err, idempotency.ErrInProgress):
		status, cause = http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrCompletionTimeout):
		status, cause = http.StatusGatewayTimeout, service.ErrCompletionTimeout.Error()
	case errors.Is(err, service.ErrCompletionFailed):
		status, cause = http.StatusBadGateway, service.ErrCompletionFailed.Error()
	}

	if status >= http.StatusInternalServerError {
		log.Printf("ERROR [handlers.%s] %v", op, err)
	}
	response.Error(w, status, cause)
}

// Request body limits.
const (
	maxAuthBodyBytes = 4 << 10
	maxChatBodyBytes = 64 << 10
)

// decodeBody decodes at most limit bytes of JSON from the request body. On
// failure it writes the error response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
