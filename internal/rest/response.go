package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

type ctxKey int

const requestIDKey ctxKey = 0

// devMode controls whether internal error messages are passed through to
// clients. Set once at startup.
var devMode = false

func SetDevMode(enabled bool) {
	devMode = enabled
}

// WithRequestID attaches the request identifier to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request identifier from the context, or "".
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// Envelope is the uniform response body for every endpoint.
type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     *Error `json:"error,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
	RequestID string `json:"requestId,omitempty"`
}

// WriteJSON writes a success envelope with the given HTTP status.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	WriteMessage(w, r, status, data, "")
}

// WriteMessage writes a success envelope with an additional human message.
func WriteMessage(w http.ResponseWriter, r *http.Request, status int, data any, message string) {
	writeEnvelope(w, status, Envelope{
		Success:   true,
		Data:      data,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: RequestID(r.Context()),
	})
}

// WriteError writes an error envelope. A *rest.Error is rendered as-is; any
// other error becomes a 500 with its message suppressed outside dev mode.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		message := "internal server error"
		if devMode {
			message = err.Error()
		}
		apiErr = Internal(message)
		log.Errorf("unhandled error: %v", err)
	}
	writeEnvelope(w, apiErr.HTTPStatus, Envelope{
		Success:   false,
		Error:     apiErr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: RequestID(r.Context()),
	})
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		log.Errorf("failed to encode response envelope: %v", err)
	}
}
