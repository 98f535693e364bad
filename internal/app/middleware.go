package app

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/eventpulse/eventpulse/internal/config"
	"github.com/eventpulse/eventpulse/internal/rest"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// SetupMiddleware installs the shared middleware chain. Order matters: the
// request ID must exist before logging and before the timeout envelope is
// rendered.
func SetupMiddleware(r *mux.Router, cfg config.Application) {
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)
	if cfg.Server.RequestTimeoutSeconds > 0 {
		r.Use(timeoutMiddleware(time.Duration(cfg.Server.RequestTimeoutSeconds) * time.Second))
	}
}

// requestIDMiddleware accepts an inbound X-Request-Id or generates one, stores
// it on the context, and echoes it back on the response.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r.WithContext(rest.WithRequestID(r.Context(), requestID)))
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Tracef("--> %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
		log.Debugf("<-- %s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}

// timeoutMiddleware aborts requests that exceed the configured limit and
// responds with a 503 REQUEST_TIMEOUT envelope.
func timeoutMiddleware(timeout time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := json.Marshal(rest.Envelope{
				Success:   false,
				Error:     rest.Unavailable(rest.CodeRequestTimeout, "request processing exceeded the time limit"),
				Timestamp: time.Now().UTC().Format(time.RFC3339),
				RequestID: rest.RequestID(r.Context()),
			})
			if err != nil {
				log.Errorf("failed to encode timeout envelope: %v", err)
			}
			w.Header().Set("Content-Type", "application/json")
			http.TimeoutHandler(next, timeout, string(body)).ServeHTTP(w, r)
		})
	}
}
