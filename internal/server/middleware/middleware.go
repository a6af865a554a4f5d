// Package middleware provides the status server's panic-recovery and
// request-ID plumbing, writing the apperrors JSON envelope for every
// error it surfaces.
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/3leaps/webhunt/internal/apperrors"
)

// ErrorResponse is the on-the-wire shape written by writeErrorResponse,
// matching apperrors.HTTPErrorResponse.
type ErrorResponse = apperrors.HTTPErrorResponse

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestID assigns a request ID from the X-Request-ID header (or
// leaves it empty if absent) and stores it in the request context for
// downstream handlers and the Recovery middleware to read.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestIDFrom extracts the request ID stashed by RequestID, or ""
// if none was set.
func requestIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey).(string)
	return id
}

// Recovery recovers a panic in next and writes a 500 JSON error
// envelope instead of letting net/http's default recoverer close the
// connection.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				var err error
				switch v := rec.(type) {
				case error:
					err = v
				default:
					err = fmt.Errorf("panic: %v", v)
				}
				envelope := apperrors.NewErrorEnvelope("INTERNAL_ERROR", err.Error()).
					WithRequestID(requestIDFrom(r))
				writeErrorResponse(w, envelope, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// ErrorHandler is an alias for Recovery: the status server's only
// error-handling middleware is panic recovery, so both names resolve
// to the same behavior (kept for callers that prefer the more generic
// name).
func ErrorHandler(next http.Handler) http.Handler { return Recovery(next) }

func writeErrorResponse(w http.ResponseWriter, envelope *apperrors.ErrorEnvelope, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(apperrors.HTTPErrorResponse{Error: *envelope})
}

// LogRequests is a lightweight access-log middleware emitting one
// debug-level structured line per request.
func LogRequests(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("request_id", requestIDFrom(r)),
			)
			next.ServeHTTP(w, r)
		})
	}
}
