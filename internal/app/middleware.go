package app

import (
	"net/http"
	"strconv"
	"time"

	"github.com/aliuyar1234/taskboard/internal/apperrors"
	"github.com/aliuyar1234/taskboard/internal/auth"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog/log"
)

// LoggingMiddleware logs HTTP requests with structured fields.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		event := log.Info()
		if wrapped.statusCode >= http.StatusInternalServerError {
			event = log.Warn()
		}
		if id, ok := auth.IdentityFromContext(r.Context()); ok {
			event = event.Int64("user_id", id.UserID)
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.statusCode).
			Dur("duration", time.Since(start)).
			Str("request_id", apperrors.GetRequestID(r.Context())).
			Str("remote_addr", r.RemoteAddr).
			Msg("HTTP request")
	})
}

// RecoveryMiddleware recovers from panics and returns a 500 error.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Interface("error", err).
					Str("request_id", apperrors.GetRequestID(r.Context())).
					Str("path", r.URL.Path).
					Msg("Panic recovered")

				apperrors.WriteError(w, r, http.StatusInternalServerError, apperrors.KindServerError, "Internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// NoCacheMiddleware adds headers to prevent caching.
func NoCacheMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		next.ServeHTTP(w, r)
	})
}

// CSRFMiddleware validates the CSRF header on POST, PUT, PATCH and DELETE.
func CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			if err := auth.ValidateCSRF(r); err != nil {
				log.Warn().
					Err(err).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Msg("CSRF validation failed")

				apperrors.Write(w, r, apperrors.Unauthorized("Invalid CSRF token"))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// LoginRateLimitMiddleware limits login attempts per IP address to perMinute.
// A non-positive limit disables it.
func LoginRateLimitMiddleware(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		perMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", strconv.Itoa(60))
			apperrors.WriteTooManyRequests(w, r, "Too many login attempts. Try again later.")
		}),
	)
}
