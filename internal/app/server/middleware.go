package server

import (
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"analyst/internal/auth"
	"analyst/internal/domain"
)

const requestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// observe tags the request with an id, writes the access log line and
// records request metrics under the matched route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		elapsed := time.Since(start)

		log.Info("request",
			"id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", elapsed,
		)

		if s.metrics != nil {
			s.metrics.ObserveRequest(r.Method, r.Pattern, rec.status, elapsed)
		}
	})
}

// requireJSON rejects requests whose Accept header excludes JSON.
func requireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(r.Header.Values("Accept")) {
			writeError(w, http.StatusNotAcceptable, "Not Acceptable", "This API only accepts responses encoded as JSON.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func acceptsJSON(values []string) bool {
	if len(values) == 0 {
		return true
	}
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			mediaType, _, err := mime.ParseMediaType(part)
			if err != nil {
				continue
			}
			switch {
			case mediaType == "*/*",
				mediaType == "application/*",
				mediaType == "application/json",
				strings.HasSuffix(mediaType, "+json"):
				return true
			}
		}
	}
	return false
}

// requireAuth resolves the caller from the Authorization header and stores
// it on the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.resolver.Resolve(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			if errors.Is(err, auth.ErrMissingCredentials) ||
				errors.Is(err, auth.ErrMalformedCredentials) ||
				errors.Is(err, auth.ErrUnknownCredentials) {
				w.Header().Set("WWW-Authenticate", `Token realm="analyst", Basic realm="analyst"`)
				writeError(w, http.StatusUnauthorized, "Unauthorized", "Authentication required.")
				return
			}
			log.Error("Could not resolve caller", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal Server Error", "")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
	})
}

func caller(r *http.Request) domain.User {
	user, _ := auth.UserFromContext(r.Context())
	return user
}
