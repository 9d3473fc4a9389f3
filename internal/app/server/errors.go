package server

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	"analyst/internal/database"
	"analyst/internal/geolite"
)

func writeForbidden(w http.ResponseWriter, description string) {
	writeError(w, http.StatusForbidden, "Forbidden", description)
}

func writeBadRequest(w http.ResponseWriter, description string) {
	writeError(w, http.StatusBadRequest, "Bad Request", description)
}

// writeFailure maps an error returned by a repository or the GeoIP facade
// onto its HTTP status.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not Found", "")
	case errors.Is(err, database.ErrConflict):
		writeError(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, database.ErrAlreadyInitialized):
		writeBadRequest(w, "App already initialized.")
	case errors.Is(err, database.ErrInvalidInput):
		writeBadRequest(w, err.Error())
	case errors.Is(err, geolite.ErrInvalidAddress):
		writeBadRequest(w, "Not a valid IP address.")
	case errors.Is(err, geolite.ErrNoRecord):
		writeBadRequest(w, "No response for query.")
	case errors.Is(err, geolite.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Service Unavailable", "GeoIP database is not loaded.")
	default:
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}
