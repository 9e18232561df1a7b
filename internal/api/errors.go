package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/neexbeast/outage-ledger/internal/outage"
)

var errMalformedBody = errors.New("malformed request body")

const msgUnexpected = "An unexpected error occurred. If this problem persists, please contact support."

// writeError translates err into the response for its kind. Anything not in
// the domain taxonomy is logged and reduced to a generic 500.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *outage.ValidationError
		notFound   *outage.NotFoundError
	)

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "The provided data was invalid.",
			"errors":  validation.Fields,
		})
	case errors.As(err, &notFound):
		writeMessage(w, http.StatusNotFound,
			"The requested "+capitalize(notFound.Resource)+" could not be found or does not exist.")
	case errors.Is(err, outage.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "You do not have permission to access this resource.")
	case errors.Is(err, outage.ErrDuplicateLocation):
		writeMessage(w, http.StatusConflict, "A location with these coordinates already exists")
	case errors.Is(err, outage.ErrHasDependents):
		writeMessage(w, http.StatusConflict, "Cannot delete location with associated outages")
	case errors.Is(err, outage.ErrAlreadyEnded):
		writeMessage(w, http.StatusUnprocessableEntity, "This outage has already been ended.")
	case errors.Is(err, outage.ErrInvalidEndTime):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "End time must be after start time.",
			"errors":  map[string][]string{"end_time": {"End time must be after start time."}},
		})
	case errors.Is(err, outage.ErrLocationNotFound):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "The provided data was invalid.",
			"errors":  map[string][]string{"location_id": {"The selected location is invalid."}},
		})
	case errors.Is(err, outage.ErrWeatherUnavailable):
		h.log.Warn("weather enrichment failed", "path", r.URL.Path, "err", err)
		writeMessage(w, http.StatusServiceUnavailable, "Weather service is currently unavailable. Please try again later.")
	case errors.Is(err, errMalformedBody):
		body := map[string]any{"message": "The request body could not be parsed."}
		if h.debug {
			body["error"] = err.Error()
		}
		writeJSON(w, http.StatusBadRequest, body)
	default:
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		body := map[string]any{"message": msgUnexpected}
		if h.debug {
			body["error"] = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, body)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func capitalize(s string) string {
	if s == "" {
		return "resource"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
