package handler

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"arbor/internal/domain"
	"arbor/internal/httputil"
)

// handleError maps domain errors to HTTP responses. Errors implementing
// domain.HTTPError carry their own status code; anything else is a 500.
func handleError(w http.ResponseWriter, err error) {
	var dupErr *domain.DuplicatePathError
	if errors.As(err, &dupErr) {
		// Surface the conflicting path so clients can resolve the collision
		httputil.RespondErrorWithExtras(w, http.StatusConflict, dupErr.Error(), map[string]interface{}{
			"path": dupErr.Path,
		})
		return
	}

	var vErrs validation.Errors
	if errors.As(err, &vErrs) {
		httputil.RespondError(w, http.StatusBadRequest, vErrs.Error())
		return
	}

	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		httputil.RespondError(w, httpErr.StatusCode(), httpErr.Error())
		return
	}

	httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
}
