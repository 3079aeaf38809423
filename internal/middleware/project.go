package middleware

import (
	"net/http"

	"arbor/internal/httputil"
)

const (
	projectHeader = "X-Project-ID"
	accountHeader = "X-Account-ID"
)

// Project extracts the project scope from the X-Project-ID header and
// stores it in the request context. Every tree operation is scoped to a
// single project, so requests without the header are rejected before they
// reach a handler. The optional X-Account-ID header records who performed
// the mutation.
func Project() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			projectID := r.Header.Get(projectHeader)
			if projectID == "" {
				httputil.RespondError(w, http.StatusBadRequest, "X-Project-ID header is required")
				return
			}
			r = httputil.WithProjectID(r, projectID)
			if accountID := r.Header.Get(accountHeader); accountID != "" {
				r = httputil.WithAccountID(r, accountID)
			}
			next.ServeHTTP(w, r)
		})
	}
}
