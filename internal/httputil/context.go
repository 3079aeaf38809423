package httputil

import (
	"context"
	"net/http"
)

// Context key type to avoid collisions
type contextKey string

const (
	projectIDKey contextKey = "projectID"
	accountIDKey contextKey = "accountID"
)

// WithProjectID adds projectID to the request context
func WithProjectID(r *http.Request, projectID string) *http.Request {
	ctx := context.WithValue(r.Context(), projectIDKey, projectID)
	return r.WithContext(ctx)
}

// GetProjectID retrieves projectID from context, returns empty string if not found
func GetProjectID(r *http.Request) string {
	projectID, _ := r.Context().Value(projectIDKey).(string)
	return projectID
}

// WithAccountID adds accountID to the request context
func WithAccountID(r *http.Request, accountID string) *http.Request {
	ctx := context.WithValue(r.Context(), accountIDKey, accountID)
	return r.WithContext(ctx)
}

// GetAccountID retrieves accountID from context, returns empty string if not found
func GetAccountID(r *http.Request) string {
	accountID, _ := r.Context().Value(accountIDKey).(string)
	return accountID
}
