package handler

import (
	"log/slog"
	"net/http"
	"time"

	"arbor/internal/config"
	"arbor/internal/httputil"
	"arbor/internal/service/tree"
)

// TreeHandler handles HTTP requests for directory listings
type TreeHandler struct {
	coordinator *tree.Coordinator
	logger      *slog.Logger
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(coordinator *tree.Coordinator, logger *slog.Logger) *TreeHandler {
	return &TreeHandler{
		coordinator: coordinator,
		logger:      logger,
	}
}

// ListTree lists the children of a directory
// GET /api/tree?dir=&recursive=&skip=&limit=&cache=
func (h *TreeHandler) ListTree(w http.ResponseWriter, r *http.Request) {
	projectID := httputil.GetProjectID(r)
	dir := r.URL.Query().Get("dir")

	opts := tree.ListOptions{
		Recursive: httputil.QueryBool(r, "recursive", false),
		FromCache: httputil.QueryBool(r, "cache", true),
		Skip:      httputil.QueryInt(r, "skip", 0),
		Limit:     httputil.QueryInt(r, "limit", 0),
	}
	if opts.Limit > config.MaxListingLimit {
		httputil.RespondError(w, http.StatusBadRequest, "limit exceeds maximum")
		return
	}

	listing, err := h.coordinator.List(r.Context(), projectID, dir, opts)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, listing)
}

// HealthCheck is a simple health check endpoint
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now(),
	})
}
