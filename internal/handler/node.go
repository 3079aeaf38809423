package handler

import (
	"log/slog"
	"net/http"

	"arbor/internal/httputil"
	"arbor/internal/service/tree"
)

// NodeHandler handles HTTP requests for individual tree nodes
type NodeHandler struct {
	coordinator *tree.Coordinator
	logger      *slog.Logger
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(coordinator *tree.Coordinator, logger *slog.Logger) *NodeHandler {
	return &NodeHandler{
		coordinator: coordinator,
		logger:      logger,
	}
}

// CreateNode creates a file or folder, materializing missing ancestors
// POST /api/nodes
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req tree.CreateNodeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.ProjectID = httputil.GetProjectID(r)
	req.AccountID = httputil.GetAccountID(r)

	node, err := h.coordinator.CreateNode(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, node)
}

// GetNode retrieves a node by path
// GET /api/nodes/{path...}
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	projectID := httputil.GetProjectID(r)
	path := r.PathValue("path")
	fromCache := httputil.QueryBool(r, "cache", true)

	node, err := h.coordinator.GetNode(r.Context(), projectID, path, fromCache)
	if err != nil {
		handleError(w, err)
		return
	}
	if node == nil {
		httputil.RespondError(w, http.StatusNotFound, "node not found")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, node)
}

// UpdateNode rewrites a file's content
// PATCH /api/nodes/{path...}
func (h *NodeHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	projectID := httputil.GetProjectID(r)
	path := r.PathValue("path")

	var req tree.UpdateNodeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	node, err := h.coordinator.UpdateNode(r.Context(), projectID, path, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, node)
}

// DeleteNode deletes a file, or a folder and its entire subtree when the
// recursive query parameter is set
// DELETE /api/nodes/{path...}
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	projectID := httputil.GetProjectID(r)
	path := r.PathValue("path")

	var err error
	if httputil.QueryBool(r, "recursive", false) {
		err = h.coordinator.DeleteSubtree(r.Context(), projectID, path)
	} else {
		err = h.coordinator.DeleteNode(r.Context(), projectID, path)
	}
	if err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MoveNode relocates a node (and its subtree, for folders) to a new path
// POST /api/nodes/move/{path...}
func (h *NodeHandler) MoveNode(w http.ResponseWriter, r *http.Request) {
	projectID := httputil.GetProjectID(r)
	accountID := httputil.GetAccountID(r)
	path := r.PathValue("path")

	var req tree.MoveNodeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	node, err := h.coordinator.MoveSubtree(r.Context(), projectID, accountID, path, req.NewPath)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, node)
}
