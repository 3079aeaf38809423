package repositories

import (
	"context"

	"arbor/internal/domain/models"
)

// NodeRepository defines data access operations for nodes. It owns the
// source of truth and never touches the cache; cache policy lives in the
// tree service so it stays in one place.
type NodeRepository interface {
	// FindByPath retrieves a node by its project-scoped path.
	// Returns (nil, nil) when the node does not exist - absence is not an
	// error at this layer.
	FindByPath(ctx context.Context, projectID, path string) (*models.Node, error)

	// FindChildren returns the children of dir in insertion order.
	// Recursive mode matches every path that has dir as a strict prefix
	// followed by "/" and honors skip/limit; limit <= 0 means unbounded,
	// which the subtree gathers behind delete and move rely on.
	// Non-recursive mode matches only paths with exactly one additional
	// segment and is always returned in full (capped at
	// config.MaxListingLimit).
	FindChildren(ctx context.Context, projectID, dir string, recursive bool, skip, limit int) ([]models.Node, error)

	// Create inserts a new node. Fails with DuplicatePathError if the
	// (project_id, path) pair already exists.
	Create(ctx context.Context, node *models.Node) error

	// CreateMany inserts a batch of nodes in one round trip.
	CreateMany(ctx context.Context, nodes []*models.Node) error

	// Save persists an in-place mutation: content update, or the
	// path+previous_path rewrite performed during a move.
	Save(ctx context.Context, node *models.Node) error

	// DeleteOne hard-deletes a single node by path.
	DeleteOne(ctx context.Context, projectID, path string) error

	// DeleteByPrefix hard-deletes dir and every node below it.
	DeleteByPrefix(ctx context.Context, projectID, dir string) error
}
