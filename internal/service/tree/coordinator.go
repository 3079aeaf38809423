// Package tree implements the path-indexed tree cache coordinator: the
// decision procedure that keeps the node cache coherent with the durable
// store across creates, updates, deletes, and subtree moves.
//
// The coordinator is the sole writer of cache state and the node repository
// is the sole writer of persisted state. Every mutating operation commits
// one invalidation batch covering all affected content and listing keys
// before it reports success; re-population is lazy and happens on the next
// read. There is no cross-store transaction between the durable write and
// the invalidation - a crash between the two leaves a staleness window no
// longer than the cache TTL, which is an accepted trade-off.
package tree

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"arbor/internal/cache"
	"arbor/internal/config"
	"arbor/internal/domain"
	"arbor/internal/domain/models"
	"arbor/internal/domain/repositories"
)

// Coordinator orchestrates the node repository and the tree cache.
type Coordinator struct {
	repo   repositories.NodeRepository
	cache  cache.Cache
	query  *subtreeQuery
	ttl    time.Duration
	logger *slog.Logger
}

// NewCoordinator creates a new cache coordinator. ttl applies to every
// cache entry, content and listing alike.
func NewCoordinator(
	repo repositories.NodeRepository,
	treeCache cache.Cache,
	ttl time.Duration,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		repo:   repo,
		cache:  treeCache,
		query:  &subtreeQuery{repo: repo, cache: treeCache, ttl: ttl, logger: logger},
		ttl:    ttl,
		logger: logger,
	}
}

// GetNode retrieves a single node. With fromCache set, the content entry is
// tried first and a hit skips the store entirely; a miss (or fromCache =
// false) reads the store and re-populates the entry best-effort. Returns
// (nil, nil) when the node does not exist - the caller decides whether
// absence is an error.
func (c *Coordinator) GetNode(ctx context.Context, projectID, path string, fromCache bool) (*models.Node, error) {
	path, err := NormalizePath(path)
	if err != nil {
		return nil, err
	}

	contentKey := cache.Keys.Content(projectID, path)
	if fromCache {
		if raw, _ := c.cache.Get(ctx, contentKey); raw != nil {
			var snap models.NodeSnapshot
			if err := json.Unmarshal(raw, &snap); err == nil {
				return nodeFromSnapshot(projectID, snap), nil
			}
			c.logger.Warn("corrupt content entry, reading store", "key", contentKey)
		}
	}

	node, err := c.repo.FindByPath(ctx, projectID, path)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, nil
	}

	// Best-effort re-population; a failure here must never fail the read.
	if err := c.setSnapshot(ctx, contentKey, node); err != nil {
		c.logger.Warn("failed to populate content entry", "path", path, "error", err)
	}

	return node, nil
}

// CreateNode creates a blob or tree node, materializing missing ancestor
// folders on demand. Propagates DuplicatePathError unmodified when the
// path is already taken.
func (c *Coordinator) CreateNode(ctx context.Context, req *CreateNodeRequest) (*models.Node, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid create request: %w", err)
	}
	path, err := NormalizePath(req.Path)
	if err != nil {
		return nil, err
	}

	node := newNode(req.ProjectID, req.AccountID, path, req.Type, req.Content)

	if models.PathDepth(path) > config.MinPathDepth {
		parent, err := models.ParentPath(path, node.Name)
		if err != nil {
			return nil, err
		}
		if err := c.ensureParentExists(ctx, req.ProjectID, req.AccountID, parent); err != nil {
			return nil, err
		}
	}

	if err := c.repo.Create(ctx, node); err != nil {
		return nil, err
	}

	// The content key is deleted defensively: a dangling create artifact
	// should not be possible, but a retried request could have left one.
	parent, _ := models.ParentPath(path, node.Name)
	batch := c.cache.Batch()
	batch.Delete(
		cache.Keys.Content(req.ProjectID, path),
		cache.Keys.Listing(req.ProjectID, parent),
	)
	if err := batch.Commit(ctx); err != nil {
		return nil, err
	}

	c.logger.Info("node created",
		"id", node.ID,
		"path", node.Path,
		"type", node.Type,
		"project_id", node.ProjectID,
	)

	return node, nil
}

// UpdateNode rewrites a blob's content. The parent listing is left alone -
// an update does not change the set of children.
func (c *Coordinator) UpdateNode(ctx context.Context, projectID, path string, req *UpdateNodeRequest) (*models.Node, error) {
	path, err := NormalizePath(path)
	if err != nil {
		return nil, err
	}

	node, err := c.repo.FindByPath(ctx, projectID, path)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("node %s not found", path)}
	}
	if node.IsTree() {
		return nil, &domain.MalformedPathError{Path: path, Reason: "folders have no content"}
	}

	node.Content = req.Content
	node.UpdatedAt = time.Now()
	if err := c.repo.Save(ctx, node); err != nil {
		return nil, err
	}

	if err := c.cache.Delete(ctx, cache.Keys.Content(projectID, path)); err != nil {
		return nil, err
	}

	c.logger.Info("node updated", "id", node.ID, "path", node.Path, "project_id", projectID)

	return node, nil
}

// DeleteNode deletes the node at path. Folders cascade to their whole
// subtree via DeleteSubtree.
func (c *Coordinator) DeleteNode(ctx context.Context, projectID, path string) error {
	path, err := NormalizePath(path)
	if err != nil {
		return err
	}

	node, err := c.repo.FindByPath(ctx, projectID, path)
	if err != nil {
		return err
	}
	if node == nil {
		return &domain.NotFoundError{Message: fmt.Sprintf("node %s not found", path)}
	}

	if node.IsTree() {
		return c.deleteSubtree(ctx, node)
	}
	return c.deleteBlob(ctx, node)
}

// DeleteSubtree deletes the folder at path and every descendant.
func (c *Coordinator) DeleteSubtree(ctx context.Context, projectID, path string) error {
	path, err := NormalizePath(path)
	if err != nil {
		return err
	}

	node, err := c.repo.FindByPath(ctx, projectID, path)
	if err != nil {
		return err
	}
	if node == nil {
		return &domain.NotFoundError{Message: fmt.Sprintf("folder %s not found", path)}
	}
	if !node.IsTree() {
		return c.deleteBlob(ctx, node)
	}
	return c.deleteSubtree(ctx, node)
}

func (c *Coordinator) deleteBlob(ctx context.Context, node *models.Node) error {
	if err := c.repo.DeleteOne(ctx, node.ProjectID, node.Path); err != nil {
		return err
	}

	parent, err := models.ParentPath(node.Path, node.Name)
	if err != nil {
		return err
	}
	batch := c.cache.Batch()
	batch.Delete(
		cache.Keys.Content(node.ProjectID, node.Path),
		cache.Keys.Listing(node.ProjectID, parent),
	)
	if err := batch.Commit(ctx); err != nil {
		return err
	}

	c.logger.Info("node deleted", "id", node.ID, "path", node.Path, "project_id", node.ProjectID)
	return nil
}

// deleteSubtree gathers every descendant, commits one invalidation batch
// covering all of their keys, then removes the rows. If the invalidation
// fails the whole operation fails, even though rows may already be gone -
// a transient store/cache disagreement surfaced as a hard error so the
// caller can retry.
func (c *Coordinator) deleteSubtree(ctx context.Context, folder *models.Node) error {
	descendants, err := c.repo.FindChildren(ctx, folder.ProjectID, folder.Path, true, 0, 0)
	if err != nil {
		return err
	}

	parent, err := models.ParentPath(folder.Path, folder.Name)
	if err != nil {
		return err
	}

	batch := c.cache.Batch()
	for _, desc := range descendants {
		batch.Delete(cache.Keys.Content(folder.ProjectID, desc.Path))
		if desc.IsTree() {
			batch.Delete(cache.Keys.Listing(folder.ProjectID, desc.Path))
		}
	}
	batch.Delete(
		cache.Keys.Content(folder.ProjectID, folder.Path),
		cache.Keys.Listing(folder.ProjectID, folder.Path),
		cache.Keys.Listing(folder.ProjectID, parent),
	)
	if err := batch.Commit(ctx); err != nil {
		return err
	}

	if err := c.repo.DeleteByPrefix(ctx, folder.ProjectID, folder.Path); err != nil {
		return err
	}

	c.logger.Info("subtree deleted",
		"path", folder.Path,
		"project_id", folder.ProjectID,
		"descendants", len(descendants),
	)
	return nil
}

// MoveSubtree relocates the node at path (and, for folders, its whole
// subtree) to newPath. Per-node persistence is not atomic across the
// subtree; a partial failure is surfaced for caller-level compensation.
func (c *Coordinator) MoveSubtree(ctx context.Context, projectID, accountID, path, newPath string) (*models.Node, error) {
	path, err := NormalizePath(path)
	if err != nil {
		return nil, err
	}
	newPath, err = NormalizePath(newPath)
	if err != nil {
		return nil, err
	}
	if newPath == path {
		return nil, &domain.MalformedPathError{Path: newPath, Reason: "destination equals source"}
	}
	if models.IsDescendantOf(newPath, path) {
		return nil, &domain.MalformedPathError{Path: newPath, Reason: "destination is inside the moved subtree"}
	}

	node, err := c.repo.FindByPath(ctx, projectID, path)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("node %s not found", path)}
	}

	existing, err := c.repo.FindByPath(ctx, projectID, newPath)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &domain.DuplicatePathError{ProjectID: projectID, Path: newPath}
	}

	newName := models.BaseName(newPath)
	oldParent, err := models.ParentPath(path, node.Name)
	if err != nil {
		return nil, err
	}
	newParent, err := models.ParentPath(newPath, newName)
	if err != nil {
		return nil, err
	}

	if models.PathDepth(newPath) > config.MinPathDepth {
		if err := c.ensureParentExists(ctx, projectID, accountID, newParent); err != nil {
			return nil, err
		}
	}

	moving := []*models.Node{node}
	if node.IsTree() {
		descendants, err := c.repo.FindChildren(ctx, projectID, path, true, 0, 0)
		if err != nil {
			return nil, err
		}
		for i := range descendants {
			moving = append(moving, &descendants[i])
		}
	}

	// New-path keys need no invalidation: nothing can be cached under a
	// path that did not exist.
	batch := c.cache.Batch()
	for _, m := range moving {
		batch.Delete(
			cache.Keys.Content(projectID, m.Path),
			cache.Keys.Listing(projectID, m.Path),
		)
	}
	batch.Delete(
		cache.Keys.Listing(projectID, oldParent),
		cache.Keys.Listing(projectID, newParent),
	)
	if err := batch.Commit(ctx); err != nil {
		return nil, err
	}

	now := time.Now()
	for i, m := range moving {
		m.PreviousPath = m.Path
		m.Path = models.RewritePrefix(m.Path, path, newPath)
		m.Name = models.BaseName(m.Path)
		m.UpdatedAt = now
		if err := c.repo.Save(ctx, m); err != nil {
			// Not atomic across the subtree: report how far we got and
			// leave compensation to the caller.
			return nil, fmt.Errorf("move %s to %s: persisted %d of %d nodes: %w",
				path, newPath, i, len(moving), err)
		}
	}

	c.logger.Info("subtree moved",
		"from", path,
		"to", newPath,
		"project_id", projectID,
		"nodes", len(moving),
	)

	return node, nil
}

// List answers a subtree listing query, cache-first when permitted.
func (c *Coordinator) List(ctx context.Context, projectID, dir string, opts ListOptions) (*models.Listing, error) {
	dir, err := NormalizeDir(dir)
	if err != nil {
		return nil, err
	}
	return c.query.list(ctx, projectID, dir, opts)
}

// ensureParentExists walks upward from dir toward the root, stopping at the
// first existing ancestor, and creates every missing folder on the walk in
// one batch. Creation order does not matter - each missing ancestor is
// independent once it is known not to exist. Invalidation for the
// materialized folders commits here, before returning: the folders are
// already persisted, so a failure later in the caller's operation must not
// leave their parent listings stale.
func (c *Coordinator) ensureParentExists(ctx context.Context, projectID, accountID, dir string) error {
	var missing []*models.Node

	for p := dir; p != ""; {
		existing, err := c.repo.FindByPath(ctx, projectID, p)
		if err != nil {
			return err
		}
		if existing != nil {
			if !existing.IsTree() {
				return &domain.ParentMissingError{Path: p, Reason: "exists as a file"}
			}
			break
		}
		missing = append(missing, newNode(projectID, accountID, p, models.NodeTypeTree, ""))
		parent, err := models.ParentPath(p, "")
		if err != nil {
			return err
		}
		p = parent
	}

	if len(missing) == 0 {
		return nil
	}

	if err := c.repo.CreateMany(ctx, missing); err != nil {
		return err
	}

	batch := c.cache.Batch()
	for _, folder := range missing {
		parent, _ := models.ParentPath(folder.Path, folder.Name)
		batch.Delete(
			cache.Keys.Content(projectID, folder.Path),
			cache.Keys.Listing(projectID, parent),
		)
	}
	if err := batch.Commit(ctx); err != nil {
		return err
	}

	c.logger.Debug("materialized ancestors",
		"dir", dir,
		"project_id", projectID,
		"created", len(missing),
	)
	return nil
}

func (c *Coordinator) setSnapshot(ctx context.Context, key string, node *models.Node) error {
	raw, err := json.Marshal(node.Snapshot())
	if err != nil {
		return err
	}
	return c.cache.Set(ctx, key, raw, c.ttl)
}

func newNode(projectID, accountID, path string, typ models.NodeType, content string) *models.Node {
	now := time.Now()
	return &models.Node{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		AccountID: accountID,
		Name:      models.BaseName(path),
		Path:      path,
		Type:      typ,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func nodeFromSnapshot(projectID string, snap models.NodeSnapshot) *models.Node {
	return &models.Node{
		ProjectID: projectID,
		Name:      snap.Name,
		Path:      snap.Path,
		Type:      snap.Type,
		Content:   snap.Content,
	}
}
