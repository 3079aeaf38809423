// Package memory provides an in-process NodeRepository with the same
// semantics as the Postgres implementation: insertion-ordered listings,
// duplicate detection on (project_id, path), and prefix-scoped deletes.
// It backs unit tests and the STORE=memory development mode.
package memory

import (
	"context"
	"fmt"
	"sync"

	"arbor/internal/domain"
	"arbor/internal/domain/models"
	"arbor/internal/domain/repositories"
)

// MemoryNodeRepository implements the NodeRepository interface in memory.
type MemoryNodeRepository struct {
	mu sync.RWMutex
	// nodes preserves insertion order; index maps (project, path) into it.
	nodes []*models.Node
	index map[string]int
}

// NewNodeRepository creates an empty in-memory node repository.
func NewNodeRepository() *MemoryNodeRepository {
	return &MemoryNodeRepository{index: make(map[string]int)}
}

func storeKey(projectID, path string) string {
	return projectID + "\x00" + path
}

// FindByPath retrieves a node by its project-scoped path.
func (r *MemoryNodeRepository) FindByPath(ctx context.Context, projectID, path string) (*models.Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[storeKey(projectID, path)]
	if !ok {
		return nil, nil
	}
	clone := *r.nodes[i]
	return &clone, nil
}

// FindChildren returns children of dir in insertion order.
func (r *MemoryNodeRepository) FindChildren(ctx context.Context, projectID, dir string, recursive bool, skip, limit int) ([]models.Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []models.Node
	for _, node := range r.nodes {
		if node == nil || node.ProjectID != projectID {
			continue
		}
		if !models.IsDescendantOf(node.Path, dir) {
			continue
		}
		if !recursive {
			parent, err := models.ParentPath(node.Path, node.Name)
			if err != nil || parent != dir {
				continue
			}
		}
		matched = append(matched, *node)
	}

	if !recursive {
		// Non-recursive listings are always complete.
		return matched, nil
	}

	if skip >= len(matched) {
		return nil, nil
	}
	matched = matched[skip:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

// Create inserts a new node.
func (r *MemoryNodeRepository) Create(ctx context.Context, node *models.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(node)
}

// CreateMany inserts a batch of nodes. Nodes inserted before the first
// failure stay inserted, matching the per-statement batch of the Postgres
// implementation.
func (r *MemoryNodeRepository) CreateMany(ctx context.Context, nodes []*models.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, node := range nodes {
		if err := r.insertLocked(node); err != nil {
			return err
		}
	}
	return nil
}

// Save persists an in-place mutation, keyed by node ID so a move (path
// rewrite) finds its row.
func (r *MemoryNodeRepository) Save(ctx context.Context, node *models.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.nodes {
		if existing == nil || existing.ID != node.ID || existing.ProjectID != node.ProjectID {
			continue
		}
		if existing.Path != node.Path {
			if _, taken := r.index[storeKey(node.ProjectID, node.Path)]; taken {
				return &domain.DuplicatePathError{ProjectID: node.ProjectID, Path: node.Path}
			}
			delete(r.index, storeKey(existing.ProjectID, existing.Path))
			r.index[storeKey(node.ProjectID, node.Path)] = i
		}
		clone := *node
		r.nodes[i] = &clone
		return nil
	}

	return &domain.NotFoundError{Message: fmt.Sprintf("node %s not found", node.Path)}
}

// DeleteOne hard-deletes a single node by path.
func (r *MemoryNodeRepository) DeleteOne(ctx context.Context, projectID, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := storeKey(projectID, path)
	i, ok := r.index[key]
	if !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("node %s not found", path)}
	}
	r.nodes[i] = nil // keep slice indices stable
	delete(r.index, key)
	return nil
}

// DeleteByPrefix hard-deletes dir and every descendant. Idempotent.
func (r *MemoryNodeRepository) DeleteByPrefix(ctx context.Context, projectID, dir string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, node := range r.nodes {
		if node == nil || node.ProjectID != projectID {
			continue
		}
		if node.Path == dir || models.IsDescendantOf(node.Path, dir) {
			delete(r.index, storeKey(projectID, node.Path))
			r.nodes[i] = nil
		}
	}
	return nil
}

func (r *MemoryNodeRepository) insertLocked(node *models.Node) error {
	key := storeKey(node.ProjectID, node.Path)
	if _, exists := r.index[key]; exists {
		return &domain.DuplicatePathError{ProjectID: node.ProjectID, Path: node.Path}
	}
	clone := *node
	r.index[key] = len(r.nodes)
	r.nodes = append(r.nodes, &clone)
	return nil
}

var _ repositories.NodeRepository = (*MemoryNodeRepository)(nil)
