package tree

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"arbor/internal/cache"
	"arbor/internal/config"
	"arbor/internal/domain"
	"arbor/internal/domain/models"
	"arbor/internal/domain/repositories"
)

// ListOptions controls a subtree listing query. Skip and Limit apply only
// to recursive listings; non-recursive listings are always complete.
type ListOptions struct {
	Recursive bool
	// FromCache permits serving the listing entry when the query shape is
	// cacheable. Callers that need store certainty pass false.
	FromCache bool
	Skip      int
	Limit     int
}

// subtreeQuery builds prefix-match listing queries and decides when a
// result is cacheable. Only a full, non-paginated, non-recursive listing
// can live in the cache: an entry cannot represent a partial result.
type subtreeQuery struct {
	repo   repositories.NodeRepository
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

func (q *subtreeQuery) list(ctx context.Context, projectID, dir string, opts ListOptions) (*models.Listing, error) {
	cacheable := !opts.Recursive && opts.Skip == 0 && opts.Limit == 0
	listingKey := cache.Keys.Listing(projectID, dir)

	if cacheable && opts.FromCache {
		if raw, _ := q.cache.Get(ctx, listingKey); raw != nil {
			var snaps []models.NodeSnapshot
			if err := json.Unmarshal(raw, &snaps); err == nil {
				return &models.Listing{
					ProjectID: projectID,
					Dir:       dir,
					Nodes:     snaps,
					FromCache: true,
				}, nil
			}
			q.logger.Warn("corrupt listing entry, reading store", "key", listingKey)
		}
	}

	limit := opts.Limit
	if opts.Recursive && limit <= 0 {
		limit = config.DefaultRecursiveLimit
	}

	children, err := q.repo.FindChildren(ctx, projectID, dir, opts.Recursive, opts.Skip, limit)
	if err != nil {
		return nil, err
	}

	// An empty directory is a valid cacheable state, but only if the
	// directory itself exists: caching an empty listing for a missing
	// directory would mask nodes created inside it later.
	if len(children) == 0 && dir != "" {
		folder, err := q.repo.FindByPath(ctx, projectID, dir)
		if err != nil {
			return nil, err
		}
		if folder == nil || !folder.IsTree() {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("directory %s not found", dir)}
		}
	}

	snaps := make([]models.NodeSnapshot, len(children))
	for i := range children {
		snaps[i] = children[i].Snapshot()
	}

	if cacheable {
		if raw, err := json.Marshal(snaps); err == nil {
			// Best-effort population; the result is already in hand.
			if err := q.cache.Set(ctx, listingKey, raw, q.ttl); err != nil {
				q.logger.Warn("failed to populate listing entry", "dir", dir, "error", err)
			}
		}
	}

	return &models.Listing{
		ProjectID: projectID,
		Dir:       dir,
		Nodes:     snaps,
		Recursive: opts.Recursive,
	}, nil
}
