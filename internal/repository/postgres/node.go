package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"arbor/internal/config"
	"arbor/internal/domain"
	"arbor/internal/domain/models"
	"arbor/internal/domain/repositories"
)

// PostgresNodeRepository implements the NodeRepository interface
type PostgresNodeRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewNodeRepository creates a new node repository
func NewNodeRepository(cfg *RepositoryConfig) repositories.NodeRepository {
	return &PostgresNodeRepository{
		pool:   cfg.Pool,
		tables: cfg.Tables,
		logger: cfg.Logger,
	}
}

const nodeColumns = "id, project_id, account_id, name, path, node_type, content, previous_path, created_at, updated_at"

// FindByPath retrieves a node by its project-scoped path
func (r *PostgresNodeRepository) FindByPath(ctx context.Context, projectID, path string) (*models.Node, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE project_id = $1 AND path = $2
	`, nodeColumns, r.tables.Nodes)

	node, err := r.scanNode(r.pool.QueryRow(ctx, query, projectID, path))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, nil // Absent, not an error
		}
		return nil, wrapStoreErr("find node by path", err)
	}

	return node, nil
}

// FindChildren returns children of dir in insertion order. Recursive mode
// matches every descendant and honors skip/limit (limit <= 0 means no
// limit); non-recursive mode matches exactly one additional segment and is
// returned in full.
func (r *PostgresNodeRepository) FindChildren(ctx context.Context, projectID, dir string, recursive bool, skip, limit int) ([]models.Node, error) {
	var where string
	args := []interface{}{projectID}

	if dir == "" {
		// Project root: every path is a descendant.
		if recursive {
			where = "project_id = $1"
		} else {
			where = "project_id = $1 AND path NOT LIKE '%/%'"
		}
	} else {
		prefix := likeEscape(dir) + "/%"
		args = append(args, prefix)
		if recursive {
			where = `project_id = $1 AND path LIKE $2 ESCAPE '\'`
		} else {
			args = append(args, likeEscape(dir)+"/%/%")
			where = `project_id = $1 AND path LIKE $2 ESCAPE '\' AND path NOT LIKE $3 ESCAPE '\'`
		}
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s
		ORDER BY created_at ASC, id ASC
		%s
	`, nodeColumns, r.tables.Nodes, where, pagingClause(recursive, skip, limit))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapStoreErr("list children", err)
	}
	defer rows.Close()

	var nodes []models.Node
	for rows.Next() {
		node, err := r.scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, *node)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("iterate children", err)
	}

	return nodes, nil
}

// Create inserts a new node
func (r *PostgresNodeRepository) Create(ctx context.Context, node *models.Node) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, r.tables.Nodes, nodeColumns)

	_, err := r.pool.Exec(ctx, query, r.insertArgs(node)...)
	if err != nil {
		if isPgDuplicateError(err) {
			return &domain.DuplicatePathError{ProjectID: node.ProjectID, Path: node.Path}
		}
		return wrapStoreErr("create node", err)
	}

	return nil
}

// CreateMany inserts a batch of nodes in a single round trip
func (r *PostgresNodeRepository) CreateMany(ctx context.Context, nodes []*models.Node) error {
	if len(nodes) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, r.tables.Nodes, nodeColumns)

	batch := &pgx.Batch{}
	for _, node := range nodes {
		batch.Queue(query, r.insertArgs(node)...)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for _, node := range nodes {
		if _, err := results.Exec(); err != nil {
			if isPgDuplicateError(err) {
				return &domain.DuplicatePathError{ProjectID: node.ProjectID, Path: node.Path}
			}
			return wrapStoreErr("create nodes", err)
		}
	}

	r.logger.Debug("inserted node batch", "count", len(nodes), "project_id", nodes[0].ProjectID)
	return nil
}

// Save persists an in-place mutation (content update or move rewrite)
func (r *PostgresNodeRepository) Save(ctx context.Context, node *models.Node) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, path = $2, content = $3, previous_path = $4, updated_at = $5
		WHERE id = $6 AND project_id = $7
	`, r.tables.Nodes)

	result, err := r.pool.Exec(ctx, query,
		node.Name,
		node.Path,
		node.Content,
		node.PreviousPath,
		node.UpdatedAt,
		node.ID,
		node.ProjectID,
	)

	if err != nil {
		if isPgDuplicateError(err) {
			return &domain.DuplicatePathError{ProjectID: node.ProjectID, Path: node.Path}
		}
		return wrapStoreErr("save node", err)
	}

	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("node %s not found", node.Path)}
	}

	return nil
}

// DeleteOne hard-deletes a single node by path
func (r *PostgresNodeRepository) DeleteOne(ctx context.Context, projectID, path string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE project_id = $1 AND path = $2
	`, r.tables.Nodes)

	result, err := r.pool.Exec(ctx, query, projectID, path)
	if err != nil {
		return wrapStoreErr("delete node", err)
	}

	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("node %s not found", path)}
	}

	return nil
}

// DeleteByPrefix hard-deletes dir and every descendant. Idempotent: deleting
// an already-deleted subtree affects zero rows and is not an error.
func (r *PostgresNodeRepository) DeleteByPrefix(ctx context.Context, projectID, dir string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE project_id = $1 AND (path = $2 OR path LIKE $3 ESCAPE '\')
	`, r.tables.Nodes)

	result, err := r.pool.Exec(ctx, query, projectID, dir, likeEscape(dir)+"/%")
	if err != nil {
		return wrapStoreErr("delete subtree", err)
	}

	r.logger.Debug("deleted subtree rows", "dir", dir, "project_id", projectID, "rows", result.RowsAffected())
	return nil
}

func (r *PostgresNodeRepository) insertArgs(node *models.Node) []interface{} {
	return []interface{}{
		node.ID,
		node.ProjectID,
		node.AccountID,
		node.Name,
		node.Path,
		node.Type,
		node.Content,
		node.PreviousPath,
		node.CreatedAt,
		node.UpdatedAt,
	}
}

func (r *PostgresNodeRepository) scanNode(row pgx.Row) (*models.Node, error) {
	var node models.Node
	err := row.Scan(
		&node.ID,
		&node.ProjectID,
		&node.AccountID,
		&node.Name,
		&node.Path,
		&node.Type,
		&node.Content,
		&node.PreviousPath,
		&node.CreatedAt,
		&node.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// pagingClause renders the OFFSET/LIMIT tail of a children query.
// Recursive queries honor skip and limit, with limit <= 0 meaning
// unbounded - the subtree gathers behind delete and move need every
// descendant, not a page. Non-recursive listings back the cacheable path
// and must be complete, so pagination never applies and the cap only
// guards against a pathological directory.
func pagingClause(recursive bool, skip, limit int) string {
	if !recursive {
		return fmt.Sprintf("LIMIT %d", config.MaxListingLimit)
	}
	switch {
	case limit > 0:
		return fmt.Sprintf("OFFSET %d LIMIT %d", skip, limit)
	case skip > 0:
		return fmt.Sprintf("OFFSET %d", skip)
	default:
		return ""
	}
}

// likeEscape escapes LIKE metacharacters so a path is matched literally
// inside prefix patterns.
func likeEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func wrapStoreErr(op string, err error) error {
	if isPgConnectionError(err) {
		return &domain.StoreUnavailableError{Op: op, Cause: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
