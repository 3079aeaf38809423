package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"arbor/internal/cache"
	"arbor/internal/config"
	"arbor/internal/domain/models"
	"arbor/internal/repository/postgres"
	"arbor/internal/service/tree"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// manifest is the YAML seed file format: a project ID plus a flat list of
// nodes to create. Folders are materialized implicitly from file paths, so
// listing them is only needed for empty folders.
type manifest struct {
	ProjectID string `yaml:"project_id"`
	AccountID string `yaml:"account_id"`
	Nodes     []struct {
		Path    string `yaml:"path"`
		Type    string `yaml:"type"`
		Content string `yaml:"content"`
	} `yaml:"nodes"`
}

func main() {
	// Parse command-line flags
	manifestPath := flag.String("manifest", "seed.yaml", "Path to the YAML seed manifest")
	dropTables := flag.Bool("drop-tables", false, "Drop the nodes table before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed nodes")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("BLOCKED: Cannot run --drop-tables in production environment")
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Create database connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Drop tables if requested
	if *dropTables {
		log.Println("Dropping nodes table...")
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+tables.Nodes); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
	}

	// Run schema to ensure tables exist
	log.Printf("Ensuring database schema is up to date (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	if err := runSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}

	if *schemaOnly {
		log.Println("Schema setup complete (schema-only mode)")
		return
	}

	// Read the manifest
	raw, err := os.ReadFile(*manifestPath)
	if err != nil {
		log.Fatalf("Failed to read manifest %s: %v", *manifestPath, err)
	}
	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		log.Fatalf("Failed to parse manifest %s: %v", *manifestPath, err)
	}
	if m.ProjectID == "" {
		log.Fatalf("Manifest %s is missing project_id", *manifestPath)
	}

	// Seed through the coordinator so invalidation hits the same cache the
	// server reads. Without Redis the entries just expire by TTL.
	var treeCache cache.Cache = cache.NewMemoryCache()
	if redisCache, err := cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPasswd,
	}, logger); err == nil {
		defer redisCache.Close()
		treeCache = redisCache
	} else {
		log.Printf("Warning: Redis unavailable, skipping cache invalidation: %v", err)
	}

	nodeRepo := postgres.NewNodeRepository(&postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	})
	coordinator := tree.NewCoordinator(nodeRepo, treeCache, cfg.CacheTTL, logger)

	log.Printf("Seeding %d nodes into project %s", len(m.Nodes), m.ProjectID)
	created := 0
	for _, n := range m.Nodes {
		nodeType := models.NodeType(n.Type)
		if nodeType == "" {
			nodeType = models.NodeTypeBlob
		}
		node, err := coordinator.CreateNode(ctx, &tree.CreateNodeRequest{
			ProjectID: m.ProjectID,
			AccountID: m.AccountID,
			Path:      n.Path,
			Type:      nodeType,
			Content:   n.Content,
		})
		if err != nil {
			log.Printf("Failed to create node '%s': %v", n.Path, err)
			continue
		}
		created++
		log.Printf("Created %s %s (ID: %s)", node.Type, node.Path, node.ID)
	}

	log.Printf("Seeding complete: %d/%d nodes created", created, len(m.Nodes))
}

// runSchema creates the nodes table and its indexes if they don't exist
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, tablePrefix string) error {
	createNodes := `
		CREATE TABLE IF NOT EXISTS ` + tables.Nodes + ` (
			id UUID PRIMARY KEY,
			project_id TEXT NOT NULL,
			account_id TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			path TEXT NOT NULL,
			node_type TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			previous_path TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(project_id, path)
		)
	`
	if _, err := pool.Exec(ctx, createNodes); err != nil {
		return err
	}

	// Prefix queries and insertion-ordered listings both need these
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `nodes_project_path ON ` + tables.Nodes + ` (project_id, path text_pattern_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `nodes_project_created ON ` + tables.Nodes + ` (project_id, created_at, id)`,
	}
	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return err
		}
	}

	return nil
}
