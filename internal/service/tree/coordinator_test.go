package tree

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"arbor/internal/cache"
	"arbor/internal/domain"
	"arbor/internal/domain/models"
	"arbor/internal/domain/repositories"
	"arbor/internal/repository/memory"
)

const (
	testProject = "p1"
	testAccount = "acct-1"
)

// countingRepo wraps the memory repository and counts store reads, so tests
// can observe whether a listing was served from cache.
type countingRepo struct {
	repositories.NodeRepository
	finds    int
	children int
}

func (r *countingRepo) FindByPath(ctx context.Context, projectID, path string) (*models.Node, error) {
	r.finds++
	return r.NodeRepository.FindByPath(ctx, projectID, path)
}

func (r *countingRepo) FindChildren(ctx context.Context, projectID, dir string, recursive bool, skip, limit int) ([]models.Node, error) {
	r.children++
	return r.NodeRepository.FindChildren(ctx, projectID, dir, recursive, skip, limit)
}

// failingCache makes every batch commit fail, simulating an unreachable
// cache backend on the invalidation path.
type failingCache struct {
	cache.Cache
}

type failingBatch struct {
	cache.Batch
}

func (c *failingCache) Batch() cache.Batch { return &failingBatch{c.Cache.Batch()} }

func (b *failingBatch) Commit(ctx context.Context) error {
	return &domain.CacheUnavailableError{Op: "batch commit", Cause: errors.New("connection refused")}
}

// flakyCreateRepo lets a test make single-node inserts fail while batch
// inserts (ancestor materialization) keep working.
type flakyCreateRepo struct {
	repositories.NodeRepository
	failCreate bool
}

func (r *flakyCreateRepo) Create(ctx context.Context, node *models.Node) error {
	if r.failCreate {
		return &domain.StoreUnavailableError{Op: "create node", Cause: errors.New("connection reset")}
	}
	return r.NodeRepository.Create(ctx, node)
}

func newTestCoordinator(t *testing.T) (*Coordinator, *countingRepo, *cache.MemoryCache) {
	t.Helper()
	repo := &countingRepo{NodeRepository: memory.NewNodeRepository()}
	mem := cache.NewMemoryCache()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCoordinator(repo, mem, time.Minute, logger), repo, mem
}

func create(t *testing.T, c *Coordinator, path string, typ models.NodeType, content string) *models.Node {
	t.Helper()
	node, err := c.CreateNode(context.Background(), &CreateNodeRequest{
		ProjectID: testProject,
		AccountID: testAccount,
		Path:      path,
		Type:      typ,
		Content:   content,
	})
	if err != nil {
		t.Fatalf("CreateNode(%q): %v", path, err)
	}
	return node
}

func TestCreateThenGetServesContent(t *testing.T) {
	ctx := context.Background()
	c, repo, _ := newTestCoordinator(t)

	create(t, c, "docs/intro.md", models.NodeTypeBlob, "# Intro")

	got, err := c.GetNode(ctx, testProject, "docs/intro.md", true)
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if got == nil || got.Content != "# Intro" {
		t.Fatalf("GetNode = %+v, want content %q", got, "# Intro")
	}

	// The read populated the content entry; a second read must not hit
	// the store.
	before := repo.finds
	got, err = c.GetNode(ctx, testProject, "docs/intro.md", true)
	if err != nil {
		t.Fatalf("GetNode (cached): %v", err)
	}
	if got.Content != "# Intro" {
		t.Errorf("cached GetNode content = %q, want %q", got.Content, "# Intro")
	}
	if repo.finds != before {
		t.Errorf("cached GetNode hit the store (%d extra reads)", repo.finds-before)
	}
}

func TestGetNodeBypassCache(t *testing.T) {
	ctx := context.Background()
	c, repo, _ := newTestCoordinator(t)
	create(t, c, "a.md", models.NodeTypeBlob, "one")

	// Warm the cache, then require store certainty.
	if _, err := c.GetNode(ctx, testProject, "a.md", true); err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	before := repo.finds
	if _, err := c.GetNode(ctx, testProject, "a.md", false); err != nil {
		t.Fatalf("GetNode(fromCache=false): %v", err)
	}
	if repo.finds != before+1 {
		t.Errorf("fromCache=false did not read the store")
	}
}

func TestGetNodeAbsent(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	got, err := c.GetNode(context.Background(), testProject, "ghost.md", true)
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if got != nil {
		t.Errorf("GetNode(absent) = %+v, want nil", got)
	}
}

func TestCreateDuplicatePropagates(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	create(t, c, "dup.md", models.NodeTypeBlob, "x")

	_, err := c.CreateNode(context.Background(), &CreateNodeRequest{
		ProjectID: testProject,
		AccountID: testAccount,
		Path:      "dup.md",
		Type:      models.NodeTypeBlob,
	})
	if !errors.Is(err, domain.ErrDuplicatePath) {
		t.Errorf("duplicate create error = %v, want ErrDuplicatePath", err)
	}
}

func TestEnsureParentExistsMaterializesExactly(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCoordinator(t)

	create(t, c, "x", models.NodeTypeTree, "")
	create(t, c, "x/y/z/file.md", models.NodeTypeBlob, "deep")

	// Only the two missing intermediates were created.
	for _, p := range []string{"x/y", "x/y/z"} {
		folder, err := c.GetNode(ctx, testProject, p, false)
		if err != nil {
			t.Fatalf("GetNode(%q): %v", p, err)
		}
		if folder == nil || !folder.IsTree() {
			t.Errorf("ancestor %q = %+v, want materialized folder", p, folder)
		}
	}

	// A second deep create under the same chain materializes nothing new
	// and does not trip duplicate detection.
	if _, err := c.CreateNode(ctx, &CreateNodeRequest{
		ProjectID: testProject,
		AccountID: testAccount,
		Path:      "x/y/z/other.md",
		Type:      models.NodeTypeBlob,
	}); err != nil {
		t.Fatalf("second deep create: %v", err)
	}
}

func TestCreateUnderFileFails(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	create(t, c, "notes.md", models.NodeTypeBlob, "text")

	_, err := c.CreateNode(context.Background(), &CreateNodeRequest{
		ProjectID: testProject,
		AccountID: testAccount,
		Path:      "notes.md/inner.md",
		Type:      models.NodeTypeBlob,
	})
	if !errors.Is(err, domain.ErrParentMissing) {
		t.Errorf("create under file error = %v, want ErrParentMissing", err)
	}
}

func TestUpdateInvalidatesContentOnly(t *testing.T) {
	ctx := context.Background()
	c, _, mem := newTestCoordinator(t)

	create(t, c, "a/b.md", models.NodeTypeBlob, "v1")
	// Warm both entries.
	if _, err := c.GetNode(ctx, testProject, "a/b.md", true); err != nil {
		t.Fatal(err)
	}
	if _, err := c.List(ctx, testProject, "a", ListOptions{FromCache: true}); err != nil {
		t.Fatal(err)
	}

	if _, err := c.UpdateNode(ctx, testProject, "a/b.md", &UpdateNodeRequest{Content: "v2"}); err != nil {
		t.Fatalf("UpdateNode: %v", err)
	}

	if mem.Has(cache.Keys.Content(testProject, "a/b.md")) {
		t.Error("content entry survived update")
	}
	// An update does not change the child set, so the listing stays.
	if !mem.Has(cache.Keys.Listing(testProject, "a")) {
		t.Error("listing entry was invalidated by a content update")
	}

	got, err := c.GetNode(ctx, testProject, "a/b.md", true)
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "v2" {
		t.Errorf("content after update = %q, want %q", got.Content, "v2")
	}
}

func TestDeleteNodeClearsCache(t *testing.T) {
	ctx := context.Background()
	c, _, mem := newTestCoordinator(t)

	create(t, c, "a/b.md", models.NodeTypeBlob, "x")
	if _, err := c.GetNode(ctx, testProject, "a/b.md", true); err != nil {
		t.Fatal(err)
	}
	if _, err := c.List(ctx, testProject, "a", ListOptions{FromCache: true}); err != nil {
		t.Fatal(err)
	}

	if err := c.DeleteNode(ctx, testProject, "a/b.md"); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}

	got, err := c.GetNode(ctx, testProject, "a/b.md", true)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("deleted node still resolves: %+v", got)
	}
	if mem.Has(cache.Keys.Content(testProject, "a/b.md")) {
		t.Error("content entry survived delete")
	}
	if mem.Has(cache.Keys.Listing(testProject, "a")) {
		t.Error("parent listing entry survived delete")
	}
}

func TestDeleteSubtreeClearsEverything(t *testing.T) {
	ctx := context.Background()
	c, _, mem := newTestCoordinator(t)

	create(t, c, "top", models.NodeTypeTree, "")
	create(t, c, "top/sub", models.NodeTypeTree, "")
	create(t, c, "top/a.md", models.NodeTypeBlob, "a")
	create(t, c, "top/sub/b.md", models.NodeTypeBlob, "b")

	// Warm content and listing entries across the subtree.
	for _, p := range []string{"top", "top/sub", "top/a.md", "top/sub/b.md"} {
		if _, err := c.GetNode(ctx, testProject, p, true); err != nil {
			t.Fatal(err)
		}
	}
	for _, d := range []string{"", "top", "top/sub"} {
		if _, err := c.List(ctx, testProject, d, ListOptions{FromCache: true}); err != nil {
			t.Fatal(err)
		}
	}

	if err := c.DeleteSubtree(ctx, testProject, "top"); err != nil {
		t.Fatalf("DeleteSubtree: %v", err)
	}

	for _, p := range []string{"top", "top/sub", "top/a.md", "top/sub/b.md"} {
		if got, _ := c.GetNode(ctx, testProject, p, false); got != nil {
			t.Errorf("node %q survived subtree delete", p)
		}
		if mem.Has(cache.Keys.Content(testProject, p)) {
			t.Errorf("content entry for %q survived subtree delete", p)
		}
	}
	for _, d := range []string{"top", "top/sub", ""} {
		if mem.Has(cache.Keys.Listing(testProject, d)) {
			t.Errorf("listing entry for %q survived subtree delete", d)
		}
	}
}

func TestMoveSubtreePreservesChildren(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCoordinator(t)

	create(t, c, "a/b", models.NodeTypeTree, "")
	create(t, c, "a/b/x.md", models.NodeTypeBlob, "x")
	create(t, c, "a/b/y.md", models.NodeTypeBlob, "y")

	before, err := c.List(ctx, testProject, "a/b", ListOptions{})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.MoveSubtree(ctx, testProject, testAccount, "a/b", "a/c"); err != nil {
		t.Fatalf("MoveSubtree: %v", err)
	}

	after, err := c.List(ctx, testProject, "a/c", ListOptions{})
	if err != nil {
		t.Fatalf("List after move: %v", err)
	}
	if len(after.Nodes) != len(before.Nodes) {
		t.Fatalf("moved listing has %d nodes, want %d", len(after.Nodes), len(before.Nodes))
	}
	for i := range before.Nodes {
		if after.Nodes[i].Name != before.Nodes[i].Name {
			t.Errorf("child %d = %q, want %q", i, after.Nodes[i].Name, before.Nodes[i].Name)
		}
	}

	if got, _ := c.GetNode(ctx, testProject, "a/b", false); got != nil {
		t.Errorf("old path still resolves after move: %+v", got)
	}
	moved, _ := c.GetNode(ctx, testProject, "a/c/x.md", false)
	if moved == nil || moved.PreviousPath != "a/b/x.md" {
		t.Errorf("descendant = %+v, want previous_path a/b/x.md", moved)
	}
}

func TestMoveOntoExistingFileFails(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCoordinator(t)

	create(t, c, "a/b", models.NodeTypeTree, "")
	create(t, c, "a/b/x.md", models.NodeTypeBlob, "x")
	create(t, c, "a/c", models.NodeTypeBlob, "occupied")

	_, err := c.MoveSubtree(ctx, testProject, testAccount, "a/b", "a/c")
	if !errors.Is(err, domain.ErrDuplicatePath) {
		t.Fatalf("move onto file error = %v, want ErrDuplicatePath", err)
	}

	// Everything stays where it was.
	for _, p := range []string{"a/b", "a/b/x.md", "a/c"} {
		if got, _ := c.GetNode(ctx, testProject, p, false); got == nil {
			t.Errorf("node %q vanished after failed move", p)
		}
	}
}

func TestMoveIntoOwnSubtreeFails(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	create(t, c, "a/b", models.NodeTypeTree, "")

	_, err := c.MoveSubtree(context.Background(), testProject, testAccount, "a/b", "a/b/inner")
	if !errors.Is(err, domain.ErrMalformedPath) {
		t.Errorf("move into own subtree error = %v, want ErrMalformedPath", err)
	}
}

func TestMoveMaterializesDestinationParent(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCoordinator(t)

	create(t, c, "src/file.md", models.NodeTypeBlob, "x")

	if _, err := c.MoveSubtree(ctx, testProject, testAccount, "src/file.md", "dst/deep/file.md"); err != nil {
		t.Fatalf("MoveSubtree: %v", err)
	}

	folder, _ := c.GetNode(ctx, testProject, "dst/deep", false)
	if folder == nil || !folder.IsTree() {
		t.Errorf("destination parent = %+v, want materialized folder", folder)
	}
}

func TestAncestorInvalidationSurvivesCreateFailure(t *testing.T) {
	ctx := context.Background()
	repo := &flakyCreateRepo{NodeRepository: memory.NewNodeRepository()}
	mem := cache.NewMemoryCache()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewCoordinator(repo, mem, time.Minute, logger)

	if _, err := c.CreateNode(ctx, &CreateNodeRequest{
		ProjectID: testProject,
		AccountID: testAccount,
		Path:      "a",
		Type:      models.NodeTypeTree,
	}); err != nil {
		t.Fatalf("CreateNode(a): %v", err)
	}
	// Warm the listing of "a" while it is still empty.
	if _, err := c.List(ctx, testProject, "a", ListOptions{FromCache: true}); err != nil {
		t.Fatal(err)
	}

	// The blob insert fails after the ancestor a/x has been persisted.
	repo.failCreate = true
	if _, err := c.CreateNode(ctx, &CreateNodeRequest{
		ProjectID: testProject,
		AccountID: testAccount,
		Path:      "a/x/file.md",
		Type:      models.NodeTypeBlob,
	}); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("create with failing insert = %v, want ErrStoreUnavailable", err)
	}

	// The materialized folder is in the store, so the cached listing of
	// "a" must have been invalidated - a stale empty entry would hide it.
	listing, err := c.List(ctx, testProject, "a", ListOptions{FromCache: true})
	if err != nil {
		t.Fatalf("List after failed create: %v", err)
	}
	if len(listing.Nodes) != 1 || listing.Nodes[0].Name != "x" {
		t.Errorf("listing of a = %+v, want the materialized folder x", listing.Nodes)
	}
}

func TestMutationFailsWhenInvalidationFails(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{NodeRepository: memory.NewNodeRepository()}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	broken := &failingCache{Cache: cache.NewMemoryCache()}
	c := NewCoordinator(repo, broken, time.Minute, logger)

	_, err := c.CreateNode(ctx, &CreateNodeRequest{
		ProjectID: testProject,
		AccountID: testAccount,
		Path:      "a.md",
		Type:      models.NodeTypeBlob,
	})
	if !errors.Is(err, domain.ErrCacheUnavailable) {
		t.Errorf("create with broken cache = %v, want ErrCacheUnavailable", err)
	}
}
