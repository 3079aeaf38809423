package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"arbor/internal/domain"
	"arbor/internal/domain/models"
)

func newNode(projectID, path string, typ models.NodeType) *models.Node {
	now := time.Now()
	return &models.Node{
		ID:        projectID + ":" + path,
		ProjectID: projectID,
		AccountID: "acct-1",
		Name:      models.BaseName(path),
		Path:      path,
		Type:      typ,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func mustCreate(t *testing.T, r *MemoryNodeRepository, paths ...string) {
	t.Helper()
	for _, p := range paths {
		typ := models.NodeTypeBlob
		if !strings.Contains(models.BaseName(p), ".") {
			typ = models.NodeTypeTree
		}
		if err := r.Create(context.Background(), newNode("p1", p, typ)); err != nil {
			t.Fatalf("Create(%q): %v", p, err)
		}
	}
}

func TestCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	r := NewNodeRepository()

	if err := r.Create(ctx, newNode("p1", "a.md", models.NodeTypeBlob)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := r.Create(ctx, newNode("p1", "a.md", models.NodeTypeBlob))
	if !errors.Is(err, domain.ErrDuplicatePath) {
		t.Errorf("duplicate Create error = %v, want ErrDuplicatePath", err)
	}

	// Same path in another project is fine.
	if err := r.Create(ctx, newNode("p2", "a.md", models.NodeTypeBlob)); err != nil {
		t.Errorf("cross-project Create: %v", err)
	}
}

func TestFindByPathAbsent(t *testing.T) {
	r := NewNodeRepository()
	node, err := r.FindByPath(context.Background(), "p1", "nope")
	if err != nil {
		t.Fatalf("FindByPath: %v", err)
	}
	if node != nil {
		t.Errorf("FindByPath(absent) = %+v, want nil", node)
	}
}

func TestFindChildrenNonRecursive(t *testing.T) {
	ctx := context.Background()
	r := NewNodeRepository()
	mustCreate(t, r, "a", "a/b", "a/b/x.md", "a/b/y.md", "a/c.md", "other.md")

	children, err := r.FindChildren(ctx, "p1", "a", false, 0, 0)
	if err != nil {
		t.Fatalf("FindChildren: %v", err)
	}
	want := []string{"a/b", "a/c.md"}
	if len(children) != len(want) {
		t.Fatalf("got %d children, want %d", len(children), len(want))
	}
	for i, w := range want {
		if children[i].Path != w {
			t.Errorf("children[%d] = %q, want %q (insertion order)", i, children[i].Path, w)
		}
	}
}

func TestFindChildrenRecursivePagination(t *testing.T) {
	ctx := context.Background()
	r := NewNodeRepository()
	mustCreate(t, r, "a", "a/b", "a/b/x.md", "a/b/y.md", "a/c.md")

	all, err := r.FindChildren(ctx, "p1", "a", true, 0, 0)
	if err != nil {
		t.Fatalf("FindChildren: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("recursive listing = %d nodes, want 4", len(all))
	}

	page, err := r.FindChildren(ctx, "p1", "a", true, 1, 2)
	if err != nil {
		t.Fatalf("FindChildren paged: %v", err)
	}
	if len(page) != 2 || page[0].Path != "a/b/x.md" || page[1].Path != "a/b/y.md" {
		t.Errorf("page = %v, want [a/b/x.md a/b/y.md]", paths(page))
	}

	empty, err := r.FindChildren(ctx, "p1", "a", true, 10, 2)
	if err != nil {
		t.Fatalf("FindChildren past end: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("page past end = %v, want empty", paths(empty))
	}
}

func TestFindChildrenRootDir(t *testing.T) {
	ctx := context.Background()
	r := NewNodeRepository()
	mustCreate(t, r, "top.md", "a", "a/inner.md")

	rootOnly, err := r.FindChildren(ctx, "p1", "", false, 0, 0)
	if err != nil {
		t.Fatalf("FindChildren: %v", err)
	}
	if len(rootOnly) != 2 {
		t.Errorf("root listing = %v, want [top.md a]", paths(rootOnly))
	}

	everything, err := r.FindChildren(ctx, "p1", "", true, 0, 0)
	if err != nil {
		t.Fatalf("FindChildren recursive: %v", err)
	}
	if len(everything) != 3 {
		t.Errorf("recursive root listing = %v, want all 3", paths(everything))
	}
}

func TestSaveRewritesPath(t *testing.T) {
	ctx := context.Background()
	r := NewNodeRepository()
	node := newNode("p1", "a/old.md", models.NodeTypeBlob)
	if err := r.Create(ctx, node); err != nil {
		t.Fatalf("Create: %v", err)
	}

	node.PreviousPath = node.Path
	node.Path = "a/new.md"
	node.Name = "new.md"
	if err := r.Save(ctx, node); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if got, _ := r.FindByPath(ctx, "p1", "a/old.md"); got != nil {
		t.Error("old path still resolves after Save")
	}
	got, _ := r.FindByPath(ctx, "p1", "a/new.md")
	if got == nil || got.PreviousPath != "a/old.md" {
		t.Errorf("new path lookup = %+v, want previous_path a/old.md", got)
	}
}

func TestDeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	r := NewNodeRepository()
	mustCreate(t, r, "a", "a/b", "a/b/x.md", "ab.md")

	if err := r.DeleteByPrefix(ctx, "p1", "a"); err != nil {
		t.Fatalf("DeleteByPrefix: %v", err)
	}

	for _, p := range []string{"a", "a/b", "a/b/x.md"} {
		if got, _ := r.FindByPath(ctx, "p1", p); got != nil {
			t.Errorf("node %q survived subtree delete", p)
		}
	}
	// "ab.md" shares the character prefix but not the path prefix.
	if got, _ := r.FindByPath(ctx, "p1", "ab.md"); got == nil {
		t.Error("sibling ab.md was deleted by prefix match")
	}

	// Deleting again is a no-op, not an error.
	if err := r.DeleteByPrefix(ctx, "p1", "a"); err != nil {
		t.Errorf("repeat DeleteByPrefix: %v", err)
	}
}

func TestDeleteOneNotFound(t *testing.T) {
	r := NewNodeRepository()
	err := r.DeleteOne(context.Background(), "p1", "ghost.md")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("DeleteOne(absent) error = %v, want ErrNotFound", err)
	}
}

func paths(nodes []models.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Path
	}
	return out
}
