package cache

import "testing"

func TestKeysInjective(t *testing.T) {
	pairs := []struct {
		projectID string
		path      string
	}{
		{"p1", "a/b"},
		{"p1", "a/c"},
		{"p2", "a/b"},
		{"p1", ""},
		{"p1", "a"},
		// Separator characters in either component must not let the key
		// boundary shift between project and path.
		{"a:b", "c"},
		{"a", "b:c"},
		{"a:b:c", ""},
		{"", "a:b:c"},
	}

	seen := make(map[string]string)
	for _, p := range pairs {
		for _, key := range []string{
			Keys.Content(p.projectID, p.path),
			Keys.Listing(p.projectID, p.path),
		} {
			if prev, ok := seen[key]; ok {
				t.Errorf("key %q collides (previous owner %s)", key, prev)
			}
			seen[key] = p.projectID + "/" + p.path
		}
	}
}

func TestContentAndListingDistinct(t *testing.T) {
	// Same (project, path) must never share a key across namespaces.
	if Keys.Content("p1", "a/b") == Keys.Listing("p1", "a/b") {
		t.Error("content and listing keys collide for identical path")
	}
}
