package models

import (
	"strings"

	"arbor/internal/domain"
)

// path.go - Path decomposition helpers shared by every layer.
//
// Paths are slash-separated, never begin or end with "/", and never contain
// empty segments. Validation of raw client input happens at the service
// boundary; these helpers assume already-normalized paths.

// BaseName returns the final segment of path.
func BaseName(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// ParentPath strips the trailing "/name" from path. Name may be empty, in
// which case the final segment is used. Paths at or below MinPathDepth
// (single segment) have no parent and return "".
//
// Examples:
//   - ParentPath("a/b/c.md", "") → "a/b"
//   - ParentPath("readme.md", "") → ""
func ParentPath(path, name string) (string, error) {
	if path == "" {
		return "", &domain.MalformedPathError{Path: path, Reason: "empty path"}
	}
	if name == "" {
		name = BaseName(path)
	}
	if path == name {
		// Root-level node: no required parent.
		return "", nil
	}
	if !strings.HasSuffix(path, "/"+name) {
		return "", &domain.MalformedPathError{Path: path, Reason: "name " + name + " is not the final segment"}
	}
	return strings.TrimSuffix(path, "/"+name), nil
}

// PathDepth returns the number of segments in path. The empty path (the
// project root itself) has depth zero.
func PathDepth(path string) int {
	if path == "" {
		return 0
	}
	return strings.Count(path, "/") + 1
}

// AncestorPaths returns every proper ancestor directory of path, nearest
// first. "a/b/c/d.md" → ["a/b/c", "a/b", "a"].
func AncestorPaths(path string) []string {
	var ancestors []string
	for {
		i := strings.LastIndex(path, "/")
		if i < 0 {
			return ancestors
		}
		path = path[:i]
		ancestors = append(ancestors, path)
	}
}

// RewritePrefix replaces the leading oldPrefix of path with newPrefix.
// Used during subtree moves: every descendant's path keeps its suffix
// relative to the moved folder.
func RewritePrefix(path, oldPrefix, newPrefix string) string {
	if path == oldPrefix {
		return newPrefix
	}
	return newPrefix + strings.TrimPrefix(path, oldPrefix)
}

// IsDescendantOf reports whether path sits strictly below dir. The empty
// dir is the project root, which every path is below.
func IsDescendantOf(path, dir string) bool {
	if dir == "" {
		return path != ""
	}
	return strings.HasPrefix(path, dir+"/")
}
