package cache

import "fmt"

// Cache key storage format. Project IDs and paths are both unconstrained
// strings, so the project id is length-prefixed: a key decodes
// unambiguously (read the length, take that many bytes, the rest is the
// path), which makes distinct (project_id, path) pairs produce distinct
// keys even when either component contains the separator. Content and
// listing entries live in distinct namespaces so a directory's listing
// never collides with its own content entry.
var (
	keyContent = "arbor:node:%d:%s:%s"
	keyListing = "arbor:dir:%d:%s:%s"
)

// Cache keys
func (k *treeKeys) Prefix() string {
	return "arbor"
}

// Content returns the key holding one node's serialized snapshot.
func (k *treeKeys) Content(projectID, path string) string {
	return fmt.Sprintf(keyContent, len(projectID), projectID, path)
}

// Listing returns the key holding a directory's immediate children.
func (k *treeKeys) Listing(projectID, dir string) string {
	return fmt.Sprintf(keyListing, len(projectID), projectID, dir)
}

var Keys = &treeKeys{}

type treeKeys struct{}
