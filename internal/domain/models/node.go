package models

import (
	"time"
)

// NodeType distinguishes files from folders.
type NodeType string

const (
	NodeTypeBlob NodeType = "blob" // file with content
	NodeTypeTree NodeType = "tree" // folder
)

// Node is a file or folder within a project's namespace. Path is the full
// slash-separated path, unique per project; Name is always its final segment.
type Node struct {
	ID        string    `json:"id" db:"id"`
	ProjectID string    `json:"project_id" db:"project_id"`
	AccountID string    `json:"account_id" db:"account_id"`
	Name      string    `json:"name" db:"name"`
	Path      string    `json:"path" db:"path"`
	Type      NodeType  `json:"type" db:"node_type"`
	Content   string    `json:"content,omitempty" db:"content"` // blobs only
	// PreviousPath is set transiently while a move is in flight; it is never
	// serialized and is used to compute the cache keys to release.
	PreviousPath string    `json:"-"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// IsTree reports whether the node is a folder.
func (n *Node) IsTree() bool {
	return n.Type == NodeTypeTree
}

// NodeSnapshot is the cached projection of a node: just enough to serve a
// read without touching the store.
type NodeSnapshot struct {
	Name    string   `json:"name"`
	Path    string   `json:"path"`
	Type    NodeType `json:"type"`
	Content string   `json:"content,omitempty"`
}

// Snapshot returns the cacheable projection of the node.
func (n *Node) Snapshot() NodeSnapshot {
	return NodeSnapshot{
		Name:    n.Name,
		Path:    n.Path,
		Type:    n.Type,
		Content: n.Content,
	}
}

// Listing is an ordered set of children for one directory. Order is
// insertion order as recorded by the store; nothing here re-sorts.
type Listing struct {
	ProjectID string         `json:"project_id"`
	Dir       string         `json:"dir"`
	Nodes     []NodeSnapshot `json:"nodes"`
	Recursive bool           `json:"recursive"`
	// FromCache marks listings served from the listing cache entry.
	FromCache bool `json:"from_cache,omitempty"`
}
