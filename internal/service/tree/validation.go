package tree

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"arbor/internal/config"
	"arbor/internal/domain"
	"arbor/internal/domain/models"
)

// CreateNodeRequest creates a file or folder at a project-scoped path.
// Missing ancestor folders are materialized as a side effect.
type CreateNodeRequest struct {
	ProjectID string          `json:"-"`
	AccountID string          `json:"-"`
	Path      string          `json:"path"`
	Type      models.NodeType `json:"type"`
	Content   string          `json:"content,omitempty"`
}

// Validate checks structural validity; path shape is checked separately by
// NormalizePath so it yields MalformedPathError rather than a generic
// validation failure.
func (r *CreateNodeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ProjectID, validation.Required),
		validation.Field(&r.Path, validation.Required, validation.Length(1, config.MaxNodePathLength)),
		validation.Field(&r.Type, validation.Required, validation.In(models.NodeTypeBlob, models.NodeTypeTree)),
	)
}

// UpdateNodeRequest rewrites a blob's content in place.
type UpdateNodeRequest struct {
	Content string `json:"content"`
}

// MoveNodeRequest relocates a node (and its subtree, for folders) to a new
// path within the same project.
type MoveNodeRequest struct {
	NewPath string `json:"new_path"`
}

func (r *MoveNodeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.NewPath, validation.Required, validation.Length(1, config.MaxNodePathLength)),
	)
}

// NormalizePath canonicalizes a client-supplied path: a single leading "/"
// is tolerated and stripped, everything else is strict. Returns
// MalformedPathError on empty paths, trailing slashes, empty segments, or
// oversized segments.
func NormalizePath(path string) (string, error) {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" {
		return "", &domain.MalformedPathError{Path: path, Reason: "empty path"}
	}
	if strings.HasSuffix(trimmed, "/") {
		return "", &domain.MalformedPathError{Path: path, Reason: "path cannot end with '/'"}
	}
	if strings.Contains(trimmed, "//") {
		return "", &domain.MalformedPathError{Path: path, Reason: "path cannot contain consecutive slashes"}
	}
	if len(trimmed) > config.MaxNodePathLength {
		return "", &domain.MalformedPathError{Path: path, Reason: "path too long"}
	}
	for _, segment := range strings.Split(trimmed, "/") {
		if strings.TrimSpace(segment) == "" {
			return "", &domain.MalformedPathError{Path: path, Reason: "path contains blank segment"}
		}
		if len(segment) > config.MaxNodeNameLength {
			return "", &domain.MalformedPathError{Path: path, Reason: "segment " + segment + " too long"}
		}
	}
	return trimmed, nil
}

// NormalizeDir is NormalizePath for directory arguments, where the empty
// string addresses the project root and is valid.
func NormalizeDir(dir string) (string, error) {
	if dir == "" || dir == "/" {
		return "", nil
	}
	return NormalizePath(dir)
}
