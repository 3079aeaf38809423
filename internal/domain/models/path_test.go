package models

import (
	"errors"
	"reflect"
	"testing"

	"arbor/internal/domain"
)

func TestParentPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		segName string
		want    string
		wantErr bool
	}{
		{name: "deep path", path: "a/b/c.md", want: "a/b"},
		{name: "explicit name", path: "a/b/c.md", segName: "c.md", want: "a/b"},
		{name: "root level node is exempt", path: "readme.md", want: ""},
		{name: "two segments", path: "docs/intro", want: "docs"},
		{name: "empty path", path: "", wantErr: true},
		{name: "name not final segment", path: "a/b/c.md", segName: "b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParentPath(tt.path, tt.segName)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParentPath(%q, %q) = %q, want error", tt.path, tt.segName, got)
				}
				if !errors.Is(err, domain.ErrMalformedPath) {
					t.Errorf("error = %v, want ErrMalformedPath", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParentPath(%q, %q) error: %v", tt.path, tt.segName, err)
			}
			if got != tt.want {
				t.Errorf("ParentPath(%q, %q) = %q, want %q", tt.path, tt.segName, got, tt.want)
			}
		})
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"a/b/c.md", "c.md"},
		{"readme.md", "readme.md"},
		{"a/b", "b"},
	}

	for _, tt := range tests {
		if got := BaseName(tt.path); got != tt.want {
			t.Errorf("BaseName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestAncestorPaths(t *testing.T) {
	got := AncestorPaths("a/b/c/d.md")
	want := []string{"a/b/c", "a/b", "a"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AncestorPaths = %v, want %v", got, want)
	}

	if got := AncestorPaths("readme.md"); got != nil {
		t.Errorf("AncestorPaths(root-level) = %v, want nil", got)
	}
}

func TestRewritePrefix(t *testing.T) {
	tests := []struct {
		path, oldPrefix, newPrefix, want string
	}{
		{"a/b", "a/b", "a/c", "a/c"},
		{"a/b/x.md", "a/b", "a/c", "a/c/x.md"},
		{"a/b/sub/y.md", "a/b", "z", "z/sub/y.md"},
	}

	for _, tt := range tests {
		if got := RewritePrefix(tt.path, tt.oldPrefix, tt.newPrefix); got != tt.want {
			t.Errorf("RewritePrefix(%q, %q, %q) = %q, want %q",
				tt.path, tt.oldPrefix, tt.newPrefix, got, tt.want)
		}
	}
}

func TestIsDescendantOf(t *testing.T) {
	tests := []struct {
		path, dir string
		want      bool
	}{
		{"a/b/x.md", "a/b", true},
		{"a/b", "a/b", false},
		{"a/bc/x.md", "a/b", false},
		{"x.md", "", true},
		{"", "", false},
	}

	for _, tt := range tests {
		if got := IsDescendantOf(tt.path, tt.dir); got != tt.want {
			t.Errorf("IsDescendantOf(%q, %q) = %v, want %v", tt.path, tt.dir, got, tt.want)
		}
	}
}
