package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling (OCP compliance).
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound         = errors.New("not found")
	ErrMalformedPath    = errors.New("malformed path")
	ErrDuplicatePath    = errors.New("path already exists")
	ErrParentMissing    = errors.New("parent missing")
	ErrCacheUnavailable = errors.New("cache unavailable")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// NotFoundError indicates an operation target absent in the store.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string       { return e.Message }
func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// MalformedPathError indicates a path that cannot be decomposed into
// name and parent.
type MalformedPathError struct {
	Path   string
	Reason string
}

func (e *MalformedPathError) Error() string {
	return fmt.Sprintf("malformed path %q: %s", e.Path, e.Reason)
}
func (e *MalformedPathError) StatusCode() int     { return http.StatusBadRequest }
func (e *MalformedPathError) Is(target error) bool { return target == ErrMalformedPath }

// DuplicatePathError indicates a create/move target that already exists
// within the project. Carries the conflicting path so handlers can return
// it alongside the 409.
type DuplicatePathError struct {
	ProjectID string
	Path      string
}

func (e *DuplicatePathError) Error() string {
	return fmt.Sprintf("node %q already exists", e.Path)
}
func (e *DuplicatePathError) StatusCode() int     { return http.StatusConflict }
func (e *DuplicatePathError) Is(target error) bool { return target == ErrDuplicatePath }

// ParentMissingError indicates a required ancestor cannot be created,
// e.g. an ancestor path collides with an existing file.
type ParentMissingError struct {
	Path   string
	Reason string
}

func (e *ParentMissingError) Error() string {
	return fmt.Sprintf("cannot materialize parent %q: %s", e.Path, e.Reason)
}
func (e *ParentMissingError) StatusCode() int     { return http.StatusConflict }
func (e *ParentMissingError) Is(target error) bool { return target == ErrParentMissing }

// CacheUnavailableError indicates the cache backend could not be reached
// during a mutating invalidation. The store mutation may have committed, so
// the caller must be told the cache-consistency guarantee was not honored.
type CacheUnavailableError struct {
	Op    string
	Cause error
}

func (e *CacheUnavailableError) Error() string {
	return fmt.Sprintf("cache unavailable during %s: %v", e.Op, e.Cause)
}
func (e *CacheUnavailableError) Unwrap() error      { return e.Cause }
func (e *CacheUnavailableError) StatusCode() int    { return http.StatusBadGateway }
func (e *CacheUnavailableError) Is(target error) bool { return target == ErrCacheUnavailable }

// StoreUnavailableError indicates the durable store could not be reached.
// Always fatal; never retried inside this layer.
type StoreUnavailableError struct {
	Op    string
	Cause error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Cause)
}
func (e *StoreUnavailableError) Unwrap() error      { return e.Cause }
func (e *StoreUnavailableError) StatusCode() int    { return http.StatusServiceUnavailable }
func (e *StoreUnavailableError) Is(target error) bool { return target == ErrStoreUnavailable }
