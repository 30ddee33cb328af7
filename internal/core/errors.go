package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ConfigError means a required setting is missing or invalid.
type ConfigError struct {
	Missing []string
	Err     error
}

func (e *ConfigError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("config: missing required %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("config: %v", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// AuthError means no access token could be obtained.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("auth: %v", e.Err) }

func (e *AuthError) Unwrap() error { return e.Err }

// FetchError means a listing page could not be retrieved or decoded.
type FetchError struct {
	Phase  string // "subscriptions" or "comments"
	Cursor string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Cursor == "" {
		return fmt.Sprintf("fetch %s (first page): %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("fetch %s after %q: %v", e.Phase, e.Cursor, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PaginationError means the API stopped making progress through a listing.
type PaginationError struct {
	Phase  string
	Cursor string
	Pages  int
	Reason string
}

func (e *PaginationError) Error() string {
	return fmt.Sprintf("paginate %s: %s (cursor %q after %d pages)", e.Phase, e.Reason, e.Cursor, e.Pages)
}

// RecordShapeError means a comment lacks a required field.
type RecordShapeError struct {
	CommentID string
	Missing   []string
}

func (e *RecordShapeError) Error() string {
	if e.CommentID == "" {
		return fmt.Sprintf("comment record missing %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("comment %s missing %s", e.CommentID, strings.Join(e.Missing, ", "))
}

// ArchiveWriteError means a record could not be made durable on disk.
type ArchiveWriteError struct {
	Path string
	Err  error
}

func (e *ArchiveWriteError) Error() string { return fmt.Sprintf("archive %s: %v", e.Path, e.Err) }

func (e *ArchiveWriteError) Unwrap() error { return e.Err }

// DeleteError means the remote side refused or failed to delete a comment.
// It is the only error a run recovers from.
type DeleteError struct {
	CommentID  string
	StatusCode int
	Body       string
	Err        error
}

func (e *DeleteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("delete %s: status %d: %s", e.CommentID, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("delete %s: %v", e.CommentID, e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }

// IsFatal reports whether err must stop a run.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var deleteErr *DeleteError
	if errors.As(err, &deleteErr) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
