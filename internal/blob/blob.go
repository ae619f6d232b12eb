// Package blob stores uploaded files. Names are flat: no directories, no
// path separators.
package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// ErrNotExist is returned by Open when no blob has the given name.
var ErrNotExist = errors.New("blob does not exist")

// ErrInvalidName is returned for names that are empty or contain a path.
var ErrInvalidName = errors.New("invalid blob name")

type Object struct {
	Body        io.ReadCloser
	Size        int64 // -1 when unknown
	ContentType string
	ModTime     time.Time
}

type Store interface {
	Put(ctx context.Context, name string, r io.Reader, contentType string) error
	Open(ctx context.Context, name string) (*Object, error)
	// Remove deletes the blob. A missing blob is not an error.
	Remove(ctx context.Context, name string) error
}

// ValidName reports whether name can be used as a blob name.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "\x00")
}
