// Package memory provides an in-memory storage backend. It keeps file
// content in a map and records the last operations, which makes it the
// backend of choice for tests and for wiring up a tree before the real
// storage exists.
//
// Importing the package registers it as "DummyHandler" (blocking) and
// "AsyncDummyHandler" (suspend-capable).
package memory

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/ianepperson/filestorage"
)

// Backend stores file content in memory, keyed by the item's URL path.
type Backend struct {
	asyncOK bool

	mu          sync.RWMutex
	files       map[string]entry
	validated   bool
	validateErr error
	lastSaved   filestorage.FileItem
	lastDeleted filestorage.FileItem
}

type entry struct {
	data    []byte
	modTime time.Time
}

// New creates a blocking in-memory backend.
func New() *Backend {
	return &Backend{files: make(map[string]entry)}
}

// NewAsync creates a suspend-capable in-memory backend.
func NewAsync() *Backend {
	return &Backend{asyncOK: true, files: make(map[string]entry)}
}

// AsyncOK implements filestorage.Backend.
func (b *Backend) AsyncOK() bool { return b.asyncOK }

// Validate implements filestorage.Backend. It records that validation ran
// and returns the error set with FailValidation, if any.
func (b *Backend) Validate(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.validated = true
	return b.validateErr
}

// FailValidation makes the next Validate call return err.
func (b *Backend) FailValidation(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.validateErr = err
}

// Exists implements filestorage.Backend.
func (b *Backend) Exists(_ context.Context, item filestorage.FileItem) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.files[item.URLPath()]
	return ok, nil
}

// Save implements filestorage.Backend. The item's name is always kept.
func (b *Backend) Save(ctx context.Context, item filestorage.FileItem) (string, error) {
	r, err := item.Open(ctx)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[item.URLPath()] = entry{data: data, modTime: time.Now()}
	b.lastSaved = item
	return "", nil
}

// Delete implements filestorage.Backend. Deleting an absent file is a
// no-op.
func (b *Backend) Delete(_ context.Context, item filestorage.FileItem) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.files, item.URLPath())
	b.lastDeleted = item
	return nil
}

// Size implements filestorage.SizedBackend.
func (b *Backend) Size(_ context.Context, item filestorage.FileItem) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.files[item.URLPath()]
	if !ok {
		return 0, &filestorage.PolicyError{Filename: item.Filename, Err: filestorage.ErrNoData}
	}
	return int64(len(e.data)), nil
}

// ModTime implements filestorage.TimedBackend.
func (b *Backend) ModTime(_ context.Context, item filestorage.FileItem) (time.Time, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.files[item.URLPath()]
	if !ok {
		return time.Time{}, &filestorage.PolicyError{Filename: item.Filename, Err: filestorage.ErrNoData}
	}
	return e.modTime, nil
}

// Get returns the stored content for a URL path.
func (b *Backend) Get(urlPath string) ([]byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.files[urlPath]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out, true
}

// Len returns the number of stored files.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.files)
}

// Validated reports whether Validate has run.
func (b *Backend) Validated() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.validated
}

// LastSaved returns the most recently saved item.
func (b *Backend) LastSaved() filestorage.FileItem {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastSaved
}

// LastDeleted returns the most recently deleted item.
func (b *Backend) LastDeleted() filestorage.FileItem {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastDeleted
}
