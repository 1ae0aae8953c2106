package filters

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ianepperson/filestorage"
)

// ContentHashFilename renames every file to the hex digest of its
// contents, keeping the lower-cased extension. It must read the whole
// stream, so it only runs on blocking handlers.
type ContentHashFilename struct {
	algorithm filestorage.ChecksumAlgorithm
}

// NewContentHashFilename builds the filter. An empty algorithm defaults
// to xxhash.
func NewContentHashFilename(algorithm filestorage.ChecksumAlgorithm) *ContentHashFilename {
	if algorithm == "" {
		algorithm = filestorage.ChecksumXXHash
	}
	return &ContentHashFilename{algorithm: algorithm}
}

// Apply implements filestorage.Filter.
func (f *ContentHashFilename) Apply(ctx context.Context, item filestorage.FileItem) (filestorage.FileItem, error) {
	if !item.HasData() {
		return item, filestorage.ErrNoData
	}
	sum, err := filestorage.ChecksumItem(ctx, item, f.algorithm)
	if err != nil {
		return item, fmt.Errorf("content hash: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(item.Filename))
	return item.WithFilename(sum + ext), nil
}

// AsyncOK implements filestorage.Filter: hashing consumes the stream
// synchronously.
func (f *ContentHashFilename) AsyncOK() bool { return false }

// Validate implements filestorage.Filter.
func (f *ContentHashFilename) Validate(context.Context) error {
	if _, err := filestorage.NewHasher(f.algorithm); err != nil {
		return err
	}
	return nil
}
