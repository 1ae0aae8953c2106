package filters

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ianepperson/filestorage"
)

// ValidateExtension rejects files whose extension is not in the allowed
// list. An empty list allows everything. Comparison is case-insensitive
// and ignores the leading dot.
type ValidateExtension struct {
	allowed map[string]struct{}
}

// NewValidateExtension builds the filter from the allowed extensions,
// given with or without a leading dot.
func NewValidateExtension(extensions ...string) *ValidateExtension {
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	return &ValidateExtension{allowed: allowed}
}

// Apply implements filestorage.Filter.
func (f *ValidateExtension) Apply(_ context.Context, item filestorage.FileItem) (filestorage.FileItem, error) {
	if len(f.allowed) == 0 {
		return item, nil
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(item.Filename), "."))
	if _, ok := f.allowed[ext]; !ok {
		return item, &filestorage.PolicyError{
			Filename: item.Filename,
			Err:      fmt.Errorf("extension %q: %w", ext, filestorage.ErrExtensionNotAllowed),
		}
	}
	return item, nil
}

// AsyncOK implements filestorage.Filter.
func (f *ValidateExtension) AsyncOK() bool { return true }

// Validate implements filestorage.Filter.
func (f *ValidateExtension) Validate(context.Context) error { return nil }
