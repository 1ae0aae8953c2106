// Package filters provides the built-in filters: filename randomization,
// extension and pattern allow-listing, and content-addressed naming.
// Importing the package registers them by name for settings-based
// configuration.
package filters

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ianepperson/filestorage"
)

// RandomizeFilename replaces the name stem of every file with a generated
// token, keeping the extension lower-cased.
type RandomizeFilename struct {
	// Generator produces the new name stem from the old one. Defaults to
	// a random UUID.
	Generator func(stem string) string
}

// NewRandomizeFilename creates the filter with the default UUID generator.
func NewRandomizeFilename() *RandomizeFilename {
	return &RandomizeFilename{}
}

// Apply implements filestorage.Filter.
func (f *RandomizeFilename) Apply(_ context.Context, item filestorage.FileItem) (filestorage.FileItem, error) {
	ext := filepath.Ext(item.Filename)
	stem := strings.TrimSuffix(item.Filename, ext)

	generate := f.Generator
	if generate == nil {
		generate = func(string) string { return uuid.NewString() }
	}
	return item.WithFilename(generate(stem) + strings.ToLower(ext)), nil
}

// AsyncOK implements filestorage.Filter: name generation is in-memory work.
func (f *RandomizeFilename) AsyncOK() bool { return true }

// Validate implements filestorage.Filter.
func (f *RandomizeFilename) Validate(context.Context) error { return nil }
