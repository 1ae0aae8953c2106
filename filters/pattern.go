package filters

import (
	"context"
	"fmt"

	"github.com/gobwas/glob"

	"github.com/ianepperson/filestorage"
)

// FilenamePattern rejects files whose name matches none of the given glob
// patterns ("*.txt", "report-?.csv"). At least one pattern is required.
type FilenamePattern struct {
	patterns []string
	globs    []glob.Glob
	err      error
}

// NewFilenamePattern compiles the patterns. Compilation errors are
// reported from Validate so that a bad pattern fails configuration
// rather than the first save.
func NewFilenamePattern(patterns ...string) *FilenamePattern {
	f := &FilenamePattern{patterns: patterns}
	if len(patterns) == 0 {
		f.err = fmt.Errorf("at least one pattern is required")
		return f
	}
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			f.err = fmt.Errorf("bad pattern %q: %w", p, err)
			return f
		}
		f.globs = append(f.globs, g)
	}
	return f
}

// Apply implements filestorage.Filter.
func (f *FilenamePattern) Apply(_ context.Context, item filestorage.FileItem) (filestorage.FileItem, error) {
	if f.err != nil {
		return item, f.err
	}
	for _, g := range f.globs {
		if g.Match(item.Filename) {
			return item, nil
		}
	}
	return item, &filestorage.PolicyError{
		Filename: item.Filename,
		Err:      fmt.Errorf("no pattern matches: %w", filestorage.ErrNotAllowed),
	}
}

// AsyncOK implements filestorage.Filter.
func (f *FilenamePattern) AsyncOK() bool { return true }

// Validate implements filestorage.Filter.
func (f *FilenamePattern) Validate(context.Context) error { return f.err }
