package filestorage

import "context"

// Filter is a pluggable policy applied to each FileItem before it reaches
// the storage backend. Filters run in registration order; the first error
// aborts the pipeline and the enclosing save.
//
// A filter never mutates its input: it returns either the same item or a
// modified copy.
type Filter interface {
	// Apply runs the filter against the item.
	Apply(ctx context.Context, item FileItem) (FileItem, error)

	// AsyncOK reports whether the filter is safe to run under a
	// cooperative scheduler. Filters doing only in-memory work should
	// return true; filters performing blocking I/O must return false.
	AsyncOK() bool

	// Validate checks the filter's configuration. It runs once, at
	// finalize time, and may perform I/O.
	Validate(ctx context.Context) error
}

// applyFilters runs the filters over the item in order.
func applyFilters(ctx context.Context, filters []Filter, item FileItem) (FileItem, error) {
	for _, f := range filters {
		var err error
		item, err = f.Apply(ctx, item)
		if err != nil {
			return item, err
		}
	}
	return item, nil
}
