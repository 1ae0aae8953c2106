package filestorage

import (
	"context"
	"time"
)

// Backend is the capability contract every storage backend satisfies.
// Backends perform the real I/O; everything above them (sanitizing,
// filters, path composition, calling-convention bridging) is the handler's
// job.
//
// All methods take a context. A backend that can genuinely suspend at its
// I/O boundaries (network storage, in-memory doubles) reports AsyncOK
// true; a backend whose I/O occupies the calling goroutine's thread (plain
// disk syscalls) reports false, and the handler enters it through an
// offload worker when called from a context-aware caller.
type Backend interface {
	// AsyncOK reports whether the backend is safe to call directly from
	// a cooperative-scheduling context.
	AsyncOK() bool

	// Validate checks credentials, directories and the like. It runs
	// once, at finalize time. Failures are configuration errors.
	Validate(ctx context.Context) error

	// Exists reports whether the item is present in storage.
	Exists(ctx context.Context, item FileItem) (bool, error)

	// Save stores the item's content. It returns the final filename,
	// which may differ from the item's (collision avoidance is a backend
	// responsibility); "" means the item's name was kept.
	Save(ctx context.Context, item FileItem) (string, error)

	// Delete removes the item. Deleting an absent file is not an error.
	Delete(ctx context.Context, item FileItem) error
}

// SizedBackend is an optional capability: reporting a stored file's size.
type SizedBackend interface {
	Size(ctx context.Context, item FileItem) (int64, error)
}

// TimedBackend is an optional capability: reporting a stored file's last
// modification time.
type TimedBackend interface {
	ModTime(ctx context.Context, item FileItem) (time.Time, error)
}

// offload runs fn on its own goroutine and suspends the caller until fn
// completes or ctx is done. It is the bridge for entering blocking-only
// code from a context-aware caller: the caller's scheduler thread is never
// stalled. When ctx wins the race the worker's eventual result is
// discarded, not cancelled.
func offload[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-done:
		return r.v, r.err
	}
}
