// Package local provides a storage backend that writes files to a
// directory on the local filesystem.
//
// Importing the package registers it as "LocalFileHandler" (blocking)
// and "AsyncLocalFileHandler" (suspend-capable; the handler enters it
// through an offload worker, so the disk syscalls never stall a
// cooperative scheduler thread).
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ianepperson/filestorage"
)

// collisionLimit bounds the "name-N.ext" probe when a filename is taken.
const collisionLimit = 1_000_000

// Config holds the constructor arguments for the local backend.
type Config struct {
	// BasePath is the directory all files are stored under. Required.
	BasePath string

	// AutoMakeDir creates BasePath (and subdirectories) on demand
	// instead of requiring them to exist at validation time.
	AutoMakeDir bool

	// Async marks the backend suspend-capable. Disk I/O still occupies a
	// thread, so this only makes sense behind the handler's offload
	// bridging.
	Async bool
}

// Backend stores files under a base directory on the local filesystem.
type Backend struct {
	basePath    string
	autoMakeDir bool
	asyncOK     bool
}

// New creates a local filesystem backend.
func New(cfg Config) (*Backend, error) {
	if cfg.BasePath == "" {
		return nil, errors.New("local: base path is required")
	}
	abs, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("local: %w", err)
	}
	return &Backend{
		basePath:    abs,
		autoMakeDir: cfg.AutoMakeDir,
		asyncOK:     cfg.Async,
	}, nil
}

// BasePath returns the absolute base directory.
func (b *Backend) BasePath() string { return b.basePath }

// AsyncOK implements filestorage.Backend.
func (b *Backend) AsyncOK() bool { return b.asyncOK }

// Validate implements filestorage.Backend. The base directory must exist
// and be a directory; with AutoMakeDir it is created instead.
func (b *Backend) Validate(context.Context) error {
	info, err := os.Stat(b.basePath)
	if errors.Is(err, fs.ErrNotExist) {
		if !b.autoMakeDir {
			return fmt.Errorf("local: base path %q does not exist", b.basePath)
		}
		return os.MkdirAll(b.basePath, 0o755)
	}
	if err != nil {
		return fmt.Errorf("local: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("local: base path %q is not a directory", b.basePath)
	}
	return nil
}

// localPath resolves an item to an absolute path under the base
// directory, refusing anything that escapes it.
func (b *Backend) localPath(item filestorage.FileItem) (string, error) {
	full := filepath.Join(b.basePath, filepath.Clean(item.StoragePath()))
	if !isPathUnderRoot(b.basePath, full) {
		return "", &filestorage.PolicyError{
			Filename: item.Filename,
			Err:      filestorage.ErrNotAllowed,
		}
	}
	return full, nil
}

func isPathUnderRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Exists implements filestorage.Backend.
func (b *Backend) Exists(_ context.Context, item filestorage.FileItem) (bool, error) {
	path, err := b.localPath(item)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Save implements filestorage.Backend. When the target name is taken the
// file is stored as "name-N.ext" with the first free N, and that name is
// returned.
func (b *Backend) Save(ctx context.Context, item filestorage.FileItem) (string, error) {
	path, err := b.localPath(item)
	if err != nil {
		return "", err
	}
	if b.autoMakeDir {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
	}

	name, f, err := b.createUnique(path, item.Filename)
	if err != nil {
		return "", err
	}
	defer f.Close()

	r, err := item.Open(ctx)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		return "", err
	}
	if name == item.Filename {
		return "", nil
	}
	return name, nil
}

// createUnique opens the target path exclusively, probing "name-N.ext"
// variants until a free name is found.
func (b *Backend) createUnique(path, filename string) (string, *os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err == nil {
		return filename, f, nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return "", nil, err
	}

	dir := filepath.Dir(path)
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	for n := 1; n < collisionLimit; n++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, n, ext)
		f, err := os.OpenFile(filepath.Join(dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return candidate, f, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", nil, err
		}
	}
	return "", nil, fmt.Errorf("local: no free name for %q", filename)
}

// Delete implements filestorage.Backend. Deleting an absent file is a
// no-op.
func (b *Backend) Delete(_ context.Context, item filestorage.FileItem) error {
	path, err := b.localPath(item)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Size implements filestorage.SizedBackend.
func (b *Backend) Size(_ context.Context, item filestorage.FileItem) (int64, error) {
	path, err := b.localPath(item)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// ModTime implements filestorage.TimedBackend.
func (b *Backend) ModTime(_ context.Context, item filestorage.FileItem) (time.Time, error) {
	path, err := b.localPath(item)
	if err != nil {
		return time.Time{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
