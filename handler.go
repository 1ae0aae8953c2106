package filestorage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Handler binds one storage backend to a base URL, a path prefix and an
// ordered filter pipeline, and bridges the two calling conventions to the
// backend. Handlers are constructed without I/O, validated once, then
// immutable for the life of the process.
type Handler struct {
	backend   Backend
	baseURL   string
	path      []string
	filters   []Filter
	allowSync bool

	// name is the dotted address of the owning container, injected when
	// the handler is assigned. Used only for diagnostics.
	name string
}

// HandlerOption configures a Handler at construction time.
type HandlerOption func(*Handler)

// WithBaseURL sets the base URL used for link generation.
func WithBaseURL(baseURL string) HandlerOption {
	return func(h *Handler) {
		h.baseURL = baseURL
	}
}

// WithPath sets the path prefix prepended to every stored file.
func WithPath(segments ...string) HandlerOption {
	return func(h *Handler) {
		h.path = segments
	}
}

// WithFilters sets the filter pipeline. Filters run in the given order.
func WithFilters(filters ...Filter) HandlerOption {
	return func(h *Handler) {
		h.filters = filters
	}
}

// WithAllowSyncMethods controls whether the blocking entry points
// (SaveBlocking and friends) are permitted. Defaults to true. Disable this
// for handlers only ever reached from a cooperative scheduler, where
// silently bridging a blocking call risks deadlocking the scheduler's own
// thread.
func WithAllowSyncMethods(allow bool) HandlerOption {
	return func(h *Handler) {
		h.allowSync = allow
	}
}

// NewHandler builds a Handler over the given backend. No I/O happens until
// Validate.
func NewHandler(backend Backend, opts ...HandlerOption) *Handler {
	h := &Handler{
		backend:   backend,
		allowSync: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Backend returns the backend this handler delegates to.
func (h *Handler) Backend() Backend { return h.backend }

// BaseURL returns the configured base URL, or "".
func (h *Handler) BaseURL() string { return h.baseURL }

// Path returns the handler's path prefix segments.
func (h *Handler) Path() []string { return h.path }

// Filters returns the handler's filter pipeline in application order.
func (h *Handler) Filters() []Filter { return h.filters }

// AsyncOK reports whether the underlying backend can suspend on its own.
func (h *Handler) AsyncOK() bool { return h.backend.AsyncOK() }

// Name returns the dotted address of the owning container, or "" when the
// handler has not been assigned to one.
func (h *Handler) Name() string { return h.name }

func (h *Handler) setName(name string) { h.name = name }

// String implements fmt.Stringer.
func (h *Handler) String() string {
	return fmt.Sprintf("<Handler %q>", h.name)
}

// SanitizeFilename strips leading dots from the filename and replaces
// every character that is not alphanumeric, "." or "_" with "_". This
// blocks path traversal and hidden or special filenames before any
// filter or backend sees the name.
func SanitizeFilename(filename string) string {
	filename = strings.TrimLeft(filename, ".")
	var b strings.Builder
	b.Grow(len(filename))
	for _, r := range filename {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// item builds a FileItem anchored at the handler's path prefix, with any
// extra subpath segments appended.
func (h *Handler) item(filename string, subpath []string, data io.ReadSeeker) FileItem {
	path := make([]string, 0, len(h.path)+len(subpath))
	path = append(path, h.path...)
	path = append(path, subpath...)
	return FileItem{Filename: filename, Path: path, Data: data}
}

// FileURL returns the URL for the given filename within this handler.
func (h *Handler) FileURL(filename string) string {
	item := h.item(filename, nil, nil)
	joined, err := url.JoinPath(h.baseURL, item.URLPath())
	if err != nil {
		return item.URLPath()
	}
	return joined
}

// Validate checks the handler's configuration: every filter, then the
// backend. A suspend-capable backend owning a blocking-only filter is a
// capability mismatch and fails immediately, before any I/O. The
// independent validations run concurrently and all must succeed.
func (h *Handler) Validate(ctx context.Context) error {
	if h.backend.AsyncOK() {
		for _, f := range h.filters {
			if !f.AsyncOK() {
				return &ConfigError{
					Address: h.name,
					Msg:     fmt.Sprintf("filter %T cannot be used with an async-capable backend", f),
				}
			}
		}
	}

	var g errgroup.Group
	for _, f := range h.filters {
		g.Go(func() error {
			return f.Validate(ctx)
		})
	}
	g.Go(func() error {
		return h.backend.Validate(ctx)
	})
	return g.Wait()
}

// Save sanitizes the filename, runs the filter pipeline and stores the
// content. It returns the final filename, which may differ from the input
// when a filter renamed the file or the backend resolved a collision.
//
// When the backend is blocking-only the whole operation runs on an offload
// worker and the caller suspends on ctx.
func (h *Handler) Save(ctx context.Context, filename string, data io.ReadSeeker) (string, error) {
	return h.save(ctx, nil, filename, data)
}

// SaveData saves a file from the provided bytes.
func (h *Handler) SaveData(ctx context.Context, filename string, data []byte) (string, error) {
	return h.Save(ctx, filename, bytes.NewReader(data))
}

// SaveMultipart saves a file uploaded through a multipart form.
func (h *Handler) SaveMultipart(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	file, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	filename := fh.Filename
	if filename == "" {
		filename = "file"
	}
	return h.Save(ctx, filename, file)
}

// Exists reports whether the given filename exists in storage.
func (h *Handler) Exists(ctx context.Context, filename string) (bool, error) {
	return h.exists(ctx, nil, filename)
}

// Delete removes the given filename from storage. Deleting an absent file
// is not an error.
func (h *Handler) Delete(ctx context.Context, filename string) error {
	return h.delete(ctx, nil, filename)
}

// Size returns the stored size of the given filename. Returns
// ErrNotSupported when the backend cannot report sizes.
func (h *Handler) Size(ctx context.Context, filename string) (int64, error) {
	return h.size(ctx, nil, filename)
}

// ModTime returns the last modification time of the given filename.
// Returns ErrNotSupported when the backend cannot report times.
func (h *Handler) ModTime(ctx context.Context, filename string) (time.Time, error) {
	return h.modTime(ctx, nil, filename)
}

// SaveBlocking is the blocking form of Save: the operation runs to
// completion on the calling goroutine. It fails immediately with a
// ConfigError when the handler was configured to refuse blocking entry
// points.
func (h *Handler) SaveBlocking(filename string, data io.ReadSeeker) (string, error) {
	if err := h.blockingAllowed("save"); err != nil {
		return "", err
	}
	item := h.item(SanitizeFilename(filename), nil, data)
	return h.saveItem(context.Background(), item)
}

// ExistsBlocking is the blocking form of Exists.
func (h *Handler) ExistsBlocking(filename string) (bool, error) {
	if err := h.blockingAllowed("exists"); err != nil {
		return false, err
	}
	return h.backend.Exists(context.Background(), h.item(filename, nil, nil))
}

// DeleteBlocking is the blocking form of Delete.
func (h *Handler) DeleteBlocking(filename string) error {
	if err := h.blockingAllowed("delete"); err != nil {
		return err
	}
	return h.backend.Delete(context.Background(), h.item(filename, nil, nil))
}

func (h *Handler) blockingAllowed(op string) error {
	if h.allowSync {
		return nil
	}
	return &ConfigError{
		Address: h.name,
		Msg:     fmt.Sprintf("blocking %s not allowed", op),
		Err:     ErrSyncNotAllowed,
	}
}

// save is the subpath-aware core of Save, shared with Folder.
func (h *Handler) save(ctx context.Context, subpath []string, filename string, data io.ReadSeeker) (string, error) {
	item := h.item(SanitizeFilename(filename), subpath, data)
	if !h.backend.AsyncOK() {
		// Blocking-only backend entered from a context-aware caller:
		// run the pipeline and the save on a worker, suspend on ctx.
		return offload(ctx, func() (string, error) {
			return h.saveItem(context.Background(), item)
		})
	}
	return h.saveItem(ctx, item)
}

func (h *Handler) saveItem(ctx context.Context, item FileItem) (string, error) {
	if !item.HasData() {
		return "", fmt.Errorf("save %q: %w", item.Filename, ErrNoData)
	}
	item, err := applyFilters(ctx, h.filters, item)
	if err != nil {
		return "", err
	}
	finalName, err := h.backend.Save(ctx, item)
	if err != nil {
		return "", err
	}
	if finalName == "" {
		finalName = item.Filename
	}
	return finalName, nil
}

func (h *Handler) exists(ctx context.Context, subpath []string, filename string) (bool, error) {
	item := h.item(filename, subpath, nil)
	if !h.backend.AsyncOK() {
		return offload(ctx, func() (bool, error) {
			return h.backend.Exists(context.Background(), item)
		})
	}
	return h.backend.Exists(ctx, item)
}

func (h *Handler) delete(ctx context.Context, subpath []string, filename string) error {
	item := h.item(filename, subpath, nil)
	if !h.backend.AsyncOK() {
		_, err := offload(ctx, func() (struct{}, error) {
			return struct{}{}, h.backend.Delete(context.Background(), item)
		})
		return err
	}
	return h.backend.Delete(ctx, item)
}

func (h *Handler) size(ctx context.Context, subpath []string, filename string) (int64, error) {
	sized, ok := h.backend.(SizedBackend)
	if !ok {
		return 0, fmt.Errorf("size of %q: %w", filename, ErrNotSupported)
	}
	item := h.item(filename, subpath, nil)
	if !h.backend.AsyncOK() {
		return offload(ctx, func() (int64, error) {
			return sized.Size(context.Background(), item)
		})
	}
	return sized.Size(ctx, item)
}

func (h *Handler) modTime(ctx context.Context, subpath []string, filename string) (time.Time, error) {
	timed, ok := h.backend.(TimedBackend)
	if !ok {
		return time.Time{}, fmt.Errorf("mod time of %q: %w", filename, ErrNotSupported)
	}
	item := h.item(filename, subpath, nil)
	if !h.backend.AsyncOK() {
		return offload(ctx, func() (time.Time, error) {
			return timed.ModTime(context.Background(), item)
		})
	}
	return timed.ModTime(ctx, item)
}
