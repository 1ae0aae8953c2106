package filestorage

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Container is a node in the hierarchical storage namespace. Each node
// owns at most one Handler, creates children lazily on Lookup, and freezes
// its shape at Finalize. By finalize time every reachable node must either
// have a handler or be explicitly disabled; anything else is a
// configuration error naming the node's dotted address.
//
// A Container is intended to be built once at application start and
// passed to consumers explicitly; the library keeps no global instance.
type Container struct {
	name     string
	hasName  bool
	parent   *Container // naming only, never mutated through

	mu        sync.Mutex
	children  map[string]*Container
	handler   *Handler
	disabled  bool
	finalized bool
}

// NewContainer creates a root storage container.
func NewContainer() *Container {
	return &Container{children: make(map[string]*Container)}
}

func newChildContainer(name string, parent *Container) *Container {
	return &Container{
		name:     name,
		hasName:  true,
		parent:   parent,
		children: make(map[string]*Container),
	}
}

// Address returns a stable dotted address for diagnostics, e.g. "store"
// for the root and "store['a']['b']" for nested children.
func (c *Container) Address() string {
	if c.parent == nil {
		return "store"
	}
	return fmt.Sprintf("%s['%s']", c.parent.Address(), c.name)
}

// Lookup returns the child container for the given key, creating and
// memoizing it on first use. After Finalize, looking up a previously
// unseen key is a configuration error: the tree shape is frozen.
func (c *Container) Lookup(key string) (*Container, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if child, ok := c.children[key]; ok {
		return child, nil
	}
	if c.finalized {
		return nil, configErrorf(c.Address(), "getting %s['%s']: store already finalized", c.Address(), key)
	}
	child := newChildContainer(key, c)
	c.children[key] = child
	return child, nil
}

// SetHandler assigns the handler for this node. Assignment is
// exactly-once: assigning twice, assigning after Disable, or assigning
// after Finalize each raises a ConfigError. To mark a node intentionally
// unused, call Disable instead of assigning nil.
func (c *Container) SetHandler(h *Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	addr := c.Address()
	switch {
	case c.finalized:
		return configErrorf(addr, "setting handler: store already finalized")
	case c.disabled:
		return configErrorf(addr, "setting handler: store is disabled")
	case c.handler != nil:
		return configErrorf(addr, "setting handler: handler already set")
	case h == nil:
		return configErrorf(addr, "setting handler: handler is nil (use Disable to mark a store unused)")
	}
	h.setName(addr)
	c.handler = h
	return nil
}

// Disable marks this node, and transitively its subtree, as intentionally
// unused. This is distinct from "not yet configured": finalize accepts
// disabled nodes and rejects unconfigured ones.
func (c *Container) Disable() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	addr := c.Address()
	switch {
	case c.finalized:
		return configErrorf(addr, "disabling store: store already finalized")
	case c.handler != nil:
		return configErrorf(addr, "disabling store: handler already set")
	}
	c.disabled = true
	return nil
}

// Disabled reports whether this node was explicitly disabled.
func (c *Container) Disabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disabled
}

// Finalized reports whether Finalize has completed for this node.
func (c *Container) Finalized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finalized
}

// Handler returns this node's handler. It is a configuration error to ask
// for the handler of a disabled or unconfigured node.
func (c *Container) Handler() (*Handler, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handlerLocked()
}

func (c *Container) handlerLocked() (*Handler, error) {
	if c.disabled {
		return nil, configErrorf(c.Address(), "store is disabled")
	}
	if c.handler == nil {
		return nil, configErrorf(c.Address(), "no handler provided")
	}
	return c.handler, nil
}

// Finalize validates the tree depth-first and freezes it. Each node's
// handler is validated, then the node's subtrees validate concurrently;
// the call returns when the slowest finishes or the first failure is
// observed. Finalize is idempotent, and a node that is neither disabled
// nor handler-equipped fails with its dotted address.
func (c *Container) Finalize(ctx context.Context) error {
	c.mu.Lock()
	if c.finalized {
		c.mu.Unlock()
		return nil
	}
	if c.disabled {
		// The whole subtree is intentionally unused.
		c.finalized = true
		c.mu.Unlock()
		return nil
	}
	if c.handler == nil {
		addr := c.Address()
		c.mu.Unlock()
		return configErrorf(addr, "no handler provided")
	}
	handler := c.handler
	children := make([]*Container, 0, len(c.children))
	for _, child := range c.children {
		children = append(children, child)
	}
	c.mu.Unlock()

	if err := handler.Validate(ctx); err != nil {
		if IsConfigError(err) {
			return err
		}
		return &ConfigError{Address: c.Address(), Msg: "handler validation failed", Err: err}
	}

	c.mu.Lock()
	c.finalized = true
	c.mu.Unlock()

	// Sibling subtrees are independent; validate them concurrently and
	// report the first observed failure. Validated siblings stay usable.
	var g errgroup.Group
	for _, child := range children {
		g.Go(func() error {
			return child.Finalize(ctx)
		})
	}
	return g.Wait()
}

// Save stores a file through this node's handler.
func (c *Container) Save(ctx context.Context, filename string, data io.ReadSeeker) (string, error) {
	h, err := c.Handler()
	if err != nil {
		return "", err
	}
	return h.Save(ctx, filename, data)
}

// SaveData stores a file from bytes through this node's handler.
func (c *Container) SaveData(ctx context.Context, filename string, data []byte) (string, error) {
	h, err := c.Handler()
	if err != nil {
		return "", err
	}
	return h.SaveData(ctx, filename, data)
}

// Exists reports whether a file exists through this node's handler.
func (c *Container) Exists(ctx context.Context, filename string) (bool, error) {
	h, err := c.Handler()
	if err != nil {
		return false, err
	}
	return h.Exists(ctx, filename)
}

// Delete removes a file through this node's handler.
func (c *Container) Delete(ctx context.Context, filename string) error {
	h, err := c.Handler()
	if err != nil {
		return err
	}
	return h.Delete(ctx, filename)
}

// FileURL returns the URL for a filename within this node's handler.
func (c *Container) FileURL(filename string) (string, error) {
	h, err := c.Handler()
	if err != nil {
		return "", err
	}
	return h.FileURL(filename), nil
}

// Subfolder returns a path refinement under this container. The folder
// has no handler of its own: operations walk up to the container's
// handler with the folder's segments prepended to the record's path.
func (c *Container) Subfolder(name string) *Folder {
	return &Folder{store: c, path: []string{name}}
}

// Folder is a subpath within a container's handler. Folders carry no
// configuration and may be created freely at runtime; they do not alter
// the container tree.
type Folder struct {
	store *Container
	path  []string
}

// Subfolder returns a deeper folder under this one.
func (f *Folder) Subfolder(name string) *Folder {
	path := make([]string, 0, len(f.path)+1)
	path = append(path, f.path...)
	path = append(path, name)
	return &Folder{store: f.store, path: path}
}

// Path returns the folder's segments below its container.
func (f *Folder) Path() []string { return f.path }

// Equal reports whether two folders name the same location.
func (f *Folder) Equal(other *Folder) bool {
	if f.store != other.store || len(f.path) != len(other.path) {
		return false
	}
	for i := range f.path {
		if f.path[i] != other.path[i] {
			return false
		}
	}
	return true
}

// Save stores a file in this folder via the container's handler.
func (f *Folder) Save(ctx context.Context, filename string, data io.ReadSeeker) (string, error) {
	h, err := f.store.Handler()
	if err != nil {
		return "", err
	}
	return h.save(ctx, f.path, filename, data)
}

// Exists reports whether a file exists in this folder.
func (f *Folder) Exists(ctx context.Context, filename string) (bool, error) {
	h, err := f.store.Handler()
	if err != nil {
		return false, err
	}
	return h.exists(ctx, f.path, filename)
}

// Delete removes a file from this folder.
func (f *Folder) Delete(ctx context.Context, filename string) error {
	h, err := f.store.Handler()
	if err != nil {
		return err
	}
	return h.delete(ctx, f.path, filename)
}

// Size returns a stored file's size within this folder.
func (f *Folder) Size(ctx context.Context, filename string) (int64, error) {
	h, err := f.store.Handler()
	if err != nil {
		return 0, err
	}
	return h.size(ctx, f.path, filename)
}

// ModTime returns a stored file's modification time within this folder.
func (f *Folder) ModTime(ctx context.Context, filename string) (time.Time, error) {
	h, err := f.store.Handler()
	if err != nil {
		return time.Time{}, err
	}
	return h.modTime(ctx, f.path, filename)
}
