package filestorage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// FileItem carries a file and its metadata through the filter pipeline and
// into a storage backend. It is a value type: Copy and the With* methods
// return a new item sharing the same content stream unless the stream is
// explicitly replaced.
type FileItem struct {
	// Filename is the name of the file, without any path.
	Filename string
	// Path holds the ordered path segments above the file. It never
	// contains the filename itself.
	Path []string
	// Data is the file content. May be nil for items used only for
	// existence checks or deletes.
	Data io.ReadSeeker
	// MediaType is the declared MIME type, if any. When set it wins over
	// extension-based guessing.
	MediaType string
}

// NewItem builds a FileItem for the given filename and path segments.
func NewItem(filename string, path ...string) FileItem {
	return FileItem{Filename: filename, Path: path}
}

// WithFilename returns a copy of the item with a different filename.
func (f FileItem) WithFilename(filename string) FileItem {
	f.Filename = filename
	return f
}

// WithPath returns a copy of the item with a different path.
func (f FileItem) WithPath(path ...string) FileItem {
	f.Path = path
	return f
}

// WithData returns a copy of the item with a different content stream.
func (f FileItem) WithData(data io.ReadSeeker) FileItem {
	f.Data = data
	return f
}

// WithMediaType returns a copy of the item with a declared media type.
func (f FileItem) WithMediaType(mediaType string) FileItem {
	f.MediaType = mediaType
	return f
}

// HasData reports whether the item carries any content.
func (f FileItem) HasData() bool {
	return f.Data != nil
}

// URLPath returns the relative URL path for this item: the path segments
// and the filename joined with "/".
func (f FileItem) URLPath() string {
	if len(f.Path) == 0 {
		return f.Filename
	}
	return strings.Join(f.Path, "/") + "/" + f.Filename
}

// StoragePath returns the relative OS file system path for this item.
func (f FileItem) StoragePath() string {
	parts := make([]string, 0, len(f.Path)+1)
	parts = append(parts, f.Path...)
	parts = append(parts, f.Filename)
	return filepath.Join(parts...)
}

// ContentType returns the MIME type of the content. A declared media type
// wins; otherwise the type is guessed from the filename extension. Returns
// "" when the type is undeclared and the extension is unrecognized.
func (f FileItem) ContentType() string {
	if f.MediaType != "" {
		return f.MediaType
	}
	return contentTypeByExtension(f.Filename)
}

// String implements fmt.Stringer.
func (f FileItem) String() string {
	hasData := "no data"
	if f.HasData() {
		hasData = "with data"
	}
	return fmt.Sprintf("<FileItem filename:%q path:%v %s>", f.Filename, f.Path, hasData)
}

// Open returns a reader over the item's content, positioned at the start
// of the stream. The reader tolerates a nil content stream, reporting EOF.
func (f FileItem) Open(ctx context.Context) (*Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.OpenBlocking()
}

// OpenBlocking is the blocking form of Open.
func (f FileItem) OpenBlocking() (*Reader, error) {
	r := &Reader{Filename: f.Filename, src: f.Data}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return r, nil
}

// Reader provides scoped read access to a FileItem's content. Acquiring a
// Reader always resets the read position to the start of the stream.
type Reader struct {
	Filename string
	src      io.ReadSeeker
}

// Read implements io.Reader. A Reader over an item with no data reports EOF.
func (r *Reader) Read(p []byte) (int, error) {
	if r.src == nil {
		return 0, io.EOF
	}
	return r.src.Read(p)
}

// Seek implements io.Seeker.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	if r.src == nil {
		return 0, nil
	}
	return r.src.Seek(offset, whence)
}
