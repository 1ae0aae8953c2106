package filestorage

import (
	"context"
	"sync"
	"time"
)

// mockBackend records operations for assertions. asyncOK is configurable
// so both calling conventions get exercised.
type mockBackend struct {
	asyncOK     bool
	saveName    string
	saveErr     error
	existsErr   error
	deleteErr   error
	validateErr error
	exists      bool

	mu        sync.Mutex
	validated int
	saved     []FileItem
	deleted   []FileItem
}

func (m *mockBackend) AsyncOK() bool { return m.asyncOK }

func (m *mockBackend) Validate(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validated++
	return m.validateErr
}

func (m *mockBackend) Exists(context.Context, FileItem) (bool, error) {
	return m.exists, m.existsErr
}

func (m *mockBackend) Save(_ context.Context, item FileItem) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, item)
	return m.saveName, m.saveErr
}

func (m *mockBackend) Delete(_ context.Context, item FileItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, item)
	return m.deleteErr
}

func (m *mockBackend) lastSaved() (FileItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saved) == 0 {
		return FileItem{}, false
	}
	return m.saved[len(m.saved)-1], true
}

func (m *mockBackend) validateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validated
}

// mockSizedBackend adds the optional size and mod-time capabilities.
type mockSizedBackend struct {
	mockBackend
	size    int64
	modTime time.Time
}

func (m *mockSizedBackend) Size(context.Context, FileItem) (int64, error) {
	return m.size, nil
}

func (m *mockSizedBackend) ModTime(context.Context, FileItem) (time.Time, error) {
	return m.modTime, nil
}

// slowBackend blocks every operation until release is closed.
type slowBackend struct {
	mockBackend
	release chan struct{}
}

func (m *slowBackend) Save(ctx context.Context, item FileItem) (string, error) {
	<-m.release
	return m.mockBackend.Save(ctx, item)
}

// renameFilter appends a suffix to the filename, recording application
// order through the resulting name.
type renameFilter struct {
	suffix      string
	asyncOK     bool
	applyErr    error
	validateErr error
}

func (f *renameFilter) Apply(_ context.Context, item FileItem) (FileItem, error) {
	if f.applyErr != nil {
		return item, f.applyErr
	}
	return item.WithFilename(item.Filename + f.suffix), nil
}

func (f *renameFilter) AsyncOK() bool { return f.asyncOK }

func (f *renameFilter) Validate(context.Context) error { return f.validateErr }
