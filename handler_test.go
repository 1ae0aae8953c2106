package filestorage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "clean name", input: "report.txt", want: "report.txt"},
		{name: "spaces", input: "my report.txt", want: "my_report.txt"},
		{name: "traversal", input: "../../etc/passwd", want: "_.._etc_passwd"},
		{name: "hidden file", input: ".bashrc", want: "bashrc"},
		{name: "all dots", input: "...", want: ""},
		{name: "separators", input: "a/b\\c.txt", want: "a_b_c.txt"},
		{name: "underscores kept", input: "a_b.txt", want: "a_b.txt"},
		{name: "unicode replaced", input: "résumé.pdf", want: "r_sum_.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.input); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestHandlerSaveSanitizesAndPrefixes(t *testing.T) {
	backend := &mockBackend{asyncOK: true}
	h := NewHandler(backend, WithPath("uploads", "docs"))

	name, err := h.Save(context.Background(), "../secret.txt", strings.NewReader("content"))
	if err != nil {
		t.Fatal(err)
	}
	if name != ".._secret.txt" {
		t.Errorf("final name = %q, want %q", name, ".._secret.txt")
	}

	saved, ok := backend.lastSaved()
	if !ok {
		t.Fatal("backend saw no save")
	}
	if got := saved.URLPath(); got != "uploads/docs/.._secret.txt" {
		t.Errorf("saved path = %q, want %q", got, "uploads/docs/.._secret.txt")
	}
}

func TestHandlerFilterOrder(t *testing.T) {
	backend := &mockBackend{asyncOK: true}
	h := NewHandler(backend, WithFilters(
		&renameFilter{suffix: "-1", asyncOK: true},
		&renameFilter{suffix: "-2", asyncOK: true},
	))

	name, err := h.Save(context.Background(), "a", strings.NewReader("content"))
	if err != nil {
		t.Fatal(err)
	}
	if name != "a-1-2" {
		t.Errorf("final name = %q, want %q (filters must run in order)", name, "a-1-2")
	}
}

func TestHandlerFilterErrorAbortsSave(t *testing.T) {
	rejected := &PolicyError{Filename: "a", Err: ErrNotAllowed}
	backend := &mockBackend{asyncOK: true}
	h := NewHandler(backend, WithFilters(
		&renameFilter{asyncOK: true, applyErr: rejected},
	))

	_, err := h.Save(context.Background(), "a", strings.NewReader("content"))
	if !IsPolicyError(err) {
		t.Fatalf("Save error = %v, want a policy error", err)
	}
	if len(backend.saved) != 0 {
		t.Error("backend saw a save after a filter rejection")
	}
}

func TestHandlerSaveNoData(t *testing.T) {
	h := NewHandler(&mockBackend{asyncOK: true})
	_, err := h.Save(context.Background(), "a.txt", nil)
	if !errors.Is(err, ErrNoData) {
		t.Errorf("Save without data = %v, want ErrNoData", err)
	}
}

func TestHandlerBackendRename(t *testing.T) {
	// The backend resolving a collision reports the final name.
	backend := &mockBackend{asyncOK: true, saveName: "a-1.txt"}
	h := NewHandler(backend)

	name, err := h.Save(context.Background(), "a.txt", strings.NewReader("content"))
	if err != nil {
		t.Fatal(err)
	}
	if name != "a-1.txt" {
		t.Errorf("final name = %q, want %q", name, "a-1.txt")
	}
}

func TestHandlerBlockingRefused(t *testing.T) {
	h := NewHandler(&mockBackend{}, WithAllowSyncMethods(false))

	_, err := h.SaveBlocking("a.txt", strings.NewReader("content"))
	if !errors.Is(err, ErrSyncNotAllowed) {
		t.Errorf("SaveBlocking = %v, want ErrSyncNotAllowed", err)
	}
	if !IsConfigError(err) {
		t.Errorf("SaveBlocking error is not a ConfigError: %v", err)
	}
	if _, err := h.ExistsBlocking("a.txt"); !errors.Is(err, ErrSyncNotAllowed) {
		t.Errorf("ExistsBlocking = %v, want ErrSyncNotAllowed", err)
	}
	if err := h.DeleteBlocking("a.txt"); !errors.Is(err, ErrSyncNotAllowed) {
		t.Errorf("DeleteBlocking = %v, want ErrSyncNotAllowed", err)
	}
}

func TestHandlerBlockingAllowedByDefault(t *testing.T) {
	backend := &mockBackend{}
	h := NewHandler(backend)

	name, err := h.SaveBlocking("a.txt", strings.NewReader("content"))
	if err != nil {
		t.Fatal(err)
	}
	if name != "a.txt" {
		t.Errorf("final name = %q, want %q", name, "a.txt")
	}
}

func TestHandlerOffloadHonorsContext(t *testing.T) {
	// A blocking-only backend that never finishes must not hold up a
	// context-aware caller past its deadline.
	backend := &slowBackend{release: make(chan struct{})}
	defer close(backend.release)
	h := NewHandler(backend)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := h.Save(ctx, "a.txt", strings.NewReader("content"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Save = %v, want context.DeadlineExceeded", err)
	}
}

func TestHandlerValidateCapabilityMismatch(t *testing.T) {
	// A suspend-capable backend must not carry a blocking-only filter.
	h := NewHandler(&mockBackend{asyncOK: true}, WithFilters(
		&renameFilter{asyncOK: false},
	))
	err := h.Validate(context.Background())
	if !IsConfigError(err) {
		t.Fatalf("Validate = %v, want a ConfigError", err)
	}

	// The reverse direction is fine: a blocking backend may carry any
	// filter.
	h = NewHandler(&mockBackend{}, WithFilters(&renameFilter{asyncOK: false}))
	if err := h.Validate(context.Background()); err != nil {
		t.Errorf("Validate = %v, want nil", err)
	}
}

func TestHandlerValidatePropagatesFailures(t *testing.T) {
	boom := errors.New("bad filter config")
	h := NewHandler(&mockBackend{asyncOK: true}, WithFilters(
		&renameFilter{asyncOK: true, validateErr: boom},
	))
	if err := h.Validate(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Validate = %v, want %v", err, boom)
	}

	boom = errors.New("bad credentials")
	h = NewHandler(&mockBackend{asyncOK: true, validateErr: boom})
	if err := h.Validate(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Validate = %v, want %v", err, boom)
	}
}

func TestHandlerFileURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		path    []string
		want    string
	}{
		{name: "base and path", baseURL: "https://eppx.com/", path: []string{"static", "docs"}, want: "https://eppx.com/static/docs/a.txt"},
		{name: "no trailing slash", baseURL: "https://eppx.com", path: nil, want: "https://eppx.com/a.txt"},
		{name: "no base URL", baseURL: "", path: []string{"docs"}, want: "docs/a.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&mockBackend{}, WithBaseURL(tt.baseURL), WithPath(tt.path...))
			if got := h.FileURL("a.txt"); got != tt.want {
				t.Errorf("FileURL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHandlerSizeAndModTime(t *testing.T) {
	when := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	backend := &mockSizedBackend{size: 42, modTime: when}
	h := NewHandler(backend)

	size, err := h.Size(context.Background(), "a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if size != 42 {
		t.Errorf("Size = %d, want 42", size)
	}

	mod, err := h.ModTime(context.Background(), "a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !mod.Equal(when) {
		t.Errorf("ModTime = %v, want %v", mod, when)
	}
}

func TestHandlerSizeUnsupported(t *testing.T) {
	h := NewHandler(&mockBackend{asyncOK: true})
	if _, err := h.Size(context.Background(), "a.txt"); !errors.Is(err, ErrNotSupported) {
		t.Errorf("Size = %v, want ErrNotSupported", err)
	}
	if _, err := h.ModTime(context.Background(), "a.txt"); !errors.Is(err, ErrNotSupported) {
		t.Errorf("ModTime = %v, want ErrNotSupported", err)
	}
}

func TestHandlerSaveData(t *testing.T) {
	backend := &mockBackend{asyncOK: true}
	h := NewHandler(backend)

	if _, err := h.SaveData(context.Background(), "a.txt", []byte("content")); err != nil {
		t.Fatal(err)
	}
	saved, ok := backend.lastSaved()
	if !ok {
		t.Fatal("backend saw no save")
	}
	r, err := saved.OpenBlocking()
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 16)
	n, _ := r.Read(buf)
	if string(buf[:n]) != "content" {
		t.Errorf("saved content = %q, want %q", buf[:n], "content")
	}
}
