package filestorage

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

// Test factories registered under names no real backend uses.
func init() {
	RegisterHandler("TestStoreHandler", HandlerFactory{
		ArgNames: []string{"flag", "count", "extensions"},
		New: func(args Args) (Backend, error) {
			return &settingsBackend{args: args}, nil
		},
	})
	RegisterFilter("TestTagFilter", FilterFactory{
		ArgNames: []string{"tag"},
		New: func(args Args) (Filter, error) {
			tag, err := args.String("tag")
			if err != nil {
				return nil, err
			}
			return &renameFilter{suffix: "-" + tag, asyncOK: true}, nil
		},
	})
}

type settingsBackend struct {
	mockBackend
	args Args
}

func (b *settingsBackend) AsyncOK() bool { return true }

func TestCollectSettings(t *testing.T) {
	settings := map[string]string{
		"store.handler":                        "A",
		"store.handler.base_url":               "https://eppx.com",
		"store.handler.filters[0]":             "B",
		"store.handler.filters[0].extensions":  "['txt']",
		"store.handler.filters[10]":            "C",
		"store['nested'].handler":              "D",
		"store['nested']['deeper'].handler":    "E",
		"unrelated.handler":                    "F",
		"storefront.handler":                   "G",
	}

	tree := CollectSettings("store", settings)
	if tree == nil {
		t.Fatal("CollectSettings returned nil")
	}

	if v, _ := tree.Child("handler").Value(); v != "A" {
		t.Errorf("handler = %q, want %q", v, "A")
	}
	if v, _ := tree.Child("handler").Child("base_url").Value(); v != "https://eppx.com" {
		t.Errorf("base_url = %q, want %q", v, "https://eppx.com")
	}

	filters := tree.Child("handler").Child("filters")
	if filters == nil {
		t.Fatal("filters node missing")
	}
	if v, _ := filters.Child("[0]").Value(); v != "B" {
		t.Errorf("filters[0] = %q, want %q", v, "B")
	}
	if v, _ := filters.Child("[0]").Child("extensions").Value(); v != "['txt']" {
		t.Errorf("filters[0].extensions = %q, want %q", v, "['txt']")
	}
	if v, _ := filters.Child("[10]").Value(); v != "C" {
		t.Errorf("filters[10] = %q, want %q", v, "C")
	}

	nested := tree.Child("['nested']")
	if nested == nil {
		t.Fatal("bracketed child missing")
	}
	if v, _ := nested.Child("handler").Value(); v != "D" {
		t.Errorf("nested handler = %q, want %q", v, "D")
	}
	if v, _ := nested.Child("['deeper']").Child("handler").Value(); v != "E" {
		t.Errorf("deeper handler = %q, want %q", v, "E")
	}

	// Keys outside the prefix, including prefix look-alikes, are ignored.
	for _, key := range tree.Keys() {
		if key == "unrelated" || strings.HasPrefix(key, "front") {
			t.Errorf("foreign key %q leaked into the tree", key)
		}
	}
}

func TestCollectSettingsCustomPrefix(t *testing.T) {
	tree := CollectSettings("foo", map[string]string{"foo.bar[2].baz": "v"})
	if tree == nil {
		t.Fatal("CollectSettings returned nil")
	}
	leaf := tree.Child("bar").Child("[2]").Child("baz")
	if leaf == nil {
		t.Fatal("bar[2].baz node missing")
	}
	if v, ok := leaf.Value(); !ok || v != "v" {
		t.Errorf("leaf = %q, %v; want %q", v, ok, "v")
	}
}

func TestCollectSettingsNoMatch(t *testing.T) {
	if tree := CollectSettings("store", map[string]string{"other.handler": "A"}); tree != nil {
		t.Error("CollectSettings returned a tree for unmatched settings")
	}
}

func TestSetupFromSettings(t *testing.T) {
	settings := map[string]string{
		"store.handler":                      "TestStoreHandler",
		"store.handler.base_url":             "https://eppx.com",
		"store.handler.count":                "37",
		"store.handler.extensions":           "['txt', 'pdf']",
		"store.handler.filters[1]":           "TestTagFilter",
		"store.handler.filters[1].tag":       "late",
		"store.handler.filters[0]":           "TestTagFilter",
		"store.handler.filters[0].tag":       "early",
		"store['media'].handler":             "TestStoreHandler",
		"store['media'].handler.flag":        "'quoted'",
		"store['media']['thumbs'].handler":   "none",
		"store['spare'].handler":             "none",
	}

	store := NewContainer()
	found, err := SetupFromSettings(settings, store, "store")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Error("SetupFromSettings reported no configuration")
	}

	h, err := store.Handler()
	if err != nil {
		t.Fatal(err)
	}
	if h.BaseURL() != "https://eppx.com" {
		t.Errorf("base URL = %q, want %q", h.BaseURL(), "https://eppx.com")
	}

	backend := h.Backend().(*settingsBackend)
	if got, _ := backend.args.Int("count"); got != 37 {
		t.Errorf("count = %d, want 37", got)
	}
	exts, _ := backend.args.StringSlice("extensions")
	if !reflect.DeepEqual(exts, []string{"txt", "pdf"}) {
		t.Errorf("extensions = %v, want [txt pdf]", exts)
	}
	if backend.args.Has("base_url") {
		t.Error("common argument base_url leaked into backend args")
	}

	// Filter order is numeric, regardless of map iteration.
	name, err := store.Save(context.Background(), "a", strings.NewReader("content"))
	if err != nil {
		t.Fatal(err)
	}
	if name != "a-early-late" {
		t.Errorf("filtered name = %q, want %q", name, "a-early-late")
	}

	media, err := store.Lookup("media")
	if err != nil {
		t.Fatal(err)
	}
	mediaBackend, err := media.Handler()
	if err != nil {
		t.Fatal(err)
	}
	if flag, _ := mediaBackend.Backend().(*settingsBackend).args.String("flag"); flag != "quoted" {
		t.Errorf("flag = %q, want unquoted %q", flag, "quoted")
	}

	thumbs, err := media.Lookup("thumbs")
	if err != nil {
		t.Fatal(err)
	}
	if !thumbs.Disabled() {
		t.Error("handler \"none\" did not disable the sub-store")
	}

	if err := store.Finalize(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestSetupFromSettingsNoConfig(t *testing.T) {
	store := NewContainer()
	found, err := SetupFromSettings(map[string]string{"other.key": "x"}, store, "store")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("SetupFromSettings reported configuration where none exists")
	}
	if !store.Disabled() {
		t.Error("store without configuration was not disabled")
	}
}

func TestSetupFromSettingsDefaultPrefix(t *testing.T) {
	store := NewContainer()
	found, err := SetupFromSettings(map[string]string{"store.handler": "TestStoreHandler"}, store, "")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Error("default prefix did not match store.* keys")
	}
}

func TestSetupFromSettingsErrors(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]string
		contains string
	}{
		{
			name:     "missing handler key",
			settings: map[string]string{"store.handler.base_url": "x"},
			contains: "store.handler",
		},
		{
			name: "none with arguments",
			settings: map[string]string{
				"store.handler":          "none",
				"store.handler.base_url": "x",
			},
			contains: "has arguments",
		},
		{
			name:     "unknown handler",
			settings: map[string]string{"store.handler": "NoSuchHandler"},
			contains: "unknown handler",
		},
		{
			name: "unknown argument with suggestion",
			settings: map[string]string{
				"store.handler":          "TestStoreHandler",
				"store.handler.base_urk": "x",
			},
			contains: `Did you mean "store.handler.base_url"?`,
		},
		{
			name: "handler name typo with suggestion",
			settings: map[string]string{
				"store.handler": "TestStoreHandlr",
			},
			contains: `Did you mean "TestStoreHandler"?`,
		},
		{
			name: "non-numeric filter key",
			settings: map[string]string{
				"store.handler":            "TestStoreHandler",
				"store.handler.filters[x]": "TestTagFilter",
			},
			contains: "must be numeric",
		},
		{
			name: "filters as direct value",
			settings: map[string]string{
				"store.handler":         "TestStoreHandler",
				"store.handler.filters": "TestTagFilter",
			},
			contains: "indexed keys",
		},
		{
			name: "unknown filter",
			settings: map[string]string{
				"store.handler":            "TestStoreHandler",
				"store.handler.filters[0]": "NoSuchFilter",
			},
			contains: "unknown filter",
		},
		{
			name: "stray key on store node",
			settings: map[string]string{
				"store.handler": "TestStoreHandler",
				"store.bogus":   "x",
			},
			contains: "unknown key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewContainer()
			_, err := SetupFromSettings(tt.settings, store, "store")
			if !IsConfigError(err) {
				t.Fatalf("SetupFromSettings = %v, want a ConfigError", err)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q does not contain %q", err, tt.contains)
			}
		})
	}
}

func TestDecodeValue(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  any
	}{
		{name: "plain string", input: "hello", want: "hello"},
		{name: "integer", input: "42", want: 42},
		{name: "single quoted", input: "'hello'", want: "hello"},
		{name: "double quoted", input: `"hello"`, want: "hello"},
		{name: "mismatched quotes kept", input: `'hello"`, want: `'hello"`},
		{name: "digits in quotes stay string", input: "'42'", want: "42"},
		{name: "list", input: "['a', 'b']", want: []any{"a", "b"}},
		{name: "set", input: "{'a', 'b'}", want: Set{"a", "b"}},
		{name: "map", input: "{'k': 'v'}", want: map[string]any{"k": "v"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeValue(tt.input)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("decodeValue(%q) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}
