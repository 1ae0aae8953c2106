// Package filestorage saves, checks and deletes named byte streams
// without its callers knowing which backend ultimately holds them.
//
// The library is organized around four pieces:
//
//   - [FileItem]: a file plus its metadata, flowing through the system.
//   - [Filter]: an ordered, pluggable policy applied to each item before
//     it is stored (randomized names, extension allow-lists, ...).
//   - [Handler]: binds one storage [Backend] to a path prefix, a base URL
//     and a filter pipeline, and exposes save/exists/delete in both a
//     context-aware and a blocking form.
//   - [Container]: a named tree of storage locations, configured once at
//     startup, validated by [Container.Finalize], then frozen.
//
// # Storage backends
//
// Backends satisfy the small [Backend] contract and register themselves
// by name (blank-import the ones you use):
//
//   - In-memory (github.com/ianepperson/filestorage/driver/memory)
//   - Local filesystem (github.com/ianepperson/filestorage/driver/local)
//   - Amazon S3 (github.com/ianepperson/filestorage/driver/s3)
//
// # Basic usage
//
//	backend, err := local.New(local.Config{BasePath: "/var/files", AutoMakeDir: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := filestorage.NewContainer()
//	handler := filestorage.NewHandler(
//	    backend,
//	    filestorage.WithBaseURL("https://static.example.com"),
//	    filestorage.WithFilters(filters.NewRandomizeFilename()),
//	)
//	if err := store.SetHandler(handler); err != nil {
//	    log.Fatal(err)
//	}
//	if err := store.Finalize(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	name, err := store.Save(ctx, "report.pdf", file)
//
// # Configuration from flat settings
//
// The whole tree can instead be assembled from a flat string map in the
// dotted/bracketed key grammar, with handlers and filters resolved by
// their registered names:
//
//	settings := map[string]string{
//	    "store.handler":                        "LocalFileHandler",
//	    "store.handler.base_path":              "/var/files",
//	    "store.handler.filters[0]":             "RandomizeFilename",
//	    "store.handler.filters[1]":             "ValidateExtension",
//	    "store.handler.filters[1].extensions":  "['jpg', 'png']",
//	    "store['cache'].handler":               "none",
//	}
//	_, err := filestorage.SetupFromSettings(settings, store, "store")
//
// # Errors
//
// Configuration problems surface as [ConfigError] carrying the dotted
// address of the offending node ("store['media']") and, when known, the
// settings key. Files rejected by a filter surface as [PolicyError], kept
// distinct so user-facing code can tell a bad upload from a bad deploy.
// Backend I/O errors pass through unchanged.
package filestorage
