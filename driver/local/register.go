package local

import (
	"github.com/ianepperson/filestorage"
)

func init() {
	filestorage.RegisterHandler("LocalFileHandler", filestorage.HandlerFactory{
		ArgNames: []string{"base_path", "auto_make_dir"},
		New: func(args filestorage.Args) (filestorage.Backend, error) {
			return fromArgs(args, false)
		},
	})
	filestorage.RegisterHandler("AsyncLocalFileHandler", filestorage.HandlerFactory{
		ArgNames: []string{"base_path", "auto_make_dir"},
		New: func(args filestorage.Args) (filestorage.Backend, error) {
			return fromArgs(args, true)
		},
	})
}

// fromArgs builds the backend from settings arguments, falling back to
// the FILESTORAGE_LOCAL_* environment defaults for anything omitted.
func fromArgs(args filestorage.Args, async bool) (filestorage.Backend, error) {
	cfg := Config{Async: async}

	basePath, err := args.String("base_path")
	if err != nil {
		return nil, err
	}
	cfg.BasePath = basePath

	if args.Has("auto_make_dir") {
		autoMake, err := args.Bool("auto_make_dir")
		if err != nil {
			return nil, err
		}
		cfg.AutoMakeDir = autoMake
	}

	if cfg.BasePath == "" || !args.Has("auto_make_dir") {
		env, err := filestorage.GetConfig()
		if err == nil {
			if cfg.BasePath == "" {
				cfg.BasePath = env.LocalBasePath
			}
			if !args.Has("auto_make_dir") {
				cfg.AutoMakeDir = env.LocalAutoMakeDir
			}
		}
	}

	return New(cfg)
}
