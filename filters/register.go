package filters

import (
	"github.com/ianepperson/filestorage"
)

func init() {
	filestorage.RegisterFilter("RandomizeFilename", filestorage.FilterFactory{
		New: func(args filestorage.Args) (filestorage.Filter, error) {
			return NewRandomizeFilename(), nil
		},
	})

	filestorage.RegisterFilter("ValidateExtension", filestorage.FilterFactory{
		ArgNames: []string{"extensions"},
		New: func(args filestorage.Args) (filestorage.Filter, error) {
			exts, err := args.StringSlice("extensions")
			if err != nil {
				return nil, err
			}
			return NewValidateExtension(exts...), nil
		},
	})

	filestorage.RegisterFilter("FilenamePattern", filestorage.FilterFactory{
		ArgNames: []string{"patterns"},
		New: func(args filestorage.Args) (filestorage.Filter, error) {
			patterns, err := args.StringSlice("patterns")
			if err != nil {
				return nil, err
			}
			return NewFilenamePattern(patterns...), nil
		},
	})

	filestorage.RegisterFilter("ContentHashFilename", filestorage.FilterFactory{
		ArgNames: []string{"algorithm"},
		New: func(args filestorage.Args) (filestorage.Filter, error) {
			algo, err := args.StringDefault("algorithm", "")
			if err != nil {
				return nil, err
			}
			return NewContentHashFilename(filestorage.ChecksumAlgorithm(algo)), nil
		},
	})
}
