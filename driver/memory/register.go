package memory

import (
	"github.com/ianepperson/filestorage"
)

func init() {
	filestorage.RegisterHandler("DummyHandler", filestorage.HandlerFactory{
		New: func(filestorage.Args) (filestorage.Backend, error) {
			return New(), nil
		},
	})
	filestorage.RegisterHandler("AsyncDummyHandler", filestorage.HandlerFactory{
		New: func(filestorage.Args) (filestorage.Backend, error) {
			return NewAsync(), nil
		},
	})
}
