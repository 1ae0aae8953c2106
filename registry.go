package filestorage

import (
	"sort"
	"strings"
	"sync"

	"github.com/xrash/smetrics"
)

// HandlerFactory creates a storage backend from coerced settings
// arguments. Backends register a factory under their configuration name
// (typically from an init function in the backend's package), which makes
// them resolvable from flat settings without any runtime symbol lookup.
type HandlerFactory struct {
	// ArgNames lists the accepted constructor arguments beyond the
	// common ones (base_url, path, filters, allow_sync_methods) that the
	// settings resolver handles itself.
	ArgNames []string

	// New builds the backend. Argument values arrive already coerced:
	// ints, strings, lists, sets or maps.
	New func(args Args) (Backend, error)
}

// FilterFactory creates a filter from coerced settings arguments.
type FilterFactory struct {
	// ArgNames lists the accepted constructor arguments.
	ArgNames []string

	// New builds the filter.
	New func(args Args) (Filter, error)
}

var (
	registryMu       sync.RWMutex
	handlerFactories = make(map[string]HandlerFactory)
	filterFactories  = make(map[string]FilterFactory)
)

// RegisterHandler registers a backend factory under a configuration name.
func RegisterHandler(name string, factory HandlerFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	handlerFactories[name] = factory
}

// RegisterFilter registers a filter factory under a configuration name.
func RegisterFilter(name string, factory FilterFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	filterFactories[name] = factory
}

// LookupHandler resolves a backend factory by name. A dotted name resolves
// by its last segment, so fully-qualified spellings from older
// configurations ("filestorage.handlers.S3Handler") keep working.
func LookupHandler(name string) (HandlerFactory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := handlerFactories[shortName(name)]
	return f, ok
}

// LookupFilter resolves a filter factory by name.
func LookupFilter(name string) (FilterFactory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := filterFactories[shortName(name)]
	return f, ok
}

// HandlerNames returns the registered backend names, sorted.
func HandlerNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return sortedKeys(handlerFactories)
}

// FilterNames returns the registered filter names, sorted.
func FilterNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return sortedKeys(filterFactories)
}

func shortName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// nearestName returns the candidate closest to input by string distance,
// or "" when nothing comes close enough to be a useful suggestion.
func nearestName(input string, candidates []string) string {
	const threshold = 0.8
	best, bestScore := "", 0.0
	for _, c := range candidates {
		score := smetrics.JaroWinkler(strings.ToLower(input), strings.ToLower(c), 0.7, 4)
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	if bestScore < threshold {
		return ""
	}
	return best
}
