package filestorage

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SettingsNode is one node of the nested structure built from flat
// dotted/bracketed settings keys. A node may carry a leaf value, child
// nodes, or both (an entity's name is its node's value; its constructor
// arguments are the node's children).
type SettingsNode struct {
	value    string
	hasValue bool
	children map[string]*SettingsNode
}

func newSettingsNode() *SettingsNode {
	return &SettingsNode{children: make(map[string]*SettingsNode)}
}

// Value returns the node's leaf value, and whether one was set.
func (n *SettingsNode) Value() (string, bool) {
	return n.value, n.hasValue
}

// Child returns the named child node, or nil.
func (n *SettingsNode) Child(key string) *SettingsNode {
	if n == nil {
		return nil
	}
	return n.children[key]
}

// Keys returns the node's child keys, sorted.
func (n *SettingsNode) Keys() []string {
	keys := make([]string, 0, len(n.children))
	for k := range n.children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (n *SettingsNode) childOrCreate(key string) *SettingsNode {
	child, ok := n.children[key]
	if !ok {
		child = newSettingsNode()
		n.children[key] = child
	}
	return child
}

// CollectSettings filters the flat settings map to keys under the given
// prefix and arranges them into a nested structure. Bracket segments
// become their own path components: "store.handler.filters[0].extensions"
// splits into handler / filters / [0] / extensions. Returns nil when no
// key matches the prefix.
func CollectSettings(prefix string, settings map[string]string) *SettingsNode {
	root := newSettingsNode()
	for key, value := range settings {
		if !strings.HasPrefix(key, prefix+".") && !strings.HasPrefix(key, prefix+"[") {
			continue
		}
		// Insert a separator before every "[" so bracket segments split
		// like dotted ones: "foo[0][1]" walks as foo / [0] / [1].
		parts := strings.Split(strings.ReplaceAll(key, "[", ".["), ".")
		node := root
		for _, part := range parts {
			node = node.childOrCreate(part)
		}
		node.value = strings.TrimSpace(value)
		node.hasValue = true
	}
	return root.children[prefix]
}

// SetupFromSettings configures the store from a flat settings map, paying
// attention only to keys under keyPrefix ("store" when empty). The store
// is not finalized; the caller does that once all configuration sources
// have run.
//
// Reports whether any handler configuration was found. When none is, the
// store is disabled rather than left unconfigured.
func SetupFromSettings(settings map[string]string, store *Container, keyPrefix string) (bool, error) {
	if keyPrefix == "" {
		keyPrefix = "store"
	}
	tree := CollectSettings(keyPrefix, settings)
	if tree == nil {
		if err := store.Disable(); err != nil {
			return false, err
		}
		return false, nil
	}
	if err := setupStore(store, keyPrefix, tree); err != nil {
		return false, err
	}
	return true, nil
}

// setupStore configures one container from its settings subtree and
// recurses into bracketed sub-store keys. The container is not touched
// until its handler has been fully instantiated.
func setupStore(store *Container, addr string, node *SettingsNode) error {
	handlerNode := node.Child("handler")
	if handlerNode == nil {
		return &ConfigError{
			Key: addr + ".handler",
			Msg: fmt.Sprintf("settings has no key for %s.handler", addr),
		}
	}

	name, _ := handlerNode.Value()
	if strings.EqualFold(name, "none") {
		// Explicitly no handler: the node is disabled, which is not the
		// same as "not yet configured".
		if len(handlerNode.children) > 0 {
			return &ConfigError{
				Key: addr + ".handler",
				Msg: fmt.Sprintf("%s.handler is \"none\" but has arguments", addr),
			}
		}
		if err := store.Disable(); err != nil {
			return err
		}
	} else {
		handler, err := buildHandler(addr+".handler", handlerNode)
		if err != nil {
			return err
		}
		if err := store.SetHandler(handler); err != nil {
			return err
		}
	}

	for _, key := range node.Keys() {
		if key == "handler" {
			continue
		}
		if !strings.HasPrefix(key, "[") || !strings.HasSuffix(key, "]") {
			return &ConfigError{
				Key: addr + "." + key,
				Msg: fmt.Sprintf("unknown key %s.%s", addr, key),
			}
		}
		childName := unquote(strings.TrimSuffix(strings.TrimPrefix(key, "["), "]"))
		child, err := store.Lookup(childName)
		if err != nil {
			return err
		}
		if err := setupStore(child, addr+key, node.Child(key)); err != nil {
			return err
		}
	}
	return nil
}

// Common constructor arguments handled by the resolver itself rather than
// a backend factory.
var commonHandlerArgs = []string{"base_url", "path", "filters", "allow_sync_methods"}

// buildHandler instantiates a handler from its settings subtree: the
// node's value names a registered backend, sibling keys are constructor
// arguments, and the reserved "filters" key holds the ordered pipeline.
func buildHandler(addr string, node *SettingsNode) (*Handler, error) {
	name, ok := node.Value()
	if !ok || name == "" {
		return nil, &ConfigError{Key: addr, Msg: fmt.Sprintf("settings has no value for %s", addr)}
	}
	factory, ok := LookupHandler(name)
	if !ok {
		return nil, &ConfigError{
			Key: addr,
			Msg: fmt.Sprintf("bad value for %s: unknown handler %q%s", addr, name, didYouMean(name, HandlerNames())),
		}
	}

	valid := make(map[string]bool, len(factory.ArgNames)+len(commonHandlerArgs))
	for _, arg := range factory.ArgNames {
		valid[arg] = true
	}
	for _, arg := range commonHandlerArgs {
		valid[arg] = true
	}

	var (
		opts        []HandlerOption
		backendArgs = Args{}
	)
	for _, key := range node.Keys() {
		child := node.Child(key)
		switch {
		case !valid[key]:
			suggestions := append(append([]string{}, factory.ArgNames...), commonHandlerArgs...)
			return nil, &ConfigError{
				Key: addr + "." + key,
				Msg: fmt.Sprintf("invalid setting %q for %s%s", key, name, didYouMeanKey(addr, key, suggestions)),
			}
		case key == "filters":
			filters, err := buildFilters(addr+".filters", child)
			if err != nil {
				return nil, err
			}
			opts = append(opts, WithFilters(filters...))
		default:
			value, err := decodeArg(child)
			if err != nil {
				return nil, &ConfigError{Key: addr + "." + key, Msg: "bad value", Err: err}
			}
			backendArgs[key] = value
		}
	}

	if backendArgs.Has("base_url") {
		baseURL, err := backendArgs.String("base_url")
		if err != nil {
			return nil, &ConfigError{Key: addr + ".base_url", Msg: "bad value", Err: err}
		}
		opts = append(opts, WithBaseURL(baseURL))
		delete(backendArgs, "base_url")
	}
	if backendArgs.Has("path") {
		segments, err := backendArgs.StringSlice("path")
		if err != nil {
			return nil, &ConfigError{Key: addr + ".path", Msg: "bad value", Err: err}
		}
		opts = append(opts, WithPath(segments...))
		delete(backendArgs, "path")
	}
	if backendArgs.Has("allow_sync_methods") {
		allow, err := backendArgs.Bool("allow_sync_methods")
		if err != nil {
			return nil, &ConfigError{Key: addr + ".allow_sync_methods", Msg: "bad value", Err: err}
		}
		opts = append(opts, WithAllowSyncMethods(allow))
		delete(backendArgs, "allow_sync_methods")
	}

	backend, err := factory.New(backendArgs)
	if err != nil {
		return nil, &ConfigError{Key: addr, Msg: fmt.Sprintf("bad arguments for %s", addr), Err: err}
	}
	return NewHandler(backend, opts...), nil
}

// buildFilters resolves the "[N]" children of a filters node into an
// ordered pipeline. Ordering is numeric, never map iteration order.
func buildFilters(addr string, node *SettingsNode) ([]Filter, error) {
	if _, hasValue := node.Value(); hasValue {
		return nil, &ConfigError{Key: addr, Msg: fmt.Sprintf("%s must use indexed keys, e.g. %s[0]", addr, addr)}
	}

	type indexed struct {
		index int
		key   string
	}
	refs := make([]indexed, 0, len(node.children))
	for _, key := range node.Keys() {
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(key, "["), "]"))
		if err != nil || !strings.HasPrefix(key, "[") || !strings.HasSuffix(key, "]") {
			return nil, &ConfigError{
				Key: addr + key,
				Msg: fmt.Sprintf("bad key %s%s: filter references must be numeric, e.g. %s[0]", addr, key, addr),
			}
		}
		refs = append(refs, indexed{index: n, key: key})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].index < refs[j].index })

	filters := make([]Filter, 0, len(refs))
	for _, ref := range refs {
		filter, err := buildFilter(addr+ref.key, node.Child(ref.key))
		if err != nil {
			return nil, err
		}
		filters = append(filters, filter)
	}
	return filters, nil
}

// buildFilter instantiates a single filter: the node's value names a
// registered filter, its children are constructor arguments.
func buildFilter(addr string, node *SettingsNode) (Filter, error) {
	name, ok := node.Value()
	if !ok || name == "" {
		return nil, &ConfigError{Key: addr, Msg: fmt.Sprintf("settings has no value for %s", addr)}
	}
	factory, ok := LookupFilter(name)
	if !ok {
		return nil, &ConfigError{
			Key: addr,
			Msg: fmt.Sprintf("bad value for %s: unknown filter %q%s", addr, name, didYouMean(name, FilterNames())),
		}
	}

	valid := make(map[string]bool, len(factory.ArgNames))
	for _, arg := range factory.ArgNames {
		valid[arg] = true
	}

	args := Args{}
	for _, key := range node.Keys() {
		if !valid[key] {
			return nil, &ConfigError{
				Key: addr + "." + key,
				Msg: fmt.Sprintf("invalid setting %q for %s%s", key, name, didYouMeanKey(addr, key, factory.ArgNames)),
			}
		}
		value, err := decodeArg(node.Child(key))
		if err != nil {
			return nil, &ConfigError{Key: addr + "." + key, Msg: "bad value", Err: err}
		}
		args[key] = value
	}

	filter, err := factory.New(args)
	if err != nil {
		return nil, &ConfigError{Key: addr, Msg: fmt.Sprintf("bad arguments for %s", addr), Err: err}
	}
	return filter, nil
}

func didYouMean(input string, candidates []string) string {
	if match := nearestName(input, candidates); match != "" {
		return fmt.Sprintf(". Did you mean %q?", match)
	}
	return ""
}

func didYouMeanKey(addr, key string, candidates []string) string {
	if match := nearestName(key, candidates); match != "" {
		return fmt.Sprintf(". Did you mean %q?", addr+"."+match)
	}
	return ""
}

// decodeArg coerces a leaf settings value by its shape: all-digit strings
// become ints, bracket or brace delimited strings parse as literal
// lists/sets/maps, matched quotes unwrap, anything else passes through as
// a string.
func decodeArg(node *SettingsNode) (any, error) {
	if len(node.children) > 0 {
		return nil, fmt.Errorf("argument has nested keys %v", node.Keys())
	}
	value, ok := node.Value()
	if !ok {
		return nil, fmt.Errorf("argument has no value")
	}
	return decodeValue(value)
}

func decodeValue(value string) (any, error) {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '[' && last == ']') || (first == '{' && last == '}') {
			return parseLiteral(value)
		}
	}
	if value != "" && isAllDigits(value) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("bad integer %q: %w", value, err)
		}
		return n, nil
	}
	return unquote(value), nil
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// unquote removes the prefix and suffix if they are identical quotes.
func unquote(value string) string {
	if len(value) >= 2 && (value[0] == '\'' || value[0] == '"') && value[0] == value[len(value)-1] {
		return value[1 : len(value)-1]
	}
	return value
}
