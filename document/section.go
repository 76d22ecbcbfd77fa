package document

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Section is a mapping inside a Document. All paths passed to its methods are
// relative to the section.
type Section struct {
	node *yaml.Node
	path string
	doc  *Document
}

// Path returns the absolute path of the section; the root section has an empty path.
func (s *Section) Path() string {
	return s.path
}

// Name returns the last segment of the section path.
func (s *Section) Name() string {
	for i := len(s.path) - 1; i >= 0; i-- {
		if s.path[i] == Separator[0] {
			return s.path[i+1:]
		}
	}
	return s.path
}

// Document returns the document the section belongs to.
func (s *Section) Document() *Document {
	return s.doc
}

// lookup walks the path and returns the key and value nodes of the last segment.
func (s *Section) lookup(path string) (*yaml.Node, *yaml.Node, bool) {
	parts, err := splitPath(path)
	if err != nil {
		return nil, nil, false
	}
	current := s.node
	for i, part := range parts {
		k, v, _ := mappingGet(current, part)
		if k == nil {
			return nil, nil, false
		}
		if i == len(parts)-1 {
			return k, v, true
		}
		current = v
	}
	return nil, nil, false
}

// Contains reports whether path holds a non-null value.
func (s *Section) Contains(path string) bool {
	_, v, ok := s.lookup(path)
	return ok && !isNull(v)
}

// IsSection reports whether path holds a mapping.
func (s *Section) IsSection(path string) bool {
	_, v, ok := s.lookup(path)
	return ok && v.Kind == yaml.MappingNode
}

// Get returns the value stored at path, or def when the path is absent.
func (s *Section) Get(path string, def any) any {
	_, v, ok := s.lookup(path)
	if !ok || isNull(v) {
		return def
	}
	var out any
	if err := v.Decode(&out); err != nil {
		return def
	}
	return out
}

// Value returns the value stored at path, falling back to the document defaults.
func (s *Section) Value(path string) any {
	if s.Contains(path) {
		return s.Get(path, nil)
	}
	if s.doc != nil && s.doc.defaults != nil {
		return s.doc.defaults.Get(joinPath(s.path, path), nil)
	}
	return nil
}

// Decode decodes the value at path into out. It reports false without touching
// out when the path is absent.
func (s *Section) Decode(path string, out any) (bool, error) {
	_, v, ok := s.lookup(path)
	if !ok || isNull(v) {
		return false, nil
	}
	if err := v.Decode(out); err != nil {
		return true, fmt.Errorf("decode %q: %w", joinPath(s.path, path), err)
	}
	return true, nil
}

// GetString returns the string at path or def.
func (s *Section) GetString(path, def string) string {
	var out string
	if ok, err := s.Decode(path, &out); !ok || err != nil {
		return def
	}
	return out
}

// GetInt returns the integer at path or def.
func (s *Section) GetInt(path string, def int) int {
	var out int
	if ok, err := s.Decode(path, &out); !ok || err != nil {
		return def
	}
	return out
}

// GetFloat returns the number at path or def.
func (s *Section) GetFloat(path string, def float64) float64 {
	var out float64
	if ok, err := s.Decode(path, &out); !ok || err != nil {
		return def
	}
	return out
}

// GetBool returns the boolean at path or def.
func (s *Section) GetBool(path string, def bool) bool {
	var out bool
	if ok, err := s.Decode(path, &out); !ok || err != nil {
		return def
	}
	return out
}

// Set stores value at path, creating intermediate sections. A nil value removes
// the entry. Comments already attached to the key are kept.
func (s *Section) Set(path string, value any) error {
	parts, err := splitPath(path)
	if err != nil {
		return err
	}
	parent := s.node
	for _, part := range parts[:len(parts)-1] {
		if value == nil {
			_, v, _ := mappingGet(parent, part)
			if v == nil || v.Kind != yaml.MappingNode {
				return nil
			}
			parent = v
			continue
		}
		parent = ensureMapping(parent, part)
	}

	last := parts[len(parts)-1]
	if value == nil {
		_, _, idx := mappingGet(parent, last)
		mappingDeleteAt(parent, idx)
		return nil
	}

	node, err := encodeNode(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", joinPath(s.path, path), err)
	}
	mappingSet(parent, last, node)
	return nil
}

func encodeNode(value any) (*yaml.Node, error) {
	switch v := value.(type) {
	case *yaml.Node:
		return v, nil
	case *Section:
		return v.node, nil
	}
	node := &yaml.Node{}
	if err := node.Encode(value); err != nil {
		return nil, err
	}
	if node.Kind == yaml.MappingNode {
		node.Style &^= yaml.FlowStyle
	}
	return node, nil
}

// GetSection returns the section at path, or nil when the path is absent or does
// not hold a mapping.
func (s *Section) GetSection(path string) *Section {
	_, v, ok := s.lookup(path)
	if !ok || v.Kind != yaml.MappingNode {
		return nil
	}
	return &Section{node: v, path: joinPath(s.path, path), doc: s.doc}
}

// CreateSection creates an empty section at path, replacing whatever value was
// stored there. Intermediate sections are created as needed.
func (s *Section) CreateSection(path string) (*Section, error) {
	parts, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	parent := s.node
	for _, part := range parts[:len(parts)-1] {
		parent = ensureMapping(parent, part)
	}
	child := newMapping()
	mappingSet(parent, parts[len(parts)-1], child)
	return &Section{node: child, path: joinPath(s.path, path), doc: s.doc}, nil
}

// SetComment attaches comment to the key at path. Multi-line comments are
// written as consecutive comment lines. An empty comment clears it.
func (s *Section) SetComment(path, comment string) error {
	parent, k := s.lookupKey(path)
	if k == nil {
		return fmt.Errorf("set comment on %q: %w", joinPath(s.path, path), ErrInvalidPath)
	}
	k.HeadComment = formatComment(comment)
	if isFirstKey(parent, k) {
		parent.HeadComment = ""
	}
	return nil
}

// Comment returns the comment attached to the key at path.
func (s *Section) Comment(path string) string {
	parent, k := s.lookupKey(path)
	if k == nil {
		return ""
	}
	// The parser attaches the comment above the first key of a mapping to the
	// mapping itself.
	if k.HeadComment == "" && isFirstKey(parent, k) {
		return parseComment(parent.HeadComment)
	}
	return parseComment(k.HeadComment)
}

// lookupKey returns the mapping holding the last path segment and its key node.
func (s *Section) lookupKey(path string) (*yaml.Node, *yaml.Node) {
	parts, err := splitPath(path)
	if err != nil {
		return nil, nil
	}
	parent := s.node
	if len(parts) > 1 {
		_, v, ok := s.lookup(strings.Join(parts[:len(parts)-1], Separator))
		if !ok {
			return nil, nil
		}
		parent = v
	}
	k, _, _ := mappingGet(parent, parts[len(parts)-1])
	if k == nil {
		return nil, nil
	}
	return parent, k
}

func isFirstKey(m, k *yaml.Node) bool {
	return m != nil && len(m.Content) > 0 && m.Content[0] == k
}

// Keys returns the keys of the section in file order. With deep set, nested
// keys are included as relative dotted paths after their parent.
func (s *Section) Keys(deep bool) []string {
	var keys []string
	walk(s.node, "", deep, func(path string, _ *yaml.Node) {
		keys = append(keys, path)
	})
	return keys
}

// Values returns the values of the section keyed by relative path. With deep
// set, nested sections are flattened and only leaf values are returned.
func (s *Section) Values(deep bool) map[string]any {
	out := make(map[string]any)
	walk(s.node, "", deep, func(path string, v *yaml.Node) {
		if deep && v.Kind == yaml.MappingNode {
			return
		}
		var value any
		if err := v.Decode(&value); err == nil {
			out[path] = value
		}
	})
	return out
}

// ToMap returns the section as nested maps.
func (s *Section) ToMap() map[string]any {
	out := make(map[string]any)
	if err := s.node.Decode(&out); err != nil {
		return map[string]any{}
	}
	return out
}

func walk(m *yaml.Node, prefix string, deep bool, fn func(path string, v *yaml.Node)) {
	if m == nil || m.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i < len(m.Content)-1; i += 2 {
		k, v := m.Content[i], m.Content[i+1]
		if k.Kind != yaml.ScalarNode || isNull(v) {
			continue
		}
		path := joinPath(prefix, k.Value)
		fn(path, v)
		if deep {
			walk(v, path, deep, fn)
		}
	}
}
