package document

import (
	"strings"

	"gopkg.in/yaml.v3"
)

func newMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func newKey(key string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
}

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}

// mappingGet returns the key node, the value node and the index of the key.
func mappingGet(m *yaml.Node, key string) (*yaml.Node, *yaml.Node, int) {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil, nil, -1
	}
	for i := 0; i < len(m.Content)-1; i += 2 {
		k := m.Content[i]
		if k.Kind == yaml.ScalarNode && k.Value == key {
			return k, m.Content[i+1], i
		}
	}
	return nil, nil, -1
}

// mappingSet replaces the value of key or appends a new pair. The key node and
// its comments are kept when the key already exists.
func mappingSet(m *yaml.Node, key string, value *yaml.Node) *yaml.Node {
	if _, _, idx := mappingGet(m, key); idx != -1 {
		m.Content[idx+1] = value
		return m.Content[idx]
	}
	m.Style &^= yaml.FlowStyle
	k := newKey(key)
	m.Content = append(m.Content, k, value)
	return k
}

func mappingDeleteAt(m *yaml.Node, keyIdx int) {
	if keyIdx < 0 || keyIdx+1 >= len(m.Content) {
		return
	}
	m.Content = append(m.Content[:keyIdx], m.Content[keyIdx+2:]...)
}

// ensureMapping returns the mapping stored under key, replacing any non-mapping
// value with an empty mapping.
func ensureMapping(m *yaml.Node, key string) *yaml.Node {
	if _, v, _ := mappingGet(m, key); v != nil && v.Kind == yaml.MappingNode {
		return v
	}
	child := newMapping()
	mappingSet(m, key, child)
	return child
}

func formatComment(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			lines[i] = "#"
			continue
		}
		lines[i] = "# " + line
	}
	return strings.Join(lines, "\n")
}

func parseComment(raw string) string {
	if raw == "" {
		return ""
	}
	lines := strings.Split(raw, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "#")
		out = append(out, strings.TrimPrefix(line, " "))
	}
	return strings.Join(out, "\n")
}

// foldLegacyComments removes synthetic comment entries from m and its nested
// mappings and stores their text as head comments on the sibling keys they
// describe. Entries without a matching sibling are dropped.
func foldLegacyComments(m *yaml.Node) bool {
	if m == nil || m.Kind != yaml.MappingNode {
		return false
	}
	changed := false
	for i := 0; i < len(m.Content)-1; {
		k, v := m.Content[i], m.Content[i+1]
		if k.Kind == yaml.ScalarNode && IsLegacyCommentKey(k.Value) {
			target := strings.Replace(k.Value, LegacyCommentMarker, "", 1)
			mappingDeleteAt(m, i)
			changed = true
			if tk, _, idx := mappingGet(m, target); idx != -1 && v.Kind == yaml.ScalarNode {
				if tk.HeadComment == "" {
					tk.HeadComment = formatComment(v.Value)
				}
			}
			continue
		}
		if foldLegacyComments(v) {
			changed = true
		}
		i += 2
	}
	return changed
}
