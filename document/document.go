package document

import (
	"bytes"
	"fmt"
	"os"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

const defaultIndent = 2

// Options controls how a Document is written.
type Options struct {
	// CopyDefaults writes values registered with AddDefault into the document
	// when it is encoded and the path is still missing.
	CopyDefaults bool
	// Indent is the number of spaces per nesting level.
	Indent int
}

// Document is a parsed YAML configuration file. The zero value is not usable;
// create documents with New, Parse or LoadFile.
type Document struct {
	Section

	root     *yaml.Node
	defaults *Section
	options  Options
}

// New returns an empty document.
func New() *Document {
	return newDocument(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{newMapping()}})
}

func newDocument(root *yaml.Node) *Document {
	d := &Document{
		root:    root,
		options: Options{Indent: defaultIndent},
	}
	d.Section = Section{node: root.Content[0], doc: d}
	return d
}

// Parse builds a document from YAML text. Empty input yields an empty document.
// Legacy synthetic comment entries are converted into comments.
func Parse(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return New(), nil
	}
	top := root.Content[0]
	if isNull(top) {
		root.Content[0] = newMapping()
		return newDocument(&root), nil
	}
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse YAML: top level: %w", ErrNotSection)
	}
	if len(top.Content) == 0 {
		top.Style &^= yaml.FlowStyle
	}
	foldLegacyComments(top)
	return newDocument(&root), nil
}

// LoadFile reads and parses the file at path.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return doc, nil
}

// Options returns the mutable options of the document.
func (d *Document) Options() *Options {
	return &d.options
}

// AddDefault registers a fallback value for path. Defaults are returned by
// Value and, with CopyDefaults enabled, written out by Encode together with any
// comment set on the Defaults section.
func (d *Document) AddDefault(path string, value any) error {
	if d.defaults == nil {
		d.defaults = &Section{node: newMapping()}
	}
	return d.defaults.Set(path, value)
}

// Defaults returns the default values section, or nil when none were added.
func (d *Document) Defaults() *Section {
	return d.defaults
}

func (d *Document) copyMissingDefaults() error {
	if !d.options.CopyDefaults || d.defaults == nil {
		return nil
	}
	var copyErr error
	walk(d.defaults.node, "", true, func(path string, v *yaml.Node) {
		if copyErr != nil || v.Kind == yaml.MappingNode || d.Contains(path) {
			return
		}
		if copyErr = d.Set(path, cloneNode(v)); copyErr != nil {
			return
		}
		if comment := d.defaults.Comment(path); comment != "" {
			copyErr = d.SetComment(path, comment)
		}
	})
	return copyErr
}

func cloneNode(n *yaml.Node) *yaml.Node {
	c := *n
	if len(n.Content) > 0 {
		c.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = cloneNode(child)
		}
	}
	return &c
}

// Encode renders the document as YAML.
func (d *Document) Encode() ([]byte, error) {
	if err := d.copyMissingDefaults(); err != nil {
		return nil, fmt.Errorf("copy defaults: %w", err)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	indent := d.options.Indent
	if indent <= 0 {
		indent = defaultIndent
	}
	enc.SetIndent(indent)
	if err := enc.Encode(d.root); err != nil {
		return nil, fmt.Errorf("encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the document to path atomically: the content goes to a pending
// sibling file which replaces path only after it was fully written and synced.
func (d *Document) Save(path string) error {
	data, err := d.Encode()
	if err != nil {
		return err
	}

	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644), renameio.WithExistingPermissions())
	if err != nil {
		return fmt.Errorf("create pending config file: %w", err)
	}
	defer func() {
		_ = pendingFile.Cleanup()
	}()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write config data: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace config file: %w", err)
	}
	return nil
}
