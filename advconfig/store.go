package advconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/eugenenazirov/advconfig/document"
)

// Extension is appended to the store name to build the file name.
const Extension = ".yml"

// Report summarizes one load pass.
type Report struct {
	Path string `json:"path"`
	// Created is set when the file did not exist before the pass.
	Created bool `json:"created"`
	// Materialized lists the paths whose defaults were written.
	Materialized []string `json:"materialized"`
	// Loaded lists the paths read back from the file.
	Loaded []string `json:"loaded"`
	// Skipped counts bindings without a target.
	Skipped int `json:"skipped"`
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for skipped bindings, saves and the comment
// rewrite. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store owns one configuration file. The file is located at
// baseDir/relPath/name.yml and is only created once the document is first
// accessed. A Store is not safe for concurrent use.
type Store struct {
	registry *Registry
	baseDir  string
	relPath  string
	name     string
	logger   *zap.Logger

	file    string
	doc     *document.Document
	created bool
}

// New creates a store for the file name.yml in baseDir/relPath. Bindings are
// taken from registry at load time.
func New(baseDir, relPath, name string, registry *Registry, opts ...Option) *Store {
	if registry == nil {
		registry = NewRegistry()
	}
	s := &Store{
		registry: registry,
		baseDir:  baseDir,
		relPath:  relPath,
		name:     name,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the registry the store loads from.
func (s *Store) Registry() *Registry {
	return s.registry
}

// Dir returns the directory holding the file.
func (s *Store) Dir() string {
	return filepath.Join(s.baseDir, s.relPath)
}

// Path returns the location of the file.
func (s *Store) Path() string {
	return filepath.Join(s.Dir(), s.name+Extension)
}

// Loaded reports whether the document is held in memory.
func (s *Store) Loaded() bool {
	return s.doc != nil
}

// Document returns the in-memory document, creating the directory and an
// empty file and parsing it on first access.
func (s *Store) Document() (*document.Document, error) {
	if s.doc != nil {
		return s.doc, nil
	}

	if err := os.MkdirAll(s.Dir(), 0o755); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	file := s.Path()
	created, err := createIfMissing(file)
	if err != nil {
		return nil, err
	}

	doc, err := document.LoadFile(file)
	if err != nil {
		return nil, err
	}
	doc.Options().CopyDefaults = true

	s.doc = doc
	s.file = file
	s.created = created
	if created {
		s.logger.Info("created config file", zap.String("path", file))
	}
	return doc, nil
}

func createIfMissing(path string) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create config file: %w", err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("create config file: %w", err)
	}
	return true, nil
}

// Load runs the binding pass over every registered group in registration order
// and every field in declaration order. A missing entry with a default is
// written with its comment and the file is saved right away; any other entry
// is read back into its target. The first failing field aborts the pass with a
// *FieldError.
func (s *Store) Load() (Report, error) {
	report := Report{Path: s.Path()}

	for _, group := range s.registry.Groups() {
		for _, field := range group.Fields() {
			if !field.bound() {
				s.logger.Debug("skipping config field without target",
					zap.String("group", group.Name()),
					zap.String("path", field.Path()),
				)
				report.Skipped++
				continue
			}

			doc, err := s.Document()
			if err != nil {
				return report, err
			}

			materialized, err := s.loadField(doc, field)
			if err != nil {
				return report, &FieldError{Group: group.Name(), Path: field.Path(), Err: err}
			}
			if materialized {
				report.Materialized = append(report.Materialized, field.Path())
			} else {
				report.Loaded = append(report.Loaded, field.Path())
			}
		}
	}
	report.Created = s.created

	s.rewriteComments()
	return report, nil
}

// Reload drops the in-memory document and runs Load again, so external edits
// to the file are picked up.
func (s *Store) Reload() (Report, error) {
	s.doc = nil
	s.file = ""
	s.created = false
	return s.Load()
}

// Save writes the in-memory document to disk.
func (s *Store) Save() error {
	doc, err := s.Document()
	if err != nil {
		return err
	}
	if err := doc.Save(s.file); err != nil {
		return fmt.Errorf("save config %s: %w", s.file, err)
	}
	return nil
}

func (s *Store) loadField(doc *document.Document, field Field) (bool, error) {
	path := field.Path()
	parser := s.registry.parserFor(field.Type())
	def, hasDefault := field.defaultValue()

	if parser == nil && hasDefault {
		if err := doc.AddDefault(path, def); err != nil {
			return false, err
		}
		if comment := field.Comment(); comment != "" {
			if err := doc.Defaults().SetComment(path, comment); err != nil {
				return false, err
			}
		}
	}

	if !doc.Contains(path) && hasDefault {
		if err := s.applyDefault(doc, field, parser, def); err != nil {
			return false, err
		}
		if err := field.assign(def); err != nil {
			return false, err
		}
		if err := s.Save(); err != nil {
			return false, err
		}
		s.logger.Debug("wrote config default", zap.String("path", path))
		return true, nil
	}

	return false, s.writeToField(doc, field, parser, def, hasDefault)
}

func (s *Store) applyDefault(doc *document.Document, field Field, parser valueParser, def any) error {
	path := field.Path()
	if parser != nil {
		section, err := doc.CreateSection(path)
		if err != nil {
			return err
		}
		if err := parser.serialize(section, def); err != nil {
			return fmt.Errorf("serialize default: %w", err)
		}
	} else if err := doc.Set(path, def); err != nil {
		return err
	}

	if comment := field.Comment(); comment != "" {
		return doc.SetComment(path, comment)
	}
	return nil
}

func (s *Store) writeToField(doc *document.Document, field Field, parser valueParser, def any, hasDefault bool) error {
	if parser == nil {
		return field.readRaw(&doc.Section, def, hasDefault)
	}

	section := doc.GetSection(field.Path())
	if section == nil {
		if doc.Contains(field.Path()) {
			return document.ErrNotSection
		}
		return nil
	}
	value, err := parser.deserialize(section)
	if err != nil {
		return fmt.Errorf("deserialize: %w", err)
	}
	return field.assign(value)
}
