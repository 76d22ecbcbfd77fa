package advconfig

import (
	"fmt"
	"reflect"

	"github.com/eugenenazirov/advconfig/document"
)

// Field is a value bound to a path of the configuration file. Fields are
// created with Bind.
type Field interface {
	// Path is the dotted location of the value in the file.
	Path() string
	// Comment is written above the entry when its default is materialized.
	Comment() string
	// Type is the declared value type used to look up a custom parser.
	Type() reflect.Type
	// TranslatesColors reports whether a string default has its '&' color codes translated.
	TranslatesColors() bool

	bound() bool
	defaultValue() (any, bool)
	assign(v any) error
	readRaw(section *document.Section, def any, hasDefault bool) error
}

// FieldOption configures a binding.
type FieldOption func(*fieldMeta)

type fieldMeta struct {
	comment   string
	translate bool
}

// WithComment attaches a human readable comment to the entry.
func WithComment(comment string) FieldOption {
	return func(m *fieldMeta) {
		m.comment = comment
	}
}

// TranslateColors translates '&' color codes of a string default before it is written.
func TranslateColors() FieldOption {
	return func(m *fieldMeta) {
		m.translate = true
	}
}

type binding[T any] struct {
	path   string
	target *T
	meta   fieldMeta
}

// Bind binds target to path. The value held by target when the store loads is
// the default written for a missing entry; a nil pointer, slice, map or
// interface means there is no default. A nil target is skipped by the store.
func Bind[T any](path string, target *T, opts ...FieldOption) Field {
	b := &binding[T]{path: path, target: target}
	for _, opt := range opts {
		opt(&b.meta)
	}
	return b
}

func (b *binding[T]) Path() string {
	return b.path
}

func (b *binding[T]) Comment() string {
	return b.meta.comment
}

func (b *binding[T]) Type() reflect.Type {
	return reflect.TypeFor[T]()
}

func (b *binding[T]) TranslatesColors() bool {
	return b.meta.translate
}

func (b *binding[T]) bound() bool {
	return b.target != nil
}

func (b *binding[T]) defaultValue() (any, bool) {
	v := any(*b.target)
	if isNil(v) {
		return nil, false
	}
	if rv := reflect.ValueOf(v); b.meta.translate && rv.Kind() == reflect.String {
		// T may be a named string type.
		out := reflect.New(rv.Type()).Elem()
		out.SetString(TranslateColorCodes('&', rv.String()))
		return out.Interface(), true
	}
	return v, true
}

func (b *binding[T]) assign(v any) error {
	if v == nil {
		var zero T
		*b.target = zero
		return nil
	}
	tv, ok := v.(T)
	if !ok {
		return fmt.Errorf("%w: got %T, want %s", ErrTypeMismatch, v, b.Type())
	}
	*b.target = tv
	return nil
}

func (b *binding[T]) readRaw(section *document.Section, def any, hasDefault bool) error {
	var v T
	found, err := section.Decode(b.path, &v)
	if err != nil {
		return err
	}
	if !found {
		if hasDefault {
			return b.assign(def)
		}
		return nil
	}
	*b.target = v
	return nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
