package advconfig

import (
	"fmt"

	"github.com/eugenenazirov/advconfig/document"
)

// Parser stores values of type T as a section instead of a scalar.
type Parser[T any] interface {
	Serialize(section *document.Section, value T) error
	Deserialize(section *document.Section) (T, error)
}

// ParserFuncs adapts a pair of functions to the Parser interface.
type ParserFuncs[T any] struct {
	SerializeFunc   func(section *document.Section, value T) error
	DeserializeFunc func(section *document.Section) (T, error)
}

func (p ParserFuncs[T]) Serialize(section *document.Section, value T) error {
	return p.SerializeFunc(section, value)
}

func (p ParserFuncs[T]) Deserialize(section *document.Section) (T, error) {
	return p.DeserializeFunc(section)
}

// valueParser erases the type parameter so parsers can share one registry map.
type valueParser interface {
	serialize(section *document.Section, v any) error
	deserialize(section *document.Section) (any, error)
}

type typedParser[T any] struct {
	parser Parser[T]
}

func (p typedParser[T]) serialize(section *document.Section, v any) error {
	tv, ok := v.(T)
	if !ok {
		return fmt.Errorf("%w: parser got %T", ErrTypeMismatch, v)
	}
	return p.parser.Serialize(section, tv)
}

func (p typedParser[T]) deserialize(section *document.Section) (any, error) {
	return p.parser.Deserialize(section)
}
