package advconfig

import (
	"reflect"
	"slices"
)

// Group is a named, ordered set of bindings, usually one per feature or
// plugin module.
type Group struct {
	name   string
	fields []Field
}

// NewGroup creates a group holding fields in declaration order.
func NewGroup(name string, fields ...Field) *Group {
	return &Group{name: name, fields: fields}
}

// Name returns the group name.
func (g *Group) Name() string {
	return g.name
}

// Add appends fields to the group.
func (g *Group) Add(fields ...Field) *Group {
	g.fields = append(g.fields, fields...)
	return g
}

// Fields returns the bindings in declaration order.
func (g *Group) Fields() []Field {
	return slices.Clone(g.fields)
}

// Registry holds the registered groups and the custom parsers by value type.
// It is not safe for concurrent use.
type Registry struct {
	groups  []*Group
	parsers map[reflect.Type]valueParser
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[reflect.Type]valueParser)}
}

// Register appends group to the load order. Registering a group whose name is
// already known is a no-op.
func (r *Registry) Register(group *Group) {
	if group == nil || r.Registered(group.name) {
		return
	}
	r.groups = append(r.groups, group)
}

// Registered reports whether a group with name was registered.
func (r *Registry) Registered(name string) bool {
	return slices.ContainsFunc(r.groups, func(g *Group) bool {
		return g.name == name
	})
}

// Groups returns the groups in registration order.
func (r *Registry) Groups() []*Group {
	return slices.Clone(r.groups)
}

// Fields returns every binding in load order.
func (r *Registry) Fields() []Field {
	var fields []Field
	for _, g := range r.groups {
		fields = append(fields, g.fields...)
	}
	return fields
}

// RegisterParser makes parser responsible for every binding of type T. A later
// registration for the same type replaces the earlier one.
func RegisterParser[T any](r *Registry, parser Parser[T]) {
	r.parsers[reflect.TypeFor[T]()] = typedParser[T]{parser: parser}
}

// HasParser reports whether a custom parser is registered for t.
func (r *Registry) HasParser(t reflect.Type) bool {
	_, ok := r.parsers[t]
	return ok
}

func (r *Registry) parserFor(t reflect.Type) valueParser {
	return r.parsers[t]
}
