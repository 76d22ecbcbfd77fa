package advconfig

import (
	"reflect"
	"slices"
	"testing"
)

func TestRegisterIsIdempotent(t *testing.T) {
	registry := NewRegistry()
	a := NewGroup("a")
	b := NewGroup("b")

	registry.Register(a)
	registry.Register(b)
	registry.Register(a)
	registry.Register(NewGroup("a"))
	registry.Register(nil)

	groups := registry.Groups()
	if len(groups) != 2 || groups[0] != a || groups[1] != b {
		t.Fatalf("unexpected groups %v", groups)
	}
	if !registry.Registered("b") || registry.Registered("c") {
		t.Fatalf("Registered reports wrong membership")
	}
}

func TestGroupKeepsDeclarationOrder(t *testing.T) {
	var first, second, third string
	group := NewGroup("messages", Bind("a", &first)).Add(Bind("b", &second), Bind("c", &third))

	var paths []string
	for _, field := range group.Fields() {
		paths = append(paths, field.Path())
	}
	if want := []string{"a", "b", "c"}; !slices.Equal(paths, want) {
		t.Fatalf("expected %v, got %v", want, paths)
	}
}

func TestRegisterParserByType(t *testing.T) {
	registry := NewRegistry()
	if registry.HasParser(reflect.TypeFor[location]()) {
		t.Fatalf("unexpected parser before registration")
	}
	RegisterParser(registry, locationParser)
	if !registry.HasParser(reflect.TypeFor[location]()) {
		t.Fatalf("expected parser for location")
	}
	if registry.HasParser(reflect.TypeFor[*location]()) {
		t.Fatalf("pointer type must not share the value type parser")
	}
}

func TestBindMetadata(t *testing.T) {
	var players int
	field := Bind("limits.players", &players, WithComment("Max players"), TranslateColors())

	if field.Path() != "limits.players" || field.Comment() != "Max players" || !field.TranslatesColors() {
		t.Fatalf("unexpected metadata: %q %q %v", field.Path(), field.Comment(), field.TranslatesColors())
	}
	if field.Type() != reflect.TypeFor[int]() {
		t.Fatalf("unexpected type %v", field.Type())
	}
	if def, ok := field.defaultValue(); !ok || def != 0 {
		t.Fatalf("zero int is a valid default, got %v %v", def, ok)
	}
}

func TestRegistryFieldsInLoadOrder(t *testing.T) {
	var a, b, c string
	registry := NewRegistry()
	registry.Register(NewGroup("first", Bind("x.a", &a), Bind("x.b", &b)))
	registry.Register(NewGroup("second", Bind("y.c", &c)))

	var paths []string
	for _, f := range registry.Fields() {
		paths = append(paths, f.Path())
	}
	if want := []string{"x.a", "x.b", "y.c"}; !slices.Equal(paths, want) {
		t.Fatalf("expected %v, got %v", want, paths)
	}
}
