package sim

import (
	"fmt"
	"sort"

	"github.com/Faultbox/curtainfire/pkg/math"
)

// Kind tags the variant held by a Value.
type Kind uint8

// Value kinds.
const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindString
	KindVec3
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindVec3:
		return "vec3"
	case KindOpaque:
		return "opaque"
	default:
		return "nil"
	}
}

// Value is a script-settable attribute value.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	v    math.Vec3
	o    any
}

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a number.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Vector wraps a vector.
func Vector(v math.Vec3) Value { return Value{kind: KindVec3, v: v} }

// Opaque wraps a value owned by the script layer, such as a table handle.
func Opaque(o any) Value { return Value{kind: KindOpaque, o: o} }

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// AsBool returns the boolean and whether the value holds one.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsNumber returns the number and whether the value holds one.
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }

// AsString returns the string and whether the value holds one.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsVec3 returns the vector and whether the value holds one.
func (v Value) AsVec3() (math.Vec3, bool) { return v.v, v.kind == KindVec3 }

// AsOpaque returns the wrapped script value and whether the value holds one.
func (v Value) AsOpaque() (any, bool) { return v.o, v.kind == KindOpaque }

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return fmt.Sprint(v.b)
	case KindNumber:
		return fmt.Sprint(v.n)
	case KindString:
		return v.s
	case KindVec3:
		return fmt.Sprint(v.v)
	case KindOpaque:
		return fmt.Sprintf("<%T>", v.o)
	default:
		return "nil"
	}
}

// Attributes maps names to values. Reading a name that was never set fails.
type Attributes struct {
	values map[string]Value
}

// Set stores a value under name.
func (a *Attributes) Set(name string, v Value) {
	if a.values == nil {
		a.values = make(map[string]Value)
	}
	a.values[name] = v
}

// Get returns the value under name or ErrUnknownAttribute.
func (a *Attributes) Get(name string) (Value, error) {
	v, ok := a.values[name]
	if !ok {
		return Value{}, fmt.Errorf("%q: %w", name, ErrUnknownAttribute)
	}
	return v, nil
}

// Has reports whether name was set.
func (a *Attributes) Has(name string) bool {
	_, ok := a.values[name]
	return ok
}

// Names returns the attribute names in sorted order.
func (a *Attributes) Names() []string {
	names := make([]string, 0, len(a.values))
	for n := range a.values {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
