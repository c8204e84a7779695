// Package shotmodel pools per-shot mesh fragments and flattens them into a
// single model at the end of a run.
package shotmodel

import (
	"fmt"

	"github.com/Faultbox/curtainfire/pkg/math"
)

// Property identifies visually identical shots. It is a plain comparable
// value so it can key maps directly.
type Property struct {
	Type  string
	Color uint32 // 0xRRGGBB
	Scale math.Vec3
	Group string
}

// NewProperty creates a property with unit scale.
func NewProperty(typ string, color uint32) Property {
	return Property{Type: typ, Color: color & 0xFFFFFF, Scale: math.Vec3{X: 1, Y: 1, Z: 1}}
}

// WithScale returns a copy with the given non-uniform scale.
func (p Property) WithScale(s math.Vec3) Property {
	p.Scale = s
	return p
}

// WithGroup returns a copy tagged with group.
func (p Property) WithGroup(group string) Property {
	p.Group = group
	return p
}

// ColorHex formats the color as 0xRRGGBB.
func (p Property) ColorHex() string {
	return fmt.Sprintf("0x%06X", p.Color&0xFFFFFF)
}

// RGB returns the color channels in [0, 1].
func (p Property) RGB() (r, g, b float32) {
	return float32(p.Color>>16&0xFF) / 255, float32(p.Color>>8&0xFF) / 255, float32(p.Color&0xFF) / 255
}

func (p Property) String() string {
	s := p.Type + "_" + p.ColorHex()
	if p.Group != "" {
		s += "[" + p.Group + "]"
	}
	return s
}
