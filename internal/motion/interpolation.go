// Package motion turns an easing curve over a frame window into per-frame
// velocity multipliers.
package motion

import (
	"fmt"

	"github.com/Faultbox/curtainfire/pkg/math"
)

// Interpolation eases velocity over the frames [StartFrame, StartFrame+Length).
// It is immutable once constructed.
type Interpolation struct {
	StartFrame   int
	Length       int
	Curve        math.CubicBezierCurve
	SyncVelocity bool
}

// New creates an interpolation window. A non-positive length is clamped to 1.
func New(start, length int, curve math.CubicBezierCurve, syncVelocity bool) (*Interpolation, error) {
	if err := curve.Validate(); err != nil {
		return nil, err
	}
	if length < 1 {
		length = 1
	}
	return &Interpolation{
		StartFrame:   start,
		Length:       length,
		Curve:        curve,
		SyncVelocity: syncVelocity,
	}, nil
}

// EndFrame is the first frame after the window.
func (m *Interpolation) EndFrame() int {
	return m.StartFrame + m.Length
}

// Within reports whether frame lies inside the window.
func (m *Interpolation) Within(frame int) bool {
	return m.StartFrame <= frame && frame < m.EndFrame()
}

// ChangeAmount returns the velocity multiplier for frame. Summed over every
// frame of the window the multipliers add up to Length, so the eased motion
// covers the same distance as the uneased one. Outside the window it is 1.
func (m *Interpolation) ChangeAmount(frame int) (float32, error) {
	if !m.Within(frame) {
		return 1, nil
	}

	unit := 1 / float32(m.Length)
	x1 := float32(frame-m.StartFrame) * unit
	x2 := x1 + unit
	if x2 > 1 {
		x2 = 1
	}

	y1, err := m.Curve.SolveYFromX(x1)
	if err != nil {
		return 0, fmt.Errorf("change amount at frame %d: %w", frame, err)
	}
	y2, err := m.Curve.SolveYFromX(x2)
	if err != nil {
		return 0, fmt.Errorf("change amount at frame %d: %w", frame, err)
	}
	return (y2 - y1) * float32(m.Length), nil
}

// SyncFactor is the factor applied to residual velocity when the window
// closes, matching the curve's exit slope. It is 1 when syncing is off or
// the exit slope is undefined.
func (m *Interpolation) SyncFactor() float32 {
	if !m.SyncVelocity {
		return 1
	}
	dx := 1 - m.Curve.P2.X
	if dx <= 1e-6 {
		return 1
	}
	return (1 - m.Curve.P2.Y) / dx
}
