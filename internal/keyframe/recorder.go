// Package keyframe accumulates per-target bone and morph keyframes with
// priority-based conflict resolution.
package keyframe

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Faultbox/curtainfire/pkg/math"
)

// ErrUnknownTarget is returned when a keyframe names a bone or morph that
// was never registered.
var ErrUnknownTarget = errors.New("unknown keyframe target")

// Priorities used by the shot lifecycle.
const (
	PriorityNormal      = 0
	PriorityPlaceholder = -1
)

// TieRule decides which record survives when two records for the same
// target and frame carry the same priority.
type TieRule int

const (
	// TieLatest keeps the most recently inserted record.
	TieLatest TieRule = iota
	// TieFirst keeps the record that was inserted first.
	TieFirst
)

// ParseTieRule parses "latest" or "first". An empty string means latest.
func ParseTieRule(s string) (TieRule, error) {
	switch s {
	case "", "latest":
		return TieLatest, nil
	case "first":
		return TieFirst, nil
	default:
		return TieLatest, fmt.Errorf("unknown keyframe tie rule %q", s)
	}
}

func (r TieRule) String() string {
	if r == TieFirst {
		return "first"
	}
	return "latest"
}

// BoneFrame is one bone pose. Curve is the position tangent shared by all
// three axes.
type BoneFrame struct {
	Bone     string
	Frame    int
	Pos      math.Vec3
	Rot      math.Quat
	Curve    math.CubicBezierCurve
	Priority int
}

// MorphFrame is one morph weight.
type MorphFrame struct {
	Morph    string
	Frame    int
	Weight   float32
	Priority int
}

// Motion is the finalized track: every target's records grouped by target
// in registration order and sorted by frame within a target.
type Motion struct {
	Bones  []BoneFrame
	Morphs []MorphFrame
}

type track[T any] struct {
	frames map[int]T
}

// Recorder keeps at most one record per (target, frame).
type Recorder struct {
	tie TieRule

	bones      map[string]*track[BoneFrame]
	boneOrder  []string
	morphs     map[string]*track[MorphFrame]
	morphOrder []string
}

// NewRecorder creates an empty recorder.
func NewRecorder(tie TieRule) *Recorder {
	return &Recorder{
		tie:    tie,
		bones:  make(map[string]*track[BoneFrame]),
		morphs: make(map[string]*track[MorphFrame]),
	}
}

// TieRule returns the tie-break rule in use.
func (r *Recorder) TieRule() TieRule {
	return r.tie
}

// RegisterBone makes a bone available as a keyframe target. Registering a
// name twice is a no-op.
func (r *Recorder) RegisterBone(name string) {
	if _, ok := r.bones[name]; ok {
		return
	}
	r.bones[name] = &track[BoneFrame]{frames: make(map[int]BoneFrame)}
	r.boneOrder = append(r.boneOrder, name)
}

// RegisterMorph makes a morph available as a keyframe target.
func (r *Recorder) RegisterMorph(name string) {
	if _, ok := r.morphs[name]; ok {
		return
	}
	r.morphs[name] = &track[MorphFrame]{frames: make(map[int]MorphFrame)}
	r.morphOrder = append(r.morphOrder, name)
}

// AddBone inserts a bone record, resolving conflicts at the same frame by
// priority and then by the tie rule.
func (r *Recorder) AddBone(f BoneFrame) error {
	t, ok := r.bones[f.Bone]
	if !ok {
		return fmt.Errorf("bone %q: %w", f.Bone, ErrUnknownTarget)
	}
	if old, exists := t.frames[f.Frame]; exists && !r.replaces(f.Priority, old.Priority) {
		return nil
	}
	t.frames[f.Frame] = f
	return nil
}

// AddMorph inserts a morph record with the same conflict rule as AddBone.
func (r *Recorder) AddMorph(f MorphFrame) error {
	t, ok := r.morphs[f.Morph]
	if !ok {
		return fmt.Errorf("morph %q: %w", f.Morph, ErrUnknownTarget)
	}
	if old, exists := t.frames[f.Frame]; exists && !r.replaces(f.Priority, old.Priority) {
		return nil
	}
	t.frames[f.Frame] = f
	return nil
}

func (r *Recorder) replaces(newPriority, oldPriority int) bool {
	if newPriority != oldPriority {
		return newPriority > oldPriority
	}
	return r.tie == TieLatest
}

// BoneFrames returns the records of one bone sorted by frame.
func (r *Recorder) BoneFrames(name string) ([]BoneFrame, error) {
	t, ok := r.bones[name]
	if !ok {
		return nil, fmt.Errorf("bone %q: %w", name, ErrUnknownTarget)
	}
	return sortedFrames(t, func(f BoneFrame) int { return f.Frame }), nil
}

// MorphFrames returns the records of one morph sorted by frame.
func (r *Recorder) MorphFrames(name string) ([]MorphFrame, error) {
	t, ok := r.morphs[name]
	if !ok {
		return nil, fmt.Errorf("morph %q: %w", name, ErrUnknownTarget)
	}
	return sortedFrames(t, func(f MorphFrame) int { return f.Frame }), nil
}

// Len returns the total number of bone and morph records.
func (r *Recorder) Len() (bones, morphs int) {
	for _, t := range r.bones {
		bones += len(t.frames)
	}
	for _, t := range r.morphs {
		morphs += len(t.frames)
	}
	return bones, morphs
}

// Motion flattens every track into one motion, ordered by target
// registration and then by frame.
func (r *Recorder) Motion() Motion {
	var m Motion
	for _, name := range r.boneOrder {
		m.Bones = append(m.Bones, sortedFrames(r.bones[name], func(f BoneFrame) int { return f.Frame })...)
	}
	for _, name := range r.morphOrder {
		m.Morphs = append(m.Morphs, sortedFrames(r.morphs[name], func(f MorphFrame) int { return f.Frame })...)
	}
	return m
}

func sortedFrames[T any](t *track[T], frameOf func(T) int) []T {
	out := make([]T, 0, len(t.frames))
	for _, f := range t.frames {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return frameOf(out[i]) < frameOf(out[j]) })
	return out
}
