package keyframe

import (
	"github.com/Faultbox/curtainfire/pkg/math"
)

// SampleBone evaluates a frame-sorted bone track at frame the way the
// motion player does: between two records the position follows the later
// record's curve and the rotation is slerped linearly.
func SampleBone(frames []BoneFrame, frame float32) (math.Vec3, math.Quat, error) {
	if len(frames) == 0 {
		return math.Vec3{}, math.QuatIdentity(), nil
	}
	if len(frames) == 1 || frame <= float32(frames[0].Frame) {
		return frames[0].Pos, frames[0].Rot, nil
	}

	// Find surrounding keyframes
	var prev, next int
	for i := range frames {
		if float32(frames[i].Frame) > frame {
			next = i
			break
		}
		prev = i
		next = i
	}

	// At or past the last frame
	if prev == next {
		k := frames[prev]
		return k.Pos, k.Rot, nil
	}

	k0 := frames[prev]
	k1 := frames[next]
	x := (frame - float32(k0.Frame)) / float32(k1.Frame-k0.Frame)

	y, err := k1.Curve.SolveYFromX(x)
	if err != nil {
		return math.Vec3{}, math.Quat{}, err
	}
	return k0.Pos.Lerp(k1.Pos, y), k0.Rot.Slerp(k1.Rot, x), nil
}

// SampleMorph evaluates a frame-sorted morph track at frame with linear
// interpolation between records.
func SampleMorph(frames []MorphFrame, frame float32) float32 {
	if len(frames) == 0 {
		return 0
	}
	if frame <= float32(frames[0].Frame) {
		return frames[0].Weight
	}
	for i := 1; i < len(frames); i++ {
		k0, k1 := frames[i-1], frames[i]
		if frame < float32(k1.Frame) {
			t := (frame - float32(k0.Frame)) / float32(k1.Frame-k0.Frame)
			return k0.Weight + t*(k1.Weight-k0.Weight)
		}
	}
	return frames[len(frames)-1].Weight
}
