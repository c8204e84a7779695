package export

import (
	"github.com/Faultbox/curtainfire/internal/keyframe"
	"github.com/Faultbox/curtainfire/pkg/formats"
	"github.com/Faultbox/curtainfire/pkg/math"
)

// ToVMD converts a recorded motion. VMD frames are unsigned, so records
// before frame 0 are dropped; dropped reports how many.
func ToVMD(m keyframe.Motion, modelName string) (v *formats.VMD, dropped int) {
	v = &formats.VMD{
		ModelName: modelName,
		Bones:     make([]formats.VMDBoneFrame, 0, len(m.Bones)),
		Morphs:    make([]formats.VMDMorphFrame, 0, len(m.Morphs)),
	}

	for _, f := range m.Bones {
		if f.Frame < 0 {
			dropped++
			continue
		}
		c := curve(f.Curve)
		v.Bones = append(v.Bones, formats.VMDBoneFrame{
			Bone:     f.Bone,
			Frame:    uint32(f.Frame),
			Position: vec3(f.Pos),
			Rotation: [4]float32{f.Rot.X, f.Rot.Y, f.Rot.Z, f.Rot.W},
			Curves:   [4]formats.VMDCurve{c, c, c, formats.VMDLinear},
		})
	}

	for _, f := range m.Morphs {
		if f.Frame < 0 {
			dropped++
			continue
		}
		v.Morphs = append(v.Morphs, formats.VMDMorphFrame{
			Morph:  f.Morph,
			Frame:  uint32(f.Frame),
			Weight: f.Weight,
		})
	}

	v.SortFrames()
	return v, dropped
}

func curve(c math.CubicBezierCurve) formats.VMDCurve {
	return formats.NewVMDCurve(c.P1.X, c.P1.Y, c.P2.X, c.P2.Y)
}
