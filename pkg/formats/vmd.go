package formats

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/Faultbox/curtainfire/pkg/encoding"
)

// VMD format errors.
var (
	ErrInvalidVMDMagic  = errors.New("invalid VMD magic: expected 'Vocaloid Motion Data 0002'")
	ErrTruncatedVMDData = errors.New("truncated VMD data")
)

// VMDNameSize is the Shift_JIS byte length of a bone or morph name field.
const VMDNameSize = 15

// Fixed field sizes.
const (
	vmdHeaderSize    = 30
	vmdModelNameSize = 20
	vmdBoneNameSize  = VMDNameSize
	vmdMorphNameSize = VMDNameSize
	vmdBoneFrameSize = vmdBoneNameSize + 4 + 12 + 16 + 64
)

const vmdMagic = "Vocaloid Motion Data 0002"

// VMDCurve is an interpolation curve with control points in [0, 127].
type VMDCurve struct {
	X1, Y1, X2, Y2 uint8
}

// VMDLinear is the straight-line curve.
var VMDLinear = VMDCurve{X1: 20, Y1: 20, X2: 107, Y2: 107}

// NewVMDCurve quantizes unit-square control points.
func NewVMDCurve(x1, y1, x2, y2 float32) VMDCurve {
	q := func(v float32) uint8 {
		v = min(max(v, 0), 1)
		return uint8(v*127 + 0.5)
	}
	return VMDCurve{X1: q(x1), Y1: q(y1), X2: q(x2), Y2: q(y2)}
}

// VMDBoneFrame is one bone keyframe. Curves are ordered X, Y, Z, rotation.
type VMDBoneFrame struct {
	Bone     string
	Frame    uint32
	Position [3]float32
	Rotation [4]float32 // x, y, z, w
	Curves   [4]VMDCurve
}

// VMDMorphFrame is one morph keyframe.
type VMDMorphFrame struct {
	Morph  string
	Frame  uint32
	Weight float32
}

// VMD is a motion. Camera, light, shadow and IK sections are written empty.
type VMD struct {
	ModelName string
	Bones     []VMDBoneFrame
	Morphs    []VMDMorphFrame
}

// SortFrames orders both tracks by frame, keeping the order of equal
// frames.
func (v *VMD) SortFrames() {
	sort.SliceStable(v.Bones, func(i, j int) bool { return v.Bones[i].Frame < v.Bones[j].Frame })
	sort.SliceStable(v.Morphs, func(i, j int) bool { return v.Morphs[i].Frame < v.Morphs[j].Frame })
}

// interpolationBlock lays the four curves out the way MMD stores them:
// a 16-byte row of X1 values, Y1 values, X2 values and Y2 values, repeated
// four times with each copy shifted one byte further.
func (f VMDBoneFrame) interpolationBlock() [64]byte {
	var row [16]byte
	for i, c := range f.Curves {
		row[i] = c.X1
		row[4+i] = c.Y1
		row[8+i] = c.X2
		row[12+i] = c.Y2
	}

	var out [64]byte
	for r := 0; r < 4; r++ {
		copy(out[r*16:], row[r:])
	}
	return out
}

func curvesFromBlock(b [64]byte) [4]VMDCurve {
	var c [4]VMDCurve
	for i := range c {
		c[i] = VMDCurve{X1: b[i], Y1: b[4+i], X2: b[8+i], Y2: b[12+i]}
	}
	return c
}

// WriteVMD writes v.
func WriteVMD(w io.Writer, v *VMD) error {
	bw := bufio.NewWriter(w)
	b := &binWriter{w: bw}

	b.raw(fixed(vmdMagic, vmdHeaderSize))
	b.raw(encoding.UTF8ToFixedString(v.ModelName, vmdModelNameSize))

	b.write(uint32(len(v.Bones)))
	for _, f := range v.Bones {
		b.raw(encoding.UTF8ToFixedString(f.Bone, vmdBoneNameSize))
		b.write(f.Frame)
		b.write(f.Position)
		b.write(f.Rotation)
		b.write(f.interpolationBlock())
	}

	b.write(uint32(len(v.Morphs)))
	for _, f := range v.Morphs {
		b.raw(encoding.UTF8ToFixedString(f.Morph, vmdMorphNameSize))
		b.write(f.Frame)
		b.write(f.Weight)
	}

	// Camera, light, self shadow, IK
	b.write([4]uint32{})

	if b.err != nil {
		return fmt.Errorf("writing VMD: %w", b.err)
	}
	return bw.Flush()
}

// WriteVMDFile writes v to path.
func WriteVMDFile(path string, v *VMD) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating VMD file: %w", err)
	}
	if err := WriteVMD(f, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ParseVMD parses the bone and morph sections of VMD data.
func ParseVMD(data []byte) (*VMD, error) {
	if len(data) < vmdHeaderSize+vmdModelNameSize {
		return nil, ErrTruncatedVMDData
	}

	r := newBinReader(data)
	if magic := encoding.TrimNullBytes(r.bytes(vmdHeaderSize)); string(magic) != vmdMagic {
		return nil, ErrInvalidVMDMagic
	}

	v := &VMD{ModelName: encoding.FixedStringToUTF8(r.bytes(vmdModelNameSize))}

	v.Bones = make([]VMDBoneFrame, r.vmdCount(vmdBoneFrameSize))
	for i := range v.Bones {
		f := &v.Bones[i]
		f.Bone = encoding.FixedStringToUTF8(r.bytes(vmdBoneNameSize))
		f.Frame = r.u32()
		f.Position = r.vec3()
		f.Rotation = r.vec4()
		var block [64]byte
		r.read(&block)
		f.Curves = curvesFromBlock(block)
	}

	v.Morphs = make([]VMDMorphFrame, r.vmdCount(vmdMorphNameSize+8))
	for i := range v.Morphs {
		f := &v.Morphs[i]
		f.Morph = encoding.FixedStringToUTF8(r.bytes(vmdMorphNameSize))
		f.Frame = r.u32()
		f.Weight = r.f32()
	}

	if r.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncatedVMDData, r.err)
	}
	return v, nil
}

// ParseVMDFile parses a VMD file from disk.
func ParseVMDFile(path string) (*VMD, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading VMD file: %w", err)
	}
	return ParseVMD(data)
}

func (b *binReader) vmdCount(size int) int {
	n := b.u32()
	if b.err != nil {
		return 0
	}
	if int64(n)*int64(size) > int64(b.r.Len()) {
		b.err = io.ErrUnexpectedEOF
		return 0
	}
	return int(n)
}

func fixed(s string, size int) []byte {
	out := make([]byte, size)
	copy(out, s)
	return out
}
