package shotmodel

import (
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

// Display frame names.
const (
	frameRoot   = "Root"
	frameMorphs = "表情"
	frameShots  = "弾ボーン"
)

// Aggregate flattens every block into one model. Properties are emitted in
// the order they were first allocated. A property whose blocks are
// inconsistent is left out and its error joined into the returned error;
// the model built from the remaining properties is still returned.
// After Aggregate the pool and its blocks are read-only.
func (p *Pool) Aggregate() (*Model, error) {
	if p.finalized {
		return nil, ErrPoolFinalized
	}
	p.finalized = true
	for _, g := range p.groups {
		g.Data.frozen = true
	}

	m := &Model{Bones: append([]GlobalBone(nil), p.bones...)}
	textureIndex := make(map[string]int)

	var errs []error
	for _, prop := range p.properties {
		blocks := p.byProperty[prop]
		if err := checkBlocks(prop, blocks); err != nil {
			errs = append(errs, err)
			p.log.Warn("property skipped", zap.Stringer("property", prop), zap.Error(err))
			continue
		}
		m.appendProperty(prop, blocks, textureIndex)
	}

	// Bone-only blocks have no morphs, but still carry rigid bodies.
	for _, g := range p.groups {
		if !g.Data.Geometry.HasMesh() {
			m.appendRigids(g.Data)
		}
	}

	m.Frames = displayFrames(len(m.Bones), len(m.Morphs))

	p.log.Info("model aggregated",
		zap.Int("properties", len(p.properties)),
		zap.Int("blocks", len(p.groups)),
		zap.Int("bones", len(m.Bones)),
		zap.Int("vertices", len(m.Vertices)),
		zap.Int("materials", len(m.Materials)),
		zap.Int("morphs", len(m.Morphs)),
		zap.Int("reused", p.reuses))

	return m, errors.Join(errs...)
}

// checkBlocks verifies that every block of a property shares the first
// block's layout.
func checkBlocks(prop Property, blocks []*Data) error {
	if len(blocks) == 0 {
		return fmt.Errorf("%s: %w", prop, ErrEmptyProperty)
	}
	first := blocks[0].Geometry
	for _, d := range blocks[1:] {
		g := d.Geometry
		if len(g.Vertices) != len(first.Vertices) ||
			len(g.Indices) != len(first.Indices) ||
			len(g.Materials) != len(first.Materials) {
			return fmt.Errorf("%s: block %d layout differs from block %d: %w",
				prop, d.ID, blocks[0].ID, ErrInvalidGeometry)
		}
		for i := range g.Materials {
			if g.Materials[i].FaceCount != first.Materials[i].FaceCount {
				return fmt.Errorf("%s: block %d material %d differs: %w", prop, d.ID, i, ErrInvalidGeometry)
			}
		}
	}
	return nil
}

func (m *Model) appendProperty(prop Property, blocks []*Data, textureIndex map[string]int) {
	layout := blocks[0].Geometry

	// Textures, deduplicated across properties
	localTex := make([]int, len(layout.Textures))
	for i, name := range layout.Textures {
		idx, ok := textureIndex[name]
		if !ok {
			idx = len(m.Textures)
			textureIndex[name] = idx
			m.Textures = append(m.Textures, name)
		}
		localTex[i] = idx
	}
	remapTex := func(i int) int {
		if i < 0 || i >= len(localTex) {
			return -1
		}
		return localTex[i]
	}

	// Vertices, with bones moved to global indices
	bases := make([]int, len(blocks))
	for b, d := range blocks {
		bases[b] = len(m.Vertices)
		for _, v := range d.Geometry.Vertices {
			v.Bone += d.BoneOffset
			m.Vertices = append(m.Vertices, v)
		}
	}

	// One material per local material; its range holds that material's
	// faces from every block.
	start := 0
	for i, mat := range layout.Materials {
		for b, d := range blocks {
			for _, idx := range d.Geometry.Indices[start : start+mat.FaceCount] {
				m.Indices = append(m.Indices, bases[b]+idx)
			}
		}
		start += mat.FaceCount

		mat.Name = prop.Type + "_" + prop.ColorHex()
		if len(layout.Materials) != 1 {
			mat.Name += "_" + strconv.Itoa(i)
		}
		mat.Texture = remapTex(mat.Texture)
		mat.Sphere = remapTex(mat.Sphere)
		if !mat.SharedToon {
			mat.Toon = remapTex(mat.Toon)
		}
		mat.FaceCount *= len(blocks)
		m.Materials = append(m.Materials, mat)
	}

	for b, d := range blocks {
		for _, vm := range d.Morphs() {
			morph := Morph{Name: vm.Name}
			for i, off := range vm.Offsets {
				if off.IsZero() {
					continue
				}
				morph.Offsets = append(morph.Offsets, MorphOffset{Vertex: bases[b] + i, Offset: off})
			}
			m.Morphs = append(m.Morphs, morph)
		}
		m.appendRigids(d)
	}
}

func (m *Model) appendRigids(d *Data) {
	for _, r := range d.Geometry.Rigids {
		if r.Bone < 0 {
			r.Bone = 0
		} else {
			r.Bone += d.BoneOffset
		}
		r.Name = fmt.Sprintf("%s_%d", r.Name, d.ID)
		m.Rigids = append(m.Rigids, r)
	}
}

func displayFrames(bones, morphs int) []DisplayFrame {
	root := DisplayFrame{Name: frameRoot, Special: true, Kind: FrameBones, Indices: []int{0}}
	morphFrame := DisplayFrame{Name: frameMorphs, Special: true, Kind: FrameMorphs}
	for i := 0; i < morphs; i++ {
		morphFrame.Indices = append(morphFrame.Indices, i)
	}
	shots := DisplayFrame{Name: frameShots, Kind: FrameBones}
	for i := 1; i < bones; i++ {
		shots.Indices = append(shots.Indices, i)
	}
	return []DisplayFrame{root, morphFrame, shots}
}
