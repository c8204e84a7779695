package shotmodel

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/curtainfire/pkg/math"
)

// Pool errors.
var (
	ErrGroupOccupied = errors.New("shot group is still occupied")
	ErrEmptyProperty = errors.New("property has no shot groups")
	ErrPoolFinalized = errors.New("shot pool already finalized")
)

// GlobalBone is a bone in the model-wide bone list.
type GlobalBone struct {
	Name   string
	Pos    math.Vec3
	Parent int
}

// Pool hands out Data blocks to shots, reusing the blocks of dead shots
// that share the same property and parent.
type Pool struct {
	factory GeometryFactory
	log     *zap.Logger

	bones  []GlobalBone
	groups []*Group

	occupied map[int]*Group // owner id -> group
	released []*Group       // vacated this frame, reusable after Collect
	reusable map[Key][]*Group

	properties []Property
	byProperty map[Property][]*Data

	finalized bool

	// Stats
	misses int
	reuses int
}

// NewPool creates a pool backed by factory. A nil logger disables logging.
func NewPool(factory GeometryFactory, log *zap.Logger) *Pool {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{
		factory:    factory,
		log:        log,
		bones:      []GlobalBone{{Name: RootBoneName, Parent: -1}},
		occupied:   make(map[int]*Group),
		reusable:   make(map[Key][]*Group),
		byProperty: make(map[Property][]*Data),
	}
}

// Acquire binds a block to owner. A vacated block with the same property
// and parent is reused when available; otherwise the factory builds a new
// one whose root bone hangs under parentBone (0 for the model root).
// reused reports which path was taken.
func (p *Pool) Acquire(owner, parentID, parentBone int, prop Property) (data *Data, reused bool, err error) {
	if p.finalized {
		return nil, false, ErrPoolFinalized
	}
	if g, ok := p.occupied[owner]; ok {
		return nil, false, fmt.Errorf("owner %d already holds block %d: %w", owner, g.Data.ID, ErrGroupOccupied)
	}

	key := Key{Property: prop, ParentID: parentID}
	if list := p.reusable[key]; len(list) > 0 {
		g := list[0]
		if len(list) == 1 {
			delete(p.reusable, key)
		} else {
			p.reusable[key] = list[1:]
		}
		if !g.Vacant() {
			return nil, false, fmt.Errorf("block %d owned by %d: %w", g.Data.ID, g.Owner, ErrGroupOccupied)
		}

		g.Owner = owner
		p.occupied[owner] = g
		p.reuses++
		p.log.Debug("block reused",
			zap.Int("block", g.Data.ID),
			zap.Int("owner", owner),
			zap.Stringer("property", prop))
		return g.Data, true, nil
	}

	geom, err := p.factory.Geometry(prop)
	if err != nil {
		return nil, false, fmt.Errorf("building %s: %w", prop, err)
	}
	if err := geom.Validate(); err != nil {
		return nil, false, fmt.Errorf("building %s: %w", prop, err)
	}

	data = &Data{
		ID:         len(p.groups),
		Property:   prop,
		Geometry:   geom,
		BoneOffset: len(p.bones),
	}
	p.appendBones(geom.Bones, parentBone)
	data.addFadeMorph()

	if geom.HasMesh() {
		if _, seen := p.byProperty[prop]; !seen {
			p.properties = append(p.properties, prop)
		}
		p.byProperty[prop] = append(p.byProperty[prop], data)
	}

	g := &Group{Data: data, Owner: owner, ParentID: parentID}
	p.groups = append(p.groups, g)
	p.occupied[owner] = g
	p.misses++

	p.log.Debug("block allocated",
		zap.Int("block", data.ID),
		zap.Int("owner", owner),
		zap.Int("bones", len(geom.Bones)),
		zap.Int("vertices", len(geom.Vertices)),
		zap.Stringer("property", prop))
	return data, false, nil
}

func (p *Pool) appendBones(bones []Bone, parentBone int) {
	base := len(p.bones)
	if parentBone < 0 || parentBone >= base {
		parentBone = 0
	}
	for i, b := range bones {
		parent := parentBone
		if i > 0 {
			parent = 0
			if b.Parent >= 0 {
				parent = base + b.Parent
			}
		}
		p.bones = append(p.bones, GlobalBone{
			Name:   BoneName(len(p.bones)),
			Pos:    b.Pos,
			Parent: parent,
		})
	}
}

// Release vacates the block held by owner. The block becomes reusable at
// the next Collect, once the owner's death has been fully recorded.
func (p *Pool) Release(owner int) {
	g, ok := p.occupied[owner]
	if !ok {
		return
	}
	delete(p.occupied, owner)
	g.Owner = noOwner
	p.released = append(p.released, g)
}

// Collect makes every block released since the last call reusable.
func (p *Pool) Collect() {
	for _, g := range p.released {
		key := g.Key()
		p.reusable[key] = append(p.reusable[key], g)
	}
	p.released = p.released[:0]
}

// Bones returns the model-wide bone list. Bone 0 is the root.
func (p *Pool) Bones() []GlobalBone {
	return p.bones
}

// Blocks returns the number of allocated blocks.
func (p *Pool) Blocks() int {
	return len(p.groups)
}

// Occupied returns the number of blocks currently held by live shots.
func (p *Pool) Occupied() int {
	return len(p.occupied)
}

// Stats returns pool miss and reuse counts.
func (p *Pool) Stats() (misses, reuses int) {
	return p.misses, p.reuses
}
