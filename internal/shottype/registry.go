package shottype

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/curtainfire/internal/shotmodel"
	"github.com/Faultbox/curtainfire/pkg/math"
)

// ErrDuplicateType is returned when a type name is registered twice.
var ErrDuplicateType = errors.New("shot type already registered")

// Builtins are registered by NewRegistry.
var Builtins = []Template{
	{Name: "S", Description: "small sphere", Shape: ShapeSphere, Size: 0.3, Segments: 8, Rings: 6},
	{Name: "M", Description: "medium sphere", Shape: ShapeSphere, Size: 0.6, Segments: 12, Rings: 8},
	{Name: "L", Description: "large sphere", Shape: ShapeSphere, Size: 1.2, Segments: 16, Rings: 12},
	{Name: "BOX", Description: "cube", Shape: ShapeBox, Size: 0.5},
	{Name: "PLANE", Description: "double sided quad", Shape: ShapeQuad, Size: 0.5, DoubleSided: true},
	{Name: "BONE", Description: "bone without mesh", Shape: ShapeBone, Size: 1},
}

// Registry maps shot type names to templates and implements
// shotmodel.GeometryFactory. Built geometry is cached per type; every call
// returns a copy scaled and colored for the property.
type Registry struct {
	templates map[string]Template
	cache     *Cache
	log       *zap.Logger
	mu        sync.RWMutex
}

// NewRegistry creates a registry holding the built-in types.
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry{
		templates: make(map[string]Template),
		cache:     NewCache(),
		log:       log,
	}
	for _, t := range Builtins {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a template. Names are unique.
func (r *Registry) Register(t Template) error {
	t = t.withDefaults()
	if err := t.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.templates[t.Name]; ok {
		return fmt.Errorf("%s: %w", t.Name, ErrDuplicateType)
	}
	r.templates[t.Name] = t
	return nil
}

// RegisterCatalog adds every template of a catalog, stopping at the first
// failure.
func (r *Registry) RegisterCatalog(c *Catalog) error {
	for _, t := range c.Types {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	r.log.Info("shot type catalog loaded", zap.Int("types", len(c.Types)))
	return nil
}

// Lookup returns the template registered under name.
func (r *Registry) Lookup(name string) (Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[name]
	return t, ok
}

// Names returns the registered type names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.templates))
	for n := range r.templates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Cache returns the geometry cache.
func (r *Registry) Cache() *Cache {
	return r.cache
}

// Geometry implements shotmodel.GeometryFactory.
func (r *Registry) Geometry(prop shotmodel.Property) (*shotmodel.Geometry, error) {
	t, found := r.Lookup(prop.Type)
	if !found {
		return nil, fmt.Errorf("%q: %w", prop.Type, shotmodel.ErrUnknownShotType)
	}
	base, ok := r.cache.Get(prop.Type)
	if !ok {
		g, err := t.Build()
		if err != nil {
			return nil, err
		}
		r.cache.Set(prop.Type, g)
		base = g

		r.log.Debug("shot type built",
			zap.String("type", prop.Type),
			zap.Int("vertices", len(g.Vertices)),
			zap.Int("indices", len(g.Indices)))
	}
	// Imported models keep their own materials.
	return apply(base, prop, t.Shape != ShapePMX), nil
}

// apply returns a deep copy of g scaled for prop, tinted when tint is set.
func apply(g *shotmodel.Geometry, prop shotmodel.Property, tint bool) *shotmodel.Geometry {
	scale := prop.Scale
	if scale.IsZero() {
		scale = math.Vec3{X: 1, Y: 1, Z: 1}
	}
	inv := math.Vec3{X: safeInv(scale.X), Y: safeInv(scale.Y), Z: safeInv(scale.Z)}

	out := &shotmodel.Geometry{
		Bones:     make([]shotmodel.Bone, len(g.Bones)),
		Vertices:  make([]shotmodel.Vertex, len(g.Vertices)),
		Indices:   append([]int(nil), g.Indices...),
		Materials: append([]shotmodel.Material(nil), g.Materials...),
		Textures:  append([]string(nil), g.Textures...),
		Rigids:    make([]shotmodel.Rigid, len(g.Rigids)),
	}

	for i, b := range g.Bones {
		b.Pos = b.Pos.Mul(scale)
		out.Bones[i] = b
	}
	for i, v := range g.Vertices {
		v.Pos = v.Pos.Mul(scale)
		// Normals take the inverse scale to stay perpendicular.
		v.Normal = v.Normal.Mul(inv).Normalize()
		out.Vertices[i] = v
	}
	for i, rb := range g.Rigids {
		rb.Pos = rb.Pos.Mul(scale)
		rb.Size = rb.Size.Scale(max(scale.X, scale.Y, scale.Z))
		out.Rigids[i] = rb
	}

	if !tint {
		return out
	}
	cr, cg, cb := prop.RGB()
	for i := range out.Materials {
		m := &out.Materials[i]
		m.Diffuse[0], m.Diffuse[1], m.Diffuse[2] = cr, cg, cb
		m.Ambient = [3]float32{cr * 0.5, cg * 0.5, cb * 0.5}
	}
	return out
}

func safeInv(x float32) float32 {
	if x == 0 {
		return 1
	}
	return 1 / x
}

// Cache is an in-memory store of built geometry keyed by type name.
type Cache struct {
	data map[string]*shotmodel.Geometry
	mu   sync.RWMutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string]*shotmodel.Geometry),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) (*shotmodel.Geometry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return g, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, g *shotmodel.Geometry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = g
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*shotmodel.Geometry)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
