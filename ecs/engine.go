package ecs

import (
	"math/bits"
	"reflect"

	"github.com/kamstrup/intmap"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

const (
	regionEntityPool = iota
	regionPositions
	regionGenerations
	regionSignatures
	regionGroups
)

// MaxTypeBits bounds MaxComponentTypes + MaxTags, the width of every entity signature.
const MaxTypeBits = 1 << 16

// ComponentSpec registers a component type at construction time.
type ComponentSpec struct {
	ID           ComponentID
	Size         uintptr
	MaxInstances uint32
}

// SystemSpec registers a system at construction time. An empty Name is derived from the function.
type SystemSpec struct {
	Fn    System
	Group GroupID
	Name  string
}

// Config fixes every capacity of an Engine for its whole lifetime.
// Component, tag and group ids must be contiguous integers starting at 0.
type Config struct {
	MaxEntities       uint32
	MaxComponentTypes uint32
	MaxTags           uint32
	MaxSystems        uint32
	MaxSystemGroups   uint32

	// Context is handed back to systems through Engine.Context.
	Context any

	Components []ComponentSpec
	Systems    []SystemSpec
}

// Option configures optional Engine behavior.
type Option func(*Engine)

// WithLogger sets the logger used for lifecycle and registration events.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// Engine owns every entity, component pool, signature and system of one ECS instance.
// It is not safe for concurrent use.
type Engine struct {
	maxEntities       uint32
	maxComponentTypes uint32
	maxTags           uint32
	maxSystems        uint32
	maxSystemGroups   uint32

	// mem holds the entity pool, positions, generations, signatures and group descriptors.
	mem        *arena
	entities   entityRegistry
	signatures signatureIndex
	systems    systemTable

	pools []*ComponentPool
	types typeRegistry

	context any
	logger  zerolog.Logger
	freed   bool
}

// New validates cfg, lays out every table in one allocation and registers the
// components and systems listed in cfg.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	numBits, _ := bits.Add32(cfg.MaxComponentTypes, cfg.MaxTags, 0)
	sizes := make([]uintptr, 0, 5)
	for _, region := range []struct {
		elem uintptr
		n    uint32
	}{
		{8, cfg.MaxEntities}, // entity pool
		{4, cfg.MaxEntities}, // positions
		{4, cfg.MaxEntities}, // generations
		{uintptr(signatureBytes(numBits)), cfg.MaxEntities},
		{8, cfg.MaxSystemGroups},
	} {
		size, err := mulSize(region.elem, region.n)
		if err != nil {
			return nil, err
		}
		sizes = append(sizes, size)
	}

	layout, err := planArena(sizes...)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		maxEntities:       cfg.MaxEntities,
		maxComponentTypes: cfg.MaxComponentTypes,
		maxTags:           cfg.MaxTags,
		maxSystems:        cfg.MaxSystems,
		maxSystemGroups:   cfg.MaxSystemGroups,
		pools:             make([]*ComponentPool, cfg.MaxComponentTypes),
		types:             newTypeRegistry(int(cfg.MaxComponentTypes)),
		context:           cfg.Context,
		logger:            zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.mem = newArena(layout)
	e.entities.init(
		carve[Entity](e.mem, regionEntityPool),
		carve[uint32](e.mem, regionPositions),
		carve[uint32](e.mem, regionGenerations),
	)
	e.signatures.init(carve[byte](e.mem, regionSignatures), cfg.MaxComponentTypes, cfg.MaxTags)
	e.systems.init(carve[groupDescriptor](e.mem, regionGroups), cfg.MaxSystems)

	e.logger.Debug().
		Uint32("max_entities", cfg.MaxEntities).
		Uint32("max_component_types", cfg.MaxComponentTypes).
		Uint32("max_tags", cfg.MaxTags).
		Uint32("max_systems", cfg.MaxSystems).
		Uint32("max_system_groups", cfg.MaxSystemGroups).
		Uint64("arena_bytes", uint64(layout.total)).
		Msg("engine created")

	for _, spec := range cfg.Components {
		if err := e.registerPool(spec.ID, spec.Size, spec.MaxInstances, nil); err != nil {
			e.Free()
			return nil, eris.Wrapf(err, "failed to register component %d", spec.ID)
		}
	}
	for _, spec := range cfg.Systems {
		if spec.Name == "" {
			e.RegisterSystem(spec.Fn, spec.Group)
		} else {
			e.RegisterNamedSystem(spec.Name, spec.Fn, spec.Group)
		}
	}

	return e, nil
}

func (cfg Config) validate() error {
	if cfg.MaxEntities == 0 {
		return eris.Wrap(ErrInvalidConfig, "max entities must be greater than zero")
	}
	if cfg.MaxEntities == NoEntityID {
		return eris.Wrapf(ErrInvalidConfig, "max entities must not equal the no-entity id %#x", NoEntityID)
	}
	if _, carry := bits.Add32(cfg.MaxComponentTypes, cfg.MaxTags, 0); carry != 0 {
		return eris.Wrapf(ErrCapacityOverflow, "%d component types + %d tags", cfg.MaxComponentTypes, cfg.MaxTags)
	}
	if uint32(len(cfg.Systems)) > cfg.MaxSystems {
		return eris.Wrapf(ErrInvalidConfig, "%d systems exceed max systems %d", len(cfg.Systems), cfg.MaxSystems)
	}

	if width := cfg.MaxComponentTypes + cfg.MaxTags; width > MaxTypeBits {
		return eris.Wrapf(ErrInvalidConfig, "%d component types + %d tags exceed %d", cfg.MaxComponentTypes, cfg.MaxTags, MaxTypeBits)
	}

	seen := intmap.NewSet[ComponentID](len(cfg.Components))
	for _, spec := range cfg.Components {
		if uint32(spec.ID) >= cfg.MaxComponentTypes {
			return eris.Wrapf(ErrInvalidConfig, "component id %d out of range (%d types)", spec.ID, cfg.MaxComponentTypes)
		}
		if seen.Add(spec.ID) {
			return eris.Wrapf(ErrInvalidConfig, "component id %d listed twice", spec.ID)
		}
	}
	for i, spec := range cfg.Systems {
		if spec.Fn == nil {
			return eris.Wrapf(ErrInvalidConfig, "system %d has no function", i)
		}
		if uint32(spec.Group) >= cfg.MaxSystemGroups {
			return eris.Wrapf(ErrInvalidConfig, "system %d group %d out of range (%d groups)", i, spec.Group, cfg.MaxSystemGroups)
		}
	}
	return nil
}

func (e *Engine) mustBeLive() {
	if e.freed {
		panic(eris.Wrap(ErrEngineFreed, "engine used after Free"))
	}
}

// Free releases every component pool and the root arena. Any later call on the engine panics.
func (e *Engine) Free() {
	if e.freed {
		return
	}

	for i, pool := range e.pools {
		if pool != nil {
			pool.free()
			e.pools[i] = nil
		}
	}

	e.mem = nil
	e.entities = entityRegistry{}
	e.signatures = signatureIndex{}
	e.systems = systemTable{}
	e.pools = nil
	e.freed = true

	e.logger.Debug().Msg("engine freed")
}

// Freed reports whether Free has been called.
func (e *Engine) Freed() bool {
	return e.freed
}

// Clone returns an independent deep copy of the engine. Every table is copied and
// re-carved from the copy's own allocations; systems, the user context and the logger are shared.
func (e *Engine) Clone() *Engine {
	e.mustBeLive()

	c := &Engine{
		maxEntities:       e.maxEntities,
		maxComponentTypes: e.maxComponentTypes,
		maxTags:           e.maxTags,
		maxSystems:        e.maxSystems,
		maxSystemGroups:   e.maxSystemGroups,
		mem:               e.mem.clone(),
		pools:             make([]*ComponentPool, len(e.pools)),
		types:             newTypeRegistry(int(e.maxComponentTypes)),
		context:           e.context,
		logger:            e.logger,
	}

	c.entities = entityRegistry{
		pool:        carve[Entity](c.mem, regionEntityPool),
		positions:   carve[uint32](c.mem, regionPositions),
		generations: carve[uint32](c.mem, regionGenerations),
		active:      e.entities.active,
	}
	c.signatures = e.signatures
	c.signatures.rows = carve[byte](c.mem, regionSignatures)

	c.systems = e.systems.clone(carve[groupDescriptor](c.mem, regionGroups))

	for i, pool := range e.pools {
		if pool == nil {
			continue
		}
		c.pools[i] = pool.clone()
		if pool.typ != nil {
			c.types.put(pool.typ, pool.id)
		}
	}

	e.logger.Debug().Uint32("active_entities", c.entities.active).Msg("engine cloned")
	return c
}

// SetContext replaces the user context handed to systems.
func (e *Engine) SetContext(ctx any) {
	e.mustBeLive()
	e.context = ctx
}

// Context returns the user context.
func (e *Engine) Context() any {
	e.mustBeLive()
	return e.context
}

// RegisterComponentSize registers a component type stored as size raw bytes with room for
// maxInstances records. Registering the same id twice panics.
func (e *Engine) RegisterComponentSize(id ComponentID, size uintptr, maxInstances uint32) error {
	return e.registerPool(id, size, maxInstances, nil)
}

func (e *Engine) registerPool(id ComponentID, size uintptr, maxInstances uint32, typ reflect.Type) error {
	e.mustBeLive()

	if uint32(id) >= e.maxComponentTypes {
		fatalf(ErrOutOfRange, "component id %d of %d", id, e.maxComponentTypes)
	}
	if e.pools[id] != nil {
		fatalf(ErrDuplicateComponent, "component id %d", id)
	}

	pool, err := newComponentPool(id, size, maxInstances, e.maxEntities, typ)
	if err != nil {
		return err
	}
	e.pools[id] = pool
	if typ != nil {
		e.types.put(typ, id)
	}

	event := e.logger.Debug().
		Uint32("component_id", uint32(id)).
		Uint64("size", uint64(size)).
		Uint32("max_instances", maxInstances)
	if typ != nil {
		event = event.Str("type", typ.String())
	}
	event.Msg("component registered")
	return nil
}

// UnregisterComponent strips the component from every entity and drops its pool.
func (e *Engine) UnregisterComponent(id ComponentID) {
	pool := e.pool(id)

	for i := uint32(0); i < e.entities.active; i++ {
		e.signatures.set(e.entities.pool[i].Slot, uint32(id), false)
	}
	if pool.typ != nil {
		e.types.del(pool.typ)
	}
	pool.free()
	e.pools[id] = nil

	e.logger.Debug().Uint32("component_id", uint32(id)).Msg("component unregistered")
}

// pool returns the registered pool for id or panics.
func (e *Engine) pool(id ComponentID) *ComponentPool {
	e.mustBeLive()

	if uint32(id) >= e.maxComponentTypes {
		fatalf(ErrOutOfRange, "component id %d of %d", id, e.maxComponentTypes)
	}
	pool := e.pools[id]
	if pool == nil {
		fatalf(ErrUnknownComponent, "component id %d", id)
	}
	return pool
}

// Pool returns the storage of a registered component type.
func (e *Engine) Pool(id ComponentID) *ComponentPool {
	return e.pool(id)
}

// RegisterSystem adds fn to the end of group. The system name is taken from the function.
func (e *Engine) RegisterSystem(fn System, group GroupID) {
	e.RegisterNamedSystem(systemName(fn), fn, group)
}

// RegisterNamedSystem adds fn to the end of group under an explicit name.
func (e *Engine) RegisterNamedSystem(name string, fn System, group GroupID) {
	e.mustBeLive()
	if fn == nil {
		panic(eris.Wrapf(ErrInvalidConfig, "system %q has no function", name))
	}

	e.systems.register(name, fn, group)
	e.logger.Debug().Str("system", name).Uint32("group", uint32(group)).Msg("system registered")
}

// RunGroup runs every system of group synchronously in registration order.
func (e *Engine) RunGroup(group GroupID) {
	e.mustBeLive()
	e.systems.run(e, group)
}

// SystemStats returns execution statistics for every registered system.
func (e *Engine) SystemStats() *SchedulerStats {
	e.mustBeLive()
	return e.systems.stats()
}
