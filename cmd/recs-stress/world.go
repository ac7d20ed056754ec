package main

import (
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/plus3/recs/ecs"
)

type Position struct {
	X, Y float32
}

type Velocity struct {
	X, Y float32
}

type Health struct {
	HP    int32
	Decay int32
}

type Lifetime struct {
	Frames uint32
}

const (
	PositionID ecs.ComponentID = iota
	VelocityID
	HealthID
	LifetimeID
	numComponents
)

const (
	TagPlayer ecs.TagID = iota
	TagEnemy
	TagDead
	numTags
)

const (
	GroupUpdate ecs.GroupID = iota
	GroupRender
	numGroups
)

const worldBounds = 1000

// world holds the stress simulation: an engine plus the masks its systems query with.
type world struct {
	engine *ecs.Engine
	frame  *ecs.UpdateFrame
	rng    *rand.Rand
	cfg    Config

	moving  ecs.Signature
	enemies ecs.Filter
	dead    ecs.Signature

	spawned  int
	reaped   int
	expired  int
	rendered int
}

func newWorld(cfg Config, logger zerolog.Logger) (*world, error) {
	capacity := uint32(cfg.Entities + cfg.Headroom)
	w := &world{
		frame: ecs.NewUpdateFrame(0),
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		cfg:   cfg,
	}

	e, err := ecs.New(ecs.Config{
		MaxEntities:       capacity,
		MaxComponentTypes: uint32(numComponents),
		MaxTags:           uint32(numTags),
		MaxSystems:        8,
		MaxSystemGroups:   uint32(numGroups),
		Context:           w.frame,
	}, ecs.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	for _, register := range []func() error{
		func() error { return ecs.RegisterComponent[Position](e, PositionID, capacity) },
		func() error { return ecs.RegisterComponent[Velocity](e, VelocityID, capacity) },
		func() error { return ecs.RegisterComponent[Health](e, HealthID, capacity) },
		func() error { return ecs.RegisterComponent[Lifetime](e, LifetimeID, capacity) },
	} {
		if err := register(); err != nil {
			e.Free()
			return nil, err
		}
	}

	w.engine = e
	w.moving = e.NewMask([]ecs.ComponentID{PositionID, VelocityID}, nil)
	w.enemies = ecs.Filter{
		Include:   e.NewMask([]ecs.ComponentID{HealthID}, []ecs.TagID{TagEnemy}),
		IncludeOp: ecs.MatchAll,
	}.Without(e.NewMask(nil, []ecs.TagID{TagDead}), ecs.MatchAny)
	w.dead = e.NewMask(nil, []ecs.TagID{TagDead})

	e.RegisterNamedSystem("movement", w.movement, GroupUpdate)
	e.RegisterNamedSystem("damage", w.damage, GroupUpdate)
	e.RegisterNamedSystem("aging", w.aging, GroupUpdate)
	e.RegisterNamedSystem("reaper", w.reaper, GroupUpdate)
	e.RegisterNamedSystem("render", w.render, GroupRender)

	return w, nil
}

func (w *world) populate(n int) {
	for range n {
		w.spawn()
	}
}

// spawn creates an entity with a random subset of components right away.
func (w *world) spawn() ecs.Entity {
	e := w.engine
	ent := e.AddEntity()
	ecs.Add(e, ent, Position{X: w.rng.Float32() * worldBounds, Y: w.rng.Float32() * worldBounds})
	if w.rng.Intn(4) != 0 {
		ecs.Add(e, ent, Velocity{X: w.rng.Float32()*2 - 1, Y: w.rng.Float32()*2 - 1})
	}
	ecs.Add(e, ent, Lifetime{Frames: uint32(w.rng.Intn(w.cfg.MaxLifetime) + 1)})
	if w.rng.Intn(3) == 0 {
		ecs.Add(e, ent, Health{HP: int32(w.rng.Intn(100) + 1), Decay: int32(w.rng.Intn(5) + 1)})
		e.AddTag(ent, TagEnemy)
	} else {
		e.AddTag(ent, TagPlayer)
	}
	w.spawned++
	return ent
}

// queueSpawn asks the frame's command buffer for a replacement entity.
func (w *world) queueSpawn() {
	e := w.engine
	values := []ecs.ComponentValue{
		ecs.Value(e, Position{X: w.rng.Float32() * worldBounds, Y: w.rng.Float32() * worldBounds}),
		ecs.Value(e, Velocity{X: w.rng.Float32()*2 - 1, Y: w.rng.Float32()*2 - 1}),
		ecs.Value(e, Lifetime{Frames: uint32(w.rng.Intn(w.cfg.MaxLifetime) + 1)}),
	}
	w.frame.Commands.SpawnTagged([]ecs.TagID{TagPlayer}, func(ecs.Entity) { w.spawned++ }, values...)
}

func (w *world) movement(e *ecs.Engine) {
	dt := float32(ecs.ContextOf[ecs.UpdateFrame](e).DeltaTime)
	for ent := range e.Query(w.moving).All() {
		pos := ecs.Get[Position](e, ent)
		vel := ecs.Get[Velocity](e, ent)
		pos.X += vel.X * dt
		pos.Y += vel.Y * dt
		if pos.X < 0 || pos.X > worldBounds {
			vel.X = -vel.X
		}
		if pos.Y < 0 || pos.Y > worldBounds {
			vel.Y = -vel.Y
		}
	}
}

func (w *world) damage(e *ecs.Engine) {
	cmds := ecs.ContextOf[ecs.UpdateFrame](e).Commands
	for ent := range e.Each(w.enemies) {
		hp := ecs.Get[Health](e, ent)
		hp.HP -= hp.Decay
		if hp.HP <= 0 {
			cmds.AddTag(ent, TagDead)
		}
	}
}

// aging removes entities whose lifetime ran out. Removal is queued, so the dense walk
// over the lifetime pool is not disturbed.
func (w *world) aging(e *ecs.Engine) {
	for ent, life := range ecs.Dense[Lifetime](e) {
		if life.Frames > 0 {
			life.Frames--
			continue
		}
		e.QueueRemoveEntity(ent)
		w.expired++
		w.queueSpawn()
	}
}

func (w *world) reaper(e *ecs.Engine) {
	cmds := ecs.ContextOf[ecs.UpdateFrame](e).Commands
	for ent := range e.Query(w.dead).All() {
		cmds.Delete(ent)
		w.reaped++
		w.queueSpawn()
	}
}

func (w *world) render(e *ecs.Engine) {
	w.rendered = int(e.ComponentCount(PositionID))
}

// step runs one frame: update systems, then the command flush, then render systems.
func (w *world) step(dt float64) {
	w.frame.DeltaTime = dt
	w.engine.RunGroup(GroupUpdate)
	w.frame.Advance(w.engine, dt)
	w.engine.RunGroup(GroupRender)
}
