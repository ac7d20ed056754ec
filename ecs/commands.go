package ecs

import (
	"slices"

	"github.com/kamstrup/intmap"
)

// Commands provides a buffer for deferred engine operations that are applied at the end of a frame.
// This keeps the active range stable while systems iterate.
type Commands struct {
	spawns  []spawnCommand
	deletes []Entity
	adds    []addComponentCommand
	removes []removeComponentCommand
	tags    []tagCommand
	defers  []deferCommand

	deleted *intmap.Set[uint64]
}

// NewCommands returns an empty command buffer.
func NewCommands() *Commands {
	return &Commands{deleted: intmap.NewSet[uint64](16)}
}

type deferCommand struct {
	fn func()
}

type spawnCommand struct {
	components []ComponentValue
	tags       []TagID
	then       func(Entity)
}

type addComponentCommand struct {
	entity    Entity
	component ComponentValue
}

type removeComponentCommand struct {
	entity Entity
	id     ComponentID
}

type tagCommand struct {
	entity Entity
	tag    TagID
	set    bool
}

func cloneValues(values []ComponentValue) []ComponentValue {
	out := make([]ComponentValue, len(values))
	for i, v := range values {
		out[i] = ComponentValue{ID: v.ID, Data: slices.Clone(v.Data)}
	}
	return out
}

// Defer queues a function execution operation.
func (c *Commands) Defer(fn func()) {
	c.defers = append(c.defers, deferCommand{fn: fn})
}

// Spawn queues an entity spawn operation with the given components.
func (c *Commands) Spawn(components ...ComponentValue) {
	c.spawns = append(c.spawns, spawnCommand{components: cloneValues(components)})
}

// SpawnTagged queues a spawn with components and tags. then, if not nil, receives the new entity.
func (c *Commands) SpawnTagged(tags []TagID, then func(Entity), components ...ComponentValue) {
	c.spawns = append(c.spawns, spawnCommand{
		components: cloneValues(components),
		tags:       slices.Clone(tags),
		then:       then,
	})
}

// Delete queues an entity deletion operation.
func (c *Commands) Delete(entity Entity) {
	c.deletes = append(c.deletes, entity)
}

// AddComponent queues a component addition operation. The bytes are copied.
func (c *Commands) AddComponent(entity Entity, component ComponentValue) {
	c.adds = append(c.adds, addComponentCommand{
		entity:    entity,
		component: ComponentValue{ID: component.ID, Data: slices.Clone(component.Data)},
	})
}

// RemoveComponent queues a component removal operation.
func (c *Commands) RemoveComponent(entity Entity, id ComponentID) {
	c.removes = append(c.removes, removeComponentCommand{
		entity: entity,
		id:     id,
	})
}

// AddTag queues setting a tag.
func (c *Commands) AddTag(entity Entity, tag TagID) {
	c.tags = append(c.tags, tagCommand{entity: entity, tag: tag, set: true})
}

// RemoveTag queues clearing a tag.
func (c *Commands) RemoveTag(entity Entity, tag TagID) {
	c.tags = append(c.tags, tagCommand{entity: entity, tag: tag})
}

// Len returns the number of buffered operations.
func (c *Commands) Len() int {
	return len(c.spawns) + len(c.deletes) + len(c.adds) + len(c.removes) + len(c.tags) + len(c.defers)
}

// Flush applies all commands to the engine, reseting the buffer state.
// Deletions are flushed first, and operations on entities deleted in the same batch are dropped.
// Commands queued by spawn callbacks or deferred functions are kept for the next Flush.
func (c *Commands) Flush(e *Engine) {
	e.mustBeLive()
	if c.deleted == nil {
		c.deleted = intmap.NewSet[uint64](len(c.deletes) + 16)
	}

	spawns, deletes, adds, removes, tags, defers := c.spawns, c.deletes, c.adds, c.removes, c.tags, c.defers
	c.spawns, c.deletes, c.adds, c.removes, c.tags, c.defers = nil, nil, nil, nil, nil, nil

	for _, ent := range deletes {
		e.QueueRemoveEntity(ent)
		c.deleted.Add(ent.Pack())
	}
	e.FlushRemoved()

	for _, cmd := range removes {
		if !c.deleted.Has(cmd.entity.Pack()) {
			e.RemoveComponent(cmd.entity, cmd.id)
		}
	}

	for _, cmd := range adds {
		if !c.deleted.Has(cmd.entity.Pack()) {
			e.AddComponent(cmd.entity, cmd.component.ID, cmd.component.Data)
		}
	}

	for _, cmd := range tags {
		if c.deleted.Has(cmd.entity.Pack()) {
			continue
		}
		if cmd.set {
			e.AddTag(cmd.entity, cmd.tag)
		} else {
			e.RemoveTag(cmd.entity, cmd.tag)
		}
	}

	for _, cmd := range spawns {
		ent := e.AddEntity()
		for _, v := range cmd.components {
			e.AddComponent(ent, v.ID, v.Data)
		}
		for _, tag := range cmd.tags {
			e.AddTag(ent, tag)
		}
		if cmd.then != nil {
			cmd.then(ent)
		}
	}

	for _, df := range defers {
		df.fn()
	}
	c.deleted.Clear()

	// Hand the drained buffers back when nothing was queued during the flush.
	c.spawns = reuse(c.spawns, spawns)
	c.deletes = reuse(c.deletes, deletes)
	c.adds = reuse(c.adds, adds)
	c.removes = reuse(c.removes, removes)
	c.tags = reuse(c.tags, tags)
	c.defers = reuse(c.defers, defers)
}

func reuse[T any](queued, drained []T) []T {
	if len(queued) != 0 {
		return queued
	}
	clear(drained)
	return drained[:0]
}
