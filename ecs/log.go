package ecs

import "github.com/rs/zerolog"

func (e *Engine) componentsArray() *zerolog.Array {
	arr := zerolog.Arr()
	for _, pool := range e.pools {
		if pool == nil {
			continue
		}
		dict := zerolog.Dict().
			Uint32("component_id", uint32(pool.id)).
			Uint32("size", pool.size).
			Uint32("capacity", pool.capacity).
			Uint32("count", pool.count)
		if pool.typ != nil {
			dict = dict.Str("type", pool.typ.String())
		}
		arr = arr.Dict(dict)
	}
	return arr
}

func (e *Engine) systemsArray() *zerolog.Array {
	arr := zerolog.Arr()
	for _, rec := range e.systems.records {
		arr = arr.Dict(zerolog.Dict().
			Uint32("group", uint32(rec.group)).
			Str("name", rec.name))
	}
	return arr
}

// LogState writes one event at level describing every registered component and system.
func (e *Engine) LogState(level zerolog.Level) {
	e.mustBeLive()
	e.logger.WithLevel(level).
		Uint32("active_entities", e.entities.active).
		Int("total_systems", len(e.systems.records)).
		Array("components", e.componentsArray()).
		Array("systems", e.systemsArray()).
		Msg("engine state")
}

// LogEntity writes one event at level listing the components and tags of ent.
func (e *Engine) LogEntity(level zerolog.Level, ent Entity) {
	e.mustBeLive()
	event := e.logger.WithLevel(level).Stringer("entity", ent)
	if !e.entities.isLive(ent) {
		event.Bool("live", false).Msg("entity state")
		return
	}

	components := zerolog.Arr()
	for id := uint32(0); id < e.maxComponentTypes; id++ {
		if e.signatures.test(ent.Slot, id) {
			components = components.Uint32(id)
		}
	}
	tags := zerolog.Arr()
	for tag := uint32(0); tag < e.maxTags; tag++ {
		if e.signatures.test(ent.Slot, e.signatures.tagBit(TagID(tag))) {
			tags = tags.Uint32(tag)
		}
	}
	event.Bool("live", true).
		Array("components", components).
		Array("tags", tags).
		Msg("entity state")
}
