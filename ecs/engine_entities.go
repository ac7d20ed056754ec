package ecs

// AddEntity activates a free slot and returns its handle. It panics when every slot is active.
func (e *Engine) AddEntity() Entity {
	e.mustBeLive()
	return e.entities.add()
}

// RemoveEntity strips the entity's components and tags and returns its slot to the free range
// right away. Stale handles are ignored.
//
// Removing reorders the active range, so it must not be called while an Iterator is in use.
// Use QueueRemoveEntity there instead.
func (e *Engine) RemoveEntity(ent Entity) {
	e.mustBeLive()
	if !e.entities.isLive(ent) {
		return
	}
	e.stripSlot(ent.Slot)
	e.entities.remove(ent)
}

// QueueRemoveEntity invalidates the handle immediately but leaves the slot, and its
// components, in place until FlushRemoved. Safe to call while iterating.
func (e *Engine) QueueRemoveEntity(ent Entity) {
	e.mustBeLive()
	e.entities.invalidate(ent)
}

// FlushRemoved erases every entity queued for removal and returns how many were erased.
func (e *Engine) FlushRemoved() int {
	e.mustBeLive()
	removed := e.entities.flush(e.stripSlot)
	if removed > 0 {
		e.logger.Debug().Int("removed", removed).Uint32("active_entities", e.entities.active).Msg("flushed removed entities")
	}
	return removed
}

// RemoveEntityAt removes the entity at an index of the active range, whether or not it is
// queued for removal.
func (e *Engine) RemoveEntityAt(index uint32) {
	e.mustBeLive()
	if index >= e.entities.active {
		fatalf(ErrOutOfRange, "active index %d of %d", index, e.entities.active)
	}

	ent := e.entities.pool[index]
	e.stripSlot(ent.Slot)
	if e.entities.current(ent) {
		e.entities.generations[ent.Slot]++
	}
	e.entities.removeAt(index)
}

// EntityAt returns the handle stored at an index of the active range. The handle is stale
// if the entity was queued for removal and not flushed yet.
func (e *Engine) EntityAt(index uint32) Entity {
	e.mustBeLive()
	if index >= e.entities.active {
		fatalf(ErrOutOfRange, "active index %d of %d", index, e.entities.active)
	}
	return e.entities.pool[index]
}

// NumActiveEntities returns the size of the active range, including entities queued for removal.
func (e *Engine) NumActiveEntities() uint32 {
	e.mustBeLive()
	return e.entities.active
}

// IsLive reports whether ent still refers to the entity it was issued for.
func (e *Engine) IsLive(ent Entity) bool {
	e.mustBeLive()
	return e.entities.isLive(ent)
}

// stripSlot removes every component of slot and clears its signature, tags included.
func (e *Engine) stripSlot(slot uint32) {
	for id := uint32(0); id < e.maxComponentTypes; id++ {
		if !e.signatures.test(slot, id) {
			continue
		}
		if pool := e.pools[id]; pool != nil {
			pool.remove(slot)
		}
	}
	e.signatures.clear(slot)
}

// AddComponent copies data into the pool of component id for ent. data must be exactly the
// registered size. Adding a component the entity already has overwrites it.
// Stale handles are ignored.
func (e *Engine) AddComponent(ent Entity, id ComponentID, data []byte) {
	pool := e.pool(id)
	if !e.entities.isLive(ent) {
		return
	}
	pool.add(ent.Slot, data)
	e.signatures.set(ent.Slot, uint32(id), true)
}

// RemoveComponent detaches component id from ent. Missing components are ignored.
func (e *Engine) RemoveComponent(ent Entity, id ComponentID) {
	pool := e.pool(id)
	if !e.entities.isLive(ent) {
		return
	}
	pool.remove(ent.Slot)
	e.signatures.set(ent.Slot, uint32(id), false)
}

// RemoveAllComponents detaches every component and tag from ent.
func (e *Engine) RemoveAllComponents(ent Entity) {
	e.mustBeLive()
	if !e.entities.isLive(ent) {
		return
	}
	e.stripSlot(ent.Slot)
}

// GetComponent returns the record of component id for ent, or nil if the entity does not
// have it. The returned bytes alias the pool and may be written in place.
func (e *Engine) GetComponent(ent Entity, id ComponentID) []byte {
	pool := e.pool(id)
	if !e.entities.isLive(ent) {
		return nil
	}
	return pool.get(ent.Slot)
}

// HasComponent reports whether ent has component id.
func (e *Engine) HasComponent(ent Entity, id ComponentID) bool {
	e.mustBeLive()
	if uint32(id) >= e.maxComponentTypes {
		fatalf(ErrOutOfRange, "component id %d of %d", id, e.maxComponentTypes)
	}
	return e.entities.isLive(ent) && e.signatures.test(ent.Slot, uint32(id))
}

func (e *Engine) tagBit(tag TagID) uint32 {
	e.mustBeLive()
	if uint32(tag) >= e.maxTags {
		fatalf(ErrOutOfRange, "tag %d of %d", tag, e.maxTags)
	}
	return e.signatures.tagBit(tag)
}

// AddTag sets tag on ent.
func (e *Engine) AddTag(ent Entity, tag TagID) {
	bit := e.tagBit(tag)
	if e.entities.isLive(ent) {
		e.signatures.set(ent.Slot, bit, true)
	}
}

// RemoveTag clears tag on ent.
func (e *Engine) RemoveTag(ent Entity, tag TagID) {
	bit := e.tagBit(tag)
	if e.entities.isLive(ent) {
		e.signatures.set(ent.Slot, bit, false)
	}
}

// HasTag reports whether ent has tag.
func (e *Engine) HasTag(ent Entity, tag TagID) bool {
	bit := e.tagBit(tag)
	return e.entities.isLive(ent) && e.signatures.test(ent.Slot, bit)
}

// HasComponents reports whether ent has every component and tag set in mask.
func (e *Engine) HasComponents(ent Entity, mask Signature) bool {
	e.checkMask(mask)
	return e.entities.isLive(ent) && e.signatures.matches(ent.Slot, mask, MatchAll)
}

// HasExcluded reports whether ent has none of the components and tags set in mask.
func (e *Engine) HasExcluded(ent Entity, mask Signature) bool {
	e.checkMask(mask)
	return e.entities.isLive(ent) && !e.signatures.matches(ent.Slot, mask, MatchAny)
}

// ComponentCount returns the number of live records of component id.
func (e *Engine) ComponentCount(id ComponentID) uint32 {
	return e.pool(id).Len()
}

// ComponentAt returns the record at a dense offset of component id's pool.
// Offsets are invalidated by any removal from that pool.
func (e *Engine) ComponentAt(id ComponentID, offset uint32) []byte {
	return e.pool(id).At(offset)
}

// ComponentEntity returns the entity owning the record at a dense offset, or NoEntity if
// the owner is queued for removal.
func (e *Engine) ComponentEntity(id ComponentID, offset uint32) Entity {
	slot := e.pool(id).SlotAt(offset)
	ent := Entity{Slot: slot, Generation: e.entities.generations[slot]}
	if !e.entities.isLive(ent) {
		return NoEntity
	}
	return ent
}
