package ecs

import "iter"

// NewMask builds a query mask for the engine from component ids and tag ids.
func (e *Engine) NewMask(components []ComponentID, tags []TagID) Signature {
	e.mustBeLive()

	mask := make(Signature, e.signatures.stride)
	for _, id := range components {
		if uint32(id) >= e.maxComponentTypes {
			fatalf(ErrOutOfRange, "component id %d of %d", id, e.maxComponentTypes)
		}
		mask.set(uint32(id), true)
	}
	for _, tag := range tags {
		mask.set(e.tagBit(tag), true)
	}
	return mask
}

// checkMask panics unless mask is empty or sized for this engine.
func (e *Engine) checkMask(mask Signature) {
	e.mustBeLive()
	if len(mask) != 0 && uint32(len(mask)) != e.signatures.stride {
		fatalf(ErrOutOfRange, "mask is %d bytes, engine signatures are %d", len(mask), e.signatures.stride)
	}
}

// Iterator walks the active range and yields every live entity that passes its filter.
//
// The cursor follows indices of the active range, not handles. Removing an entity with
// RemoveEntity or adding one while an Iterator is open may skip or repeat entities;
// QueueRemoveEntity is safe. Iterators are not restartable.
type Iterator struct {
	engine *Engine
	filter Filter
	limit  uint32

	cursor  uint32
	index   uint32
	current Entity
	found   bool
}

// Query returns an iterator over every entity that has all the components and tags set in include.
func (e *Engine) Query(include Signature) *Iterator {
	return e.QueryFilter(Filter{Include: include, IncludeOp: MatchAll})
}

// QueryFilter returns an iterator over every entity that passes filter.
func (e *Engine) QueryFilter(filter Filter) *Iterator {
	e.checkMask(filter.Include)
	if filter.Exclude != nil {
		e.checkMask(filter.Exclude)
	}

	it := &Iterator{engine: e, filter: filter}
	it.seek(0)
	return it
}

// Limit stops the iterator before active index n. Zero removes the limit.
// The limit may be narrowed or widened again before iteration resumes.
func (it *Iterator) Limit(n uint32) *Iterator {
	it.limit = n
	it.seek(it.cursor)
	return it
}

func (it *Iterator) end() uint32 {
	end := it.engine.entities.active
	if it.limit != 0 && it.limit < end {
		end = it.limit
	}
	return end
}

func (it *Iterator) qualifies(ent Entity) bool {
	e := it.engine
	return e.entities.current(ent) && e.signatures.qualifies(ent.Slot, it.filter)
}

// seek finds the first qualifying entity at or after index from.
func (it *Iterator) seek(from uint32) {
	it.cursor = from
	it.found = false
	pool := it.engine.entities.pool
	for i := from; i < it.end(); i++ {
		ent := pool[i]
		if it.qualifies(ent) {
			it.index = i
			it.current = ent
			it.found = true
			return
		}
	}
	it.index = it.end()
}

// HasNext reports whether another entity is available. A candidate that was queued for
// removal or lost a matching component since it was found is skipped.
func (it *Iterator) HasNext() bool {
	it.engine.mustBeLive()
	if it.found && !it.qualifies(it.current) {
		it.seek(it.index + 1)
	}
	return it.found
}

// Next returns the next matching entity, or NoEntity when the iterator is exhausted.
func (it *Iterator) Next() Entity {
	if !it.HasNext() {
		return NoEntity
	}
	ent := it.current
	it.seek(it.index + 1)
	return ent
}

// All consumes the iterator as a range-over-func sequence.
func (it *Iterator) All() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for it.HasNext() {
			if !yield(it.Next()) {
				return
			}
		}
	}
}

// Each yields every entity that passes filter.
func (e *Engine) Each(filter Filter) iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for ent := range e.QueryFilter(filter).All() {
			if !yield(ent) {
				return
			}
		}
	}
}
