package ecs

// entityRegistry hands out entity slots and recycles them.
//
// pool holds every slot exactly once. The first `active` entries are the active range,
// the rest are free slots waiting to be reused:
//
//	active: 2     [ 3@0 1@4 | 0 2 ]
//	remove 3@0 -> [ 1@4 | 3 0 2 ]   (last active entry swapped into the hole)
//	add        -> [ 1@4 3@1 | 0 2 ]
//
// Active entries keep the handle they were issued with. A queued removal only bumps the
// slot generation, which leaves a stale entry in the active range until flush.
type entityRegistry struct {
	pool        []Entity
	positions   []uint32
	generations []uint32
	active      uint32
}

func (r *entityRegistry) init(pool []Entity, positions, generations []uint32) {
	r.pool = pool
	r.positions = positions
	r.generations = generations
	r.active = 0

	for i := range r.pool {
		r.pool[i] = Entity{Slot: uint32(i)}
		r.positions[i] = uint32(i)
		r.generations[i] = 0
	}
}

func (r *entityRegistry) capacity() uint32 {
	return uint32(len(r.pool))
}

func (r *entityRegistry) add() Entity {
	if r.active == r.capacity() {
		fatalf(ErrCapacityExceeded, "all %d entity slots are active", r.capacity())
	}

	slot := r.pool[r.active].Slot
	e := Entity{Slot: slot, Generation: r.generations[slot]}
	r.pool[r.active] = e
	r.active++
	return e
}

// current reports whether an active-range entry still carries the slot's generation.
func (r *entityRegistry) current(e Entity) bool {
	return r.generations[e.Slot] == e.Generation
}

func (r *entityRegistry) isLive(e Entity) bool {
	if e.Slot >= r.capacity() {
		return false
	}
	if r.generations[e.Slot] != e.Generation {
		return false
	}
	pos := r.positions[e.Slot]
	return pos < r.active && r.pool[pos] == e
}

// invalidate bumps the slot generation so every copy of e goes stale.
// The slot stays in the active range.
func (r *entityRegistry) invalidate(e Entity) bool {
	if !r.isLive(e) {
		return false
	}
	r.generations[e.Slot]++
	return true
}

func (r *entityRegistry) remove(e Entity) bool {
	if !r.invalidate(e) {
		return false
	}
	r.removeAt(r.positions[e.Slot])
	return true
}

// removeAt swaps the entry at index with the last active entry and shrinks the active range.
func (r *entityRegistry) removeAt(index uint32) {
	last := r.active - 1
	removed := r.pool[index]
	moved := r.pool[last]

	r.pool[index] = moved
	r.positions[moved.Slot] = index

	r.pool[last] = Entity{Slot: removed.Slot}
	r.positions[removed.Slot] = last

	r.active--
}

// flush erases every stale entry from the active range. It walks the range back to front:
// removeAt only ever pulls an entry from behind the cursor, and those were already visited.
func (r *entityRegistry) flush(onRemove func(slot uint32)) int {
	removed := 0
	for i := r.active; i > 0; i-- {
		index := i - 1
		e := r.pool[index]
		if r.current(e) {
			continue
		}
		onRemove(e.Slot)
		r.removeAt(index)
		removed++
	}
	return removed
}
