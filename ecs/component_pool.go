package ecs

import (
	"math"
	"reflect"
	"unsafe"

	"github.com/rotisserie/eris"
)

// noOffset marks a slot without a record, or a dense offset without an owner.
const noOffset = NoEntityID

const (
	poolRegionData = iota
	poolRegionSlotToOffset
	poolRegionOffsetToSlot
)

// ComponentPool stores the records of one component type densely packed.
// Live records occupy offsets [0, Len()) with no gaps; removing a record moves the
// last record into the hole.
type ComponentPool struct {
	id       ComponentID
	typ      reflect.Type
	size     uint32
	stride   uint32
	capacity uint32
	count    uint32

	mem          *arena
	data         []byte
	slotToOffset []uint32
	offsetToSlot []uint32
}

// newComponentPool allocates the data buffer and both index tables in one block.
// Records are laid out on an 8 byte stride so typed views are aligned.
func newComponentPool(id ComponentID, size uintptr, capacity, maxEntities uint32, typ reflect.Type) (*ComponentPool, error) {
	if size == 0 {
		return nil, eris.Wrapf(ErrInvalidComponentType, "component %d has zero size, use a tag", id)
	}
	if size > math.MaxUint32 {
		return nil, eris.Wrapf(ErrCapacityOverflow, "component %d is %d bytes", id, size)
	}

	stride, err := alignUp(size, arenaAlign)
	if err != nil {
		return nil, err
	}
	dataBytes, err := mulSize(stride, capacity)
	if err != nil {
		return nil, eris.Wrapf(err, "component %d data", id)
	}
	slotBytes, err := mulSize(4, maxEntities)
	if err != nil {
		return nil, err
	}
	offsetBytes, err := mulSize(4, capacity)
	if err != nil {
		return nil, err
	}

	layout, err := planArena(dataBytes, slotBytes, offsetBytes)
	if err != nil {
		return nil, eris.Wrapf(err, "component %d", id)
	}

	p := &ComponentPool{
		id:       id,
		typ:      typ,
		size:     uint32(size),
		stride:   uint32(stride),
		capacity: capacity,
	}
	p.carve(newArena(layout))

	for i := range p.slotToOffset {
		p.slotToOffset[i] = noOffset
	}
	for i := range p.offsetToSlot {
		p.offsetToSlot[i] = noOffset
	}

	return p, nil
}

func (p *ComponentPool) carve(a *arena) {
	p.mem = a
	p.data = carve[byte](a, poolRegionData)
	p.slotToOffset = carve[uint32](a, poolRegionSlotToOffset)
	p.offsetToSlot = carve[uint32](a, poolRegionOffsetToSlot)
}

func (p *ComponentPool) record(offset uint32) []byte {
	start := int(offset) * int(p.stride)
	end := start + int(p.size)
	return p.data[start:end:end]
}

// add copies src into the pool for slot. A slot that already has a record is overwritten in place.
func (p *ComponentPool) add(slot uint32, src []byte) {
	if uint32(len(src)) != p.size {
		fatalf(ErrInvalidComponentType, "component %d expects %d bytes, got %d", p.id, p.size, len(src))
	}

	if offset := p.slotToOffset[slot]; offset != noOffset {
		copy(p.record(offset), src)
		return
	}

	if p.count == p.capacity {
		fatalf(ErrCapacityExceeded, "component %d pool is full (%d)", p.id, p.capacity)
	}

	offset := p.count
	copy(p.record(offset), src)
	p.slotToOffset[slot] = offset
	p.offsetToSlot[offset] = slot
	p.count++
}

func (p *ComponentPool) remove(slot uint32) bool {
	offset := p.slotToOffset[slot]
	if offset == noOffset {
		return false
	}

	last := p.count - 1
	if offset != last {
		moved := p.offsetToSlot[last]
		copy(p.record(offset), p.record(last))
		p.offsetToSlot[offset] = moved
		p.slotToOffset[moved] = offset
	}

	clear(p.record(last))
	p.offsetToSlot[last] = noOffset
	p.slotToOffset[slot] = noOffset
	p.count--
	return true
}

func (p *ComponentPool) get(slot uint32) []byte {
	offset := p.slotToOffset[slot]
	if offset == noOffset {
		return nil
	}
	return p.record(offset)
}

func (p *ComponentPool) pointer(slot uint32) unsafe.Pointer {
	offset := p.slotToOffset[slot]
	if offset == noOffset {
		return nil
	}
	return unsafe.Pointer(&p.data[int(offset)*int(p.stride)])
}

// At returns the record at a dense offset.
// Offsets are only stable until the next removal from this pool.
func (p *ComponentPool) At(offset uint32) []byte {
	if offset >= p.count {
		fatalf(ErrOutOfRange, "offset %d of component %d with %d records", offset, p.id, p.count)
	}
	return p.record(offset)
}

// SlotAt returns the entity slot owning the record at a dense offset.
func (p *ComponentPool) SlotAt(offset uint32) uint32 {
	if offset >= p.count {
		fatalf(ErrOutOfRange, "offset %d of component %d with %d records", offset, p.id, p.count)
	}
	return p.offsetToSlot[offset]
}

// ID returns the component id the pool was registered under
func (p *ComponentPool) ID() ComponentID { return p.id }

// Type returns the Go type registered for the pool, or nil for size-only registrations
func (p *ComponentPool) Type() reflect.Type { return p.typ }

// Size returns the size in bytes of one record
func (p *ComponentPool) Size() uint32 { return p.size }

// Len returns the number of live records
func (p *ComponentPool) Len() uint32 { return p.count }

// Cap returns the maximum number of records
func (p *ComponentPool) Cap() uint32 { return p.capacity }

func (p *ComponentPool) clone() *ComponentPool {
	c := *p
	c.carve(p.mem.clone())
	return &c
}

func (p *ComponentPool) free() {
	p.mem = nil
	p.data = nil
	p.slotToOffset = nil
	p.offsetToSlot = nil
	p.count = 0
}
