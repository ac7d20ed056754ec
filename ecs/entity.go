package ecs

import "fmt"

// NoEntityID is the slot id that marks "no entity", whatever the generation.
const NoEntityID uint32 = 0xFFFFFFFF

// NoEntity is the handle returned when there is no entity to return.
var NoEntity = Entity{Slot: NoEntityID}

type (
	// ComponentID indexes a registered component type, from 0 to MaxComponentTypes-1.
	ComponentID uint32
	// TagID indexes a data-less tag, from 0 to MaxTags-1.
	TagID uint32
	// GroupID selects the system group run by Engine.RunGroup.
	GroupID uint32
)

// Entity is a handle to a recyclable entity slot. The handle is only valid while
// Generation matches the generation the engine currently stores for Slot.
type Entity struct {
	Slot       uint32
	Generation uint32
}

// NewEntity creates an Entity from a slot and a generation
func NewEntity(slot, generation uint32) Entity {
	return Entity{Slot: slot, Generation: generation}
}

// UnpackEntity decodes a handle packed by Entity.Pack
func UnpackEntity(packed uint64) Entity {
	return Entity{Slot: uint32(packed & 0xFFFFFFFF), Generation: uint32(packed >> 32)}
}

// Pack encodes the slot in the lower 32 bits and the generation in the upper 32 bits
func (e Entity) Pack() uint64 {
	return uint64(e.Generation)<<32 | uint64(e.Slot)
}

// IsNone reports whether the handle refers to no entity
func (e Entity) IsNone() bool {
	return e.Slot == NoEntityID
}

func (e Entity) String() string {
	if e.IsNone() {
		return "entity(none)"
	}
	return fmt.Sprintf("entity(%d@%d)", e.Slot, e.Generation)
}
