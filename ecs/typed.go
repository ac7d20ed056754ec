package ecs

import (
	"iter"
	"reflect"
	"unsafe"

	"github.com/rotisserie/eris"
)

// RegisterComponent registers T as component id. T must not hold pointers, since its
// records are stored as raw bytes.
func RegisterComponent[T any](e *Engine, id ComponentID, maxInstances uint32) error {
	t := reflect.TypeFor[T]()
	if err := checkStorableType(t); err != nil {
		return err
	}
	if prev, ok := e.types.lookup(t); ok {
		fatalf(ErrDuplicateComponent, "%s is already registered as component %d", t, prev)
	}
	return e.registerPool(id, t.Size(), maxInstances, t)
}

// ComponentIDOf returns the id T was registered under.
func ComponentIDOf[T any](e *Engine) (ComponentID, bool) {
	e.mustBeLive()
	return e.types.lookup(reflect.TypeFor[T]())
}

func mustComponentID[T any](e *Engine) ComponentID {
	e.mustBeLive()
	t := reflect.TypeFor[T]()
	id, ok := e.types.lookup(t)
	if !ok {
		panic(eris.Wrapf(ErrUnknownComponent, "%s is not registered", t))
	}
	return id
}

func bytesOf[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}

// Add attaches v to ent under the id T was registered with.
func Add[T any](e *Engine, ent Entity, v T) {
	e.AddComponent(ent, mustComponentID[T](e), bytesOf(&v))
}

// Get returns a pointer into the pool record of T for ent, or nil if ent does not have it.
// The pointer is invalidated by any removal from the same pool.
func Get[T any](e *Engine, ent Entity) *T {
	pool := e.pool(mustComponentID[T](e))
	if !e.entities.isLive(ent) {
		return nil
	}
	return (*T)(pool.pointer(ent.Slot))
}

// Remove detaches T from ent.
func Remove[T any](e *Engine, ent Entity) {
	e.RemoveComponent(ent, mustComponentID[T](e))
}

// ComponentValue is a component id paired with the bytes of one record.
type ComponentValue struct {
	ID   ComponentID
	Data []byte
}

// Value captures a copy of v for use with Commands.
func Value[T any](e *Engine, v T) ComponentValue {
	return ComponentValue{ID: mustComponentID[T](e), Data: bytesOf(&v)}
}

// Dense yields every record of T in dense order together with its owning entity.
// Records whose owner is queued for removal are skipped. The pool must not be
// modified while iterating.
func Dense[T any](e *Engine) iter.Seq2[Entity, *T] {
	pool := e.pool(mustComponentID[T](e))
	return func(yield func(Entity, *T) bool) {
		for offset := uint32(0); offset < pool.count; offset++ {
			slot := pool.offsetToSlot[offset]
			ent := Entity{Slot: slot, Generation: e.entities.generations[slot]}
			if !e.entities.isLive(ent) {
				continue
			}
			if !yield(ent, (*T)(unsafe.Pointer(&pool.data[int(offset)*int(pool.stride)]))) {
				return
			}
		}
	}
}
