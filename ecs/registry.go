package ecs

import (
	"reflect"
	"unsafe"

	"github.com/kamstrup/intmap"
	"github.com/rotisserie/eris"
)

// iface represents the internal memory layout of an interface{}.
type iface struct {
	typ  unsafe.Pointer
	data unsafe.Pointer
}

// typeKey identifies a Go type by its runtime type descriptor.
func typeKey(t reflect.Type) uint64 {
	return uint64(uintptr((*iface)(unsafe.Pointer(&t)).data))
}

// typeRegistry maps Go types to the component ids they were registered under.
type typeRegistry struct {
	ids *intmap.Map[uint64, ComponentID]
}

func newTypeRegistry(capacity int) typeRegistry {
	return typeRegistry{ids: intmap.New[uint64, ComponentID](capacity)}
}

func (r typeRegistry) put(t reflect.Type, id ComponentID) {
	r.ids.Put(typeKey(t), id)
}

func (r typeRegistry) lookup(t reflect.Type) (ComponentID, bool) {
	return r.ids.Get(typeKey(t))
}

func (r typeRegistry) del(t reflect.Type) {
	r.ids.Del(typeKey(t))
}

// checkStorableType rejects types that cannot live in raw component bytes:
// anything holding a Go pointer would hide it from the garbage collector.
func checkStorableType(t reflect.Type) error {
	if t.Size() == 0 {
		return eris.Wrapf(ErrInvalidComponentType, "%s has zero size, use a tag", t)
	}
	if holdsPointers(t) {
		return eris.Wrapf(ErrInvalidComponentType, "%s holds pointers", t)
	}
	return nil
}

func holdsPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Chan, reflect.Func,
		reflect.Interface, reflect.Slice, reflect.String:
		return true
	case reflect.Array:
		return t.Len() > 0 && holdsPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if holdsPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
