package ecs

import (
	"math"
	"math/bits"
	"slices"
	"unsafe"

	"github.com/rotisserie/eris"
)

const arenaAlign = 8

// arenaLayout records where each region of an arena block starts.
// Every region begins on an 8 byte boundary.
type arenaLayout struct {
	offsets []uintptr
	sizes   []uintptr
	total   uintptr
}

// planArena lays out regions of the given byte sizes back to back with running prefix sums.
func planArena(sizes ...uintptr) (arenaLayout, error) {
	layout := arenaLayout{
		offsets: make([]uintptr, len(sizes)),
		sizes:   sizes,
	}

	var offset uint64
	for i, size := range sizes {
		layout.offsets[i] = uintptr(offset)

		padded, err := alignUp(size, arenaAlign)
		if err != nil {
			return arenaLayout{}, eris.Wrapf(err, "region %d", i)
		}

		next, carry := bits.Add64(offset, uint64(padded), 0)
		if carry != 0 || next > math.MaxInt {
			return arenaLayout{}, eris.Wrapf(ErrCapacityOverflow, "region %d of %d bytes", i, size)
		}
		offset = next
	}

	layout.total = uintptr(offset)
	return layout, nil
}

func alignUp(size, align uintptr) (uintptr, error) {
	sum, carry := bits.Add64(uint64(size), uint64(align-1), 0)
	if carry != 0 {
		return 0, eris.Wrapf(ErrCapacityOverflow, "aligning %d bytes", size)
	}
	return uintptr(sum) &^ (align - 1), nil
}

func mulSize(a uintptr, n uint32) (uintptr, error) {
	hi, lo := bits.Mul64(uint64(a), uint64(n))
	if hi != 0 || lo > math.MaxInt {
		return 0, eris.Wrapf(ErrCapacityOverflow, "%d x %d bytes", a, n)
	}
	return uintptr(lo), nil
}

// arena is one allocation that typed views are carved out of.
// The backing words hold no Go pointers, so views may alias them freely.
type arena struct {
	layout arenaLayout
	block  []uint64
}

func newArena(layout arenaLayout) *arena {
	return &arena{
		layout: layout,
		block:  make([]uint64, layout.total/arenaAlign),
	}
}

// clone byte-copies the block. Views carved from the source still point at the source,
// so every holder has to carve again from the copy.
func (a *arena) clone() *arena {
	return &arena{
		layout: a.layout,
		block:  slices.Clone(a.block),
	}
}

func (a *arena) region(i int) (unsafe.Pointer, uintptr) {
	size := a.layout.sizes[i]
	if size == 0 || len(a.block) == 0 {
		return nil, 0
	}
	return unsafe.Add(unsafe.Pointer(unsafe.SliceData(a.block)), a.layout.offsets[i]), size
}

// carve returns region i of the arena viewed as a []T.
func carve[T any](a *arena, i int) []T {
	ptr, size := a.region(i)
	if ptr == nil {
		return nil
	}
	var zero T
	return unsafe.Slice((*T)(ptr), size/unsafe.Sizeof(zero))
}
