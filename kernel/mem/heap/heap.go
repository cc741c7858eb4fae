// Package heap implements a boundary-tag explicit free-list allocator
// layered on top of vmm.Manager: each region it carves blocks out of is a
// single VM object, grown on demand as existing regions fill up.
package heap

import (
	"nyxkernel/kernel"
	"nyxkernel/kernel/addr"
	"nyxkernel/kernel/mem"
	"nyxkernel/kernel/mem/vmm"
	"nyxkernel/kernel/sync"
)

var (
	errInvalidSize      = &kernel.Error{Module: "heap", Message: "allocation size must be nonzero and fit in 32 bits"}
	errInvalidAlignment = &kernel.Error{Module: "heap", Message: "alignment must be a nonzero power of two"}
	errAddressNotOwned  = &kernel.Error{Module: "heap", Message: "address does not belong to any heap region"}

	maxAllocSize = (uint64(1) << 32) - 1

	// The following are mocked by tests and are automatically inlined by
	// the compiler in production builds.
	allocateObjectFn = vmm.AllocateObject
	panicFn          = kernel.Panic
)

// Heap is a singly-linked list of regions, each carrying its own
// intrusive free-blocks list.
type Heap struct {
	head, tail *regionHeader
}

var global sync.OnceLock[Heap]

// Init prepares an empty heap with no regions. The first allocation grows
// one on demand.
func Init() *kernel.Error {
	global.Set(Heap{})
	return nil
}

// Alloc returns size bytes, naturally aligned to 8 bytes.
func Alloc(size uint64) (addr.VirtAddr, *kernel.Error) {
	h := global.Lock()
	defer global.Unlock()
	return h.alloc(size, 8)
}

// AllocAligned returns size bytes aligned to align, which must be a
// nonzero power of two.
func AllocAligned(size, align uint64) (addr.VirtAddr, *kernel.Error) {
	h := global.Lock()
	defer global.Unlock()
	if align == 0 || align&(align-1) != 0 {
		panicFn(errInvalidAlignment)
	}
	return h.alloc(size, align)
}

// Free returns a previously allocated address to the heap, coalescing it
// with any free neighbour.
func Free(a addr.VirtAddr) *kernel.Error {
	h := global.Lock()
	defer global.Unlock()
	return h.free(a)
}

func (h *Heap) alloc(size, align uint64) (addr.VirtAddr, *kernel.Error) {
	if size == 0 || size > maxAllocSize {
		panicFn(errInvalidSize)
	}

	payload := alignUp64(size, 8)
	if payload < freeNodeSize {
		payload = freeNodeSize
	}

	if got, ok := h.searchFreeList(payload, align); ok {
		return addr.VirtAddr(got), nil
	}
	return h.bumpAlloc(payload, align)
}

// searchFreeList implements the first-fit path: region order, then
// free-list order within each region.
func (h *Heap) searchFreeList(need, align uint64) (uintptr, bool) {
	for r := h.head; r != nil; r = r.next {
		for node := r.freeHead; node != nil; {
			next := node.next
			b := blockFromFreeNode(node)
			payloadAddr := b.payloadAddr()
			aligned := alignUpPtr(payloadAddr, align)
			padding := uint64(aligned - payloadAddr)

			if uint64(b.size()) >= need+padding {
				r.removeFree(node)
				r.splitOrClaim(b, need+padding)
				return aligned, true
			}
			node = next
		}
	}
	return 0, false
}

// splitOrClaim marks b used for usedSize bytes of its payload, carving off
// a trailing free block from the remainder when the remainder is large
// enough to host one.
func (r *regionHeader) splitOrClaim(b block, usedSize uint64) {
	total := uint64(b.size())
	remainder := total - usedSize

	if remainder < 2*headerSize+freeNodeSize {
		b.resize(uint32(total), true)
		return
	}

	b.resize(uint32(usedSize), true)
	trailing := newBlock(b.end(), uint32(remainder-2*headerSize), false)
	r.pushFree(trailing.freeNode())
}

// bumpAlloc obtains (growing a region if necessary) enough fresh space at
// the tail of the block stream to satisfy need bytes of payload at the
// given alignment, over-provisioning the payload so the returned pointer
// can be shifted forward without leaving the block.
func (h *Heap) bumpAlloc(need, align uint64) (addr.VirtAddr, *kernel.Error) {
	extra := uint64(0)
	if align > 8 {
		extra = align - 8
	}
	payloadSize := need + extra

	r := h.tail
	if r == nil || !r.fits(payloadSize) {
		grown, err := h.growRegion(payloadSize)
		if err != nil {
			return 0, err
		}
		r = grown
	}

	cur := r.bumpCursor()
	b := newBlock(cur, uint32(payloadSize), true)
	r.totalAllocated += 2*headerSize + payloadSize

	return addr.VirtAddr(alignUpPtr(b.payloadAddr(), align)), nil
}

func (h *Heap) growRegion(minPayload uint64) (*regionHeader, *kernel.Error) {
	size := minPayload + 2*headerSize + regionHeaderSize
	if size < uint64(mem.PageSize) {
		size = uint64(mem.PageSize)
	}

	vmo, err := allocateObjectFn(size)
	if err != nil {
		return nil, err
	}

	r := newRegionHeader(vmo)
	if h.head == nil {
		h.head = r
	} else {
		h.tail.next = r
	}
	h.tail = r
	return r, nil
}

func (h *Heap) free(a addr.VirtAddr) *kernel.Error {
	target := a.AsPointer()

	for r := h.head; r != nil; r = r.next {
		if !r.owns(target) {
			continue
		}
		b, ok := r.blockContaining(target)
		if !ok {
			return errAddressNotOwned
		}
		return r.freeBlock(b)
	}
	return errAddressNotOwned
}

// freeBlock marks b free and coalesces it with a free predecessor and/or
// successor in the block stream.
func (r *regionHeader) freeBlock(b block) *kernel.Error {
	if !b.isUsed() {
		return nil
	}

	prev, hasPrev := r.freePredecessorOf(b)
	next, hasNext := r.freeSuccessorOf(b)

	switch {
	case hasPrev && hasNext:
		r.removeFree(prev.freeNode())
		r.removeFree(next.freeNode())
		combined := uint64(prev.size()) + uint64(b.size()) + uint64(next.size()) + 4*headerSize
		prev.resize(uint32(combined), false)
		r.pushFree(prev.freeNode())
	case hasPrev:
		r.removeFree(prev.freeNode())
		combined := uint64(prev.size()) + uint64(b.size()) + 2*headerSize
		prev.resize(uint32(combined), false)
		r.pushFree(prev.freeNode())
	case hasNext:
		r.removeFree(next.freeNode())
		combined := uint64(b.size()) + uint64(next.size()) + 2*headerSize
		b.resize(uint32(combined), false)
		r.pushFree(b.freeNode())
	default:
		b.resize(b.size(), false)
		r.pushFree(b.freeNode())
	}
	return nil
}

func (r *regionHeader) freePredecessorOf(b block) (block, bool) {
	if uintptr(b) <= r.base {
		return 0, false
	}

	prevHeader := readHeaderAt(uintptr(b) - uintptr(headerSize))
	prevTotal := 2*headerSize + uint64(prevHeader.size())
	prevAddr := uintptr(b) - uintptr(prevTotal)
	if prevAddr < r.base {
		return 0, false
	}

	candidate := block(prevAddr)
	if candidate.isUsed() {
		return 0, false
	}
	return candidate, true
}

func (r *regionHeader) freeSuccessorOf(b block) (block, bool) {
	nextAddr := b.end()
	if nextAddr >= r.bumpCursor() {
		return 0, false
	}

	candidate := block(nextAddr)
	if candidate.isUsed() {
		return 0, false
	}
	return candidate, true
}

func alignUp64(v, n uint64) uint64 { return (v + n - 1) &^ (n - 1) }

func alignUpPtr(p uintptr, align uint64) uintptr {
	a := uintptr(align)
	return (p + a - 1) &^ (a - 1)
}
